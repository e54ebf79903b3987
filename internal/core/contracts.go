package core

import (
	"context"
	"time"
)

// SearchRequest is a query against the document store.
type SearchRequest struct {
	Indices []string
	// Body is the opaque query body with script clauses in canonical form.
	Body map[string]any
}

// IndexRequest writes one document into the store.
type IndexRequest struct {
	Index    string
	ID       string
	Document map[string]any
}

// IndexResponse acknowledges a write.
type IndexResponse struct {
	Index   string
	ID      string
	Created bool
	Version int64
}

// Store is the document store consumed by search inputs, search transforms and
// index actions.
type Store interface {
	Search(ctx context.Context, req SearchRequest) (map[string]any, error)
	Index(ctx context.Context, req IndexRequest) (IndexResponse, error)
}

// Attachment is a file attached to an email.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// EmailMessage is a rendered email.
type EmailMessage struct {
	From        string
	To          []string
	CC          []string
	BCC         []string
	ReplyTo     []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// EmailSender delivers emails.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// BasicAuth carries HTTP basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// HTTPRequest is a rendered webhook call.
type HTTPRequest struct {
	Method            string
	URL               string
	Params            map[string]string
	Headers           map[string]string
	Body              string
	Auth              *BasicAuth
	ConnectionTimeout time.Duration
	ReadTimeout       time.Duration
}

// HTTPResponse is the reply of a webhook call.
type HTTPResponse struct {
	Status  int
	Headers map[string][]string
	Body    string
}

// HTTPClient performs webhook calls.
type HTTPClient interface {
	Do(ctx context.Context, req HTTPRequest) (HTTPResponse, error)
}

// SlackMessage is a rendered Slack post.
type SlackMessage struct {
	To   []string
	From string
	Text string
}

// SlackSender posts Slack messages.
type SlackSender interface {
	Send(ctx context.Context, msg SlackMessage) error
}
