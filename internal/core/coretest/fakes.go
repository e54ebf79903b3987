// Package coretest provides in-memory fakes of the core contracts for tests.
package coretest

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/dagucloud/watcher/internal/core"
)

var (
	_ core.Input         = (*Input)(nil)
	_ core.Condition     = (*Condition)(nil)
	_ core.Transform     = (*Transform)(nil)
	_ core.Action        = (*Action)(nil)
	_ core.Store         = (*Store)(nil)
	_ core.EmailSender   = (*EmailSender)(nil)
	_ core.HTTPClient    = (*HTTPClient)(nil)
	_ core.SlackSender   = (*SlackSender)(nil)
	_ core.ScriptService = Scripts(nil)
)

// Input returns a fixed payload.
type Input struct {
	Payload core.Payload
	Err     error
}

func (*Input) Type() string { return "fake" }
func (*Input) Spec() any    { return map[string]any{} }

func (i *Input) Execute(context.Context, *core.ExecContext) (core.Payload, error) {
	return maps.Clone(i.Payload), i.Err
}

// Condition returns a fixed verdict.
type Condition struct {
	Met bool
	Err error
}

func (*Condition) Type() string { return "fake" }
func (*Condition) Spec() any    { return map[string]any{} }

func (c *Condition) Execute(context.Context, *core.ExecContext) (core.ConditionResult, error) {
	return core.ConditionResult{Type: "fake", Met: c.Met}, c.Err
}

// Transform merges Set into the payload it receives.
type Transform struct {
	Set core.Payload
	Err error
}

func (*Transform) Type() string { return "fake" }
func (*Transform) Spec() any    { return map[string]any{} }

func (t *Transform) Execute(_ context.Context, _ *core.ExecContext, payload core.Payload) (core.Payload, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	out := maps.Clone(payload)
	if out == nil {
		out = core.Payload{}
	}
	maps.Copy(out, t.Set)
	return out, nil
}

// Action records the payloads it is executed with.
type Action struct {
	Err error

	mu       sync.Mutex
	payloads []core.Payload
}

func (*Action) Type() string { return "fake" }
func (*Action) Spec() any    { return map[string]any{} }

func (a *Action) Execute(_ context.Context, actionID string, _ *core.ExecContext, payload core.Payload) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.payloads = append(a.payloads, payload)
	if a.Err != nil {
		return nil, a.Err
	}
	return map[string]any{"id": actionID}, nil
}

// Payloads returns the payloads received so far.
func (a *Action) Payloads() []core.Payload {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.Payload(nil), a.payloads...)
}

// Store is an in-memory document store. Search returns every document of the
// requested indices in insertion order.
type Store struct {
	SearchErr error
	IndexErr  error

	mu       sync.Mutex
	docs     map[string][]core.IndexRequest
	requests []core.SearchRequest
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: map[string][]core.IndexRequest{}}
}

func (s *Store) Search(_ context.Context, req core.SearchRequest) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	hits := []any{}
	for _, index := range req.Indices {
		for _, doc := range s.docs[index] {
			hits = append(hits, map[string]any{"_index": doc.Index, "_id": doc.ID, "_source": doc.Document})
		}
	}
	return map[string]any{"hits": map[string]any{"total": len(hits), "hits": hits}}, nil
}

func (s *Store) Index(_ context.Context, req core.IndexRequest) (core.IndexResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IndexErr != nil {
		return core.IndexResponse{}, s.IndexErr
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("%s-%d", req.Index, len(s.docs[req.Index])+1)
	}
	s.docs[req.Index] = append(s.docs[req.Index], req)
	return core.IndexResponse{Index: req.Index, ID: req.ID, Created: true, Version: 1}, nil
}

// Documents returns what was written to an index.
func (s *Store) Documents(index string) []core.IndexRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.IndexRequest(nil), s.docs[index]...)
}

// Requests returns the search requests received so far.
func (s *Store) Requests() []core.SearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SearchRequest(nil), s.requests...)
}

// EmailSender records sent emails.
type EmailSender struct {
	Err error

	mu   sync.Mutex
	sent []core.EmailMessage
}

func (e *EmailSender) Send(_ context.Context, msg core.EmailMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return e.Err
	}
	e.sent = append(e.sent, msg)
	return nil
}

// Sent returns the emails sent so far.
func (e *EmailSender) Sent() []core.EmailMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.EmailMessage(nil), e.sent...)
}

// HTTPClient records requests and answers with Response.
type HTTPClient struct {
	Response core.HTTPResponse
	Err      error

	mu       sync.Mutex
	requests []core.HTTPRequest
}

func (h *HTTPClient) Do(_ context.Context, req core.HTTPRequest) (core.HTTPResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, req)
	if h.Err != nil {
		return core.HTTPResponse{}, h.Err
	}
	return h.Response, nil
}

// Requests returns the requests received so far.
func (h *HTTPClient) Requests() []core.HTTPRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]core.HTTPRequest(nil), h.requests...)
}

// SlackSender records posted messages.
type SlackSender struct {
	Err error

	mu   sync.Mutex
	sent []core.SlackMessage
}

func (s *SlackSender) Send(_ context.Context, msg core.SlackMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns the messages posted so far.
func (s *SlackSender) Sent() []core.SlackMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SlackMessage(nil), s.sent...)
}

// ScriptFunc stands in for a compiled script.
type ScriptFunc func(model map[string]any, params map[string]any) (any, error)

// Scripts compiles scripts by looking their source up. Every language is
// accepted.
type Scripts map[string]ScriptFunc

func (s Scripts) Compile(script core.Script) (core.CompiledScript, error) {
	fn, ok := s[script.Source]
	if !ok {
		return nil, fmt.Errorf("unknown script source %q", script.Source)
	}
	return compiled{fn: fn, params: script.Params}, nil
}

type compiled struct {
	fn     ScriptFunc
	params map[string]any
}

func (c compiled) Run(_ context.Context, model map[string]any) (any, error) {
	return c.fn(model, c.params)
}
