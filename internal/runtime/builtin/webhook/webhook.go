// Package webhook performs webhook calls with resty.
package webhook

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/logger"
	"github.com/dagucloud/watcher/internal/cmn/logger/tag"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a call whose request declares no timeouts.
const DefaultTimeout = 30 * time.Second

var _ core.HTTPClient = (*Client)(nil)

// Client performs webhook calls.
type Client struct {
	client  *resty.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the timeout of calls that declare none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New returns a webhook client.
func New(opts ...Option) *Client {
	c := &Client{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	c.client = resty.New().SetTimeout(c.timeout)
	return c
}

// Do implements core.HTTPClient. Responses of any status are returned; the
// caller decides what a failed status means.
func (c *Client) Do(ctx context.Context, req core.HTTPRequest) (core.HTTPResponse, error) {
	client := c.client
	if req.ConnectionTimeout > 0 || req.ReadTimeout > 0 {
		client = c.dedicated(req.ConnectionTimeout, req.ReadTimeout)
	}

	r := client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r = r.SetHeaders(req.Headers)
	}
	if len(req.Params) > 0 {
		r = r.SetQueryParams(req.Params)
	}
	if req.Body != "" {
		r = r.SetBody([]byte(req.Body))
	}
	if req.Auth != nil {
		r = r.SetBasicAuth(req.Auth.Username, req.Auth.Password)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	logger.Debug(ctx, "Calling webhook", tag.Method(method), tag.URL(req.URL))

	rsp, err := r.Execute(method, req.URL)
	if err != nil {
		return core.HTTPResponse{}, fmt.Errorf("webhook request failed: %w", err)
	}
	return core.HTTPResponse{
		Status:  rsp.StatusCode(),
		Headers: map[string][]string(rsp.Header()),
		Body:    string(rsp.Body()),
	}, nil
}

func (c *Client) dedicated(connect, read time.Duration) *resty.Client {
	timeout := connect + read
	if connect <= 0 || read <= 0 {
		timeout = c.timeout
		if d := max(connect, read); d > 0 {
			timeout = d
		}
	}
	client := resty.New().SetTimeout(timeout)
	if connect > 0 {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: connect}).DialContext
		client.SetTransport(transport)
	}
	return client
}
