// Package httpreq holds the HTTP request template shared by http inputs and
// webhook actions.
package httpreq

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/dagucloud/watcher/internal/cmn/tmpl"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/goccy/go-yaml"
)

var (
	ErrTargetRequired  = errors.New("either url or host is required")
	ErrTargetAmbiguous = errors.New("url and host are mutually exclusive")
	ErrInvalidScheme   = errors.New("scheme must be http or https")
	ErrInvalidPort     = errors.New("port must be between 1 and 65535")
)

// Config is the document shape of a request template.
type Config struct {
	URL               string            `json:"url,omitempty" mapstructure:"url"`
	Scheme            string            `json:"scheme,omitempty" mapstructure:"scheme"`
	Host              string            `json:"host,omitempty" mapstructure:"host"`
	Port              int               `json:"port,omitempty" mapstructure:"port"`
	Method            string            `json:"method,omitempty" mapstructure:"method"`
	Path              string            `json:"path,omitempty" mapstructure:"path"`
	Params            map[string]string `json:"params,omitempty" mapstructure:"params"`
	Headers           map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	Body              string            `json:"body,omitempty" mapstructure:"body"`
	Auth              *AuthConfig       `json:"auth,omitempty" mapstructure:"auth"`
	ConnectionTimeout string            `json:"connection_timeout,omitempty" mapstructure:"connection_timeout"`
	ReadTimeout       string            `json:"read_timeout,omitempty" mapstructure:"read_timeout"`
}

// AuthConfig holds the supported authentication schemes.
type AuthConfig struct {
	Basic *BasicConfig `json:"basic,omitempty" mapstructure:"basic"`
}

// BasicConfig is HTTP basic authentication.
type BasicConfig struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
}

// Request is a validated request template. String fields may hold templates.
type Request struct {
	URL               string
	Scheme            string
	Host              string
	Port              int
	Method            string
	Path              string
	Params            map[string]string
	Headers           map[string]string
	Body              string
	Auth              *core.BasicAuth
	ConnectionTimeout time.Duration
	ReadTimeout       time.Duration
}

// FromConfig validates cfg and fills in the defaults: method GET and scheme
// http when a host is given.
func FromConfig(stage string, cfg Config) (Request, error) {
	switch {
	case cfg.URL == "" && cfg.Host == "":
		return Request{}, core.NewStageValidationError(stage, "host", nil, ErrTargetRequired)
	case cfg.URL != "" && (cfg.Host != "" || cfg.Scheme != "" || cfg.Port != 0):
		return Request{}, core.NewStageValidationError(stage, "url", cfg.URL, ErrTargetAmbiguous)
	}
	req := Request{
		URL:     cfg.URL,
		Scheme:  strings.ToLower(cfg.Scheme),
		Host:    cfg.Host,
		Port:    cfg.Port,
		Method:  strings.ToUpper(cfg.Method),
		Path:    cfg.Path,
		Params:  cfg.Params,
		Headers: cfg.Headers,
		Body:    cfg.Body,
	}
	if req.Method == "" {
		req.Method = "GET"
	}
	if req.Host != "" {
		if req.Scheme == "" {
			req.Scheme = "http"
		}
		if req.Scheme != "http" && req.Scheme != "https" {
			return Request{}, core.NewStageValidationError(stage, "scheme", cfg.Scheme, ErrInvalidScheme)
		}
		if req.Port < 0 || req.Port > 65535 {
			return Request{}, core.NewStageValidationError(stage, "port", cfg.Port, ErrInvalidPort)
		}
	}
	if cfg.Auth != nil && cfg.Auth.Basic != nil {
		req.Auth = &core.BasicAuth{Username: cfg.Auth.Basic.Username, Password: cfg.Auth.Basic.Password}
	}
	var err error
	if req.ConnectionTimeout, err = parseTimeout(stage, "connection_timeout", cfg.ConnectionTimeout); err != nil {
		return Request{}, err
	}
	if req.ReadTimeout, err = parseTimeout(stage, "read_timeout", cfg.ReadTimeout); err != nil {
		return Request{}, err
	}
	for _, text := range req.templates() {
		if err := tmpl.Validate(text); err != nil {
			return Request{}, core.NewStageValidationError(stage, "template", text, err)
		}
	}
	return req, nil
}

// Parse decodes and validates a request template document.
func Parse(stage string, v any) (Request, error) {
	var cfg Config
	if err := document.DecodeStruct(v, &cfg); err != nil {
		return Request{}, err
	}
	return FromConfig(stage, cfg)
}

func parseTimeout(stage, field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := duration.Parse(s)
	if err != nil || d <= 0 {
		return 0, core.NewStageValidationError(stage, field, s, core.ErrInvalidTimeout)
	}
	return d, nil
}

func (r Request) templates() []string {
	out := []string{r.URL, r.Host, r.Path, r.Body}
	for _, v := range r.Params {
		out = append(out, v)
	}
	for _, v := range r.Headers {
		out = append(out, v)
	}
	return out
}

// Spec renders the canonical request document.
func (r Request) Spec() yaml.MapSlice {
	out := document.Object()
	if r.URL != "" {
		out = append(out, document.KV("url", r.URL))
	} else {
		out = append(out, document.KV("scheme", r.Scheme), document.KV("host", r.Host))
		if r.Port != 0 {
			out = append(out, document.KV("port", r.Port))
		}
	}
	out = append(out, document.KV("method", r.Method))
	if r.Path != "" {
		out = append(out, document.KV("path", r.Path))
	}
	if len(r.Params) > 0 {
		out = append(out, document.KV("params", stringMap(r.Params)))
	}
	if len(r.Headers) > 0 {
		out = append(out, document.KV("headers", stringMap(r.Headers)))
	}
	if r.Body != "" {
		out = append(out, document.KV("body", r.Body))
	}
	if r.Auth != nil {
		out = append(out, document.KV("auth", document.Object(
			document.KV("basic", document.Object(
				document.KV("username", r.Auth.Username),
				document.KV("password", r.Auth.Password),
			)),
		)))
	}
	if r.ConnectionTimeout > 0 {
		out = append(out, document.KV("connection_timeout", duration.Format(r.ConnectionTimeout)))
	}
	if r.ReadTimeout > 0 {
		out = append(out, document.KV("read_timeout", duration.Format(r.ReadTimeout)))
	}
	return out
}

func stringMap(m map[string]string) any {
	plain := make(map[string]any, len(m))
	for k, v := range m {
		plain[k] = v
	}
	return document.Ordered(plain)
}

// Render executes the templates against the template data and builds the
// request to send.
func (r Request) Render(data map[string]any) (core.HTTPRequest, error) {
	target := r.URL
	if target == "" {
		host := r.Host
		if r.Port != 0 {
			host += ":" + strconv.Itoa(r.Port)
		}
		target = r.Scheme + "://" + host
		if r.Path != "" && !strings.HasPrefix(r.Path, "/") {
			target += "/"
		}
		target += r.Path
	}
	rendered, err := tmpl.Render(target, data)
	if err != nil {
		return core.HTTPRequest{}, fmt.Errorf("url: %w", err)
	}
	if _, err := url.Parse(rendered); err != nil {
		return core.HTTPRequest{}, fmt.Errorf("invalid url %q: %w", rendered, err)
	}
	body, err := tmpl.Render(r.Body, data)
	if err != nil {
		return core.HTTPRequest{}, fmt.Errorf("body: %w", err)
	}
	params, err := tmpl.RenderMap(r.Params, data)
	if err != nil {
		return core.HTTPRequest{}, fmt.Errorf("params: %w", err)
	}
	headers, err := tmpl.RenderMap(r.Headers, data)
	if err != nil {
		return core.HTTPRequest{}, fmt.Errorf("headers: %w", err)
	}
	return core.HTTPRequest{
		Method:            r.Method,
		URL:               rendered,
		Params:            params,
		Headers:           headers,
		Body:              body,
		Auth:              r.Auth,
		ConnectionTimeout: r.ConnectionTimeout,
		ReadTimeout:       r.ReadTimeout,
	}, nil
}
