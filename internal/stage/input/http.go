package input

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage/internal/httpreq"
)

var _ core.Input = (*HTTP)(nil)

// Content types an http input reads its response as.
const (
	ContentJSON = "json"
	ContentText = "text"
)

// HTTP loads the response of an HTTP call. JSON objects become the payload;
// other bodies are stored under "_value". The status code is kept under
// "_status_code".
type HTTP struct {
	Request     httpreq.Request
	Extract     []string
	ContentType string

	client core.HTTPClient
}

type httpConfig struct {
	Request             map[string]any `mapstructure:"request"`
	Extract             []string       `mapstructure:"extract"`
	ResponseContentType string         `mapstructure:"response_content_type"`
}

func parseHTTP(body any, client core.HTTPClient) (core.Input, error) {
	var cfg httpConfig
	if err := document.DecodeStruct(body, &cfg); err != nil {
		return nil, err
	}
	if cfg.Request == nil {
		return nil, core.NewStageValidationError("input.http", "request", nil, fmt.Errorf("request is required"))
	}
	req, err := httpreq.Parse("input.http", cfg.Request)
	if err != nil {
		return nil, err
	}
	contentType := strings.ToLower(cfg.ResponseContentType)
	switch contentType {
	case "":
		contentType = ContentJSON
	case ContentJSON, ContentText:
	default:
		return nil, core.NewStageValidationError("input.http", "response_content_type", cfg.ResponseContentType,
			fmt.Errorf("must be %s or %s", ContentJSON, ContentText))
	}
	return &HTTP{Request: req, Extract: cfg.Extract, ContentType: contentType, client: client}, nil
}

func (*HTTP) Type() string { return TypeHTTP }

func (h *HTTP) Spec() any {
	out := document.Object(document.KV("request", h.Request.Spec()))
	if len(h.Extract) > 0 {
		extract := make([]any, len(h.Extract))
		for i, p := range h.Extract {
			extract[i] = p
		}
		out = append(out, document.KV("extract", extract))
	}
	return append(out, document.KV("response_content_type", h.ContentType))
}

func (h *HTTP) Execute(ctx context.Context, ec *core.ExecContext) (core.Payload, error) {
	if h.client == nil {
		return nil, fmt.Errorf("http input: no http client configured")
	}
	req, err := h.Request.Render(ec.Model())
	if err != nil {
		return nil, fmt.Errorf("http input: %w", err)
	}
	resp, err := h.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("http input: %w", err)
	}

	payload := map[string]any{}
	if h.ContentType == ContentJSON && strings.TrimSpace(resp.Body) != "" {
		var decoded any
		if err := json.Unmarshal([]byte(resp.Body), &decoded); err != nil {
			return nil, fmt.Errorf("http input: response is not valid json: %w", err)
		}
		if obj, ok := decoded.(map[string]any); ok {
			payload = obj
		} else {
			payload["_value"] = decoded
		}
	} else if resp.Body != "" {
		payload["_value"] = resp.Body
	}
	if len(h.Extract) > 0 {
		payload = extract(payload, h.Extract)
	}
	payload["_status_code"] = resp.Status
	if len(resp.Headers) > 0 {
		headers := make(map[string]any, len(resp.Headers))
		for k, v := range resp.Headers {
			values := make([]any, len(v))
			for i, s := range v {
				values[i] = s
			}
			headers[strings.ToLower(k)] = values
		}
		payload["_headers"] = headers
	}
	return core.Payload(payload), nil
}
