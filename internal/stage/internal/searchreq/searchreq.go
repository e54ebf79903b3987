// Package searchreq holds the store query template shared by search inputs and
// search transforms.
package searchreq

import (
	"fmt"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage/internal/objpath"
	"github.com/goccy/go-yaml"
)

// Request is a query template. Leaves of Body written as "{{path}}" are
// resolved against the execution model when the request is rendered.
type Request struct {
	Indices []string
	Body    map[string]any
}

type requestConfig struct {
	Indices []string       `mapstructure:"indices"`
	Body    map[string]any `mapstructure:"body"`
}

// Parse reads {indices, body}. Script clauses in the body are canonicalized
// with defaultLang.
func Parse(v any, defaultLang string) (Request, error) {
	var cfg requestConfig
	if err := document.DecodeStruct(v, &cfg); err != nil {
		return Request{}, fmt.Errorf("request: %w", err)
	}
	if len(cfg.Indices) == 0 {
		return Request{}, core.NewStageValidationError("search", "request.indices", nil, fmt.Errorf("at least one index is required"))
	}
	if cfg.Body == nil {
		cfg.Body = map[string]any{}
	}
	body, err := core.CanonicalizeScripts(cfg.Body, defaultLang)
	if err != nil {
		return Request{}, fmt.Errorf("request.body: %w", err)
	}
	return Request{Indices: cfg.Indices, Body: body.(map[string]any)}, nil
}

// Spec renders the request document.
func (r Request) Spec() yaml.MapSlice {
	indices := make([]any, len(r.Indices))
	for i, idx := range r.Indices {
		indices[i] = idx
	}
	return document.Object(
		document.KV("indices", indices),
		document.KV("body", document.Ordered(r.Body)),
	)
}

// Render resolves the references of the body against model.
func (r Request) Render(model map[string]any) core.SearchRequest {
	return core.SearchRequest{
		Indices: append([]string(nil), r.Indices...),
		Body:    render(model, r.Body).(map[string]any),
	}
}

func render(model map[string]any, v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = render(model, item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = render(model, item)
		}
		return out
	default:
		return objpath.Value(model, v)
	}
}
