package input

import (
	"context"
	"fmt"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage/internal/objpath"
	"github.com/dagucloud/watcher/internal/stage/internal/searchreq"
)

var _ core.Input = (*Search)(nil)

// Search loads the result of a store query.
type Search struct {
	Request searchreq.Request
	// Extract keeps only the given paths of the result when set.
	Extract []string
	Timeout time.Duration

	store core.Store
}

type searchConfig struct {
	Request map[string]any `mapstructure:"request"`
	Extract []string       `mapstructure:"extract"`
	Timeout time.Duration  `mapstructure:"timeout"`
}

func parseSearch(body any, store core.Store, defaultLang string) (core.Input, error) {
	var cfg searchConfig
	if err := document.DecodeStruct(body, &cfg); err != nil {
		return nil, err
	}
	if cfg.Request == nil {
		return nil, core.NewStageValidationError("input.search", "request", nil, fmt.Errorf("request is required"))
	}
	req, err := searchreq.Parse(cfg.Request, defaultLang)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout < 0 {
		return nil, core.NewStageValidationError("input.search", "timeout", cfg.Timeout, core.ErrInvalidTimeout)
	}
	return &Search{Request: req, Extract: cfg.Extract, Timeout: cfg.Timeout, store: store}, nil
}

func (*Search) Type() string { return TypeSearch }

func (s *Search) Spec() any {
	out := document.Object(document.KV("request", s.Request.Spec()))
	if len(s.Extract) > 0 {
		extract := make([]any, len(s.Extract))
		for i, p := range s.Extract {
			extract[i] = p
		}
		out = append(out, document.KV("extract", extract))
	}
	if s.Timeout > 0 {
		out = append(out, document.KV("timeout", duration.Format(s.Timeout)))
	}
	return out
}

func (s *Search) Execute(ctx context.Context, ec *core.ExecContext) (core.Payload, error) {
	if s.store == nil {
		return nil, fmt.Errorf("search input: no store configured")
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	result, err := s.store.Search(ctx, s.Request.Render(ec.Model()))
	if err != nil {
		return nil, fmt.Errorf("search input: %w", err)
	}
	if len(s.Extract) == 0 {
		return core.Payload(result), nil
	}
	return core.Payload(extract(result, s.Extract)), nil
}

// extract copies the values found at paths into a fresh tree of the same shape.
func extract(result map[string]any, paths []string) map[string]any {
	out := map[string]any{}
	for _, path := range paths {
		v, ok := objpath.Resolve(result, path)
		if !ok {
			continue
		}
		objpath.Set(out, path, v)
	}
	return out
}
