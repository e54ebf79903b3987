package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage/internal/searchreq"
)

var _ core.Transform = (*Search)(nil)

// Search replaces the payload with the result of a store query. The query
// template sees the incoming payload under ctx.payload.
type Search struct {
	Request searchreq.Request
	Timeout time.Duration

	store core.Store
}

type searchConfig struct {
	Request map[string]any `mapstructure:"request"`
	Timeout time.Duration  `mapstructure:"timeout"`
}

func parseSearch(body any, store core.Store, defaultLang string) (core.Transform, error) {
	var cfg searchConfig
	if err := document.DecodeStruct(body, &cfg); err != nil {
		return nil, err
	}
	if cfg.Request == nil {
		return nil, core.NewStageValidationError("transform.search", "request", nil, fmt.Errorf("request is required"))
	}
	req, err := searchreq.Parse(cfg.Request, defaultLang)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout < 0 {
		return nil, core.NewStageValidationError("transform.search", "timeout", cfg.Timeout, core.ErrInvalidTimeout)
	}
	return &Search{Request: req, Timeout: cfg.Timeout, store: store}, nil
}

func (*Search) Type() string { return TypeSearch }

func (s *Search) Spec() any {
	out := document.Object(document.KV("request", s.Request.Spec()))
	if s.Timeout > 0 {
		out = append(out, document.KV("timeout", duration.Format(s.Timeout)))
	}
	return out
}

func (s *Search) Execute(ctx context.Context, ec *core.ExecContext, payload core.Payload) (core.Payload, error) {
	if s.store == nil {
		return nil, fmt.Errorf("search transform: no store configured")
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	result, err := s.store.Search(ctx, s.Request.Render(ec.ModelFor(payload)))
	if err != nil {
		return nil, fmt.Errorf("search transform: %w", err)
	}
	return core.Payload(result), nil
}
