package transform

import (
	"context"
	"fmt"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage"
)

var _ core.Transform = (*Chain)(nil)

// Chain applies transforms in order, each one receiving the output of the
// previous one.
type Chain struct {
	Transforms []core.Transform
}

func (r *Registry) parseChain(body any) (core.Transform, error) {
	items, ok := body.([]any)
	if !ok {
		return nil, core.NewStageValidationError("transform.chain", "chain", nil, document.ErrNotArray)
	}
	chain := &Chain{Transforms: make([]core.Transform, 0, len(items))}
	for i, item := range items {
		t, err := r.Parse(item)
		if err != nil {
			return nil, fmt.Errorf("chain[%d]: %w", i, err)
		}
		chain.Transforms = append(chain.Transforms, t)
	}
	return chain, nil
}

func (*Chain) Type() string { return TypeChain }

func (c *Chain) Spec() any {
	out := make([]any, len(c.Transforms))
	for i, t := range c.Transforms {
		out[i] = stage.Spec(t)
	}
	return out
}

func (c *Chain) Execute(ctx context.Context, ec *core.ExecContext, payload core.Payload) (core.Payload, error) {
	for i, t := range c.Transforms {
		var err error
		if payload, err = t.Execute(ctx, ec, payload); err != nil {
			return nil, fmt.Errorf("chain[%d] %s: %w", i, t.Type(), err)
		}
	}
	return payload, nil
}
