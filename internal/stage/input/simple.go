package input

import (
	"context"
	"maps"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage"
)

var (
	_ core.Input = (*Simple)(nil)
	_ core.Input = (*None)(nil)
)

// Simple loads a literal payload.
type Simple struct {
	Payload map[string]any
}

func parseSimple(body any) (core.Input, error) {
	payload, err := document.PlainObject(body)
	if err != nil {
		return nil, err
	}
	return &Simple{Payload: payload}, nil
}

func (*Simple) Type() string { return TypeSimple }

func (s *Simple) Spec() any { return document.Ordered(s.Payload) }

func (s *Simple) Execute(context.Context, *core.ExecContext) (core.Payload, error) {
	return core.Payload(maps.Clone(s.Payload)), nil
}

// None loads an empty payload.
type None struct{}

func parseNone(body any) (core.Input, error) {
	if err := stage.EmptyBody(body); err != nil {
		return nil, err
	}
	return &None{}, nil
}

func (*None) Type() string { return TypeNone }

func (*None) Spec() any { return document.Object() }

func (*None) Execute(context.Context, *core.ExecContext) (core.Payload, error) {
	return core.Payload{}, nil
}
