// Package condition implements the registry of watch conditions.
package condition

import (
	"context"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage"
)

// Type tags of the built-in conditions.
const (
	TypeAlways       = "always"
	TypeNever        = "never"
	TypeCompare      = "compare"
	TypeArrayCompare = "array_compare"
	TypeScript       = "script"
)

// Registry parses condition documents.
type Registry struct {
	*stage.Registry[core.Condition]
}

// NewRegistry returns a registry of the built-in conditions. Script conditions
// are compiled by scripts and default to defaultLang.
func NewRegistry(scripts core.ScriptService, defaultLang string) *Registry {
	r := &Registry{Registry: stage.NewRegistry[core.Condition]("condition")}
	r.Register(TypeAlways, parseAlways)
	r.Register(TypeNever, parseNever)
	r.Register(TypeCompare, parseCompare)
	r.Register(TypeArrayCompare, parseArrayCompare)
	r.Register(TypeScript, func(body any) (core.Condition, error) {
		return parseScript(body, scripts, defaultLang)
	})
	return r
}

var (
	_ core.Condition = (*Always)(nil)
	_ core.Condition = (*Never)(nil)
)

// Always is met on every execution.
type Always struct{}

func parseAlways(body any) (core.Condition, error) {
	if err := stage.EmptyBody(body); err != nil {
		return nil, err
	}
	return &Always{}, nil
}

func (*Always) Type() string { return TypeAlways }
func (*Always) Spec() any    { return document.Object() }

func (*Always) Execute(context.Context, *core.ExecContext) (core.ConditionResult, error) {
	return core.ConditionResult{Type: TypeAlways, Met: true}, nil
}

// Never is never met.
type Never struct{}

func parseNever(body any) (core.Condition, error) {
	if err := stage.EmptyBody(body); err != nil {
		return nil, err
	}
	return &Never{}, nil
}

func (*Never) Type() string { return TypeNever }
func (*Never) Spec() any    { return document.Object() }

func (*Never) Execute(context.Context, *core.ExecContext) (core.ConditionResult, error) {
	return core.ConditionResult{Type: TypeNever, Met: false}, nil
}
