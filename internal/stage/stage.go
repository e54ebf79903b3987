// Package stage holds the type-tag dispatch shared by the input, condition,
// transform and action registries.
package stage

import (
	"fmt"
	"sort"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/goccy/go-yaml"
)

// Factory builds a stage from the body found under its type tag.
type Factory[T core.Stage] func(body any) (T, error)

// Registry maps type tags to factories. Factories are added while the owning
// registry is constructed; afterwards the table is only read.
type Registry[T core.Stage] struct {
	name      string
	factories map[string]Factory[T]
}

// NewRegistry returns an empty registry reported under name in errors.
func NewRegistry[T core.Stage](name string) *Registry[T] {
	return &Registry[T]{name: name, factories: make(map[string]Factory[T])}
}

// Name returns the registry name.
func (r *Registry[T]) Name() string { return r.name }

// Register adds a factory for a type tag.
func (r *Registry[T]) Register(typ string, f Factory[T]) {
	r.factories[typ] = f
}

// Has reports whether typ is registered.
func (r *Registry[T]) Has(typ string) bool {
	_, ok := r.factories[typ]
	return ok
}

// Types returns the registered tags, sorted.
func (r *Registry[T]) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Parse resolves a {"<type>": <body>} document.
func (r *Registry[T]) Parse(v any) (T, error) {
	var zero T
	if !document.IsObject(v) {
		return zero, core.ErrStageMustBeObject
	}
	fields, err := document.Fields(v)
	if err != nil {
		return zero, err
	}
	switch len(fields) {
	case 0:
		return zero, core.NewUnknownStageTypeError(r.name, "")
	case 1:
	default:
		return zero, core.ErrStageMustBeObject
	}
	return r.ParseType(fields[0].Key, fields[0].Value)
}

// ParseType builds a stage of the given type from its body.
func (r *Registry[T]) ParseType(typ string, body any) (T, error) {
	var zero T
	factory, ok := r.factories[typ]
	if !ok {
		return zero, core.NewUnknownStageTypeError(r.name, typ)
	}
	s, err := factory(body)
	if err != nil {
		return zero, fmt.Errorf("could not parse [%s] %s: %w", typ, r.name, err)
	}
	return s, nil
}

// Spec renders a stage in its tagged form.
func Spec(s core.Stage) yaml.MapSlice {
	return document.Object(document.KV(s.Type(), s.Spec()))
}

// EmptyBody accepts a missing or empty object body.
func EmptyBody(body any) error {
	fields, err := document.Fields(body)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return fmt.Errorf("%w: %s", core.ErrUnexpectedField, fields[0].Key)
	}
	return nil
}
