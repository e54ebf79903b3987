// Package input implements the registry of watch inputs.
package input

import (
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/stage"
)

// Type tags of the built-in inputs.
const (
	TypeSearch = "search"
	TypeSimple = "simple"
	TypeNone   = "none"
	TypeHTTP   = "http"
)

// Registry parses input documents.
type Registry struct {
	*stage.Registry[core.Input]
}

// NewRegistry returns a registry of the built-in inputs. store backs search
// inputs, client backs http inputs and defaultLang fills in script clauses
// that omit a language.
func NewRegistry(store core.Store, client core.HTTPClient, defaultLang string) *Registry {
	r := &Registry{Registry: stage.NewRegistry[core.Input]("input")}
	r.Register(TypeSearch, func(body any) (core.Input, error) {
		return parseSearch(body, store, defaultLang)
	})
	r.Register(TypeSimple, parseSimple)
	r.Register(TypeNone, parseNone)
	r.Register(TypeHTTP, func(body any) (core.Input, error) {
		return parseHTTP(body, client)
	})
	return r
}
