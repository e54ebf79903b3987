// Package transform implements the registry of payload transforms.
package transform

import (
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/stage"
)

// Type tags of the built-in transforms.
const (
	TypeScript = "script"
	TypeSearch = "search"
	TypeChain  = "chain"
)

// Registry parses transform documents.
type Registry struct {
	*stage.Registry[core.Transform]
}

// NewRegistry returns a registry of the built-in transforms. Chains resolve
// their elements through the returned registry.
func NewRegistry(store core.Store, scripts core.ScriptService, defaultLang string) *Registry {
	r := &Registry{Registry: stage.NewRegistry[core.Transform]("transform")}
	r.Register(TypeScript, func(body any) (core.Transform, error) {
		return parseScript(body, scripts, defaultLang)
	})
	r.Register(TypeSearch, func(body any) (core.Transform, error) {
		return parseSearch(body, store, defaultLang)
	})
	r.Register(TypeChain, r.parseChain)
	return r
}
