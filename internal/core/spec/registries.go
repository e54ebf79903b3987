package spec

import (
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/schedule"
	"github.com/dagucloud/watcher/internal/stage/action"
	"github.com/dagucloud/watcher/internal/stage/condition"
	"github.com/dagucloud/watcher/internal/stage/input"
	"github.com/dagucloud/watcher/internal/stage/transform"
)

// DefaultScriptLang is the language given to scripts that do not name one.
const DefaultScriptLang = "jq"

// Registries are the stage registries a parser resolves type tags with.
type Registries struct {
	Schedules  *schedule.Registry
	Inputs     *input.Registry
	Conditions *condition.Registry
	Transforms *transform.Registry
	Actions    *action.Registry
}

// Deps are the services stages are bound to at parse time.
type Deps struct {
	Store   core.Store
	Scripts core.ScriptService
	Email   core.EmailSender
	HTTP    core.HTTPClient
	Slack   core.SlackSender
}

// NewRegistries builds the built-in registries over deps. An empty
// defaultLang selects DefaultScriptLang.
func NewRegistries(deps Deps, defaultLang string) Registries {
	if defaultLang == "" {
		defaultLang = DefaultScriptLang
	}
	conditions := condition.NewRegistry(deps.Scripts, defaultLang)
	transforms := transform.NewRegistry(deps.Store, deps.Scripts, defaultLang)
	return Registries{
		Schedules:  schedule.NewRegistry(),
		Inputs:     input.NewRegistry(deps.Store, deps.HTTP, defaultLang),
		Conditions: conditions,
		Transforms: transforms,
		Actions: action.NewRegistry(action.Deps{
			Store: deps.Store,
			Email: deps.Email,
			HTTP:  deps.HTTP,
			Slack: deps.Slack,
		}, conditions, transforms),
	}
}
