// Package action implements the registry of watch actions and the parsing of
// action wrappers.
package action

import (
	"fmt"

	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage"
	"github.com/dagucloud/watcher/internal/stage/condition"
	"github.com/dagucloud/watcher/internal/stage/transform"
	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
)

// Type tags of the built-in actions.
const (
	TypeEmail   = "email"
	TypeIndex   = "index"
	TypeWebhook = "webhook"
	TypeSlack   = "slack"
	TypeLogging = "logging"
)

// Keys of an action wrapper document other than the action type.
const (
	keyThrottlePeriod       = "throttle_period"
	keyThrottlePeriodMillis = "throttle_period_in_millis"
	keyCondition            = "condition"
	keyTransform            = "transform"
)

// Deps are the services actions deliver through. A nil service fails the
// actions that need it at execution time.
type Deps struct {
	Store core.Store
	Email core.EmailSender
	HTTP  core.HTTPClient
	Slack core.SlackSender
}

// Registry parses action documents and action wrappers.
type Registry struct {
	*stage.Registry[core.Action]

	schemas    *schemaRegistry
	conditions *condition.Registry
	transforms *transform.Registry
}

// NewRegistry returns a registry of the built-in actions. Wrapper conditions
// and transforms are parsed with conditions and transforms.
func NewRegistry(deps Deps, conditions *condition.Registry, transforms *transform.Registry) *Registry {
	r := &Registry{
		Registry:   stage.NewRegistry[core.Action]("action"),
		schemas:    newSchemaRegistry(),
		conditions: conditions,
		transforms: transforms,
	}
	r.register(TypeEmail, emailSchema, func(cfg map[string]any) (core.Action, error) {
		return parseEmail(cfg, deps.Email)
	})
	r.register(TypeIndex, indexSchema, func(cfg map[string]any) (core.Action, error) {
		return parseIndex(cfg, deps.Store)
	})
	r.register(TypeWebhook, webhookSchema, func(cfg map[string]any) (core.Action, error) {
		return parseWebhook(cfg, deps.HTTP)
	})
	r.register(TypeSlack, slackSchema, func(cfg map[string]any) (core.Action, error) {
		return parseSlack(cfg, deps.Slack)
	})
	r.register(TypeLogging, loggingSchema, parseLogging)
	return r
}

// register adds a factory whose body is validated against schema first.
func (r *Registry) register(typ string, schema *jsonschema.Schema, f func(cfg map[string]any) (core.Action, error)) {
	r.schemas.add(typ, schema)
	r.Register(typ, func(body any) (core.Action, error) {
		cfg, err := document.PlainObject(body)
		if err != nil {
			return nil, err
		}
		if err := r.schemas.validate(typ, cfg); err != nil {
			return nil, err
		}
		return f(cfg)
	})
}

// ParseWrapper parses the document of the action with the given id: an
// optional throttle period, condition and transform, and exactly one action
// type key.
func (r *Registry) ParseWrapper(id string, v any) (*core.ActionWrapper, error) {
	if id == "" {
		return nil, core.ErrActionIDRequired
	}
	if !document.IsObject(v) {
		return nil, core.ErrActionMustBeObject
	}
	fields, err := document.Fields(v)
	if err != nil {
		return nil, err
	}

	w := &core.ActionWrapper{ID: id}
	var typed []document.Field
	var seenPeriod string
	for _, f := range fields {
		switch f.Key {
		case keyThrottlePeriod, keyThrottlePeriodMillis:
			if seenPeriod != "" {
				return nil, core.NewStageValidationError("action", f.Key, nil,
					fmt.Errorf("%s and %s are mutually exclusive", seenPeriod, f.Key))
			}
			seenPeriod = f.Key
			if w.Throttler.Period, err = core.ParseThrottlePeriod(f.Key, f.Value); err != nil {
				return nil, err
			}
		case keyCondition:
			if w.Condition, err = r.conditions.Parse(f.Value); err != nil {
				return nil, fmt.Errorf("%s: %w", keyCondition, err)
			}
		case keyTransform:
			if w.Transform, err = r.transforms.Parse(f.Value); err != nil {
				return nil, fmt.Errorf("%s: %w", keyTransform, err)
			}
		default:
			typed = append(typed, f)
		}
	}
	if len(typed) != 1 {
		return nil, core.ErrActionTypeRequired
	}
	if w.Action, err = r.ParseType(typed[0].Key, typed[0].Value); err != nil {
		return nil, err
	}
	return w, nil
}

// WrapperSpec renders the document of an action wrapper.
func WrapperSpec(w *core.ActionWrapper) yaml.MapSlice {
	out := document.Object()
	if w.Throttler.Period > 0 {
		out = append(out, document.KV(keyThrottlePeriod, duration.Format(w.Throttler.Period)))
	}
	if w.Condition != nil {
		out = append(out, document.KV(keyCondition, stage.Spec(w.Condition)))
	}
	if w.Transform != nil {
		out = append(out, document.KV(keyTransform, stage.Spec(w.Transform)))
	}
	return append(out, document.KV(w.Action.Type(), w.Action.Spec()))
}

func anyList(v []string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}
