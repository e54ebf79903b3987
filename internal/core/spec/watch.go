// Package spec parses watch documents into watches and serializes them back.
package spec

import (
	"errors"
	"reflect"
	"time"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/core/schedule"
	"github.com/dagucloud/watcher/internal/stage/condition"
	"github.com/dagucloud/watcher/internal/stage/input"
)

// Parser builds watches from documents. It is safe for concurrent use.
type Parser struct {
	registries Registries
}

// NewParser returns a parser resolving stages through registries.
func NewParser(registries Registries) *Parser {
	return &Parser{registries: registries}
}

// Registries returns the registries of the parser.
func (p *Parser) Registries() Registries { return p.registries }

// ParseOption customizes a single parse.
type ParseOption func(*parseOptions)

type parseOptions struct {
	version int64
}

// WithVersion sets the version of the parsed watch.
func WithVersion(v int64) ParseOption {
	return func(o *parseOptions) { o.version = v }
}

// BuildContext is handed to every builder of a parse.
type BuildContext struct {
	name          string
	includeStatus bool
	clock         core.Clock
	registries    Registries
}

// Parse decodes a YAML or JSON document and builds the watch called name.
// When includeStatus is false, or the document has no status, a fresh status
// is synthesized at clock.Now(); clock may only be nil when the status is
// read from the document.
func (p *Parser) Parse(name string, includeStatus bool, data []byte, clock core.Clock, opts ...ParseOption) (*core.Watch, error) {
	v, err := document.Decode(data)
	if err != nil {
		return nil, core.NewParseError(name, "", err)
	}
	return p.ParseValue(name, includeStatus, v, clock, opts...)
}

// ParseValue is like Parse for an already decoded document tree.
func (p *Parser) ParseValue(name string, includeStatus bool, v any, clock core.Clock, opts ...ParseOption) (*core.Watch, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !document.IsObject(v) {
		return nil, core.NewParseError(name, "", ErrDocumentMustBeObject)
	}
	fields, err := document.Fields(v)
	if err != nil {
		return nil, core.NewParseError(name, "", err)
	}

	var errs core.ErrorList
	def := &definition{}
	for _, f := range fields {
		if err := def.set(f); err != nil {
			errs.Add(core.NewParseError(name, f.Key, err))
		}
	}

	ctx := BuildContext{name: name, includeStatus: includeStatus, clock: clock, registries: p.registries}
	w := &core.Watch{ID: name, Version: o.version}
	errs = append(errs, runBuilders(ctx, def, w)...)

	// The status needs the action ids of the built watch.
	if status, err := buildStatus(ctx, def, w); errors.Is(err, ErrNoClock) {
		errs.Add(core.NewParseError(name, "", err))
	} else if err != nil {
		errs.Add(wrapBuildError(name, keyStatus, err))
	} else {
		w.Status = status
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return w, nil
}

// builder sets one field of a watch from its definition.
type builder interface {
	build(ctx BuildContext, def *definition, out reflect.Value) error
}

type fieldBuilder[T any] struct {
	fieldName string
	fn        func(ctx BuildContext, def *definition) (T, error)
}

func (b *fieldBuilder[T]) build(ctx BuildContext, def *definition, out reflect.Value) error {
	v, err := b.fn(ctx, def)
	if err != nil {
		return err
	}
	field := out.FieldByName(b.fieldName)
	if field.IsValid() && field.CanSet() {
		field.Set(reflect.ValueOf(&v).Elem())
	}
	return nil
}

func newBuilder[T any](fieldName string, fn func(BuildContext, *definition) (T, error)) builder {
	return &fieldBuilder[T]{fieldName: fieldName, fn: fn}
}

// entry names a builder after the document key it reads, for error reporting.
type entry struct {
	key     string
	builder builder
}

var builders = []entry{
	{keyTrigger, newBuilder("Trigger", buildTrigger)},
	{keyInput, newBuilder("Input", buildInput)},
	{keyCondition, newBuilder("Condition", buildCondition)},
	{keyTransform, newBuilder("Transform", buildTransform)},
	{keyThrottlePeriod, newBuilder("ThrottlePeriod", buildThrottlePeriod)},
	{keyMetadata, newBuilder("Metadata", buildMetadata)},
	{keyActions, newBuilder("Actions", buildActions)},
}

func runBuilders(ctx BuildContext, def *definition, w *core.Watch) core.ErrorList {
	var errs core.ErrorList
	out := reflect.ValueOf(w).Elem()
	for _, e := range builders {
		err := e.builder.build(ctx, def, out)
		if err == nil {
			continue
		}
		var list core.ErrorList
		if errors.As(err, &list) {
			errs = append(errs, list...)
			continue
		}
		errs.Add(wrapBuildError(ctx.name, e.key, err))
	}
	return errs
}

// wrapBuildError attaches the watch name and field unless err already carries them.
func wrapBuildError(name, key string, err error) error {
	var (
		pe *core.ParseError
		me *core.MalformedActionsError
		re *core.MissingRequiredFieldError
	)
	if errors.As(err, &pe) || errors.As(err, &me) || errors.As(err, &re) {
		return err
	}
	return core.NewParseError(name, key, err)
}

func buildTrigger(ctx BuildContext, def *definition) (core.Trigger, error) {
	if def.Trigger == nil {
		return nil, &core.MissingRequiredFieldError{Watch: ctx.name, Field: keyTrigger}
	}
	if !document.IsObject(def.Trigger) {
		return nil, ErrTriggerMustBeObject
	}
	f, err := document.SingleField(def.Trigger)
	if err != nil {
		return nil, errors.Join(ErrTriggerMustBeObject, err)
	}
	switch f.Key {
	case schedule.TriggerType:
		return ctx.registries.Schedules.ParseTrigger(f.Value)
	default:
		return nil, core.NewUnknownStageTypeError(keyTrigger, f.Key)
	}
}

func buildInput(ctx BuildContext, def *definition) (core.Input, error) {
	if def.Input == nil {
		return &input.None{}, nil
	}
	return ctx.registries.Inputs.Parse(def.Input)
}

func buildCondition(ctx BuildContext, def *definition) (core.Condition, error) {
	if def.Condition == nil {
		return &condition.Always{}, nil
	}
	return ctx.registries.Conditions.Parse(def.Condition)
}

func buildTransform(ctx BuildContext, def *definition) (core.Transform, error) {
	if def.Transform == nil {
		return nil, nil
	}
	return ctx.registries.Transforms.Parse(def.Transform)
}

func buildThrottlePeriod(_ BuildContext, def *definition) (time.Duration, error) {
	if def.ThrottlePeriod == nil {
		return 0, nil
	}
	return core.ParseThrottlePeriod(def.throttleKey, def.ThrottlePeriod)
}

func buildMetadata(_ BuildContext, def *definition) (map[string]any, error) {
	if def.Metadata == nil {
		return map[string]any{}, nil
	}
	if !document.IsObject(def.Metadata) {
		return nil, core.ErrMetadataMustBeObject
	}
	return document.PlainObject(def.Metadata)
}

func buildActions(ctx BuildContext, def *definition) ([]*core.ActionWrapper, error) {
	if def.Actions == nil {
		return []*core.ActionWrapper{}, nil
	}
	if !document.IsObject(def.Actions) {
		return nil, &core.MalformedActionsError{Watch: ctx.name, Err: core.ErrActionsMustBeObject}
	}
	fields, err := document.Fields(def.Actions)
	if err != nil {
		return nil, &core.MalformedActionsError{Watch: ctx.name, Err: err}
	}

	var errs core.ErrorList
	seen := make(map[string]bool, len(fields))
	actions := make([]*core.ActionWrapper, 0, len(fields))
	for _, f := range fields {
		field := keyActions + "." + f.Key
		if seen[f.Key] {
			errs.Add(core.NewParseError(ctx.name, field, core.ErrActionIDDuplicate))
			continue
		}
		seen[f.Key] = true
		w, err := ctx.registries.Actions.ParseWrapper(f.Key, f.Value)
		if err != nil {
			errs.Add(core.NewParseError(ctx.name, field, err))
			continue
		}
		actions = append(actions, w)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return actions, nil
}

func buildStatus(ctx BuildContext, def *definition, w *core.Watch) (core.WatchStatus, error) {
	ids := w.ActionIDs()
	if !ctx.includeStatus || def.Status == nil {
		if ctx.clock == nil {
			return core.WatchStatus{}, ErrNoClock
		}
		return core.NewWatchStatus(ctx.clock.Now(), ids...), nil
	}
	status, err := core.ParseWatchStatus(def.Status)
	if err != nil {
		return core.WatchStatus{}, err
	}
	for _, id := range ids {
		if _, ok := status.Actions[id]; !ok {
			status = status.WithAction(id, core.NewActionStatus(status.State.Timestamp))
		}
	}
	return status, nil
}
