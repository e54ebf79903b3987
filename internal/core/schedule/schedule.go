// Package schedule implements the calendar recurrence rules that drive watch triggers.
//
// Every schedule is an immutable value with a type tag, a canonical document shape
// and a pure next-fire function. Fire times are computed in the location of the
// reference time passed to Next.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
)

// Type tags of the built-in schedules.
const (
	TypeCron     = "cron"
	TypeInterval = "interval"
	TypeHourly   = "hourly"
	TypeDaily    = "daily"
	TypeWeekly   = "weekly"
	TypeMonthly  = "monthly"
	TypeYearly   = "yearly"
)

var (
	ErrInvalidMinute     = errors.New("minute must be between 0 and 59")
	ErrInvalidHour       = errors.New("hour must be between 0 and 23")
	ErrInvalidTimeOfDay  = errors.New("time of day must be HH:mm, noon, midnight or {hour, minute}")
	ErrInvalidDayOfWeek  = errors.New("day of week must be a name or a number between 1 (monday) and 7 (sunday)")
	ErrInvalidDayOfMonth = errors.New("day of month must be between 1 and 31")
	ErrInvalidMonth      = errors.New("month must be a name or a number between 1 and 12")
	ErrInvalidNumber     = errors.New("value must be an integer")
	ErrInvalidInterval   = errors.New("interval must be <N><unit> with unit s, m, h, d or w")
	ErrIntervalNotPos    = errors.New("interval must be positive")
	ErrIntervalTooLarge  = errors.New("interval exceeds the longest representable duration")
	ErrInvalidCron       = errors.New("invalid cron expression")
	ErrUnexpectedKey     = errors.New("unexpected key")
)

// Schedule is a calendar recurrence rule.
type Schedule interface {
	// Type returns the type tag the schedule is registered under.
	Type() string
	// Next returns the first fire time strictly after the given time, or the zero
	// time if the schedule never fires again.
	Next(after time.Time) time.Time
	// Spec returns the document body stored under the type tag.
	Spec() any

	sealed()
}

// Parser builds a schedule from the document body found under its type tag.
type Parser func(body any) (Schedule, error)

// Registry maps schedule type tags to parsers. It is read-only once built.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a registry holding every built-in schedule type.
func NewRegistry() *Registry {
	return &Registry{parsers: map[string]Parser{
		TypeCron:     parseCron,
		TypeInterval: parseInterval,
		TypeHourly:   parseHourly,
		TypeDaily:    parseDaily,
		TypeWeekly:   parseWeekly,
		TypeMonthly:  parseMonthly,
		TypeYearly:   parseYearly,
	}}
}

// Types returns the registered type tags, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.parsers))
	for t := range r.parsers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Parse resolves a {"<type>": <body>} document into a schedule.
func (r *Registry) Parse(v any) (Schedule, error) {
	if !document.IsObject(v) {
		return nil, parseError("schedule", v, document.ErrNotObject)
	}
	field, err := document.SingleField(v)
	if err != nil {
		fields, _ := document.Fields(v)
		if len(fields) == 0 {
			return nil, core.NewUnknownStageTypeError("schedule", "")
		}
		return nil, parseError("schedule", nil, err)
	}
	parse, ok := r.parsers[field.Key]
	if !ok {
		return nil, core.NewUnknownStageTypeError("schedule", field.Key)
	}
	return parse(field.Value)
}

// TriggerType is the trigger kind backed by a schedule.
const TriggerType = "schedule"

var _ core.Trigger = (*Trigger)(nil)

// Trigger fires a watch at the moments described by its schedule.
type Trigger struct {
	Schedule Schedule
}

// NewTrigger wraps a schedule into a trigger.
func NewTrigger(s Schedule) *Trigger {
	return &Trigger{Schedule: s}
}

// Type implements core.Trigger.
func (t *Trigger) Type() string { return TriggerType }

// Next implements core.Trigger.
func (t *Trigger) Next(after time.Time) time.Time { return t.Schedule.Next(after) }

// Spec implements core.Trigger.
func (t *Trigger) Spec() any {
	return document.Object(document.KV(t.Schedule.Type(), t.Schedule.Spec()))
}

// ParseTrigger parses the body of a schedule trigger.
func (r *Registry) ParseTrigger(body any) (core.Trigger, error) {
	s, err := r.Parse(body)
	if err != nil {
		return nil, err
	}
	return NewTrigger(s), nil
}

func parseError(field string, value any, err error) error {
	return core.NewScheduleParseError(field, value, err)
}

func unexpectedKeys(field string, obj map[string]any, allowed ...string) error {
	for key := range obj {
		if !slices.Contains(allowed, key) {
			return parseError(field, key, fmt.Errorf("%w (expected one of %v)", ErrUnexpectedKey, allowed))
		}
	}
	return nil
}
