package spec

import (
	"fmt"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
)

// Reserved top-level keys of a watch document, in serialization order.
const (
	keyTrigger              = "trigger"
	keyInput                = "input"
	keyCondition            = "condition"
	keyTransform            = "transform"
	keyThrottlePeriod       = "throttle_period"
	keyThrottlePeriodMillis = "throttle_period_in_millis"
	keyMetadata             = "metadata"
	keyActions              = "actions"
	keyStatus               = "status"
)

// definition holds the raw top-level fields of a watch document before they
// are built.
type definition struct {
	Trigger        any
	Input          any
	Condition      any
	Transform      any
	ThrottlePeriod any
	// throttleKey is the key the throttle period was given under.
	throttleKey string
	Metadata    any
	Actions     any
	Status      any
}

func (d *definition) set(f document.Field) error {
	switch f.Key {
	case keyTrigger:
		d.Trigger = f.Value
	case keyInput:
		d.Input = f.Value
	case keyCondition:
		d.Condition = f.Value
	case keyTransform:
		d.Transform = f.Value
	case keyThrottlePeriod, keyThrottlePeriodMillis:
		if d.throttleKey != "" {
			return ErrThrottlePeriodTwice
		}
		d.ThrottlePeriod = f.Value
		d.throttleKey = f.Key
	case keyMetadata:
		d.Metadata = f.Value
	case keyActions:
		d.Actions = f.Value
	case keyStatus:
		d.Status = f.Value
	default:
		return fmt.Errorf("%w: %s", core.ErrUnexpectedField, f.Key)
	}
	return nil
}
