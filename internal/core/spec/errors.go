package spec

import "errors"

var (
	ErrDocumentMustBeObject = errors.New("watch document must be an object")
	ErrTriggerMustBeObject  = errors.New("trigger must be an object with a single trigger type")
	ErrThrottlePeriodTwice  = errors.New("throttle_period and throttle_period_in_millis are mutually exclusive")
	ErrNoClock              = errors.New("a clock is required when the status is synthesized")
)
