package core

import (
	"errors"
	"fmt"
	"strings"
)

// errors on building a watch.
var (
	ErrTriggerRequired         = errors.New("trigger is required")
	ErrActionsMustBeObject     = errors.New("actions must be an object keyed by action id")
	ErrActionMustBeObject      = errors.New("action must be an object")
	ErrActionTypeRequired      = errors.New("action must define exactly one action type")
	ErrActionIDDuplicate       = errors.New("action id must be unique within a watch")
	ErrActionIDRequired        = errors.New("action id must not be empty")
	ErrUnexpectedField         = errors.New("unexpected field")
	ErrStageMustBeObject       = errors.New("stage must be an object with a single type key")
	ErrMetadataMustBeObject    = errors.New("metadata must be an object")
	ErrInvalidThrottlePeriod   = errors.New("throttle period must be a positive duration")
	ErrInvalidTimeout          = errors.New("timeout must be a positive duration")
	ErrScriptSourceRequired    = errors.New("script must define a source")
	ErrScriptMustBeStringOrMap = errors.New("script must be a string or an object")
	ErrStatusMustBeObject      = errors.New("status must be an object")
	ErrInvalidTimestamp        = errors.New("invalid timestamp")
	ErrInvalidAckState         = errors.New("invalid ack state")
)

// ErrorList collects every failure found while parsing one watch document.
type ErrorList []error

// Add appends err to the list when it is not nil.
func (e *ErrorList) Add(err error) {
	if err != nil {
		*e = append(*e, err)
	}
}

func (e ErrorList) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e ErrorList) Unwrap() []error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ParseError reports a parse failure of one field of a watch document.
// Parse failures are permanent; nothing about them is retried.
type ParseError struct {
	Watch string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("could not parse watch [%s]: %v", e.Watch, e.Err)
	}
	return fmt.Sprintf("could not parse watch [%s], field '%s': %v", e.Watch, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError wraps err with the watch name and the field path it was found at.
func NewParseError(watch, field string, err error) error {
	return &ParseError{Watch: watch, Field: field, Err: err}
}

// UnknownStageTypeError reports a type tag that no factory of a registry handles.
type UnknownStageTypeError struct {
	Registry string
	Type     string
}

func (e *UnknownStageTypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s registry: missing type key", e.Registry)
	}
	return fmt.Sprintf("%s registry: unknown type [%s]", e.Registry, e.Type)
}

// NewUnknownStageTypeError returns an UnknownStageTypeError for the registry and tag.
func NewUnknownStageTypeError(registry, typ string) error {
	return &UnknownStageTypeError{Registry: registry, Type: typ}
}

// MalformedActionsError reports an actions field that is not an object.
type MalformedActionsError struct {
	Watch string
	Err   error
}

func (e *MalformedActionsError) Error() string {
	return fmt.Sprintf("could not parse actions for watch [%s]: %v", e.Watch, e.Err)
}

func (e *MalformedActionsError) Unwrap() error {
	return e.Err
}

// MissingRequiredFieldError reports a required top-level field that is absent.
type MissingRequiredFieldError struct {
	Watch string
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("could not parse watch [%s]: missing required field '%s'", e.Watch, e.Field)
}

func (e *MissingRequiredFieldError) Is(target error) bool {
	return target == ErrTriggerRequired && e.Field == "trigger"
}

// StageValidationError represents a well-typed but semantically invalid stage field.
type StageValidationError struct {
	Stage string
	Field string
	Value any
	Err   error
}

func (e *StageValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: field '%s': %v", e.Stage, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: field '%s': %v (value: %+v)", e.Stage, e.Field, e.Err, e.Value)
}

func (e *StageValidationError) Unwrap() error {
	return e.Err
}

// NewStageValidationError wraps an error with the stage and field it concerns.
func NewStageValidationError(stage, field string, value any, err error) error {
	return &StageValidationError{
		Stage: stage,
		Field: field,
		Value: value,
		Err:   err,
	}
}

// ScheduleParseError reports a malformed calendar field of a schedule.
type ScheduleParseError struct {
	Field string
	Value any
	Err   error
}

func (e *ScheduleParseError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("could not parse schedule field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("could not parse schedule field '%s': %v (value: %+v)", e.Field, e.Err, e.Value)
}

func (e *ScheduleParseError) Unwrap() error {
	return e.Err
}

// NewScheduleParseError wraps an error with the schedule field and the offending value.
func NewScheduleParseError(field string, value any, err error) error {
	return &ScheduleParseError{Field: field, Value: value, Err: err}
}
