package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		add     []error
		message string
		is      []error
		isNot   []error
	}{
		{name: "Empty", message: ""},
		{name: "NilIgnored", add: []error{nil, nil}, message: ""},
		{
			name:    "Single",
			add:     []error{ErrTriggerRequired},
			message: "trigger is required",
			is:      []error{ErrTriggerRequired},
			isNot:   []error{ErrActionIDRequired},
		},
		{
			name:    "JoinedInOrder",
			add:     []error{ErrTriggerRequired, nil, fmt.Errorf("actions: %w", ErrActionIDDuplicate)},
			message: "trigger is required; actions: action id must be unique within a watch",
			is:      []error{ErrTriggerRequired, ErrActionIDDuplicate},
			isNot:   []error{ErrUnexpectedField},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var list ErrorList
			for _, err := range tt.add {
				list.Add(err)
			}
			assert.Equal(t, tt.message, list.Error())
			if tt.message == "" {
				assert.Empty(t, list)
				assert.Nil(t, list.Unwrap())
			}
			for _, target := range tt.is {
				assert.ErrorIs(t, list, target)
			}
			for _, target := range tt.isNot {
				assert.NotErrorIs(t, list, target)
			}
		})
	}
}

func TestStageValidationError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stage    string
		field    string
		value    any
		err      error
		expected string
	}{
		{
			name:     "nil value formats without value",
			stage:    "condition.compare",
			field:    "op",
			err:      errors.New("unknown operator"),
			expected: "condition.compare: field 'op': unknown operator",
		},
		{
			name:     "string value formats with value",
			stage:    "schedule.interval",
			field:    "duration",
			value:    "-5s",
			err:      errors.New("interval must be positive"),
			expected: "schedule.interval: field 'duration': interval must be positive (value: -5s)",
		},
		{
			name:     "struct value uses %+v format",
			stage:    "action.webhook",
			field:    "auth",
			value:    struct{ User string }{User: "admin"},
			err:      errors.New("invalid auth"),
			expected: "action.webhook: field 'auth': invalid auth (value: {User:admin})",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewStageValidationError(tt.stage, tt.field, tt.value, tt.err)
			assert.Equal(t, tt.expected, err.Error())
			assert.ErrorIs(t, err, tt.err)

			var ve *StageValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParseError(t *testing.T) {
	t.Parallel()

	t.Run("with field", func(t *testing.T) {
		t.Parallel()
		err := NewParseError("disk-alert", "actions.email", ErrActionTypeRequired)
		assert.Equal(t, "could not parse watch [disk-alert], field 'actions.email': action must define exactly one action type", err.Error())
		assert.ErrorIs(t, err, ErrActionTypeRequired)
	})

	t.Run("without field", func(t *testing.T) {
		t.Parallel()
		err := NewParseError("disk-alert", "", errors.New("empty document"))
		assert.Equal(t, "could not parse watch [disk-alert]: empty document", err.Error())
	})
}

func TestUnknownStageTypeError(t *testing.T) {
	t.Parallel()

	err := NewUnknownStageTypeError("action", "pagerduty")
	assert.Equal(t, "action registry: unknown type [pagerduty]", err.Error())
	assert.Equal(t, "input registry: missing type key", NewUnknownStageTypeError("input", "").Error())

	var unknown *UnknownStageTypeError
	require.ErrorAs(t, NewParseError("w", "actions.a", err), &unknown)
	assert.Equal(t, "pagerduty", unknown.Type)
}

func TestMalformedActionsError(t *testing.T) {
	t.Parallel()

	err := &MalformedActionsError{Watch: "failure", Err: ErrActionsMustBeObject}
	assert.Contains(t, err.Error(), "could not parse actions for watch [failure]")
	assert.ErrorIs(t, err, ErrActionsMustBeObject)
}

func TestMissingRequiredFieldError(t *testing.T) {
	t.Parallel()

	err := &MissingRequiredFieldError{Watch: "w", Field: "trigger"}
	assert.Equal(t, "could not parse watch [w]: missing required field 'trigger'", err.Error())
	assert.ErrorIs(t, err, ErrTriggerRequired)
	assert.NotErrorIs(t, &MissingRequiredFieldError{Watch: "w", Field: "input"}, ErrTriggerRequired)
}

func TestScheduleParseError(t *testing.T) {
	t.Parallel()

	cause := errors.New("hour must be between 0 and 23")
	err := NewScheduleParseError("daily.at", 25, cause)
	assert.Equal(t, "could not parse schedule field 'daily.at': hour must be between 0 and 23 (value: 25)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not parse schedule field 'cron': boom", NewScheduleParseError("cron", nil, errors.New("boom")).Error())
}

func TestErrorList_CollectsTaxonomy(t *testing.T) {
	t.Parallel()

	var errs ErrorList
	errs.Add(nil)
	errs.Add(&MissingRequiredFieldError{Watch: "w", Field: "trigger"})
	errs.Add(NewParseError("w", "input", NewUnknownStageTypeError("input", "http")))
	require.Len(t, errs, 2)

	var err error = errs
	assert.ErrorIs(t, err, ErrTriggerRequired)
	var unknown *UnknownStageTypeError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, fmt.Sprintf("%s; %s", errs[0], errs[1]), err.Error())
}
