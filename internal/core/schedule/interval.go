package schedule

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
)

// Unit is the unit of an interval schedule.
type Unit string

const (
	Seconds Unit = "s"
	Minutes Unit = "m"
	Hours   Unit = "h"
	Days    Unit = "d"
	Weeks   Unit = "w"
)

var unitDurations = map[Unit]time.Duration{
	Seconds: time.Second,
	Minutes: time.Minute,
	Hours:   time.Hour,
	Days:    24 * time.Hour,
	Weeks:   7 * 24 * time.Hour,
}

var unitNames = map[string]Unit{
	"s": Seconds, "sec": Seconds, "second": Seconds, "seconds": Seconds,
	"m": Minutes, "min": Minutes, "minute": Minutes, "minutes": Minutes,
	"h": Hours, "hour": Hours, "hours": Hours,
	"d": Days, "day": Days, "days": Days,
	"w": Weeks, "week": Weeks, "weeks": Weeks,
}

var intervalPattern = regexp.MustCompile(`^(-?\d+)\s*([a-z]*)$`)

// IntervalSchedule fires at a fixed period. Next returns the reference time
// plus the period.
type IntervalSchedule struct {
	Duration int64
	Unit     Unit
}

// Every returns an interval schedule of n units. It panics if n is not positive.
func Every(n int64, unit Unit) *IntervalSchedule {
	s, err := newInterval(n, unit)
	if err != nil {
		panic(err)
	}
	return s
}

func newInterval(n int64, unit Unit) (*IntervalSchedule, error) {
	per, ok := unitDurations[unit]
	if !ok {
		return nil, parseError(TypeInterval, unit, ErrInvalidInterval)
	}
	if n <= 0 {
		return nil, core.NewStageValidationError("schedule."+TypeInterval, "duration", fmt.Sprintf("%d%s", n, unit), ErrIntervalNotPos)
	}
	if n > math.MaxInt64/int64(per) {
		return nil, core.NewStageValidationError("schedule."+TypeInterval, "duration", fmt.Sprintf("%d%s", n, unit), ErrIntervalTooLarge)
	}
	return &IntervalSchedule{Duration: n, Unit: unit}, nil
}

func (*IntervalSchedule) sealed() {}

// Type implements Schedule.
func (*IntervalSchedule) Type() string { return TypeInterval }

// Period returns the interval as a duration.
func (s *IntervalSchedule) Period() time.Duration {
	return time.Duration(s.Duration) * unitDurations[s.Unit]
}

// String renders the interval as <N><unit>.
func (s *IntervalSchedule) String() string {
	return strconv.FormatInt(s.Duration, 10) + string(s.Unit)
}

// Spec implements Schedule.
func (s *IntervalSchedule) Spec() any { return s.String() }

// Next implements Schedule.
func (s *IntervalSchedule) Next(after time.Time) time.Time {
	return after.Add(s.Period())
}

// parseInterval accepts "<N><unit>", a bare number of seconds or
// {duration: N, unit: u}.
func parseInterval(body any) (Schedule, error) {
	body = document.Plain(body)
	switch v := body.(type) {
	case string:
		m := intervalPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(v)))
		if m == nil {
			return nil, parseError(TypeInterval, v, ErrInvalidInterval)
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, parseError(TypeInterval, v, ErrInvalidInterval)
		}
		unit := Seconds
		if m[2] != "" {
			u, ok := unitNames[m[2]]
			if !ok {
				return nil, parseError(TypeInterval, v, ErrInvalidInterval)
			}
			unit = u
		}
		return newInterval(n, unit)

	case map[string]any:
		if err := unexpectedKeys(TypeInterval, v, "duration", "unit"); err != nil {
			return nil, err
		}
		n, err := parseInt(TypeInterval+".duration", v["duration"])
		if err != nil {
			return nil, err
		}
		unit := Seconds
		if raw, ok := v["unit"]; ok {
			name, _ := raw.(string)
			u, ok := unitNames[strings.ToLower(name)]
			if !ok {
				return nil, parseError(TypeInterval+".unit", raw, ErrInvalidInterval)
			}
			unit = u
		}
		return newInterval(int64(n), unit)

	default:
		n, err := parseInt(TypeInterval, body)
		if err != nil {
			return nil, parseError(TypeInterval, body, ErrInvalidInterval)
		}
		return newInterval(int64(n), Seconds)
	}
}
