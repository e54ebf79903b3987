package schedule

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dagucloud/watcher/internal/core/document"
)

// DayTime is a time of day with minute precision.
type DayTime struct {
	Hour   int
	Minute int
}

var (
	// Midnight is 00:00.
	Midnight = DayTime{Hour: 0, Minute: 0}
	// Noon is 12:00.
	Noon = DayTime{Hour: 12, Minute: 0}
)

// At returns the time of day hour:minute.
func At(hour, minute int) DayTime {
	return DayTime{Hour: hour, Minute: minute}
}

// String renders the time of day as HH:mm.
func (t DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t DayTime) validate(field string) error {
	if t.Hour < 0 || t.Hour > 23 {
		return parseError(field, t.Hour, ErrInvalidHour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return parseError(field, t.Minute, ErrInvalidMinute)
	}
	return nil
}

func compareDayTime(a, b DayTime) int {
	if c := cmp.Compare(a.Hour, b.Hour); c != 0 {
		return c
	}
	return cmp.Compare(a.Minute, b.Minute)
}

func normalizeDayTimes(times []DayTime) []DayTime {
	out := slices.Clone(times)
	slices.SortFunc(out, compareDayTime)
	return slices.Compact(out)
}

func dayTimesSpec(times []DayTime) []any {
	out := make([]any, len(times))
	for i, t := range times {
		out[i] = t.String()
	}
	return out
}

// parseDayTimes reads a single time of day or an array of them. Accepted forms
// are "HH:mm", "noon", "midnight" and {hour: h|[h...], minute: m|[m...]}.
func parseDayTimes(field string, v any) ([]DayTime, error) {
	var out []DayTime
	for _, item := range document.Items(document.Plain(v)) {
		times, err := parseDayTime(field, item)
		if err != nil {
			return nil, err
		}
		out = append(out, times...)
	}
	return normalizeDayTimes(out), nil
}

func parseDayTime(field string, v any) ([]DayTime, error) {
	switch val := v.(type) {
	case string:
		t, err := parseDayTimeString(field, val)
		if err != nil {
			return nil, err
		}
		return []DayTime{t}, nil

	case map[string]any:
		if err := unexpectedKeys(field, val, "hour", "minute"); err != nil {
			return nil, err
		}
		hours, err := parseInts(field+".hour", val["hour"])
		if err != nil {
			return nil, err
		}
		if len(hours) == 0 {
			hours = []int{0}
		}
		minutes, err := parseInts(field+".minute", val["minute"])
		if err != nil {
			return nil, err
		}
		if len(minutes) == 0 {
			minutes = []int{0}
		}
		var out []DayTime
		for _, h := range hours {
			for _, m := range minutes {
				t := DayTime{Hour: h, Minute: m}
				if err := t.validate(field); err != nil {
					return nil, err
				}
				out = append(out, t)
			}
		}
		return out, nil

	default:
		return nil, parseError(field, v, ErrInvalidTimeOfDay)
	}
}

func parseDayTimeString(field, s string) (DayTime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "midnight":
		return Midnight, nil
	case "noon":
		return Noon, nil
	}
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DayTime{}, parseError(field, s, ErrInvalidTimeOfDay)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return DayTime{}, parseError(field, s, ErrInvalidTimeOfDay)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return DayTime{}, parseError(field, s, ErrInvalidTimeOfDay)
	}
	t := DayTime{Hour: hour, Minute: minute}
	if err := t.validate(field); err != nil {
		return DayTime{}, err
	}
	return t, nil
}

func parseInt(field string, v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		if val != math.Trunc(val) {
			return 0, parseError(field, v, ErrInvalidNumber)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, parseError(field, v, ErrInvalidNumber)
		}
		return n, nil
	default:
		return 0, parseError(field, v, ErrInvalidNumber)
	}
}

func parseInts(field string, v any) ([]int, error) {
	var out []int
	for _, item := range document.Items(v) {
		n, err := parseInt(field, item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func normalizeInts(values []int) []int {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func intsSpec(values []int) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// isoWeekday converts ISO 8601 numbering (1 = Monday ... 7 = Sunday).
func isoWeekday(n int) (time.Weekday, bool) {
	if n < 1 || n > 7 {
		return 0, false
	}
	return time.Weekday(n % 7), true
}

// isoIndex is the ISO 8601 number of a weekday.
func isoIndex(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

func parseWeekdays(field string, v any) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, item := range document.Items(v) {
		if s, ok := item.(string); ok {
			if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
				out = append(out, d)
				continue
			}
		}
		n, err := parseInt(field, item)
		if err != nil {
			return nil, parseError(field, item, ErrInvalidDayOfWeek)
		}
		d, ok := isoWeekday(n)
		if !ok {
			return nil, parseError(field, item, ErrInvalidDayOfWeek)
		}
		out = append(out, d)
	}
	return normalizeWeekdays(out), nil
}

func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	out := slices.Clone(days)
	slices.SortFunc(out, func(a, b time.Weekday) int { return cmp.Compare(isoIndex(a), isoIndex(b)) })
	return slices.Compact(out)
}

func weekdaysSpec(days []time.Weekday) []any {
	out := make([]any, len(days))
	for i, d := range days {
		out[i] = strings.ToLower(d.String())
	}
	return out
}

func parseMonths(field string, v any) ([]time.Month, error) {
	var out []time.Month
	for _, item := range document.Items(v) {
		if s, ok := item.(string); ok {
			if m, ok := monthByName(s); ok {
				out = append(out, m)
				continue
			}
		}
		n, err := parseInt(field, item)
		if err != nil || n < 1 || n > 12 {
			return nil, parseError(field, item, ErrInvalidMonth)
		}
		out = append(out, time.Month(n))
	}
	return normalizeMonths(out), nil
}

func monthByName(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || s == name[:3] {
			return m, true
		}
	}
	return 0, false
}

func normalizeMonths(months []time.Month) []time.Month {
	out := slices.Clone(months)
	slices.Sort(out)
	return slices.Compact(out)
}

func monthsSpec(months []time.Month) []any {
	out := make([]any, len(months))
	for i, m := range months {
		out[i] = strings.ToLower(m.String())
	}
	return out
}

func parseDaysOfMonth(field string, v any) ([]int, error) {
	days, err := parseInts(field, v)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		if d < 1 || d > 31 {
			return nil, parseError(field, d, ErrInvalidDayOfMonth)
		}
	}
	return normalizeInts(days), nil
}
