package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// unitPattern matches one number and its unit; the number takes every digit
// and dot before the unit so "1.5d" is never read as "1." followed by "5d".
var unitPattern = regexp.MustCompile(`([0-9.]+)([a-zµμ]+)`)

var unitHours = map[string]float64{"d": 24, "w": 7 * 24}

// Parse parses a duration string that supports the standard Go duration format
// plus a 'd' suffix for days and a 'w' suffix for weeks (e.g., "99w", "2d12h", "1.5d").
// It converts day and week units to hour equivalents before delegating to time.ParseDuration.
func Parse(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	expanded := unitPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := unitPattern.FindStringSubmatch(match)
		hours, ok := unitHours[m[2]]
		if !ok {
			return match
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return match
		}
		return strconv.FormatFloat(n*hours, 'f', -1, 64) + "h"
	})

	d, err := time.ParseDuration(expanded)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("negative duration not allowed: %q", s)
	}

	return d, nil
}

var formatUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"w", 7 * 24 * time.Hour},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
}

// Format renders d in the compact single-unit form accepted by Parse, using the
// largest unit that divides d exactly ("10s", "99w", "1500ms").
// Durations that are not a whole number of milliseconds fall back to time.Duration.String.
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	for _, u := range formatUnits {
		if d%u.unit == 0 {
			return strconv.FormatInt(int64(d/u.unit), 10) + u.suffix
		}
	}
	return d.String()
}
