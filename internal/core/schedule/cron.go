package schedule

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser reads seconds-first expressions with an optional descriptor
// such as @hourly. "?" is accepted as an alias of "*".
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const (
	minCronYear = 1970
	maxCronYear = 2199
	// maxYearJumps bounds the search for a year that matches both the year
	// field and the other fields.
	maxYearJumps = 64
)

// CronSchedule fires on a cron expression with a leading seconds field and an
// optional trailing year field. Days of week follow Quartz numbering,
// 1 = Sunday ... 7 = Saturday, or names such as MON.
type CronSchedule struct {
	Expression string

	schedule cron.Schedule
	years    []int
}

// Cron parses a cron expression.
func Cron(expr string) (*CronSchedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, parseError(TypeCron, expr, ErrInvalidCron)
	}
	fields := strings.Fields(expr)
	var years []int
	if len(fields) == 7 {
		var err error
		years, err = parseYears(fields[6])
		if err != nil {
			return nil, parseError(TypeCron, expr, fmt.Errorf("%w: %v", ErrInvalidCron, err))
		}
		fields = fields[:6]
	}
	if len(fields) == 6 {
		dow, err := quartzDayOfWeek(fields[5])
		if err != nil {
			return nil, parseError(TypeCron, expr, fmt.Errorf("%w: %v", ErrInvalidCron, err))
		}
		fields[5] = dow
	}
	s, err := cronParser.Parse(strings.Join(fields, " "))
	if err != nil {
		return nil, parseError(TypeCron, expr, fmt.Errorf("%w: %v", ErrInvalidCron, err))
	}
	return &CronSchedule{Expression: expr, schedule: s, years: years}, nil
}

// MustCron is like Cron but panics on an invalid expression.
func MustCron(expr string) *CronSchedule {
	s, err := Cron(expr)
	if err != nil {
		panic(err)
	}
	return s
}

func (*CronSchedule) sealed() {}

// Type implements Schedule.
func (*CronSchedule) Type() string { return TypeCron }

// Spec implements Schedule.
func (s *CronSchedule) Spec() any { return s.Expression }

// Next implements Schedule.
func (s *CronSchedule) Next(after time.Time) time.Time {
	t := after
	for range maxYearJumps {
		next := s.schedule.Next(t)
		if next.IsZero() || s.years == nil || slices.Contains(s.years, next.Year()) {
			return next
		}
		i, _ := slices.BinarySearch(s.years, next.Year())
		if i == len(s.years) {
			return time.Time{}
		}
		// Restart just before the first instant of the next allowed year.
		t = time.Date(s.years[i], time.January, 1, 0, 0, 0, 0, after.Location()).Add(-time.Nanosecond)
	}
	return time.Time{}
}

func parseCron(body any) (Schedule, error) {
	expr, ok := body.(string)
	if !ok {
		return nil, parseError(TypeCron, body, ErrInvalidCron)
	}
	return Cron(expr)
}

// parseYears expands a year field: "*", "?", "2030", "2030-2035", "2030/2"
// and comma-separated lists of those.
func parseYears(field string) ([]int, error) {
	if field == "*" || field == "?" {
		return nil, nil
	}
	var years []int
	for part := range strings.SplitSeq(field, ",") {
		rng, stepStr, hasStep := strings.Cut(part, "/")
		step := 1
		if hasStep {
			n, err := strconv.Atoi(stepStr)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid year step %q", stepStr)
			}
			step = n
		}
		lo, hi := minCronYear, maxCronYear
		switch {
		case rng == "*" || rng == "?":
		case strings.Contains(rng, "-"):
			a, b, _ := strings.Cut(rng, "-")
			var err error
			if lo, err = strconv.Atoi(a); err != nil {
				return nil, fmt.Errorf("invalid year %q", a)
			}
			if hi, err = strconv.Atoi(b); err != nil {
				return nil, fmt.Errorf("invalid year %q", b)
			}
		default:
			n, err := strconv.Atoi(rng)
			if err != nil {
				return nil, fmt.Errorf("invalid year %q", rng)
			}
			lo = n
			if !hasStep {
				hi = n
			}
		}
		if lo < minCronYear || hi > maxCronYear || lo > hi {
			return nil, fmt.Errorf("year range %d-%d out of bounds [%d, %d]", lo, hi, minCronYear, maxCronYear)
		}
		for y := lo; y <= hi; y += step {
			years = append(years, y)
		}
	}
	return normalizeInts(years), nil
}

// quartzDayOfWeek shifts the numbers of a day-of-week field from Quartz
// numbering (1 = Sunday) to robfig numbering (0 = Sunday). Step sizes and
// names are kept.
func quartzDayOfWeek(field string) (string, error) {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		rng, step, hasStep := strings.Cut(part, "/")
		bounds := strings.Split(rng, "-")
		for j, b := range bounds {
			n, err := strconv.Atoi(b)
			if err != nil {
				continue
			}
			if n < 1 || n > 7 {
				return "", fmt.Errorf("day of week %d out of range [1, 7]", n)
			}
			bounds[j] = strconv.Itoa(n - 1)
		}
		parts[i] = strings.Join(bounds, "-")
		if hasStep {
			parts[i] += "/" + step
		}
	}
	return strings.Join(parts, ","), nil
}
