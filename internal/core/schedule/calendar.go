package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/goccy/go-yaml"
)

// Search horizons for calendar schedules, in days. Yearly schedules on
// February 29 can be eight years apart.
const (
	weeklyHorizon  = 8
	monthlyHorizon = 366
	yearlyHorizon  = 366*8 + 2
)

// HourlySchedule fires every hour at the given minutes.
type HourlySchedule struct {
	Minutes []int
}

// Hourly returns a schedule firing every hour at the given minutes, or on the
// hour when none are given.
func Hourly(minutes ...int) *HourlySchedule {
	if len(minutes) == 0 {
		minutes = []int{0}
	}
	return &HourlySchedule{Minutes: normalizeInts(minutes)}
}

func (*HourlySchedule) sealed() {}

// Type implements Schedule.
func (*HourlySchedule) Type() string { return TypeHourly }

// Spec implements Schedule.
func (s *HourlySchedule) Spec() any {
	return document.Object(document.KV("minute", intsSpec(s.Minutes)))
}

// Next implements Schedule.
func (s *HourlySchedule) Next(after time.Time) time.Time {
	loc := after.Location()
	for i := 0; i <= 1; i++ {
		hour := time.Date(after.Year(), after.Month(), after.Day(), after.Hour()+i, 0, 0, 0, loc)
		for _, m := range s.Minutes {
			if c := hour.Add(time.Duration(m) * time.Minute); c.After(after) {
				return c
			}
		}
	}
	return time.Time{}
}

func parseHourly(body any) (Schedule, error) {
	obj, err := calendarObject(TypeHourly, body)
	if err != nil {
		return nil, err
	}
	if err := unexpectedKeys(TypeHourly, obj, "minute"); err != nil {
		return nil, err
	}
	minutes, err := parseInts(TypeHourly+".minute", obj["minute"])
	if err != nil {
		return nil, err
	}
	for _, m := range minutes {
		if m < 0 || m > 59 {
			return nil, parseError(TypeHourly+".minute", m, ErrInvalidMinute)
		}
	}
	return Hourly(minutes...), nil
}

// DailySchedule fires every day at the given times.
type DailySchedule struct {
	Times []DayTime
}

// Daily returns a schedule firing every day at the given times, or at midnight
// when none are given.
func Daily(times ...DayTime) *DailySchedule {
	if len(times) == 0 {
		times = []DayTime{Midnight}
	}
	return &DailySchedule{Times: normalizeDayTimes(times)}
}

func (*DailySchedule) sealed() {}

// Type implements Schedule.
func (*DailySchedule) Type() string { return TypeDaily }

// Spec implements Schedule.
func (s *DailySchedule) Spec() any {
	return document.Object(document.KV("at", dayTimesSpec(s.Times)))
}

// Next implements Schedule.
func (s *DailySchedule) Next(after time.Time) time.Time {
	return nextCalendar(after, 2, func(time.Time) []DayTime { return s.Times })
}

func parseDaily(body any) (Schedule, error) {
	obj, err := calendarObject(TypeDaily, body)
	if err != nil {
		return nil, err
	}
	if err := unexpectedKeys(TypeDaily, obj, "at"); err != nil {
		return nil, err
	}
	times, err := parseDayTimes(TypeDaily+".at", obj["at"])
	if err != nil {
		return nil, err
	}
	return Daily(times...), nil
}

// WeekTimes is a set of weekdays combined with a set of times of day.
type WeekTimes struct {
	Days  []time.Weekday
	Times []DayTime
}

// On starts a WeekTimes on the given days. It fires at midnight until At is called.
func On(days ...time.Weekday) WeekTimes {
	if len(days) == 0 {
		days = []time.Weekday{time.Monday}
	}
	return WeekTimes{Days: normalizeWeekdays(days), Times: []DayTime{Midnight}}
}

// At sets the times of day.
func (w WeekTimes) At(times ...DayTime) WeekTimes {
	if len(times) == 0 {
		times = []DayTime{Midnight}
	}
	w.Times = normalizeDayTimes(times)
	return w
}

// AtNoon sets the time of day to 12:00.
func (w WeekTimes) AtNoon() WeekTimes { return w.At(Noon) }

// AtMidnight sets the time of day to 00:00.
func (w WeekTimes) AtMidnight() WeekTimes { return w.At(Midnight) }

func (w WeekTimes) spec() yaml.MapSlice {
	return document.Object(
		document.KV("on", weekdaysSpec(w.Days)),
		document.KV("at", dayTimesSpec(w.Times)),
	)
}

func (w WeekTimes) key() string {
	days := make([]int, len(w.Days))
	for i, d := range w.Days {
		days[i] = isoIndex(d)
	}
	return intsKey(days) + "|" + dayTimesKey(w.Times)
}

// WeeklySchedule fires on the given weekdays and times.
type WeeklySchedule struct {
	Times []WeekTimes
}

// Weekly returns a schedule built from the given week times.
func Weekly(times ...WeekTimes) *WeeklySchedule {
	if len(times) == 0 {
		times = []WeekTimes{On(time.Monday)}
	}
	return &WeeklySchedule{Times: normalizeGroups(times, WeekTimes.key)}
}

func (*WeeklySchedule) sealed() {}

// Type implements Schedule.
func (*WeeklySchedule) Type() string { return TypeWeekly }

// Spec implements Schedule.
func (s *WeeklySchedule) Spec() any {
	return groupsSpec(s.Times, WeekTimes.spec)
}

// Next implements Schedule.
func (s *WeeklySchedule) Next(after time.Time) time.Time {
	return nextCalendar(after, weeklyHorizon, func(day time.Time) []DayTime {
		var times []DayTime
		for _, wt := range s.Times {
			if slices.Contains(wt.Days, day.Weekday()) {
				times = append(times, wt.Times...)
			}
		}
		return times
	})
}

func parseWeekly(body any) (Schedule, error) {
	var times []WeekTimes
	for _, item := range document.Items(document.Plain(body)) {
		obj, err := calendarObject(TypeWeekly, item)
		if err != nil {
			return nil, err
		}
		if err := unexpectedKeys(TypeWeekly, obj, "on", "at"); err != nil {
			return nil, err
		}
		days, err := parseWeekdays(TypeWeekly+".on", obj["on"])
		if err != nil {
			return nil, err
		}
		at, err := parseDayTimes(TypeWeekly+".at", obj["at"])
		if err != nil {
			return nil, err
		}
		times = append(times, On(days...).At(at...))
	}
	return Weekly(times...), nil
}

// MonthTimes is a set of days of the month combined with a set of times of day.
type MonthTimes struct {
	Days  []int
	Times []DayTime
}

// OnDay starts a MonthTimes on the given days of the month. It fires at midnight
// until At is called. Days past the end of a month are skipped for that month.
func OnDay(days ...int) MonthTimes {
	if len(days) == 0 {
		days = []int{1}
	}
	return MonthTimes{Days: normalizeInts(days), Times: []DayTime{Midnight}}
}

// At sets the times of day.
func (m MonthTimes) At(times ...DayTime) MonthTimes {
	if len(times) == 0 {
		times = []DayTime{Midnight}
	}
	m.Times = normalizeDayTimes(times)
	return m
}

// AtNoon sets the time of day to 12:00.
func (m MonthTimes) AtNoon() MonthTimes { return m.At(Noon) }

// AtMidnight sets the time of day to 00:00.
func (m MonthTimes) AtMidnight() MonthTimes { return m.At(Midnight) }

func (m MonthTimes) spec() yaml.MapSlice {
	return document.Object(
		document.KV("on", intsSpec(m.Days)),
		document.KV("at", dayTimesSpec(m.Times)),
	)
}

func (m MonthTimes) key() string { return intsKey(m.Days) + "|" + dayTimesKey(m.Times) }

// MonthlySchedule fires on the given days of every month.
type MonthlySchedule struct {
	Times []MonthTimes
}

// Monthly returns a schedule built from the given month times.
func Monthly(times ...MonthTimes) *MonthlySchedule {
	if len(times) == 0 {
		times = []MonthTimes{OnDay(1)}
	}
	return &MonthlySchedule{Times: normalizeGroups(times, MonthTimes.key)}
}

func (*MonthlySchedule) sealed() {}

// Type implements Schedule.
func (*MonthlySchedule) Type() string { return TypeMonthly }

// Spec implements Schedule.
func (s *MonthlySchedule) Spec() any {
	return groupsSpec(s.Times, MonthTimes.spec)
}

// Next implements Schedule.
func (s *MonthlySchedule) Next(after time.Time) time.Time {
	return nextCalendar(after, monthlyHorizon, func(day time.Time) []DayTime {
		var times []DayTime
		for _, mt := range s.Times {
			if slices.Contains(mt.Days, day.Day()) {
				times = append(times, mt.Times...)
			}
		}
		return times
	})
}

func parseMonthly(body any) (Schedule, error) {
	var times []MonthTimes
	for _, item := range document.Items(document.Plain(body)) {
		obj, err := calendarObject(TypeMonthly, item)
		if err != nil {
			return nil, err
		}
		if err := unexpectedKeys(TypeMonthly, obj, "on", "at"); err != nil {
			return nil, err
		}
		days, err := parseDaysOfMonth(TypeMonthly+".on", obj["on"])
		if err != nil {
			return nil, err
		}
		at, err := parseDayTimes(TypeMonthly+".at", obj["at"])
		if err != nil {
			return nil, err
		}
		times = append(times, OnDay(days...).At(at...))
	}
	return Monthly(times...), nil
}

// YearTimes is a set of months combined with days of the month and times of day.
type YearTimes struct {
	Months []time.Month
	Days   []int
	Times  []DayTime
}

// In starts a YearTimes in the given months, on the 1st at midnight until On
// and At are called.
func In(months ...time.Month) YearTimes {
	if len(months) == 0 {
		months = []time.Month{time.January}
	}
	return YearTimes{Months: normalizeMonths(months), Days: []int{1}, Times: []DayTime{Midnight}}
}

// On sets the days of the month.
func (y YearTimes) On(days ...int) YearTimes {
	if len(days) == 0 {
		days = []int{1}
	}
	y.Days = normalizeInts(days)
	return y
}

// At sets the times of day.
func (y YearTimes) At(times ...DayTime) YearTimes {
	if len(times) == 0 {
		times = []DayTime{Midnight}
	}
	y.Times = normalizeDayTimes(times)
	return y
}

// AtNoon sets the time of day to 12:00.
func (y YearTimes) AtNoon() YearTimes { return y.At(Noon) }

// AtMidnight sets the time of day to 00:00.
func (y YearTimes) AtMidnight() YearTimes { return y.At(Midnight) }

func (y YearTimes) spec() yaml.MapSlice {
	return document.Object(
		document.KV("in", monthsSpec(y.Months)),
		document.KV("on", intsSpec(y.Days)),
		document.KV("at", dayTimesSpec(y.Times)),
	)
}

func (y YearTimes) key() string {
	months := make([]int, len(y.Months))
	for i, m := range y.Months {
		months[i] = int(m)
	}
	return intsKey(months) + "|" + intsKey(y.Days) + "|" + dayTimesKey(y.Times)
}

// YearlySchedule fires on the given dates of every year.
type YearlySchedule struct {
	Times []YearTimes
}

// Yearly returns a schedule built from the given year times.
func Yearly(times ...YearTimes) *YearlySchedule {
	if len(times) == 0 {
		times = []YearTimes{In(time.January)}
	}
	return &YearlySchedule{Times: normalizeGroups(times, YearTimes.key)}
}

func (*YearlySchedule) sealed() {}

// Type implements Schedule.
func (*YearlySchedule) Type() string { return TypeYearly }

// Spec implements Schedule.
func (s *YearlySchedule) Spec() any {
	return groupsSpec(s.Times, YearTimes.spec)
}

// Next implements Schedule.
func (s *YearlySchedule) Next(after time.Time) time.Time {
	return nextCalendar(after, yearlyHorizon, func(day time.Time) []DayTime {
		var times []DayTime
		for _, yt := range s.Times {
			if slices.Contains(yt.Months, day.Month()) && slices.Contains(yt.Days, day.Day()) {
				times = append(times, yt.Times...)
			}
		}
		return times
	})
}

func parseYearly(body any) (Schedule, error) {
	var times []YearTimes
	for _, item := range document.Items(document.Plain(body)) {
		obj, err := calendarObject(TypeYearly, item)
		if err != nil {
			return nil, err
		}
		if err := unexpectedKeys(TypeYearly, obj, "in", "on", "at"); err != nil {
			return nil, err
		}
		months, err := parseMonths(TypeYearly+".in", obj["in"])
		if err != nil {
			return nil, err
		}
		days, err := parseDaysOfMonth(TypeYearly+".on", obj["on"])
		if err != nil {
			return nil, err
		}
		at, err := parseDayTimes(TypeYearly+".at", obj["at"])
		if err != nil {
			return nil, err
		}
		times = append(times, In(months...).On(days...).At(at...))
	}
	return Yearly(times...), nil
}

// nextCalendar walks forward day by day from the day of after and returns the
// first time of day, among those timesOf yields for a day, that is strictly after it.
func nextCalendar(after time.Time, horizon int, timesOf func(day time.Time) []DayTime) time.Time {
	loc := after.Location()
	for i := 0; i <= horizon; i++ {
		day := time.Date(after.Year(), after.Month(), after.Day()+i, 0, 0, 0, 0, loc)
		times := normalizeDayTimes(timesOf(day))
		for _, t := range times {
			c := time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
			if c.After(after) {
				return c
			}
		}
	}
	return time.Time{}
}

func calendarObject(field string, v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	obj, err := document.PlainObject(v)
	if err != nil {
		return nil, parseError(field, v, err)
	}
	return obj, nil
}

func normalizeGroups[T any](groups []T, key func(T) string) []T {
	out := slices.Clone(groups)
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(key(a), key(b)) })
	return slices.CompactFunc(out, func(a, b T) bool { return key(a) == key(b) })
}

// intsKey and dayTimesKey render sets as fixed-width strings so that group keys
// sort in numeric order.
func intsKey(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%02d", v)
	}
	return strings.Join(parts, ",")
}

func dayTimesKey(times []DayTime) string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

func groupsSpec[T any](groups []T, spec func(T) yaml.MapSlice) any {
	if len(groups) == 1 {
		return spec(groups[0])
	}
	out := make([]any, len(groups))
	for i, g := range groups {
		out[i] = spec(g)
	}
	return out
}
