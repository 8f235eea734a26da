package common

import (
	"fmt"
	"strings"
	"time"
)

// TradingCalendar knows which calendar days the exchange trades.
// Holidays are optional; an unknown holiday only costs one empty snapshot lookup.
type TradingCalendar struct {
	WorkingDays []time.Weekday
	Holidays    []time.Time
}

// DefaultWorkingDays returns Monday through Friday.
func DefaultWorkingDays() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

// NewTradingCalendar builds a weekday calendar with the configured holidays.
func NewTradingCalendar(holidays []string) (*TradingCalendar, error) {
	cal := &TradingCalendar{WorkingDays: DefaultWorkingDays()}
	for _, h := range holidays {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		cal.Holidays = append(cal.Holidays, d)
	}
	return cal, nil
}

// AddHolidays merges dates into the calendar and returns how many were new.
func (c *TradingCalendar) AddHolidays(dates ...time.Time) int {
	added := 0
	for _, d := range dates {
		d = civilDate(d)
		known := false
		for _, h := range c.Holidays {
			if civilDate(h).Equal(d) {
				known = true
				break
			}
		}
		if !known {
			c.Holidays = append(c.Holidays, d)
			added++
		}
	}
	return added
}

// IsWorkingDay reports whether the exchange trades on t's calendar date.
func (c *TradingCalendar) IsWorkingDay(t time.Time) bool {
	isWorkDay := false
	for _, wd := range c.WorkingDays {
		if wd == t.Weekday() {
			isWorkDay = true
			break
		}
	}
	if !isWorkDay {
		return false
	}

	day := civilDate(t)
	for _, h := range c.Holidays {
		if day.Equal(civilDate(h)) {
			return false
		}
	}
	return true
}

// PreviousWorkingDay returns the last working day strictly before t,
// searching at most maxDays calendar days back. ok is false when none is found.
func (c *TradingCalendar) PreviousWorkingDay(t time.Time, maxDays int) (day time.Time, ok bool) {
	current := civilDate(t)
	for i := 0; i < maxDays; i++ {
		current = current.AddDate(0, 0, -1)
		if c.IsWorkingDay(current) {
			return current, true
		}
	}
	return time.Time{}, false
}

// ResolveTargetDate returns the civil date a run evaluates.
// now is interpreted in loc; target is "today" or "yesterday".
func ResolveTargetDate(now time.Time, loc *time.Location, target string) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	day := civilDate(now.In(loc))
	if strings.EqualFold(target, "yesterday") {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	return d, nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
