// Package calendar does date-only arithmetic for the daily simulation
// clock. Every date is a time.Time at UTC midnight.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the canonical text form of a simulation date.
const Layout = "2006-01-02"

// Unit is the granularity of a date offset.
type Unit string

const (
	Day   Unit = "day"
	Week  Unit = "week"
	Month Unit = "month"
	Year  Unit = "year"
)

// Date builds a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock part of t and moves it to UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Parse reads a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a date as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// AddMonths moves t by n calendar months. When the target month is
// shorter the day is clamped to its last day, so Jan 31 + 1 month is
// Feb 29 in a leap year rather than Mar 2.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := Date(y, m, 1).AddDate(0, n, 0)
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return Date(first.Year(), first.Month(), d)
}

// AddYears moves t by n years with the same clamping as AddMonths.
func AddYears(t time.Time, n int) time.Time {
	return AddMonths(t, 12*n)
}

// Offset moves t by n units.
func Offset(t time.Time, unit Unit, n int) (time.Time, error) {
	switch unit {
	case Day:
		return t.AddDate(0, 0, n), nil
	case Week:
		return t.AddDate(0, 0, 7*n), nil
	case Month:
		return AddMonths(t, n), nil
	case Year:
		return AddYears(t, n), nil
	default:
		return time.Time{}, fmt.Errorf("unknown date offset unit %q", unit)
	}
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), DaysIn(t.Year(), t.Month()))
}

// Range returns days consecutive dates starting at start.
func Range(start time.Time, days int) []time.Time {
	start = Truncate(start)
	out := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}
