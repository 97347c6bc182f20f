// Package timeutil provides UTC week-window helpers. The sync core and the
// source provider's studied-time range queries both reason in whole UTC
// weeks (Monday 00:00 to Sunday 23:59:59), so the arithmetic lives in one
// place. No external dependencies - uses only standard library.
package timeutil

import "time"

// StartOfDayUTC returns the start of the day (00:00:00) in UTC.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDayUTC returns the end of the day (23:59:59.999999999) in UTC.
func EndOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

// StartOfWeekUTC returns the Monday 00:00:00 UTC of the week containing t.
func StartOfWeekUTC(t time.Time) time.Time {
	u := t.UTC()
	weekday := int(u.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDayUTC(u.AddDate(0, 0, -(weekday - 1)))
}

// EndOfWeekUTC returns the Sunday 23:59:59 UTC of the week containing t.
func EndOfWeekUTC(t time.Time) time.Time {
	return EndOfDayUTC(StartOfWeekUTC(t).AddDate(0, 0, 6))
}

// WeekRangeUTC returns the inclusive [from, to] bounds of the week
// containing t, formatted the way usage APIs take range parameters.
func WeekRangeUTC(t time.Time) (from, to time.Time) {
	return StartOfWeekUTC(t), EndOfWeekUTC(t)
}

// SameWeekUTC reports whether two instants fall into the same UTC week.
func SameWeekUTC(a, b time.Time) bool {
	return StartOfWeekUTC(a).Equal(StartOfWeekUTC(b))
}

// FormatAPITime renders a time the way both remote providers accept
// timestamps (RFC 3339, second precision, UTC).
func FormatAPITime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// NextWeekdayTimeUTC returns the first instant after t that falls on the
// given UTC weekday at hour:minute. Used to compute the initial weekly
// reset firing.
func NextWeekdayTimeUTC(t time.Time, weekday time.Weekday, hour, minute int) time.Time {
	u := t.UTC()
	candidate := time.Date(u.Year(), u.Month(), u.Day(), hour, minute, 0, 0, time.UTC)
	for candidate.Weekday() != weekday || !candidate.After(u) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
