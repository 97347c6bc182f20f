package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule fires a fixed duration after each completed run. The
// recurring roster sync uses it; anything that must align to a calendar
// boundary belongs on a CronExpression instead.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates an IntervalSchedule with the given period.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

// Next returns the firing that follows t.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String renders the schedule in "@every" notation for logs.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}
