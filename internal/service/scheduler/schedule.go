package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule computes the next activation time from the end of the previous
// cycle.
type Schedule interface {
	Next(time.Time) time.Time
}

// ScheduleFunc builds a Schedule for an interval.
type ScheduleFunc func(interval time.Duration) Schedule

// fixedDelay fires a whole number of seconds after the previous cycle ended.
type fixedDelay struct {
	delay time.Duration
}

func (f fixedDelay) Next(t time.Time) time.Time {
	return t.Add(f.delay)
}

// FixedDelay returns a schedule that fires interval after the given time.
// The interval is truncated to whole seconds, with a minimum of one second.
// The given time is not truncated.
func FixedDelay(interval time.Duration) Schedule {
	return fixedDelay{delay: cron.Every(interval).Delay}
}
