package scheduler

import (
	"time"
)

// Config is the scheduler configuration produced by the configuration
// loader at startup.
type Config struct {
	// Enabled arms the timer on Start. A scheduler started disabled never
	// ticks until the process is restarted.
	Enabled bool
	// Interval is the delay between the end of one cycle and the next tick.
	Interval time.Duration
	// IntervalHours is the interval as configured, reported by Status.
	// When zero it is derived from Interval.
	IntervalHours float64
}

// Clock is a function that returns the current time.
// It can be replaced for testing purposes.
type Clock func() time.Time

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for timestamps and timer delays.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithScheduleFunc replaces the fixed-delay schedule.
func WithScheduleFunc(fn ScheduleFunc) Option {
	return func(s *Scheduler) {
		s.schedule = fn
	}
}

// WithMetrics records cycle metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithConfigError reports a configuration error through Status. The
// scheduler is forced to be disabled.
func WithConfigError(err error) Option {
	return func(s *Scheduler) {
		s.configErr = err
	}
}

// WithRestore seeds the run state from the model registry on Start.
func WithRestore() Option {
	return func(s *Scheduler) {
		s.restore = true
	}
}
