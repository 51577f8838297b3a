// Package scheduler periodically retrains the churn model from the labels
// accumulated in the label store.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/core/exec"
)

// Scheduler runs retraining cycles on a fixed delay. At most one cycle is
// in flight at any time, and reading the status never waits for a cycle.
type Scheduler struct {
	store    exec.LabelStore
	trainer  exec.Trainer
	registry exec.ModelRegistry

	// armed is fixed at construction: the timer loop only exists when the
	// scheduler was configured enabled.
	armed     bool
	enabled   atomic.Bool
	interval  atomic.Int64
	// hours is the interval as configured, stored as float64 bits.
	hours     atomic.Uint64
	configErr error
	restore   bool

	schedule ScheduleFunc
	clock    Clock
	metrics  *Metrics

	// inFlight is the single-flight guard for tick.
	inFlight atomic.Bool

	mu        sync.RWMutex
	state     RunState
	nextRunAt *time.Time

	started     atomic.Bool
	stopped     atomic.Bool
	loopAlive   atomic.Bool
	quit        chan struct{}
	done        chan struct{}
	reconfigure chan struct{}
	cancel      context.CancelFunc
	stopOnce    sync.Once
}

// New creates a scheduler. It does not start the timer; call Start.
func New(
	cfg Config,
	store exec.LabelStore,
	trainer exec.Trainer,
	registry exec.ModelRegistry,
	opts ...Option,
) (*Scheduler, error) {
	if store == nil || trainer == nil || registry == nil {
		return nil, errors.New("label store, trainer and model registry are required")
	}

	s := &Scheduler{
		store:       store,
		trainer:     trainer,
		registry:    registry,
		schedule:    FixedDelay,
		clock:       time.Now,
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		reconfigure: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.armed = cfg.Enabled && s.configErr == nil
	if s.armed && cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.Interval)
	}
	s.enabled.Store(s.armed)
	s.interval.Store(int64(cfg.Interval))
	hours := cfg.IntervalHours
	if hours <= 0 {
		hours = cfg.Interval.Hours()
	}
	s.hours.Store(math.Float64bits(hours))

	return s, nil
}

// Start arms the timer when the scheduler is enabled. It returns
// immediately; cycles run on a dedicated goroutine until Stop is called or
// ctx is canceled. The first tick fires one interval after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if s.restore {
		s.restoreState(ctx)
	}

	if s.configErr != nil {
		logger.Error(ctx, "Scheduler disabled due to configuration error", tag.Error(s.configErr))
	}
	if !s.armed {
		close(s.done)
		logger.Info(ctx, "Retraining scheduler disabled")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loopAlive.Store(true)

	logger.Info(ctx, "Retraining scheduler started", tag.Interval(s.Interval()))

	go s.loop(loopCtx)
	return nil
}

// Stop stops the timer and waits for an in-flight cycle to finish. When ctx
// expires first, the cycle's context is canceled and ctx's error returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.quit)

		if !s.started.Load() {
			return
		}
		select {
		case <-s.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		if s.cancel != nil {
			s.cancel()
		}
		logger.Info(ctx, "Retraining scheduler stopped")
	})
	return err
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	defer s.loopAlive.Store(false)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Scheduler loop panicked", tag.Error(panicToError(r)))
		}
	}()

	last := s.clock()
	timer := time.NewTimer(s.arm(last))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case <-s.reconfigure:
			resetTimer(timer, s.arm(last))
		case <-timer.C:
			if s.enabled.Load() {
				s.tick(ctx)
			}
			last = s.clock()
			timer.Reset(s.arm(last))
		}
	}
}

// arm computes the next activation from the end of the previous cycle,
// records it, and returns the delay until then.
func (s *Scheduler) arm(last time.Time) time.Duration {
	next := s.schedule(s.Interval()).Next(last)

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()

	return next.Sub(s.clock())
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

// cycleOutcome is what a cycle commits to the run state.
type cycleOutcome struct {
	skipped bool
	result  Result
	// labels is the refreshed label count, or -1 when unknown.
	labels  int
	version string
	err     error
}

// tick runs one retraining cycle unless another one is in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		logger.Debug(ctx, "Retraining cycle already in progress, skipping tick")
		return
	}
	defer s.inFlight.Store(false)

	runID := newRunID()
	startedAt := s.clock().UTC()

	s.mu.Lock()
	s.state.Running = true
	s.state.LastStartedAt = &startedAt
	s.state.LastRunID = runID
	s.mu.Unlock()
	s.metrics.CycleStarted()

	ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(tag.RunID(runID)))
	logger.Info(ctx, "Retraining cycle started")

	out := s.runCycle(ctx)

	finishedAt := s.clock().UTC()
	s.commit(out, finishedAt)
	s.logOutcome(ctx, out, finishedAt.Sub(startedAt))

	result := out.result.String()
	if out.skipped {
		result = "skipped"
	}
	s.metrics.CycleFinished(result, finishedAt.Sub(startedAt), out.labels, finishedAt)
}

func (s *Scheduler) runCycle(ctx context.Context) (out cycleOutcome) {
	out.labels = -1
	defer func() {
		if r := recover(); r != nil {
			out = cycleOutcome{
				result: ResultFailure,
				labels: out.labels,
				err:    fmt.Errorf("%w: %w", ErrTrainingFailed, panicToError(r)),
			}
		}
	}()

	count, err := s.store.CountLabels(ctx)
	if err != nil {
		return skip(out.labels, fmt.Errorf("%w: %w", ErrDataUnavailable, err))
	}
	out.labels = count
	if count == 0 {
		return skip(0, fmt.Errorf("%w: %w", ErrDataUnavailable, errNoLabels))
	}
	s.logLabelStats(ctx)

	dataset, err := s.store.FetchTrainingSet(ctx)
	if err != nil {
		return skip(count, fmt.Errorf("%w: %w", ErrDataUnavailable, err))
	}
	if dataset.Len() == 0 {
		return skip(0, fmt.Errorf("%w: %w", ErrDataUnavailable, errNoLabels))
	}
	out.labels = dataset.Len()

	logger.Info(ctx, "Training model",
		tag.Count(dataset.Len()),
		tag.Churned(dataset.Churned()),
		tag.NotChurned(dataset.Len()-dataset.Churned()),
	)
	model, metrics, err := s.trainer.Train(ctx, dataset)
	if err == nil && model == nil {
		err = errors.New("trainer returned no model")
	}
	if err != nil {
		out.result = ResultFailure
		out.err = fmt.Errorf("%w: %w", ErrTrainingFailed, err)
		return out
	}
	if model.Metrics == nil {
		model.Metrics = metrics
	}

	version, err := s.registry.Publish(ctx, model)
	if err == nil && version == nil {
		err = errors.New("registry returned no version")
	}
	if err != nil {
		out.result = ResultFailure
		out.err = fmt.Errorf("%w: %w", ErrPublishFailed, err)
		return out
	}

	out.result = ResultSuccess
	out.version = version.ID
	for name, v := range metrics {
		logger.Info(ctx, "Training metric", tag.Metric(name, v))
	}
	return out
}

func skip(labels int, err error) cycleOutcome {
	return cycleOutcome{skipped: true, labels: labels, err: err}
}

// commit applies the outcome of a cycle in a single critical section.
func (s *Scheduler) commit(out cycleOutcome, finishedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	st.Running = false
	st.LastFinishedAt = &finishedAt
	if out.labels >= 0 {
		st.TotalLabels = out.labels
	}
	if out.skipped {
		st.SkippedCount++
	} else {
		st.TrainingCount++
		st.LastResult = out.result
	}
	if out.version != "" {
		st.ModelVersion = out.version
	}
	st.LastError = ""
	if out.err != nil {
		st.LastError = out.err.Error()
	}
}

func (s *Scheduler) logOutcome(ctx context.Context, out cycleOutcome, elapsed time.Duration) {
	switch {
	case out.skipped && errors.Is(out.err, errNoLabels):
		logger.Info(ctx, "No labeled data available, skipping retraining", tag.Duration(elapsed))
	case out.skipped:
		logger.Warn(ctx, "Retraining skipped", tag.Reason(out.err.Error()), tag.Duration(elapsed))
	case out.result == ResultSuccess:
		logger.Info(ctx, "Retraining completed",
			tag.Result(out.result.String()),
			tag.Version(out.version),
			tag.Count(out.labels),
			tag.Duration(elapsed),
		)
	default:
		logger.Error(ctx, "Retraining failed",
			tag.Result(out.result.String()),
			tag.Error(out.err),
			tag.Duration(elapsed),
		)
	}
}

// labelStatser is implemented by label stores that can summarize labels.
type labelStatser interface {
	Stats(ctx context.Context) (core.LabelStats, error)
}

func (s *Scheduler) logLabelStats(ctx context.Context) {
	st, ok := s.store.(labelStatser)
	if !ok {
		return
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		logger.Debug(ctx, "Failed to read label statistics", tag.Error(err))
		return
	}
	logger.Info(ctx, "Label statistics",
		tag.Count(stats.Total),
		tag.Churned(stats.Churned),
		tag.NotChurned(stats.NotChurned),
	)
}

// Status returns a snapshot of the configuration and run state. It only
// copies fields and never waits for a running cycle.
func (s *Scheduler) Status() StatusSnapshot {
	enabled := s.enabled.Load()

	s.mu.RLock()
	st := s.state.clone()
	next := cloneTime(s.nextRunAt)
	s.mu.RUnlock()

	snap := StatusSnapshot{
		Enabled:        enabled,
		Running:        st.Running,
		TrainingCount:  st.TrainingCount,
		TotalLabels:    st.TotalLabels,
		LastResult:     st.LastResult,
		LastStartedAt:  st.LastStartedAt,
		LastFinishedAt: st.LastFinishedAt,
		IntervalHours:  s.IntervalHours(),
		SkippedCount:   st.SkippedCount,
		LastRunID:      st.LastRunID,
		LastError:      st.LastError,
		ModelVersion:   st.ModelVersion,
	}
	switch {
	case st.Running:
		snap.State = StateRunning
	case !enabled:
		snap.State = StateDisabled
	default:
		snap.State = StateIdle
	}
	// The pending tick of a running cycle has already fired.
	if enabled && s.loopAlive.Load() && next != nil && !st.Running {
		t := next.UTC()
		snap.NextRunAt = &t
	}
	if s.configErr != nil {
		snap.ConfigError = s.configErr.Error()
	}
	return snap
}

// RunState returns a copy of the run history.
func (s *Scheduler) RunState() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Health reports true when the scheduler is disabled and idle, or when its
// timer loop is alive. It reports false once the loop has exited.
func (s *Scheduler) Health() HealthSnapshot {
	if s.stopped.Load() {
		return HealthSnapshot{OK: false}
	}
	if !s.armed {
		return HealthSnapshot{OK: true}
	}
	return HealthSnapshot{OK: s.loopAlive.Load()}
}

// Interval returns the current delay between cycles.
func (s *Scheduler) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// IntervalHours returns the interval in fractional hours as it was
// configured, before rounding to whole seconds.
func (s *Scheduler) IntervalHours() float64 {
	return math.Float64frombits(s.hours.Load())
}

// SetInterval changes the delay between cycles. A running cycle is not
// interrupted; the new interval applies from the next scheduled tick.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}
	s.setInterval(d, d.Hours())
	return nil
}

// SetIntervalHours is SetInterval for a fractional number of hours, rounded
// to whole seconds. The status keeps reporting hours as given.
func (s *Scheduler) SetIntervalHours(hours float64) error {
	seconds := math.Round(hours * 3600)
	if math.IsNaN(seconds) || seconds < 1 || seconds > float64(math.MaxInt64/int64(time.Second)) {
		return fmt.Errorf("%w: %v hours", ErrInvalidInterval, hours)
	}
	s.setInterval(time.Duration(seconds)*time.Second, hours)
	return nil
}

func (s *Scheduler) setInterval(d time.Duration, hours float64) {
	s.interval.Store(int64(d))
	s.hours.Store(math.Float64bits(hours))
	s.signalReconfigure()
}

// SetEnabled suppresses or resumes future ticks. A running cycle is not
// interrupted. Enabling a scheduler that was started disabled fails with
// ErrTimerNotArmed.
func (s *Scheduler) SetEnabled(enabled bool) error {
	if enabled && !s.armed {
		return ErrTimerNotArmed
	}
	s.enabled.Store(enabled)
	s.signalReconfigure()
	return nil
}

func (s *Scheduler) signalReconfigure() {
	select {
	case s.reconfigure <- struct{}{}:
	default:
	}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
