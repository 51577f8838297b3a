package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/core/exec"
)

const (
	waitFor = 3 * time.Second
	poll    = 5 * time.Millisecond
)

func newTestScheduler(t *testing.T, cfg Config, store exec.LabelStore, tr exec.Trainer, reg exec.ModelRegistry, opts ...Option) *Scheduler {
	t.Helper()
	opts = append([]Option{WithScheduleFunc(delaySchedule)}, opts...)
	s, err := New(cfg, store, tr, reg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Enabled: true, Interval: time.Hour}, nil, &fakeTrainer{}, &fakeRegistry{})
	assert.Error(t, err)

	_, err = New(Config{Enabled: true}, newFakeStore(1), &fakeTrainer{}, &fakeRegistry{})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	// A disabled scheduler does not need a usable interval.
	_, err = New(Config{Enabled: false}, newFakeStore(1), &fakeTrainer{}, &fakeRegistry{})
	assert.NoError(t, err)
}

func TestScheduler_DisabledAtStartup(t *testing.T) {
	store := &exec.MockLabelStore{}
	s := newTestScheduler(t, Config{Enabled: false, Interval: 10 * time.Millisecond}, store, &fakeTrainer{}, &fakeRegistry{})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)

	store.AssertNotCalled(t, "CountLabels", mock.Anything)
	store.AssertNotCalled(t, "FetchTrainingSet", mock.Anything)

	status := s.Status()
	assert.False(t, status.Enabled)
	assert.Equal(t, StateDisabled, status.State)
	assert.Nil(t, status.NextRunAt)
	assert.Zero(t, status.TrainingCount)
	assert.True(t, s.Health().OK)

	assert.ErrorIs(t, s.SetEnabled(true), ErrTimerNotArmed)
	assert.False(t, s.Status().Enabled)
}

func TestScheduler_ConfigError(t *testing.T) {
	cfgErr := errors.New(`invalid value "abc" for RETRAINING_INTERVAL_HOURS: not a number`)
	s := newTestScheduler(t, Config{Enabled: true}, newFakeStore(1), &fakeTrainer{}, &fakeRegistry{}, WithConfigError(cfgErr))

	var logs bytes.Buffer
	ctx := logger.WithLogger(context.Background(), logger.NewLogger(logger.WithQuiet(), logger.WithWriter(&logs)))
	require.NoError(t, s.Start(ctx))
	assert.Equal(t, 1, strings.Count(logs.String(), "RETRAINING_INTERVAL_HOURS"))

	status := s.Status()
	assert.False(t, status.Enabled)
	assert.Equal(t, StateDisabled, status.State)
	assert.Equal(t, cfgErr.Error(), status.ConfigError)
	assert.True(t, s.Health().OK)
	assert.ErrorIs(t, s.SetEnabled(true), ErrTimerNotArmed)
}

func TestScheduler_StartTwice(t *testing.T) {
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, newFakeStore(1), &fakeTrainer{}, &fakeRegistry{})
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestTick_ZeroLabels(t *testing.T) {
	store := newFakeStore(0)
	tr := &fakeTrainer{}
	reg := &fakeRegistry{}
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, store, tr, reg)

	s.tick(context.Background())

	st := s.RunState()
	assert.False(t, st.Running)
	assert.Zero(t, st.TrainingCount)
	assert.Zero(t, st.TotalLabels)
	assert.Equal(t, 1, st.SkippedCount)
	assert.Equal(t, ResultNone, st.LastResult)
	assert.NotNil(t, st.LastStartedAt)
	assert.NotNil(t, st.LastFinishedAt)
	assert.Contains(t, st.LastError, "no labels available")
	assert.Empty(t, tr.history())
	assert.Zero(t, reg.published())
}

func TestTick_Success(t *testing.T) {
	store := newFakeStore(500)
	tr := &fakeTrainer{}
	reg := &fakeRegistry{}
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, store, tr, reg)

	s.tick(context.Background())

	st := s.RunState()
	assert.Equal(t, 1, st.TrainingCount)
	assert.Equal(t, 500, st.TotalLabels)
	assert.Equal(t, ResultSuccess, st.LastResult)
	assert.Equal(t, "v1", st.ModelVersion)
	assert.Empty(t, st.LastError)
	assert.NotEmpty(t, st.LastRunID)
	require.NotNil(t, st.LastStartedAt)
	require.NotNil(t, st.LastFinishedAt)
	assert.False(t, st.LastFinishedAt.Before(*st.LastStartedAt))
	assert.Equal(t, 1, reg.published())
}

func TestTick_FailOpen(t *testing.T) {
	store := newFakeStore(20)
	tr := &fakeTrainer{}
	reg := &fakeRegistry{}
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, store, tr, reg)

	before, err := reg.Publish(context.Background(), &core.Model{Metrics: core.Metrics{"accuracy": 0.8}})
	require.NoError(t, err)

	tr.setHook(func(context.Context, *core.Dataset) error { return errors.New("loss is NaN") })
	s.tick(context.Background())

	st := s.RunState()
	assert.Equal(t, 1, st.TrainingCount)
	assert.Equal(t, ResultFailure, st.LastResult)
	assert.Equal(t, 20, st.TotalLabels)
	assert.Contains(t, st.LastError, ErrTrainingFailed.Error())
	assert.Empty(t, st.ModelVersion)
	assert.Equal(t, 1, reg.published())
	current, err := reg.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.ID, current.ID)

	tr.setHook(nil)
	s.tick(context.Background())

	st = s.RunState()
	assert.Equal(t, 2, st.TrainingCount)
	assert.Equal(t, ResultSuccess, st.LastResult)
	assert.Empty(t, st.LastError)
	assert.Equal(t, 2, reg.published())
	current, err = reg.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, st.ModelVersion, current.ID)
}

func TestTick_TrainerPanic(t *testing.T) {
	tr := &fakeTrainer{}
	tr.setHook(func(context.Context, *core.Dataset) error { panic("out of memory") })
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, newFakeStore(5), tr, &fakeRegistry{})

	s.tick(context.Background())

	st := s.RunState()
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.TrainingCount)
	assert.Equal(t, ResultFailure, st.LastResult)
	assert.Contains(t, st.LastError, "out of memory")

	// The guard is released after a panic.
	s.tick(context.Background())
	assert.Equal(t, 2, s.RunState().TrainingCount)
}

func TestTick_PublishFailure(t *testing.T) {
	reg := &fakeRegistry{publishErr: errors.New("disk full")}
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, newFakeStore(5), &fakeTrainer{}, reg)

	s.tick(context.Background())

	st := s.RunState()
	assert.Equal(t, 1, st.TrainingCount)
	assert.Equal(t, ResultFailure, st.LastResult)
	assert.Contains(t, st.LastError, ErrPublishFailed.Error())
	assert.Empty(t, st.ModelVersion)
}

func TestTick_DataUnavailable(t *testing.T) {
	t.Run("CountError", func(t *testing.T) {
		store := newFakeStore(5)
		tr := &fakeTrainer{}
		s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, store, tr, &fakeRegistry{})

		s.tick(context.Background())
		require.Equal(t, 5, s.RunState().TotalLabels)

		store.countErr = errors.New("connection refused")
		s.tick(context.Background())

		st := s.RunState()
		assert.Equal(t, 1, st.TrainingCount, "skipped cycles are not counted")
		assert.Equal(t, 1, st.SkippedCount)
		assert.Equal(t, ResultSuccess, st.LastResult, "skipped cycles keep the last result")
		assert.Equal(t, 5, st.TotalLabels)
		assert.Contains(t, st.LastError, "connection refused")
		assert.Len(t, tr.history(), 1)
	})

	t.Run("FetchError", func(t *testing.T) {
		store := newFakeStore(5)
		store.fetchErr = errors.New("timeout")
		tr := &fakeTrainer{}
		s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, store, tr, &fakeRegistry{})

		s.tick(context.Background())

		st := s.RunState()
		assert.Zero(t, st.TrainingCount)
		assert.Equal(t, 1, st.SkippedCount)
		assert.Equal(t, 5, st.TotalLabels)
		assert.Empty(t, tr.history())
	})

	t.Run("EmptyDataset", func(t *testing.T) {
		store := &exec.MockLabelStore{}
		store.On("CountLabels", mock.Anything).Return(3, nil)
		store.On("FetchTrainingSet", mock.Anything).Return(&core.Dataset{}, nil)
		tr := &fakeTrainer{}
		s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, store, tr, &fakeRegistry{})

		s.tick(context.Background())

		st := s.RunState()
		assert.Zero(t, st.TrainingCount)
		assert.Equal(t, 1, st.SkippedCount)
		assert.Zero(t, st.TotalLabels)
		assert.Empty(t, tr.history())
		store.AssertExpectations(t)
	})
}

func TestTick_SingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	tr := &fakeTrainer{}
	tr.setHook(func(context.Context, *core.Dataset) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	})
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, newFakeStore(10), tr, &fakeRegistry{})

	const callers = 20
	var wg sync.WaitGroup
	var returned atomic.Int32
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tick(context.Background())
			returned.Add(1)
		}()
	}

	<-entered
	require.Eventually(t, func() bool { return returned.Load() == callers-1 }, waitFor, poll,
		"concurrent ticks must return without waiting for the running cycle")

	status := s.Status()
	assert.True(t, status.Running)
	assert.Equal(t, StateRunning, status.State)
	assert.Zero(t, status.TrainingCount)

	close(release)
	wg.Wait()

	assert.Len(t, tr.history(), 1)
	assert.Equal(t, 1, tr.maxConcurrent())
	assert.Equal(t, 1, s.RunState().TrainingCount)
}

func TestStatus_NonBlockingAndIdempotent(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	tr := &fakeTrainer{}
	tr.setHook(func(context.Context, *core.Dataset) error {
		close(entered)
		<-release
		return nil
	})
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, newFakeStore(10), tr, &fakeRegistry{})
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.Status().NextRunAt != nil }, waitFor, poll)

	idle1, err := json.Marshal(s.Status())
	require.NoError(t, err)
	idle2, err := json.Marshal(s.Status())
	require.NoError(t, err)
	assert.Equal(t, string(idle1), string(idle2))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.tick(context.Background())
	}()
	<-entered

	statusReturned := make(chan StatusSnapshot, 1)
	go func() { statusReturned <- s.Status() }()
	select {
	case st := <-statusReturned:
		assert.True(t, st.Running)
	case <-time.After(time.Second):
		t.Fatal("Status blocked on a running cycle")
	}

	close(release)
	<-done

	after1, err := json.Marshal(s.Status())
	require.NoError(t, err)
	after2, err := json.Marshal(s.Status())
	require.NoError(t, err)
	assert.Equal(t, string(after1), string(after2))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(after1, &decoded))
	for _, key := range []string{"enabled", "running", "training_count", "total_labels", "last_result", "last_started_at", "last_finished_at", "interval_hours"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "success", decoded["last_result"])
	assert.Equal(t, 1.0, decoded["interval_hours"])
	assert.Equal(t, "idle", decoded["state"])
}

func TestScheduler_FixedDelay(t *testing.T) {
	const interval = 40 * time.Millisecond
	tr := &fakeTrainer{}
	tr.setHook(func(context.Context, *core.Dataset) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	s := newTestScheduler(t, Config{Enabled: true, Interval: interval}, newFakeStore(10), tr, &fakeRegistry{})

	started := time.Now()
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return len(tr.history()) >= 3 }, waitFor, poll)
	require.NoError(t, s.Stop(context.Background()))

	calls := tr.history()
	assert.GreaterOrEqual(t, calls[0].start.Sub(started), interval, "first tick fires one interval after start")
	for i := 1; i < len(calls); i++ {
		gap := calls[i].start.Sub(calls[i-1].end)
		assert.GreaterOrEqual(t, gap, interval, "cycle %d started %s after the previous one ended", i, gap)
	}
	assert.Equal(t, 1, tr.maxConcurrent())
	assert.Equal(t, len(calls), s.RunState().TrainingCount)
}

func TestScheduler_MonotoneCounter(t *testing.T) {
	var n atomic.Int32
	tr := &fakeTrainer{}
	tr.setHook(func(context.Context, *core.Dataset) error {
		if n.Add(1)%2 == 0 {
			return errors.New("flaky")
		}
		return nil
	})
	s := newTestScheduler(t, Config{Enabled: true, Interval: 5 * time.Millisecond}, newFakeStore(10), tr, &fakeRegistry{})
	require.NoError(t, s.Start(context.Background()))

	prev := 0
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		cur := s.Status().TrainingCount
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
		time.Sleep(time.Millisecond)
	}
	assert.GreaterOrEqual(t, prev, 3)
}

func TestScheduler_SetEnabled(t *testing.T) {
	tr := &fakeTrainer{}
	s := newTestScheduler(t, Config{Enabled: true, Interval: 10 * time.Millisecond}, newFakeStore(10), tr, &fakeRegistry{})
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return s.Status().TrainingCount >= 1 }, waitFor, poll)

	require.NoError(t, s.SetEnabled(false))
	time.Sleep(30 * time.Millisecond)
	require.Eventually(t, func() bool { return !s.Status().Running }, waitFor, poll)

	count := s.Status().TrainingCount
	time.Sleep(100 * time.Millisecond)
	status := s.Status()
	assert.Equal(t, count, status.TrainingCount, "no ticks while disabled")
	assert.Equal(t, StateDisabled, status.State)
	assert.Nil(t, status.NextRunAt)
	assert.True(t, s.Health().OK)

	require.NoError(t, s.SetEnabled(true))
	require.Eventually(t, func() bool { return s.Status().TrainingCount > count }, waitFor, poll)
}

func TestScheduler_SetInterval(t *testing.T) {
	tr := &fakeTrainer{}
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, newFakeStore(10), tr, &fakeRegistry{})
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return s.Status().NextRunAt != nil }, waitFor, poll)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *s.Status().NextRunAt, time.Minute)

	assert.ErrorIs(t, s.SetInterval(0), ErrInvalidInterval)
	require.NoError(t, s.SetInterval(20*time.Millisecond))

	require.Eventually(t, func() bool { return s.Status().TrainingCount >= 2 }, waitFor, poll)
	assert.InDelta(t, (20 * time.Millisecond).Hours(), s.Status().IntervalHours, 1e-12)
}

func TestScheduler_IntervalHoursAsConfigured(t *testing.T) {
	s := newTestScheduler(t, Config{Enabled: true, Interval: 30 * time.Second, IntervalHours: 0.0083}, newFakeStore(1), &fakeTrainer{}, &fakeRegistry{})
	assert.Equal(t, 0.0083, s.Status().IntervalHours)
	assert.Equal(t, 30*time.Second, s.Interval())

	require.NoError(t, s.SetIntervalHours(0.0125))
	assert.Equal(t, 45*time.Second, s.Interval())
	assert.Equal(t, 0.0125, s.Status().IntervalHours)

	for _, hours := range []float64{0, -1, 0.0001, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, s.SetIntervalHours(hours), ErrInvalidInterval, hours)
	}
	assert.Equal(t, 45*time.Second, s.Interval())

	derived := newTestScheduler(t, Config{Enabled: true, Interval: 2 * time.Hour}, newFakeStore(1), &fakeTrainer{}, &fakeRegistry{})
	assert.Equal(t, 2.0, derived.Status().IntervalHours)
}

func TestStatus_NoNextRunWhileRunning(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	tr := &fakeTrainer{}
	tr.setHook(func(context.Context, *core.Dataset) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	})
	s := newTestScheduler(t, Config{Enabled: true, Interval: 10 * time.Millisecond}, newFakeStore(10), tr, &fakeRegistry{})
	require.NoError(t, s.Start(context.Background()))
	<-entered

	status := s.Status()
	assert.True(t, status.Running)
	assert.Nil(t, status.NextRunAt)

	close(release)
	require.Eventually(t, func() bool {
		st := s.Status()
		return !st.Running && st.NextRunAt != nil
	}, waitFor, poll)
}

func TestScheduler_StopWaitsForCycle(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	tr := &fakeTrainer{}
	tr.setHook(func(context.Context, *core.Dataset) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	})
	s := newTestScheduler(t, Config{Enabled: true, Interval: 10 * time.Millisecond}, newFakeStore(10), tr, &fakeRegistry{})
	require.NoError(t, s.Start(context.Background()))
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.Equal(t, 1, s.RunState().TrainingCount)
	assert.False(t, s.Health().OK)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_StopTimeoutCancelsCycle(t *testing.T) {
	entered := make(chan struct{})
	var once sync.Once
	tr := &fakeTrainer{}
	tr.setHook(func(ctx context.Context, _ *core.Dataset) error {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return ctx.Err()
	})
	s := newTestScheduler(t, Config{Enabled: true, Interval: 10 * time.Millisecond}, newFakeStore(10), tr, &fakeRegistry{})
	require.NoError(t, s.Start(context.Background()))
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	require.Eventually(t, func() bool { return s.RunState().TrainingCount == 1 }, waitFor, poll)
	assert.Equal(t, ResultFailure, s.RunState().LastResult)
}

func TestScheduler_HealthAfterLoopCrash(t *testing.T) {
	var calls atomic.Int32
	schedule := func(d time.Duration) Schedule {
		if calls.Add(1) > 1 {
			panic("broken schedule")
		}
		return delay(10 * time.Millisecond)
	}
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, newFakeStore(10), &fakeTrainer{}, &fakeRegistry{},
		WithScheduleFunc(schedule))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Health().OK)

	require.Eventually(t, func() bool { return !s.Health().OK }, waitFor, poll)

	// The cycle that ran before the crash is still reported.
	status := s.Status()
	assert.Equal(t, 1, status.TrainingCount)
	assert.Nil(t, status.NextRunAt)
}

func TestScheduler_Restore(t *testing.T) {
	reg := &fakeRegistry{}
	for range 7 {
		_, err := reg.Publish(context.Background(), &core.Model{Info: core.TrainingInfo{Samples: 321}})
		require.NoError(t, err)
	}
	s := newTestScheduler(t, Config{Enabled: false}, newFakeStore(1), &fakeTrainer{}, reg, WithRestore())
	require.NoError(t, s.Start(context.Background()))

	st := s.RunState()
	assert.Equal(t, 7, st.TrainingCount)
	assert.Equal(t, ResultSuccess, st.LastResult)
	assert.Equal(t, 321, st.TotalLabels)
	assert.Equal(t, "v7", st.ModelVersion)
	assert.NotNil(t, st.LastFinishedAt)
}

func TestScheduler_RestoreWithoutModel(t *testing.T) {
	s := newTestScheduler(t, Config{Enabled: false}, newFakeStore(1), &fakeTrainer{}, &fakeRegistry{}, WithRestore())
	require.NoError(t, s.Start(context.Background()))
	assert.Zero(t, s.RunState().TrainingCount)
	assert.Equal(t, ResultNone, s.RunState().LastResult)
}

func TestScheduler_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	store := newFakeStore(0)
	s := newTestScheduler(t, Config{Enabled: true, Interval: time.Hour}, store, &fakeTrainer{}, &fakeRegistry{}, WithMetrics(m))

	s.tick(context.Background())
	store.setLabels(12)
	s.tick(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.cycles.WithLabelValues("failure")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.totalLabels))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.running))
	assert.Positive(t, testutil.ToFloat64(m.lastSuccess))
	assert.Equal(t, 2, store.callCount())
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CycleStarted()
		m.CycleFinished("success", time.Second, 1, time.Now())
	})
}

func TestFixedDelay(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 500, time.UTC)
	assert.Equal(t, base.Add(time.Hour), FixedDelay(time.Hour).Next(base))
	assert.Equal(t, base.Add(30*time.Second), FixedDelay(30*time.Second).Next(base))
	assert.Equal(t, base.Add(time.Second), FixedDelay(1500*time.Millisecond).Next(base))
	assert.Equal(t, base.Add(time.Second), FixedDelay(10*time.Millisecond).Next(base))
}

func TestFixedDelay_FractionalFinishTime(t *testing.T) {
	finished := time.Date(2026, 1, 1, 10, 0, 0, int(900*time.Millisecond), time.UTC)
	for _, interval := range []time.Duration{time.Second, 30 * time.Second, 24 * time.Hour} {
		next := FixedDelay(interval).Next(finished)
		assert.Equal(t, interval, next.Sub(finished), interval.String())
	}
}

func TestResult_Text(t *testing.T) {
	for _, r := range []Result{ResultNone, ResultSuccess, ResultFailure} {
		b, err := r.MarshalText()
		require.NoError(t, err)
		var back Result
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, r, back)
	}
	var r Result
	assert.Error(t, r.UnmarshalText([]byte("maybe")))
}

func TestState_Text(t *testing.T) {
	for _, s := range []State{StateIdle, StateRunning, StateDisabled} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var back State
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}
	var s State
	assert.Error(t, s.UnmarshalText([]byte("paused")))
}
