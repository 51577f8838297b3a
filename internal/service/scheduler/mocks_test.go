package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/core/exec"
)

var _ exec.LabelStore = (*fakeStore)(nil)

type fakeStore struct {
	mu       sync.Mutex
	dataset  *core.Dataset
	countErr error
	fetchErr error
	calls    int
}

func newFakeStore(n int) *fakeStore {
	return &fakeStore{dataset: makeDataset(n)}
}

func (f *fakeStore) CountLabels(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.dataset.Len(), nil
}

func (f *fakeStore) FetchTrainingSet(context.Context) (*core.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.dataset, nil
}

func (f *fakeStore) Stats(context.Context) (core.LabelStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	churned := f.dataset.Churned()
	return core.LabelStats{Total: f.dataset.Len(), Churned: churned, NotChurned: f.dataset.Len() - churned}, nil
}

func (f *fakeStore) setLabels(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataset = makeDataset(n)
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func makeDataset(n int) *core.Dataset {
	ds := &core.Dataset{}
	for i := range n {
		ds.Records = append(ds.Records, core.LabeledCustomer{
			CustomerID: fmt.Sprintf("c-%04d", i),
			Features:   map[string]float64{"tenure": float64(i % 72)},
			Target:     i%4 == 0,
		})
	}
	return ds
}

var _ exec.Trainer = (*fakeTrainer)(nil)

// trainCall records the wall-clock span of one Train invocation.
type trainCall struct {
	start time.Time
	end   time.Time
}

type fakeTrainer struct {
	mu     sync.Mutex
	calls  []trainCall
	active int
	maxAct int
	// hook runs inside Train; its error is returned.
	hook func(ctx context.Context, ds *core.Dataset) error
}

func (f *fakeTrainer) Train(ctx context.Context, ds *core.Dataset) (*core.Model, core.Metrics, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxAct {
		f.maxAct = f.active
	}
	hook := f.hook
	f.mu.Unlock()

	start := time.Now()
	var err error
	defer func() {
		f.mu.Lock()
		f.active--
		f.calls = append(f.calls, trainCall{start: start, end: time.Now()})
		f.mu.Unlock()
	}()

	if hook != nil {
		err = hook(ctx, ds)
	}
	if err != nil {
		return nil, nil, err
	}
	metrics := core.Metrics{"accuracy": 0.9}
	return &core.Model{
		Artifacts: map[string]string{"model.bin": "/tmp/model.bin"},
		Metrics:   metrics,
		Info:      core.TrainingInfo{Samples: ds.Len(), Churned: ds.Churned(), NotChurned: ds.Len() - ds.Churned()},
	}, metrics, nil
}

func (f *fakeTrainer) setHook(hook func(ctx context.Context, ds *core.Dataset) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

func (f *fakeTrainer) history() []trainCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trainCall(nil), f.calls...)
}

func (f *fakeTrainer) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxAct
}

var _ exec.ModelRegistry = (*fakeRegistry)(nil)

type fakeRegistry struct {
	mu         sync.Mutex
	versions   []core.ModelVersion
	publishErr error
}

func (f *fakeRegistry) Publish(_ context.Context, model *core.Model) (*core.ModelVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	v := core.ModelVersion{
		ID:        fmt.Sprintf("v%d", len(f.versions)+1),
		Sequence:  len(f.versions) + 1,
		CreatedAt: time.Now(),
		Metrics:   model.Metrics,
		Info:      model.Info,
	}
	f.versions = append(f.versions, v)
	return &v, nil
}

func (f *fakeRegistry) Current(context.Context) (*core.ModelVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.versions) == 0 {
		return nil, exec.ErrNoModel
	}
	v := f.versions[len(f.versions)-1]
	return &v, nil
}

func (f *fakeRegistry) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.versions)
}

// delay is a sub-second fixed-delay schedule for tests.
type delay time.Duration

func (d delay) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

func delaySchedule(interval time.Duration) Schedule {
	return delay(interval)
}
