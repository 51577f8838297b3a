package exec

import (
	"context"
	"errors"

	"github.com/churnlab/retrainer/internal/core"
	"github.com/stretchr/testify/mock"
)

// ErrNoModel is returned by a ModelRegistry that has nothing published yet.
var ErrNoModel = errors.New("no model published")

// LabelStore provides read access to the accumulated feedback labels.
type LabelStore interface {
	// CountLabels returns the number of labeled customers.
	CountLabels(ctx context.Context) (int, error)
	// FetchTrainingSet returns every labeled customer as a dataset.
	FetchTrainingSet(ctx context.Context) (*core.Dataset, error)
}

// Trainer turns a dataset into a model. It may take minutes and may fail.
type Trainer interface {
	Train(ctx context.Context, dataset *core.Dataset) (*core.Model, core.Metrics, error)
}

// ModelRegistry stores published models. Publish must be atomic: either the
// new version becomes current or the previous one stays current.
type ModelRegistry interface {
	Publish(ctx context.Context, model *core.Model) (*core.ModelVersion, error)
	// Current returns the active version or ErrNoModel.
	Current(ctx context.Context) (*core.ModelVersion, error)
}

var _ LabelStore = (*MockLabelStore)(nil)

// MockLabelStore is a mock implementation of LabelStore for testing.
type MockLabelStore struct {
	mock.Mock
}

func (m *MockLabelStore) CountLabels(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockLabelStore) FetchTrainingSet(ctx context.Context) (*core.Dataset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.Dataset), args.Error(1)
}

var _ ModelRegistry = (*MockModelRegistry)(nil)

// MockModelRegistry is a mock implementation of ModelRegistry for testing.
type MockModelRegistry struct {
	mock.Mock
}

func (m *MockModelRegistry) Publish(ctx context.Context, model *core.Model) (*core.ModelVersion, error) {
	args := m.Called(ctx, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.ModelVersion), args.Error(1)
}

func (m *MockModelRegistry) Current(ctx context.Context) (*core.ModelVersion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.ModelVersion), args.Error(1)
}
