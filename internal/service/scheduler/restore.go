package scheduler

import (
	"context"
	"errors"

	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/core/exec"
)

// restoreState seeds the run state from the current published version so
// that counters survive a restart.
func (s *Scheduler) restoreState(ctx context.Context) {
	version, err := s.registry.Current(ctx)
	if errors.Is(err, exec.ErrNoModel) {
		logger.Debug(ctx, "No published model to restore state from")
		return
	}
	if err != nil {
		logger.Warn(ctx, "Failed to restore scheduler state", tag.Error(err))
		return
	}

	finished := version.CreatedAt.UTC()

	s.mu.Lock()
	s.state.TrainingCount = version.Sequence
	s.state.LastFinishedAt = &finished
	s.state.LastResult = ResultSuccess
	s.state.TotalLabels = version.Info.Samples
	s.state.ModelVersion = version.ID
	s.mu.Unlock()

	logger.Info(ctx, "Restored scheduler state",
		tag.Version(version.ID),
		tag.TrainingCount(version.Sequence),
	)
}
