package backoff

import (
	"context"
	"time"

	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
)

type (
	// Operation to retry.
	Operation func(ctx context.Context) error

	// IsRetriableFunc reports whether an error is worth another attempt.
	IsRetriableFunc func(err error) bool
)

// Retry runs op until it succeeds, returns a non-retriable error, the
// policy gives up, or ctx is done. When the policy gives up the last error
// of op is returned. A nil isRetriable retries every error.
func Retry(ctx context.Context, op Operation, policy RetryPolicy, isRetriable IsRetriableFunc) error {
	if isRetriable == nil {
		isRetriable = func(error) bool { return true }
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug(ctx, "Retried operation succeeded", tag.Attempt(attempt))
			}
			return nil
		}
		if !isRetriable(err) {
			return err
		}

		interval, policyErr := policy.NextInterval(attempt - 1)
		if policyErr != nil {
			logger.Warn(ctx, "Retry attempts exhausted", tag.Attempt(attempt), tag.Error(err))
			return err
		}

		logger.Warn(ctx, "Operation failed, retrying",
			tag.Attempt(attempt),
			tag.Interval(interval),
			tag.Error(err),
		)

		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
