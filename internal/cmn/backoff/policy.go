package backoff

import (
	"errors"
	"math"
	"time"
)

// ErrRetriesExhausted is returned by a policy once MaxRetries is reached.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy decides how long to wait before the next attempt.
type RetryPolicy interface {
	// NextInterval returns the delay before retry number retryCount
	// (zero based), or ErrRetriesExhausted.
	NextInterval(retryCount int) (time.Duration, error)
}

const defaultMaxInterval = 10 * time.Second

// ExponentialPolicy multiplies the delay by Factor after every attempt,
// capped at MaxInterval.
type ExponentialPolicy struct {
	InitialInterval time.Duration
	Factor          float64
	MaxInterval     time.Duration
	// MaxRetries is the number of retries after the first attempt.
	// 0 means unlimited.
	MaxRetries int
}

// NewExponentialPolicy returns a policy doubling from initial up to 10s
// with unlimited retries.
func NewExponentialPolicy(initial time.Duration) *ExponentialPolicy {
	return &ExponentialPolicy{
		InitialInterval: initial,
		Factor:          2,
		MaxInterval:     defaultMaxInterval,
	}
}

// NextInterval implements RetryPolicy.
func (p *ExponentialPolicy) NextInterval(retryCount int) (time.Duration, error) {
	if p.MaxRetries > 0 && retryCount >= p.MaxRetries {
		return 0, ErrRetriesExhausted
	}
	interval := float64(p.InitialInterval) * math.Pow(p.Factor, float64(retryCount))
	if p.MaxInterval > 0 && interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}
	return time.Duration(interval), nil
}

// ConstantPolicy waits the same Interval between attempts.
type ConstantPolicy struct {
	Interval   time.Duration
	MaxRetries int
}

// NextInterval implements RetryPolicy.
func (p *ConstantPolicy) NextInterval(retryCount int) (time.Duration, error) {
	if p.MaxRetries > 0 && retryCount >= p.MaxRetries {
		return 0, ErrRetriesExhausted
	}
	return p.Interval, nil
}
