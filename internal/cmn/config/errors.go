package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInterval is wrapped by every ConfigError about the retraining interval.
var ErrInvalidInterval = errors.New("invalid retraining interval")

// ConfigError reports a malformed scheduler setting. It is not fatal for the
// process: the scheduler stays disabled and the API keeps serving.
type ConfigError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Key, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidInterval
}

// ParseIntervalHours converts a fractional number of hours into a duration
// rounded to the nearest second. Non-numeric, non-positive and sub-second
// values are rejected with a *ConfigError.
func ParseIntervalHours(raw string) (time.Duration, float64, error) {
	const key = "RETRAINING_INTERVAL_HOURS"

	value := strings.TrimSpace(raw)
	hours, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0, 0, &ConfigError{Key: key, Value: raw, Reason: "not a number"}
	}
	if hours <= 0 {
		return 0, 0, &ConfigError{Key: key, Value: raw, Reason: "must be positive"}
	}

	seconds := math.Round(hours * 3600)
	if seconds < 1 {
		return 0, 0, &ConfigError{Key: key, Value: raw, Reason: "shorter than one second"}
	}
	if seconds > float64(math.MaxInt64/int64(time.Second)) {
		return 0, 0, &ConfigError{Key: key, Value: raw, Reason: "too large"}
	}

	return time.Duration(seconds) * time.Second, hours, nil
}

// ParseBool interprets boolean-like strings such as "yes", "off" or "t".
// The second return value is false when the input is not recognized.
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on", "y", "t":
		return true, true
	case "false", "0", "no", "off", "n", "f", "":
		return false, true
	default:
		return false, false
	}
}
