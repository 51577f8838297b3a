// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
// Use these functions instead of raw strings to ensure consistent
// and type-safe log output across the codebase.
package tag

import (
	"log/slog"
	"time"
)

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// RunID creates a tag for retraining cycle IDs.
func RunID(id string) slog.Attr {
	return slog.String("run-id", id)
}

// Version creates a tag for model version IDs.
func Version(v string) slog.Attr {
	return slog.String("version", v)
}

// Path and file tags

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Dir creates a tag for directory paths.
func Dir(path string) slog.Attr {
	return slog.String("dir", path)
}

// Execution tags

// State creates a tag for scheduler states.
func State(state string) slog.Attr {
	return slog.String("state", state)
}

// Result creates a tag for cycle results.
func Result(r string) slog.Attr {
	return slog.String("result", r)
}

// Reason creates a tag for the reason behind an action or state.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// Timeout creates a tag for timeout duration values.
func Timeout(d time.Duration) slog.Attr {
	return slog.Duration("timeout", d)
}

// ExitCode creates a tag for process exit codes.
func ExitCode(code int) slog.Attr {
	return slog.Int("exit-code", code)
}

// Command creates a tag for command strings.
func Command(cmd string) slog.Attr {
	return slog.String("command", cmd)
}

// Counting tags

// Attempt creates a tag for retry attempt numbers.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Count creates a tag for generic counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Churned creates a tag for the number of churned labels.
func Churned(n int) slog.Attr {
	return slog.Int("churned", n)
}

// NotChurned creates a tag for the number of non-churned labels.
func NotChurned(n int) slog.Attr {
	return slog.Int("not-churned", n)
}

// TrainingCount creates a tag for the completed training counter.
func TrainingCount(n int) slog.Attr {
	return slog.Int("training-count", n)
}

// Metric creates a tag for a named model metric.
func Metric(name string, v float64) slog.Attr {
	return slog.Float64(name, v)
}

// Network tags

// Addr creates a tag for network addresses (host:port).
func Addr(addr string) slog.Attr {
	return slog.String("addr", addr)
}

// URL creates a tag for URLs.
func URL(url string) slog.Attr {
	return slog.String("url", url)
}

// Driver creates a tag for database driver names.
func Driver(name string) slog.Attr {
	return slog.String("driver", name)
}

// Time-related tags

// Interval creates a tag for time intervals.
func Interval(d time.Duration) slog.Attr {
	return slog.Duration("interval", d)
}

// Duration creates a tag for time durations.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// NextRun creates a tag for the next scheduled tick.
func NextRun(t time.Time) slog.Attr {
	return slog.Time("next-run", t)
}

// Config tags

// Key creates a tag for configuration keys.
func Key(k string) slog.Attr {
	return slog.String("key", k)
}

// Value creates a tag for generic values.
func Value(v any) slog.Attr {
	return slog.Any("value", v)
}
