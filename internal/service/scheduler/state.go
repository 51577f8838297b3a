package scheduler

import (
	"fmt"
	"time"
)

// State is the externally visible state of the scheduler.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StateIdle
	case "running":
		*s = StateRunning
	case "disabled":
		*s = StateDisabled
	default:
		return fmt.Errorf("unknown state %q", string(b))
	}
	return nil
}

// Result is the outcome of the last completed training attempt.
type Result int

const (
	ResultNone Result = iota
	ResultSuccess
	ResultFailure
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*r = ResultNone
	case "success":
		*r = ResultSuccess
	case "failure":
		*r = ResultFailure
	default:
		return fmt.Errorf("unknown result %q", string(b))
	}
	return nil
}

// RunState is the run history kept for the lifetime of the process.
type RunState struct {
	Running        bool
	LastStartedAt  *time.Time
	LastFinishedAt *time.Time
	LastResult     Result
	// TrainingCount counts completed attempts, successful or not. Skipped
	// cycles are not counted.
	TrainingCount int
	// TotalLabels is the number of labels seen by the most recent cycle.
	TotalLabels  int
	SkippedCount int
	LastRunID    string
	LastError    string
	ModelVersion string
}

func (rs RunState) clone() RunState {
	out := rs
	out.LastStartedAt = cloneTime(rs.LastStartedAt)
	out.LastFinishedAt = cloneTime(rs.LastFinishedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// StatusSnapshot is a point-in-time copy of the scheduler configuration and
// run state, shaped for the status endpoint.
type StatusSnapshot struct {
	Enabled        bool       `json:"enabled"`
	Running        bool       `json:"running"`
	TrainingCount  int        `json:"training_count"`
	TotalLabels    int        `json:"total_labels"`
	LastResult     Result     `json:"last_result"`
	LastStartedAt  *time.Time `json:"last_started_at"`
	LastFinishedAt *time.Time `json:"last_finished_at"`
	IntervalHours  float64    `json:"interval_hours"`

	State        State      `json:"state"`
	SkippedCount int        `json:"skipped_count"`
	NextRunAt    *time.Time `json:"next_run_at"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	ModelVersion string     `json:"model_version,omitempty"`
	ConfigError  string     `json:"config_error,omitempty"`
}

// HealthSnapshot reports whether the scheduler is working as configured.
type HealthSnapshot struct {
	OK bool `json:"ok"`
}
