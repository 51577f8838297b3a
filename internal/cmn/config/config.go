package config

import (
	"fmt"
	"time"
)

// Config holds the overall configuration for the application.
type Config struct {
	Core      Core
	Server    Server
	Paths     PathsConfig
	Database  Database
	Scheduler Scheduler
	Registry  Registry
	Trainer   Trainer
	Warnings  []string
}

// Core holds process-wide settings.
type Core struct {
	// Debug enables debug logging.
	Debug bool
	// LogFormat is either "text" or "json".
	LogFormat string
}

// Server holds the HTTP listener settings for the status API.
type Server struct {
	Host string
	Port int
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	DataDir        string
	ModelsDir      string
	ConfigFileUsed string
	EnvFileUsed    string
}

// Database holds the label store connection settings.
type Database struct {
	// URL is either a sqlite URL/path or a postgres connection string.
	URL string
}

// Scheduler holds the retraining scheduler settings.
type Scheduler struct {
	Enabled bool
	// Interval is the delay between the end of one cycle and the next tick,
	// with whole-second granularity.
	Interval time.Duration
	// IntervalHours is the interval as configured, in fractional hours.
	IntervalHours float64
	// RestoreState seeds the run counters from the model registry on startup.
	RestoreState bool
	// Err is set when the scheduler settings could not be parsed. The
	// scheduler is then forced to be disabled.
	Err error
}

// Registry holds the model registry settings.
type Registry struct {
	// MaxVersions is the number of published versions kept on disk.
	MaxVersions int
}

// Trainer holds the settings of the external training command.
type Trainer struct {
	// Command is the executable followed by its arguments.
	Command []string
	// WorkDir is the working directory of the training command.
	WorkDir string
	// Timeout bounds a single training run; zero means no limit.
	Timeout time.Duration
}

// Validate performs basic validation on the configuration to ensure
// required fields are set and the values are within range.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Paths.ModelsDir == "" {
		return fmt.Errorf("models directory is required")
	}
	if c.Registry.MaxVersions < 1 {
		return fmt.Errorf("registry.max_versions must be at least 1, got %d", c.Registry.MaxVersions)
	}
	if c.Trainer.Timeout < 0 {
		return fmt.Errorf("trainer.timeout must not be negative")
	}
	return nil
}
