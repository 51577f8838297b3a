package config

// Definition holds the raw configuration as read from the config file and
// the environment. Scheduler values are kept as strings so that malformed
// input can be reported instead of silently decoding to zero.
type Definition struct {
	// Host is the address the status API listens on.
	Host string `mapstructure:"host"`

	// Port is the port the status API listens on.
	Port int `mapstructure:"port"`

	// Debug toggles debug logging.
	Debug bool `mapstructure:"debug"`

	// LogFormat defines the output format for log messages ("json" or "text").
	LogFormat string `mapstructure:"log_format"`

	// DatabaseURL is the label store connection string.
	DatabaseURL string `mapstructure:"database_url"`

	Paths *PathsDef `mapstructure:"paths"`

	Scheduler *SchedulerDef `mapstructure:"scheduler"`

	Registry *RegistryDef `mapstructure:"registry"`

	Trainer *TrainerDef `mapstructure:"trainer"`
}

// PathsDef configures filesystem locations.
type PathsDef struct {
	DataDir   string `mapstructure:"data_dir"`
	ModelsDir string `mapstructure:"models_dir"`
}

// SchedulerDef configures the retraining scheduler.
type SchedulerDef struct {
	// Enabled is a boolean-like string (true/false, 1/0, yes/no, on/off).
	Enabled string `mapstructure:"enabled"`

	// IntervalHours is a positive float; fractional values denote
	// sub-hour intervals down to one second.
	IntervalHours string `mapstructure:"interval_hours"`

	// RestoreState seeds the run counters from the model registry.
	RestoreState bool `mapstructure:"restore_state"`
}

// RegistryDef configures the model registry.
type RegistryDef struct {
	MaxVersions int `mapstructure:"max_versions"`
}

// TrainerDef configures the external training command.
type TrainerDef struct {
	// Command is split into the executable and its arguments. Quotes group
	// words; an unterminated quote is a configuration error.
	Command string `mapstructure:"command"`
	WorkDir string `mapstructure:"work_dir"`
	Timeout string `mapstructure:"timeout"`
}
