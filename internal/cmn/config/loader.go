package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/churnlab/retrainer/internal/cmn/cmdutil"
	"github.com/churnlab/retrainer/internal/cmn/duration"
)

// ConfigLoader reads and merges configuration from a dotenv file, an optional
// YAML config file, and the process environment.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	envFile    string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile returns a ConfigLoaderOption that sets the configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithEnvFile sets the dotenv file to load. Without it, ".env" in the
// working directory is loaded when present.
func WithEnvFile(envFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.envFile = envFile
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// Load is a shorthand for NewConfigLoader(viper.New(), options...).Load().
func Load(options ...ConfigLoaderOption) (*Config, error) {
	return NewConfigLoader(viper.New(), options...).Load()
}

// Load reads configuration sources, applies defaults and environment
// overrides, and returns a validated Config instance.
func (l *ConfigLoader) Load() (*Config, error) {
	envFileUsed, err := l.loadEnvFile()
	if err != nil {
		return nil, err
	}

	l.configureViper()
	l.bindEnvironmentVariables()
	l.setViperDefaultValues()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := l.v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	cfg.Paths.ConfigFileUsed = l.v.ConfigFileUsed()
	cfg.Paths.EnvFileUsed = envFileUsed
	cfg.Warnings = l.warnings

	return cfg, nil
}

// loadEnvFile loads the dotenv file into the process environment. Variables
// that are already set are not overridden.
func (l *ConfigLoader) loadEnvFile() (string, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil {
			return "", fmt.Errorf("failed to load env file %s: %w", l.envFile, err)
		}
		return l.envFile, nil
	}

	if _, err := os.Stat(".env"); err != nil {
		return "", nil
	}
	if err := godotenv.Load(".env"); err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("Failed to load .env: %v", err))
		return "", nil
	}
	return ".env", nil
}

// buildConfig transforms the Definition into a validated Config structure.
func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := Config{
		Core: Core{
			Debug:     def.Debug,
			LogFormat: def.LogFormat,
		},
		Server: Server{
			Host: def.Host,
			Port: def.Port,
		},
	}

	if cfg.Core.LogFormat != "text" && cfg.Core.LogFormat != "json" {
		l.warnings = append(l.warnings, fmt.Sprintf("Unknown log_format %q, using text", cfg.Core.LogFormat))
		cfg.Core.LogFormat = "text"
	}

	if err := l.loadPathsConfig(&cfg, def); err != nil {
		return nil, err
	}
	l.loadDatabaseConfig(&cfg, def)
	l.loadSchedulerConfig(&cfg, def)
	l.loadRegistryConfig(&cfg, def)
	if err := l.loadTrainerConfig(&cfg, def); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *ConfigLoader) loadPathsConfig(cfg *Config, def Definition) error {
	if def.Paths != nil {
		cfg.Paths.DataDir = def.Paths.DataDir
		cfg.Paths.ModelsDir = def.Paths.ModelsDir
	}

	var err error
	if cfg.Paths.DataDir, err = l.resolvePath("paths.data_dir", cfg.Paths.DataDir); err != nil {
		return err
	}
	if cfg.Paths.ModelsDir == "" {
		cfg.Paths.ModelsDir = filepath.Join(cfg.Paths.DataDir, "models")
	}
	if cfg.Paths.ModelsDir, err = l.resolvePath("paths.models_dir", cfg.Paths.ModelsDir); err != nil {
		return err
	}
	return nil
}

func (l *ConfigLoader) loadDatabaseConfig(cfg *Config, def Definition) {
	cfg.Database.URL = strings.TrimSpace(def.DatabaseURL)
	if cfg.Database.URL == "" {
		cfg.Database.URL = "sqlite:///" + filepath.Join(cfg.Paths.DataDir, "churn_predictor.db")
	}
}

func (l *ConfigLoader) loadSchedulerConfig(cfg *Config, def Definition) {
	if def.Scheduler == nil {
		def.Scheduler = &SchedulerDef{}
	}

	enabled, ok := ParseBool(def.Scheduler.Enabled)
	if !ok {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid ENABLE_SCHEDULER value %q, scheduler disabled", def.Scheduler.Enabled))
	}
	cfg.Scheduler.Enabled = enabled
	cfg.Scheduler.RestoreState = def.Scheduler.RestoreState

	interval, hours, err := ParseIntervalHours(def.Scheduler.IntervalHours)
	if err != nil {
		cfg.Scheduler.Enabled = false
		cfg.Scheduler.Err = err
		return
	}
	cfg.Scheduler.Interval = interval
	cfg.Scheduler.IntervalHours = hours
}

func (l *ConfigLoader) loadRegistryConfig(cfg *Config, def Definition) {
	if def.Registry != nil {
		cfg.Registry.MaxVersions = def.Registry.MaxVersions
	}
	if cfg.Registry.MaxVersions <= 0 {
		cfg.Registry.MaxVersions = 3
	}
}

func (l *ConfigLoader) loadTrainerConfig(cfg *Config, def Definition) error {
	if def.Trainer == nil {
		return nil
	}
	if strings.TrimSpace(def.Trainer.Command) != "" {
		args, err := cmdutil.SplitArgs(def.Trainer.Command)
		if err != nil {
			return fmt.Errorf("invalid trainer.command %q: %w", def.Trainer.Command, err)
		}
		cfg.Trainer.Command = args
	}
	cfg.Trainer.WorkDir = def.Trainer.WorkDir
	cfg.Trainer.Timeout = l.parseDuration("trainer.timeout", def.Trainer.Timeout)
	return nil
}

// resolvePath converts a configured path into an absolute one.
func (l *ConfigLoader) resolvePath(fieldName, pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	abs, err := filepath.Abs(os.ExpandEnv(pathValue))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s %q: %w", fieldName, pathValue, err)
	}
	return abs, nil
}

// parseDuration parses a duration string, recording a warning on failure.
func (l *ConfigLoader) parseDuration(fieldName, value string) time.Duration {
	if value == "" {
		return 0
	}
	d, err := duration.Parse(value)
	if err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid %s value: %s", fieldName, value))
		return 0
	}
	return d
}

func (l *ConfigLoader) setViperDefaultValues() {
	l.v.SetDefault("host", "127.0.0.1")
	l.v.SetDefault("port", 8090)
	l.v.SetDefault("debug", false)
	l.v.SetDefault("log_format", "text")
	l.v.SetDefault("database_url", "")

	// Paths
	l.v.SetDefault("paths.data_dir", "data")
	l.v.SetDefault("paths.models_dir", "")

	// Scheduler
	l.v.SetDefault("scheduler.enabled", "false")
	l.v.SetDefault("scheduler.interval_hours", "24")
	l.v.SetDefault("scheduler.restore_state", false)

	// Registry
	l.v.SetDefault("registry.max_versions", 3)

	// Trainer
	l.v.SetDefault("trainer.command", "python3 -m app.scripts.train_model")
	l.v.SetDefault("trainer.work_dir", "")
	l.v.SetDefault("trainer.timeout", "")
}

type envBinding struct {
	key    string
	env    string
	bare   bool // bound without the application prefix
	isPath bool
}

var envBindings = []envBinding{
	// Names shared with the prediction API's environment.
	{key: "scheduler.enabled", env: "ENABLE_SCHEDULER", bare: true},
	{key: "scheduler.interval_hours", env: "RETRAINING_INTERVAL_HOURS", bare: true},
	{key: "database_url", env: "DATABASE_URL", bare: true},

	// Server
	{key: "host", env: "HOST"},
	{key: "port", env: "PORT"},
	{key: "debug", env: "DEBUG"},
	{key: "log_format", env: "LOG_FORMAT"},

	// Paths
	{key: "paths.data_dir", env: "DATA_DIR", isPath: true},
	{key: "paths.models_dir", env: "MODELS_DIR", isPath: true},

	// Scheduler, registry, trainer
	{key: "scheduler.restore_state", env: "RESTORE_STATE"},
	{key: "registry.max_versions", env: "MAX_VERSIONS"},
	{key: "trainer.command", env: "TRAINER_COMMAND"},
	{key: "trainer.work_dir", env: "TRAINER_WORK_DIR", isPath: true},
	{key: "trainer.timeout", env: "TRAINER_TIMEOUT"},
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	prefix := strings.ToUpper(AppSlug) + "_"

	for _, b := range envBindings {
		fullEnv := b.env
		if !b.bare {
			fullEnv = prefix + b.env
		}

		if b.isPath {
			if val := os.Getenv(fullEnv); val != "" {
				if abs, err := filepath.Abs(val); err == nil && abs != val {
					_ = os.Setenv(fullEnv, abs)
				}
			}
		}

		_ = l.v.BindEnv(b.key, fullEnv)
	}
}

func (l *ConfigLoader) configureViper() {
	if l.configFile == "" {
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", AppSlug))
		}
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(l.configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.ToUpper(AppSlug))
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}
