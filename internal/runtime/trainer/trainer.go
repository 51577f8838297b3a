// Package trainer runs model training as an external command.
package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/churnlab/retrainer/internal/cmn/cmdutil"
	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/cmn/masking"
	"github.com/churnlab/retrainer/internal/core"
	coreexec "github.com/churnlab/retrainer/internal/core/exec"
)

// Environment passed to the training command.
const (
	EnvDataset      = "RETRAIN_DATASET"
	EnvOutputDir    = "RETRAIN_OUTPUT_DIR"
	EnvLoadExisting = "RETRAIN_LOAD_EXISTING"
	EnvBaseModelDir = "RETRAIN_BASE_MODEL_DIR"
)

// MetricsFile is read from the output directory after a successful run.
const MetricsFile = "metrics.json"

var (
	errNoCommand = errors.New("no training command specified")
	// ErrNoArtifacts is returned when the command exits cleanly without
	// writing any model file.
	ErrNoArtifacts = errors.New("training produced no artifacts")
	// ErrEmptyDataset is returned when Train is called without records.
	ErrEmptyDataset = errors.New("dataset is empty")
)

var _ coreexec.Trainer = (*CommandTrainer)(nil)

// BaseModelSource reports the currently published model, which the command
// may continue training from.
type BaseModelSource interface {
	Current(ctx context.Context) (*core.ModelVersion, error)
}

// Config configures a CommandTrainer.
type Config struct {
	// Command is the executable followed by its arguments.
	Command []string
	// WorkDir is the working directory of the command.
	WorkDir string
	// Timeout kills the command when exceeded. Zero means no limit.
	Timeout time.Duration
	// Output receives the combined stdout and stderr of the command.
	Output io.Writer
	// Secrets are masked in the command output and in returned errors.
	Secrets []string
}

// CommandTrainer exports the dataset to CSV and runs the configured command
// on it. The command writes its model files and an optional metrics.json
// into RETRAIN_OUTPUT_DIR.
type CommandTrainer struct {
	cfg     Config
	base    BaseModelSource
	tempDir string

	mu   sync.Mutex
	last string // workspace of the previous run, kept until the next one
}

// Option configures a CommandTrainer.
type Option func(*CommandTrainer)

// WithBaseModel lets the command continue from the current model.
func WithBaseModel(src BaseModelSource) Option {
	return func(t *CommandTrainer) {
		t.base = src
	}
}

// WithTempDir sets the parent directory of run workspaces.
func WithTempDir(dir string) Option {
	return func(t *CommandTrainer) {
		t.tempDir = dir
	}
}

// New creates a CommandTrainer.
func New(cfg Config, opts ...Option) (*CommandTrainer, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, errNoCommand
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("invalid timeout %s", cfg.Timeout)
	}
	t := &CommandTrainer{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Train runs the training command. The returned artifact paths stay valid
// until the next call to Train or Close.
func (t *CommandTrainer) Train(ctx context.Context, ds *core.Dataset) (*core.Model, core.Metrics, error) {
	if ds.Len() == 0 {
		return nil, nil, ErrEmptyDataset
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanupLocked()

	workspace, err := os.MkdirTemp(t.tempDir, "retrain-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	model, metrics, err := t.run(ctx, workspace, ds)
	if err != nil {
		_ = os.RemoveAll(workspace)
		return nil, nil, err
	}
	t.last = workspace
	return model, metrics, nil
}

// Close removes the workspace of the last run.
func (t *CommandTrainer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanupLocked()
	return nil
}

func (t *CommandTrainer) cleanupLocked() {
	if t.last != "" {
		_ = os.RemoveAll(t.last)
		t.last = ""
	}
}

func (t *CommandTrainer) run(ctx context.Context, workspace string, ds *core.Dataset) (*core.Model, core.Metrics, error) {
	datasetPath := filepath.Join(workspace, "dataset.csv")
	outputDir := filepath.Join(workspace, "output")
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := WriteDatasetCSV(datasetPath, ds); err != nil {
		return nil, nil, err
	}

	env := append(os.Environ(),
		EnvDataset+"="+datasetPath,
		EnvOutputDir+"="+outputDir,
	)
	mode := core.TrainingModeInitial
	if baseDir := t.baseModelDir(ctx); baseDir != "" {
		mode = core.TrainingModeIncremental
		env = append(env, EnvLoadExisting+"=true", EnvBaseModelDir+"="+baseDir)
	} else {
		env = append(env, EnvLoadExisting+"=false")
	}

	if err := t.exec(ctx, env); err != nil {
		return nil, nil, err
	}

	metrics, err := readMetrics(filepath.Join(outputDir, MetricsFile))
	if err != nil {
		return nil, nil, err
	}
	artifacts, err := collectArtifacts(outputDir)
	if err != nil {
		return nil, nil, err
	}

	churned := ds.Churned()
	model := &core.Model{
		Artifacts: artifacts,
		Metrics:   metrics,
		Info: core.TrainingInfo{
			Samples:    ds.Len(),
			Churned:    churned,
			NotChurned: ds.Len() - churned,
			Mode:       mode,
		},
	}
	return model, metrics, nil
}

func (t *CommandTrainer) exec(ctx context.Context, env []string) error {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.cfg.Command[0], t.cfg.Command[1:]...) //nolint:gosec
	cmd.Dir = t.cfg.WorkDir
	cmd.Env = env
	cmdutil.SetupCommand(cmd)
	cmd.Cancel = func() error {
		return cmdutil.KillProcessGroup(cmd, os.Kill)
	}
	cmd.WaitDelay = 5 * time.Second

	tail := newTailWriter(t.cfg.Output, 0)
	masked := masking.NewWriter(tail, masking.NewMasker(t.cfg.Secrets...))
	cmd.Stdout = masked
	cmd.Stderr = masked

	logger.Info(ctx, "Starting training command",
		tag.Command(strings.Join(t.cfg.Command, " ")),
		tag.Timeout(t.cfg.Timeout),
	)
	started := time.Now()
	err := cmd.Run()
	if flushErr := masked.Flush(); flushErr != nil {
		logger.Warn(ctx, "Failed to write training output", tag.Error(flushErr))
	}
	if err == nil {
		logger.Info(ctx, "Training command finished", tag.Duration(time.Since(started)))
		return nil
	}

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && t.cfg.Timeout > 0 {
		return fmt.Errorf("training command timed out after %s", t.cfg.Timeout)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("training command canceled: %w", ctx.Err())
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	logger.Warn(ctx, "Training command failed", tag.ExitCode(exitCode), tag.Error(err))
	if out := strings.TrimSpace(tail.Tail()); out != "" {
		return fmt.Errorf("training command failed (exit code %d): %w\nrecent output (tail):\n%s", exitCode, err, out)
	}
	return fmt.Errorf("training command failed (exit code %d): %w", exitCode, err)
}

// baseModelDir returns the directory of the current model's artifacts, or
// "" when training should start from scratch.
func (t *CommandTrainer) baseModelDir(ctx context.Context) string {
	if t.base == nil {
		return ""
	}
	current, err := t.base.Current(ctx)
	if err != nil {
		if !errors.Is(err, coreexec.ErrNoModel) {
			logger.Warn(ctx, "Failed to look up current model, training from scratch", tag.Error(err))
		}
		return ""
	}
	for _, path := range current.Artifacts {
		return filepath.Dir(path)
	}
	return ""
}

// readMetrics reads the numeric entries of metrics.json. A missing file
// yields empty metrics.
func readMetrics(path string) (core.Metrics, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if errors.Is(err, os.ErrNotExist) {
		return core.Metrics{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", MetricsFile, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MetricsFile, err)
	}
	metrics := make(core.Metrics, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			metrics[k] = n
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				metrics[k] = f
			}
		}
	}
	return metrics, nil
}

func collectArtifacts(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list output directory: %w", err)
	}
	artifacts := make(map[string]string)
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name() == MetricsFile {
			continue
		}
		artifacts[e.Name()] = filepath.Join(dir, e.Name())
	}
	if len(artifacts) == 0 {
		return nil, ErrNoArtifacts
	}
	return artifacts, nil
}
