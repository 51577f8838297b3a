package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/persis/sqllabel"
	"github.com/churnlab/retrainer/internal/service/frontend"
	"github.com/churnlab/retrainer/internal/service/scheduler"
)

// stopTimeout bounds how long shutdown waits for an in-flight training run.
const stopTimeout = time.Minute

func Start() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "start [flags]",
			Short: "Start the retraining scheduler and the status API",
			Long: `Launch the retraining scheduler together with the HTTP status API.

When ENABLE_SCHEDULER is true the scheduler retrains the churn model every
RETRAINING_INTERVAL_HOURS, measured from the end of the previous run. The
first run happens one interval after startup.

Example:
  ENABLE_SCHEDULER=true RETRAINING_INTERVAL_HOURS=0.5 retrainer start --port 8090

The process runs until it receives SIGINT or SIGTERM.
`,
			Args: cobra.NoArgs,
		}, startFlags, runStart,
	)
}

var startFlags = []commandLineFlag{hostFlag, portFlag}

func runStart(ctx *Context, _ []string) error {
	signalCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := ctx.OpenLabelStore()
	if err != nil {
		return fmt.Errorf("failed to open label store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn(ctx, "Failed to close label store", tag.Error(err))
		}
	}()

	registry, err := ctx.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to open model registry: %w", err)
	}

	trainer, err := ctx.NewTrainer(registry)
	if err != nil {
		return fmt.Errorf("failed to create trainer: %w", err)
	}
	defer func() {
		if err := trainer.Close(); err != nil {
			logger.Warn(ctx, "Failed to clean up trainer workspace", tag.Error(err))
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []scheduler.Option{
		scheduler.WithMetrics(scheduler.NewMetrics(promRegistry)),
		scheduler.WithConfigError(ctx.Config.Scheduler.Err),
	}
	if ctx.Config.Scheduler.RestoreState {
		opts = append(opts, scheduler.WithRestore())
	}

	sched, err := scheduler.New(scheduler.Config{
		Enabled:       ctx.Config.Scheduler.Enabled,
		Interval:      ctx.Config.Scheduler.Interval,
		IntervalHours: ctx.Config.Scheduler.IntervalHours,
	}, store, trainer, registry, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	logger.Info(ctx, "Retrainer initialization",
		tag.Driver(dbDriver(ctx.Config.Database.URL)),
		tag.URL(ctx.redactedDatabaseURL()),
		tag.Dir(ctx.Config.Paths.ModelsDir),
		tag.Interval(ctx.Config.Scheduler.Interval),
	)

	// A signal stops the timer but lets a running cycle finish within
	// stopTimeout, so the loop must not inherit the signal context.
	if err := sched.Start(context.WithoutCancel(ctx.Context)); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	server := frontend.NewServer(ctx.Config, sched,
		frontend.WithModels(registry),
		frontend.WithMetricsRegistry(promRegistry),
	)
	serveErr := server.Serve(signalCtx)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Context), stopTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.Warn(ctx, "Training run did not finish before shutdown", tag.Timeout(stopTimeout), tag.Error(err))
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("status API failed: %w", serveErr)
	}
	return nil
}

func dbDriver(url string) string {
	d, err := sqllabel.ParseURL(url)
	if err != nil {
		return "unknown"
	}
	return d.Driver
}
