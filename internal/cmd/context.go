package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/churnlab/retrainer/internal/cmn/backoff"
	"github.com/churnlab/retrainer/internal/cmn/config"
	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/cmn/masking"
	"github.com/churnlab/retrainer/internal/persis/filemodel"
	"github.com/churnlab/retrainer/internal/persis/sqllabel"
	"github.com/churnlab/retrainer/internal/runtime/trainer"
)

const apiTimeout = 10 * time.Second

// connectRetries bounds how long commands wait for the database to accept
// connections, about 12 seconds with the exponential policy below.
const connectRetries = 5

// Context holds the configuration for a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool
}

// NewContext loads the configuration, applies command line overrides and
// sets up the logger carried by the returned context.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := bindFlags(cmd, flags...); err != nil {
		return nil, err
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	var loaderOpts []config.ConfigLoaderOption
	if cfgPath := viper.GetString("config"); cfgPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(cfgPath))
	}
	if envFile := viper.GetString("env-file"); envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(envFile))
	}

	cfg, err := config.Load(loaderOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyServerFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var opts []logger.Option
	if cfg.Core.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if cfg.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.Core.LogFormat))
	}
	ctx = logger.WithLogger(ctx, logger.NewLogger(opts...))

	for _, w := range cfg.Warnings {
		logger.Warn(ctx, w)
	}

	return &Context{
		Context: ctx,
		Command: cmd,
		Flags:   flags,
		Config:  cfg,
		Quiet:   quiet,
	}, nil
}

// applyServerFlags overrides the listener settings with --host and --port
// when the command defines them.
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) error {
	if f := cmd.Flags().Lookup(hostFlag.name); f != nil && f.Value.String() != "" {
		cfg.Server.Host = f.Value.String()
	}
	if f := cmd.Flags().Lookup(portFlag.name); f != nil && f.Value.String() != "" {
		port, err := strconv.Atoi(f.Value.String())
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %q", f.Value.String())
		}
		cfg.Server.Port = port
	}
	return nil
}

// OpenLabelStore connects to the configured database and applies pending
// migrations.
func (c *Context) OpenLabelStore() (*sqllabel.Store, error) {
	policy := backoff.NewExponentialPolicy(500 * time.Millisecond)
	policy.MaxInterval = 5 * time.Second
	policy.MaxRetries = connectRetries

	store, err := sqllabel.Open(c, c.Config.Database.URL, sqllabel.WithConnectRetry(policy))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(c); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// redactedDatabaseURL returns the database URL with its password masked.
func (c *Context) redactedDatabaseURL() string {
	url := c.Config.Database.URL
	return masking.NewMasker(masking.URLSecrets(url)...).MaskString(url)
}

// NewRegistry opens the model registry under the configured models directory.
func (c *Context) NewRegistry() (*filemodel.Registry, error) {
	return filemodel.New(c.Config.Paths.ModelsDir, filemodel.WithMaxVersions(c.Config.Registry.MaxVersions))
}

// NewTrainer creates the command trainer. The registry supplies the base
// model for incremental training.
func (c *Context) NewTrainer(registry trainer.BaseModelSource) (*trainer.CommandTrainer, error) {
	var output io.Writer = io.Discard
	if !c.Quiet {
		output = c.Command.ErrOrStderr()
	}
	return trainer.New(trainer.Config{
		Command: c.Config.Trainer.Command,
		WorkDir: c.Config.Trainer.WorkDir,
		Timeout: c.Config.Trainer.Timeout,
		Output:  output,
		Secrets: masking.URLSecrets(c.Config.Database.URL),
	}, trainer.WithBaseModel(registry))
}

// APIClient returns an HTTP client for a running retrainer. The base URL is
// taken from --url, or built from the configured host and port.
func (c *Context) APIClient() *resty.Client {
	baseURL, _ := c.Command.Flags().GetString(urlFlag.name)
	if baseURL == "" {
		host := c.Config.Server.Host
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		baseURL = "http://" + net.JoinHostPort(host, strconv.Itoa(c.Config.Server.Port))
	}
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(apiTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", config.AppSlug+"/"+config.Version)
}

// getJSON fetches path from the API into result and returns the raw body.
func (c *Context) getJSON(path string, result any) ([]byte, error) {
	resp, err := c.APIClient().R().SetContext(c).SetResult(result).Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s: %s", path, resp.Status(), strings.TrimSpace(resp.String()))
	}
	return resp.Body(), nil
}

// NewCommand creates a new command instance with the given cobra command and run function.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(cmd *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)
	cmd.SilenceUsage = true

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd, flags)
		if err != nil {
			return fmt.Errorf("initialization error: %w", err)
		}
		if err := runFunc(ctx, args); err != nil {
			logger.Error(ctx, "Command failed", tag.Error(err))
			return err
		}
		return nil
	}

	return cmd
}
