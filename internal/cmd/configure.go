package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/churnlab/retrainer/internal/cmn/config"
	"github.com/churnlab/retrainer/internal/service/frontend"
	"github.com/churnlab/retrainer/internal/service/scheduler"
)

func Configure() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "configure [flags]",
			Short: "Change the schedule of a running retrainer",
			Long: `Update the retraining interval of a running retrainer, or pause and resume
its scheduler. A retrainer started with the scheduler disabled cannot be
enabled at runtime.

Changes last until the process restarts.

Example:
  retrainer configure --interval-hours 6
  retrainer configure --enabled=false
`,
			Args: cobra.NoArgs,
		}, configureFlags, runConfigure,
	)
}

var (
	enabledFlag = commandLineFlag{
		name:  "enabled",
		usage: "pause (false) or resume (true) the scheduler",
	}
	intervalHoursFlag = commandLineFlag{
		name:  "interval-hours",
		usage: "retraining interval in hours; fractions are allowed",
	}
)

var configureFlags = []commandLineFlag{hostFlag, portFlag, urlFlag, enabledFlag, intervalHoursFlag}

func runConfigure(ctx *Context, _ []string) error {
	update, err := configUpdateFromFlags(ctx.Command)
	if err != nil {
		return err
	}

	var status scheduler.StatusSnapshot
	var apiErr struct {
		Error string `json:"error"`
	}
	resp, err := ctx.APIClient().R().
		SetContext(ctx).
		SetBody(update).
		SetResult(&status).
		SetError(&apiErr).
		Patch("/scheduler/config")
	if err != nil {
		return fmt.Errorf("failed to reach the status API: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return fmt.Errorf("update rejected: %s: %s", resp.Status(), msg)
	}

	_, err = fmt.Fprintln(ctx.Command.OutOrStdout(), renderStatus(status, nil))
	return err
}

func configUpdateFromFlags(cmd *cobra.Command) (frontend.ConfigUpdate, error) {
	var update frontend.ConfigUpdate

	if raw, _ := cmd.Flags().GetString(enabledFlag.name); strings.TrimSpace(raw) != "" {
		enabled, ok := config.ParseBool(raw)
		if !ok {
			return update, fmt.Errorf("invalid --enabled value %q", raw)
		}
		update.Enabled = &enabled
	}

	if raw, _ := cmd.Flags().GetString(intervalHoursFlag.name); raw != "" {
		_, hours, err := config.ParseIntervalHours(raw)
		if err != nil {
			return update, err
		}
		update.IntervalHours = &hours
	}

	if update.Enabled == nil && update.IntervalHours == nil {
		return update, errors.New("nothing to change: pass --enabled or --interval-hours")
	}
	return update, nil
}
