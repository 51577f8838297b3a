package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/churnlab/retrainer/internal/service/scheduler"
)

func Status() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "status [flags]",
			Short: "Display the state of a running retraining scheduler",
			Long: `Query the status API of a running retrainer and print the scheduler state,
the run counters and the outcome of the last training attempt.

Example:
  retrainer status --url http://churn-api:8090
`,
			Args: cobra.NoArgs,
		}, statusFlags, runStatus,
	)
}

var statusFlags = []commandLineFlag{hostFlag, portFlag, urlFlag, jsonFlag}

func runStatus(ctx *Context, _ []string) error {
	var status scheduler.StatusSnapshot
	body, err := ctx.getJSON("/scheduler/status", &status)
	if err != nil {
		return err
	}

	out := ctx.Command.OutOrStdout()
	if asJSON, _ := ctx.Command.Flags().GetBool(jsonFlag.name); asJSON {
		_, err := fmt.Fprintln(out, string(body))
		return err
	}

	var health scheduler.HealthSnapshot
	if _, err := ctx.getJSON("/scheduler/health", &health); err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, renderStatus(status, &health))
	return err
}

// renderStatus renders the snapshot as a two-column table. The health row
// is omitted when health is nil.
func renderStatus(status scheduler.StatusSnapshot, health *scheduler.HealthSnapshot) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})
	if health != nil {
		t.AppendRow(table.Row{"Healthy", health.OK})
	}
	t.AppendRows([]table.Row{
		{"State", status.State.String()},
		{"Enabled", status.Enabled},
		{"Interval (hours)", strconv.FormatFloat(status.IntervalHours, 'g', -1, 64)},
		{"Next Run At", formatTime(status.NextRunAt)},
		{"Training Count", status.TrainingCount},
		{"Skipped Count", status.SkippedCount},
		{"Total Labels", status.TotalLabels},
		{"Last Result", status.LastResult.String()},
		{"Last Started At", formatTime(status.LastStartedAt)},
		{"Last Finished At", formatTime(status.LastFinishedAt)},
		{"Model Version", status.ModelVersion},
	})
	if status.LastError != "" {
		t.AppendRow(table.Row{"Last Error", status.LastError})
	}
	if status.ConfigError != "" {
		t.AppendRow(table.Row{"Config Error", status.ConfigError})
	}
	return t.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
