package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/runtime/trainer"
)

func Labels() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Inspect and load feedback labels",
		Long: `Manage the customer churn labels the scheduler trains on.

Example:
  retrainer labels stats
  retrainer labels import feedback.csv
`,
	}
	cmd.AddCommand(labelsStats(), labelsImport(), labelsDelete())
	return cmd
}

func labelsStats() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "stats [flags]",
			Short: "Summarize the stored labels",
			Args:  cobra.NoArgs,
		}, nil, runLabelsStats,
	)
}

func runLabelsStats(ctx *Context, _ []string) error {
	store, err := ctx.OpenLabelStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(ctx.Command.OutOrStdout(), renderLabelStats(stats))
	return err
}

func renderLabelStats(stats core.LabelStats) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Total", "Churned", "Not Churned", "Oldest", "Newest"})
	t.AppendRow(table.Row{
		stats.Total,
		stats.Churned,
		stats.NotChurned,
		formatTime(stats.Oldest),
		formatTime(stats.Newest),
	})
	return t.Render()
}

func labelsImport() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "import [flags] <file.csv>",
			Short: "Load labels from a CSV file",
			Long: `Insert or update labels from a CSV file with a customer_id column, a TARGET
column (1/0 or true/false) and one numeric column per feature. Empty cells
are treated as missing features.

Example:
  retrainer labels import feedback.csv --replace
`,
			Args: cobra.ExactArgs(1),
		}, []commandLineFlag{replaceFlag}, runLabelsImport,
	)
}

func runLabelsImport(ctx *Context, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	ds, err := trainer.ReadDatasetCSV(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	store, err := ctx.OpenLabelStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imported := make(map[string]struct{}, ds.Len())
	for _, rec := range ds.Records {
		if err := store.SaveLabel(ctx, rec); err != nil {
			return err
		}
		imported[rec.CustomerID] = struct{}{}
	}

	deleted := 0
	if replace, _ := ctx.Command.Flags().GetBool(replaceFlag.name); replace {
		existing, err := store.FetchTrainingSet(ctx)
		if err != nil {
			return err
		}
		for _, rec := range existing.Records {
			if _, ok := imported[rec.CustomerID]; ok {
				continue
			}
			if err := store.DeleteLabel(ctx, rec.CustomerID); err != nil {
				return err
			}
			deleted++
		}
	}

	logger.Info(ctx, "Labels imported", tag.File(args[0]), tag.Count(ds.Len()), tag.Churned(ds.Churned()))
	_, err = fmt.Fprintf(ctx.Command.OutOrStdout(), "Imported %d labels (%d churned), deleted %d\n",
		ds.Len(), ds.Churned(), deleted)
	return err
}

func labelsDelete() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "delete [flags] <customer-id>...",
			Short: "Remove the labels of the given customers",
			Args:  cobra.MinimumNArgs(1),
		}, nil, runLabelsDelete,
	)
}

func runLabelsDelete(ctx *Context, args []string) error {
	store, err := ctx.OpenLabelStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, id := range args {
		if err := store.DeleteLabel(ctx, id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(ctx.Command.OutOrStdout(), "Deleted %d labels\n", len(args))
	return err
}
