package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/service/frontend"
)

func Models() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "models [flags]",
			Short: "List published model versions",
			Long: `List the model versions kept by the registry, newest first, with their
training data summary and evaluation metrics.

Versions are fetched from a running retrainer unless --local is given, in
which case the registry under the configured models directory is read.

Example:
  retrainer models --local
`,
			Args: cobra.NoArgs,
		}, modelsFlags, runModels,
	)
}

var modelsFlags = []commandLineFlag{hostFlag, portFlag, urlFlag, jsonFlag, localFlag}

func runModels(ctx *Context, _ []string) error {
	var versions []core.ModelVersion

	if local, _ := ctx.Command.Flags().GetBool(localFlag.name); local {
		registry, err := ctx.NewRegistry()
		if err != nil {
			return fmt.Errorf("failed to open model registry: %w", err)
		}
		if versions, err = registry.List(ctx); err != nil {
			return err
		}
	} else {
		var list frontend.ModelList
		if _, err := ctx.getJSON("/models", &list); err != nil {
			return err
		}
		versions = list.Versions
	}

	out := ctx.Command.OutOrStdout()
	if asJSON, _ := ctx.Command.Flags().GetBool(jsonFlag.name); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(frontend.ModelList{Versions: versions})
	}

	if len(versions) == 0 {
		_, err := fmt.Fprintln(out, "No model published yet")
		return err
	}
	_, err := fmt.Fprintln(out, renderModels(versions))
	return err
}

var modelHeader = table.Row{
	"#",
	"Version",
	"Created At",
	"Mode",
	"Samples",
	"Churned",
	"Metrics",
}

func renderModels(versions []core.ModelVersion) string {
	t := table.NewWriter()
	t.AppendHeader(modelHeader)
	for _, v := range versions {
		t.AppendRow(table.Row{
			v.Sequence,
			v.ID,
			v.CreatedAt.Format(time.RFC3339),
			v.Info.Mode,
			v.Info.Samples,
			v.Info.Churned,
			formatMetrics(v.Metrics),
		})
	}
	return t.Render()
}

func formatMetrics(m core.Metrics) string {
	if len(m) == 0 {
		return "-"
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%.4g", name, m[name])
	}
	return strings.Join(parts, " ")
}
