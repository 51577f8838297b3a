package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/churnlab/retrainer/internal/cmd"
	"github.com/churnlab/retrainer/internal/cmn/config"
)

var rootCmd = &cobra.Command{
	Use:   config.AppSlug,
	Short: "Retrainer keeps the churn prediction model fresh",
	Long: `Retrainer periodically retrains the churn prediction model on the labels
collected through customer feedback, and publishes each new model version to
a local registry.

It exposes the scheduler state over a small HTTP API so that operators can
check when the model was last retrained and whether it succeeded.
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Start())
	rootCmd.AddCommand(cmd.Status())
	rootCmd.AddCommand(cmd.Configure())
	rootCmd.AddCommand(cmd.Models())
	rootCmd.AddCommand(cmd.Migrate())
	rootCmd.AddCommand(cmd.Labels())
	rootCmd.AddCommand(cmd.Version())

	config.Version = version
}

var version = "0.0.0"
