package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
)

func Migrate() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "migrate [flags]",
			Short: "Apply pending label store migrations",
			Long: `Create or upgrade the customer_labels schema in the database named by
DATABASE_URL. The start command applies the same migrations on startup.

Example:
  DATABASE_URL=postgres://churn:secret@db:5432/churn retrainer migrate
`,
			Args: cobra.NoArgs,
		}, nil, runMigrate,
	)
}

func runMigrate(ctx *Context, _ []string) error {
	store, err := ctx.OpenLabelStore()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info(ctx, "Label store is up to date", tag.Driver(dbDriver(ctx.Config.Database.URL)))
	return store.Close()
}
