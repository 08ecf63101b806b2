package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clientflow/alertrunner/internal/repository/postgres"
	"github.com/clientflow/alertrunner/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := postgres.New(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			applied, err := postgres.RunMigrations(context.Background(), db, migrations.GetFS())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(map[string]interface{}{"applied": applied})
			}
			if len(applied) == 0 {
				fmt.Fprintln(stdout, "Database is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(stdout, "Applied %s\n", name)
			}
			return nil
		},
	}
}
