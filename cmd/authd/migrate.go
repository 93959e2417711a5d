package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/99minutos/auth-service/internal/infrastructure/db/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending database migrations against the PostgreSQL account store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, databaseURL)
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	return cmd
}

func runMigrate(cmd *cobra.Command, databaseURL string) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL or --database-url is required")
	}
	ctx := cmd.Context()

	cmd.Println("Connecting to database...")
	pool, err := postgres.Connect(ctx, postgres.Config{URL: databaseURL})
	if err != nil {
		return err
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
