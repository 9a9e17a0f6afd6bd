package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"helpdesk-api/internal/config"
	"helpdesk-api/internal/migrate"
)

func newMigrateCommand() *cobra.Command {
	var (
		dir      string
		seedsDir string
		seed     bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  `Apply every db/migrations/*.sql file not yet recorded in schema_migrations, optionally followed by the seed files.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := sql.Open("pgx", cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("failed to open database connection: %w", err)
			}
			defer db.Close()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}

			applied, err := migrate.Up(ctx, db, dir, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", len(applied))

			if seed {
				if err := migrate.Seed(ctx, db, seedsDir); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Seeds applied")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", migrate.DefaultMigrationsDir, "Migrations directory")
	cmd.Flags().StringVar(&seedsDir, "seeds", migrate.DefaultSeedsDir, "Seeds directory")
	cmd.Flags().BoolVar(&seed, "seed", false, "Also run seed files")
	return cmd
}
