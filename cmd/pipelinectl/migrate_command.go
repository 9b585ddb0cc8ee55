package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Migrations directory (defaults to DB_MIGRATIONS_DIR)")

	cmd.AddCommand(newMigrateApplyCommand(ctx, &dir, "up", "Apply pending migrations", database.MigrateUp, 0))
	cmd.AddCommand(newMigrateApplyCommand(ctx, &dir, "down", "Roll back applied migrations", database.MigrateDown, 1))
	cmd.AddCommand(newMigrateStatusCommand(ctx, &dir))
	return cmd
}

func newMigrateApplyCommand(ctx *commandContext, dir *string, use, short string, direction database.MigrationDirection, defaultMax int) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg, ctx.logger())
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			n, err := database.Migrate(db, migrationsDir(*dir, cfg.Database.MigrationsDir), direction, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s)\n", use, n)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "max", defaultMax, "Maximum number of migrations to apply, 0 for all")
	return cmd
}

func newMigrateStatusCommand(ctx *commandContext, dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg, ctx.logger())
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			states, err := database.MigrationStatus(db, migrationsDir(*dir, cfg.Database.MigrationsDir))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMigrationStatus(states, time.Now()))
			return nil
		},
	}
}

func migrationsDir(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}

func renderMigrationStatus(states []database.MigrationState, now time.Time) string {
	if len(states) == 0 {
		return "No migrations found"
	}
	rows := make([][]string, 0, len(states))
	for _, s := range states {
		applied := "pending"
		if s.AppliedAt != nil {
			applied = humanize.RelTime(*s.AppliedAt, now, "ago", "from now")
		}
		rows = append(rows, []string{s.ID, applied})
	}
	return renderTable([]string{"Migration", "Applied"}, rows, nil)
}
