package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/sira_platform/internal/app/runtime"
	"github.com/R3E-Network/sira_platform/internal/config"
	"github.com/R3E-Network/sira_platform/internal/platform/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migrations.Migrator) error {
					return m.Up()
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("steps must be a positive integer")
					}
					steps = n
				}
				return withMigrator(func(m *migrations.Migrator) error {
					return m.Down(steps)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *migrations.Migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func withMigrator(fn func(*migrations.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := runtime.OpenDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	m, err := migrations.New(db, runtime.NewLogger(cfg, "migrations"))
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
