// Package main is the sira command: the API server plus the operational
// subcommands that manage its schema and accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/sira_platform/internal/app/runtime"
	"github.com/R3E-Network/sira_platform/internal/config"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "sira",
		Short:   "SIRA shipping intelligence platform",
		Version: version,
		// Errors are printed once by cobra; usage only for flag mistakes.
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newCreateAdminCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if migrate {
				cfg.Database.AutoMigrate = true
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending schema migrations before serving")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := runtime.New(cfg)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	runErr := application.Run(ctx)
	if err := application.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
