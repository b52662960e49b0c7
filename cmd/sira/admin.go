package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/runtime"
	"github.com/R3E-Network/sira_platform/internal/app/services/auth"
	"github.com/R3E-Network/sira_platform/internal/app/storage/postgres"
	"github.com/R3E-Network/sira_platform/internal/config"
)

func newCreateAdminCmd() *cobra.Command {
	var req auth.Registration
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.DSN == "" {
				return fmt.Errorf("DATABASE_URL is required; in-memory accounts do not outlive the command")
			}
			db, err := runtime.OpenDatabase(cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc := auth.New(postgres.New(db), auth.Settings{SecretKey: cfg.Auth.SecretKey}, runtime.NewLogger(cfg, "admin"))
			req.Role = roles.Admin
			u, err := svc.CreateUser(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "display name")
	for _, name := range []string{"username", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
