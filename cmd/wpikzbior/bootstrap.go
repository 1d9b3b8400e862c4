// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	"github.com/wpikzbior/wpikzbior/internal/auth/postgres"
	"github.com/wpikzbior/wpikzbior/internal/provision"
)

// NewBootstrapCmd creates the bootstrap subcommand.
func NewBootstrapCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the built-in admin account",
		Long: `Creates the admin account if it does not exist and prints its generated
password once. This command is idempotent - running it again changes nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			d := deps.withDefaults()

			ctx := cmd.Context()

			pool, err := d.Connect(ctx, cfg.DatabaseURL, cfg.ConnectTimeout)
			if err != nil {
				return oops.With("operation", "connect to database").Wrap(err)
			}
			defer pool.Close()

			if cfg.AutoMigrate {
				if err := applyMigrations(d, cfg.DatabaseURL); err != nil {
					return err
				}
			}

			return runBootstrap(ctx, cmd.OutOrStdout(), postgres.NewUserRepository(pool), auth.NewArgon2idHasher(), logger)
		},
	}
}

// runBootstrap ensures the admin exists and reports the outcome on out.
func runBootstrap(ctx context.Context, out io.Writer, users auth.UserRepository, hasher auth.PasswordHasher, logger *slog.Logger) error {
	password, created, err := provision.EnsureAdmin(ctx, users, hasher, logger)
	if err != nil {
		return err
	}
	printAdminCredentials(out, password, created)
	return nil
}

func printAdminCredentials(out io.Writer, password string, created bool) {
	if !created {
		_, _ = fmt.Fprintln(out, "Admin account already exists.")
		return
	}
	_, _ = fmt.Fprintf(out, "Admin account created.\n  handle:   %s\n  password: %s\nThis password is shown only once.\n",
		auth.AdminHandle, password)
}

// applyMigrations brings the schema up to date.
func applyMigrations(deps *Deps, databaseURL string) error {
	migrator, err := deps.NewMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	if err := migrator.Up(); err != nil {
		return oops.With("operation", "apply migrations").Wrap(err)
	}
	return nil
}
