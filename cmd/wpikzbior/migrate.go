// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// migrateConfig holds flags for the migrate command.
type migrateConfig struct {
	yes bool
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd(deps *Deps) *cobra.Command {
	cfg := &migrateConfig{}

	cmd := &cobra.Command{
		Use:   "migrate [up|down|status|steps N|force N]",
		Short: "Manage the database schema",
		Long: `Apply or inspect the users and sessions schema.

  up         apply all pending migrations (default)
  down       roll back every migration; requires --yes
  status     show the applied version and pending migrations
  steps N    apply N migrations; roll back with steps -- -N
  force N    mark version N as applied without running SQL`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, n, err := parseMigrateArgs(args)
			if err != nil {
				return err
			}
			if action == "down" && !cfg.yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all users and sessions; pass --yes to confirm")
			}
			appCfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runMigrate(cmd.OutOrStdout(), deps.withDefaults(), appCfg.DatabaseURL, action, n)
		},
	}

	cmd.Flags().BoolVar(&cfg.yes, "yes", false, "confirm destructive actions")

	return cmd
}

// parseMigrateArgs validates the positional arguments of migrate.
func parseMigrateArgs(args []string) (action string, n int, err error) {
	if len(args) == 0 {
		return "up", 0, nil
	}
	action = args[0]
	switch action {
	case "up", "down", "status":
		if len(args) != 1 {
			return "", 0, oops.Code("INVALID_ARGS").Errorf("migrate %s takes no arguments", action)
		}
		return action, 0, nil
	case "steps", "force":
		if len(args) != 2 {
			return "", 0, oops.Code("INVALID_ARGS").Errorf("migrate %s requires a number", action)
		}
		n, err = strconv.Atoi(args[1])
		if err != nil {
			return "", 0, oops.Code("INVALID_ARGS").With("value", args[1]).Errorf("migrate %s: %q is not a number", action, args[1])
		}
		return action, n, nil
	default:
		return "", 0, oops.Code("INVALID_ARGS").With("action", action).Errorf("unknown migrate action %q", action)
	}
}

func runMigrate(out io.Writer, deps *Deps, databaseURL, action string, n int) error {
	migrator, err := deps.NewMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	switch action {
	case "up":
		if err := migrator.Up(); err != nil {
			return err
		}
	case "down":
		if err := migrator.Down(); err != nil {
			return err
		}
	case "steps":
		if err := migrator.Steps(n); err != nil {
			return err
		}
	case "force":
		if err := migrator.Force(n); err != nil {
			return err
		}
	case "status":
		return printMigrationStatus(out, migrator)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "migrate %s: schema at version %d%s\n", action, version, dirtySuffix(dirty))
	return nil
}

func printMigrationStatus(out io.Writer, m SchemaMigrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	applied, err := m.Applied()
	if err != nil {
		return err
	}
	pending, err := m.Pending()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Version: %d%s\n", version, dirtySuffix(dirty))
	_, _ = fmt.Fprintln(out, "Applied:")
	for _, mig := range applied {
		_, _ = fmt.Fprintf(out, "  %s\n", mig)
	}
	_, _ = fmt.Fprintln(out, "Pending:")
	if len(pending) == 0 {
		_, _ = fmt.Fprintln(out, "  (none)")
	}
	for _, mig := range pending {
		_, _ = fmt.Fprintf(out, "  %s\n", mig)
	}
	return nil
}

func dirtySuffix(dirty bool) string {
	if dirty {
		return " (dirty)"
	}
	return ""
}
