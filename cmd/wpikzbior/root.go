// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wpikzbior/wpikzbior/internal/config"
	"github.com/wpikzbior/wpikzbior/internal/logging"
)

const serviceName = "wpikzbior"

// NewRootCmd creates the root command for the wpikzbior CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wpikzbior",
		Short: "wpikzbior - fundraising panel server",
		Long: `wpikzbior serves the fundraising panel: password login, cookie and
bearer sessions, and the built-in admin account, backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(nil))
	cmd.AddCommand(NewMigrateCmd(nil))
	cmd.AddCommand(NewBootstrapCmd(nil))

	return cmd
}

// loadConfig reads the configuration for cmd and installs the default
// logger it describes.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.LoadOptions{Flags: cmd.Flags()})
	if err != nil {
		return nil, nil, oops.With("operation", "load config").Wrap(err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Setup(serviceName, version, cfg.LogFormat, level, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}
