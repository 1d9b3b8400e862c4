// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	"github.com/wpikzbior/wpikzbior/internal/auth/postgres"
	"github.com/wpikzbior/wpikzbior/internal/config"
	"github.com/wpikzbior/wpikzbior/internal/observability"
	"github.com/wpikzbior/wpikzbior/internal/web"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Connects to PostgreSQL, applies migrations when auto-migrate is on,
ensures the admin account exists, and serves the panel until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg, logger, deps.withDefaults())
		},
	}
}

// runServe runs the server until ctx is cancelled or a server fails.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, deps *Deps) error {
	logger.InfoContext(ctx, "starting wpikzbior",
		"listen_addr", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsAddr,
		"version", version)

	pool, err := deps.Connect(ctx, cfg.DatabaseURL, cfg.ConnectTimeout)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.InfoContext(ctx, "connected to database")

	if cfg.AutoMigrate {
		if err := applyMigrations(deps, cfg.DatabaseURL); err != nil {
			return err
		}
		logger.InfoContext(ctx, "database schema is current")
	}

	users := postgres.NewUserRepository(pool)
	hasher := auth.NewArgon2idHasher()
	if err := runBootstrap(ctx, cmd.OutOrStdout(), users, hasher, logger); err != nil {
		return err
	}

	sessions, err := auth.NewSessionService(postgres.NewSessionRepository(pool),
		auth.WithLifetime(cfg.SessionLifetime),
		auth.WithSessionLogger(logger))
	if err != nil {
		return err
	}
	authn, err := auth.NewAuthenticator(users, sessions, hasher,
		auth.WithAuthenticatorLogger(logger),
		auth.WithTouch(cfg.TouchLastAccess))
	if err != nil {
		return err
	}
	svc, err := auth.NewAuthServiceWithLogger(users, sessions, hasher, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		obsServer *observability.Server
		metrics   *observability.Metrics
	)
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, observability.PingReadiness(pool))
		metrics = obsServer.Metrics()
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := web.NewRouter(web.Deps{
		Authenticator: authn,
		Service:       svc,
		Metrics:       metrics,
		Logger:        logger,
		SecureCookies: cfg.SecureCookies,
		CookieMaxAge:  cfg.SessionLifetime,
	})
	if err != nil {
		stopServers(cfg, logger, obsServer, nil)
		return err
	}
	webServer := web.NewServer(cfg.ListenAddr, router)
	webErrCh, err := webServer.Start()
	if err != nil {
		stopServers(cfg, logger, obsServer, nil)
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", webServer.Addr())
	logger.InfoContext(ctx, "wpikzbior ready", "addr", webServer.Addr())

	<-ctx.Done()
	logger.Info("shutting down...")
	stopServers(cfg, logger, obsServer, webServer)
	authn.Wait()
	logger.Info("shutdown complete")
	return nil
}

// stopServers stops the web server before the observability server so
// readiness stays up while requests drain. Either server may be nil.
func stopServers(cfg *config.Config, logger *slog.Logger, obs *observability.Server, webSrv *web.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if webSrv != nil {
		if err := webSrv.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping web server", "error", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
}

// monitorServerErrors cancels ctx when a server reports a serve error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
