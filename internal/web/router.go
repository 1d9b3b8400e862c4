// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package web

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	"github.com/wpikzbior/wpikzbior/internal/observability"
)

// Deps are the collaborators of the web surface.
type Deps struct {
	Authenticator *auth.Authenticator
	Service       *auth.Service
	// Metrics may be nil.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// SecureCookies adds the Secure attribute to the session cookie.
	SecureCookies bool
	// CookieMaxAge defaults to auth.SessionLifetime.
	CookieMaxAge time.Duration
}

type handlers struct {
	service       *auth.Service
	metrics       *observability.Metrics
	logger        *slog.Logger
	secureCookies bool
	cookieMaxAge  time.Duration
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Authenticator == nil {
		return nil, oops.Code("WEB_INVALID").Errorf("authenticator is required")
	}
	if deps.Service == nil {
		return nil, oops.Code("WEB_INVALID").Errorf("auth service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{
		service:       deps.Service,
		metrics:       deps.Metrics,
		logger:        logger,
		secureCookies: deps.SecureCookies,
		cookieMaxAge:  deps.CookieMaxAge,
	}

	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger, deps.Metrics), Recovery(logger))

	r.GET("/live", h.live)
	r.POST("/login", h.login)
	r.POST("/logout", h.logout)

	authed := r.Group("/", Authenticate(deps.Authenticator, deps.Metrics, logger))
	authed.GET("/api/me", h.me)
	authed.GET("/panel", h.panel)

	return r, nil
}
