// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package web

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	"github.com/wpikzbior/wpikzbior/internal/observability"
	"github.com/wpikzbior/wpikzbior/pkg/errutil"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

// maxRequestIDLen caps client-supplied request ids.
const maxRequestIDLen = 128

const (
	ctxKeyRequestID  = "request_id"
	ctxKeyAuthResult = "auth_result"
)

// Recovery turns a panic into a generic 500 and logs the stack.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxKeyRequestID),
			"error", recovered,
			"stack", string(debug.Stack()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(auth.Result{Outcome: auth.OutcomeInternalError}.PublicMessage()))
	})
}

// RequestID keeps a sane client-supplied X-Request-Id or assigns a ULID,
// and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = ulid.Make().String()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs one line per request and counts it.
func RequestLogger(logger *slog.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, status)

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", c.GetString(ctxKeyRequestID),
		}
		if res, ok := resultFrom(c); ok {
			args = append(args, "outcome", res.Outcome.String())
			if res.User != nil {
				args = append(args, "user_id", res.User.ID.String())
			}
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, "request completed", args...)
		case status >= http.StatusBadRequest:
			logger.WarnContext(ctx, "request completed", args...)
		default:
			logger.InfoContext(ctx, "request completed", args...)
		}
	}
}

// Authenticate runs the authenticator once and stores the Result for
// handlers. It never aborts; handlers decide what an outcome means.
func Authenticate(authn *auth.Authenticator, metrics *observability.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := authn.Authenticate(c.Request.Context(), c.Request.Header)
		metrics.RecordAuthOutcome(res.Outcome.String())
		if res.Outcome == auth.OutcomeInternalError {
			errutil.LogErrorContext(c.Request.Context(), logger, "authentication failed", res.Err,
				"request_id", c.GetString(ctxKeyRequestID))
		}
		c.Set(ctxKeyAuthResult, res)
		c.Next()
	}
}

// ResultFrom returns the Result stored by Authenticate. Requests that did
// not pass through Authenticate read as anonymous.
func ResultFrom(c *gin.Context) auth.Result {
	res, _ := resultFrom(c)
	return res
}

func resultFrom(c *gin.Context) (auth.Result, bool) {
	v, ok := c.Get(ctxKeyAuthResult)
	if !ok {
		return auth.Result{Outcome: auth.OutcomeAnonymous}, false
	}
	res, ok := v.(auth.Result)
	if !ok {
		return auth.Result{Outcome: auth.OutcomeAnonymous}, false
	}
	return res, true
}
