// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wpikzbior/wpikzbior/internal/auth"
)

const cookiePath = "/"

// SetSessionCookie stores token in the session cookie for maxAge.
// A non-positive maxAge uses auth.SessionLifetime.
func SetSessionCookie(c *gin.Context, token string, maxAge time.Duration, secure bool) {
	if maxAge <= 0 {
		maxAge = auth.SessionLifetime
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(maxAge/time.Second), cookiePath, "", secure, true)
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	// A negative MaxAge is written as Max-Age=0.
	c.SetCookie(auth.CookieName, "", -1, cookiePath, "", secure, true)
}
