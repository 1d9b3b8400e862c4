// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

// Package web serves the panel endpoints over gin.
//
// Routes:
//
//	GET  /live      liveness text
//	POST /login     form login, sets the session cookie
//	POST /logout    revokes the session and clears the cookie
//	GET  /api/me    the authenticated user as JSON
//	GET  /panel     panel state as JSON
//
// Every request gets an X-Request-Id and one access log line. Requests to
// /api/me and /panel are authenticated once by the Authenticate middleware.
package web
