// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package web

import (
	"net/http"

	"github.com/wpikzbior/wpikzbior/internal/auth"
)

// StatusFor maps an authentication outcome to the HTTP status of an
// endpoint that reports it.
func StatusFor(o auth.Outcome) int {
	switch o {
	case auth.OutcomeAnonymous, auth.OutcomeAuthenticated:
		return http.StatusOK
	case auth.OutcomeMalformed:
		return http.StatusBadRequest
	case auth.OutcomeInvalid:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
