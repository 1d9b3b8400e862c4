// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a create collides with a unique key.
var ErrAlreadyExists = errors.New("already exists")

// Error codes shared between the auth package and its callers.
const (
	CodeInvalidHash        = "AUTH_INVALID_HASH"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeMalformed          = "AUTH_MALFORMED_CREDENTIALS"
	CodeInternal           = "AUTH_INTERNAL"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUserExists         = "USER_EXISTS"
)

// IsMalformedHash reports whether err was produced by parsing a stored hash
// that is not a valid argon2id encoding.
func IsMalformedHash(err error) bool {
	return hasCode(err, CodeInvalidHash)
}

func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	c, ok := oopsErr.Code().(string)
	return ok && c == code
}
