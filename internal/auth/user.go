// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// AdminID is the reserved identifier of the built-in administrative account.
var AdminID = uuid.UUID{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// AdminHandle is the handle of the built-in administrative account.
const AdminHandle = "admin"

// MaxHandleLength bounds user handles in characters.
const MaxHandleLength = 64

// User is an identity record.
type User struct {
	ID     uuid.UUID `json:"id"`
	Handle string    `json:"handle"`

	// PasswordHash is the stored credential record. Never serialized.
	PasswordHash string `json:"-"`
}

// NewUser creates a validated User with a fresh time-ordered ID.
func NewUser(handle, passwordHash string) (*User, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").Errorf("password hash cannot be empty")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, oops.Code("USER_ID_GENERATE_FAILED").Wrap(err)
	}
	return &User{ID: id, Handle: handle, PasswordHash: passwordHash}, nil
}

// IsAdmin reports whether u is the built-in administrative account.
func (u *User) IsAdmin() bool {
	return u.ID == AdminID
}

// ValidateHandle checks a handle can be used as the username half of
// Basic credentials.
func ValidateHandle(handle string) error {
	if handle == "" {
		return oops.Code("AUTH_INVALID_HANDLE").Errorf("handle cannot be empty")
	}
	if !utf8.ValidString(handle) {
		return oops.Code("AUTH_INVALID_HANDLE").Errorf("handle must be valid UTF-8")
	}
	if utf8.RuneCountInString(handle) > MaxHandleLength {
		return oops.Code("AUTH_INVALID_HANDLE").
			With("max", MaxHandleLength).
			Errorf("handle must be at most %d characters", MaxHandleLength)
	}
	// Basic credentials split on the first colon.
	if strings.ContainsRune(handle, ':') {
		return oops.Code("AUTH_INVALID_HANDLE").Errorf("handle cannot contain ':'")
	}
	if strings.TrimSpace(handle) != handle {
		return oops.Code("AUTH_INVALID_HANDLE").Errorf("handle cannot start or end with whitespace")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByHandle retrieves a user and its password hash by exact handle.
	GetByHandle(ctx context.Context, handle string) (*User, error)
}
