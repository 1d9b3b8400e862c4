// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service provides the login and logout flows used by the panel.
type Service struct {
	users    UserRepository
	sessions *SessionService
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewAuthService creates a new Service using the default logger.
func NewAuthService(users UserRepository, sessions *SessionService, hasher PasswordHasher) (*Service, error) {
	return NewAuthServiceWithLogger(users, sessions, hasher, slog.Default())
}

// NewAuthServiceWithLogger creates a new Service with a custom logger.
func NewAuthServiceWithLogger(users UserRepository, sessions *SessionService, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session service is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// Login checks a handle and password and issues a session.
// Returns the user and the plaintext session token.
func (s *Service) Login(ctx context.Context, handle, password string) (*User, string, error) {
	user, lookupErr := s.users.GetByHandle(ctx, handle)

	targetHash := dummyPasswordHash
	exists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		exists = true
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by handle").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return nil, "", oops.Code(CodeInvalidCredentials).Errorf("invalid handle or password")
		}
		if IsMalformedHash(verifyErr) {
			// Logged once by the caller.
			return nil, "", oops.With("user_id", user.ID.String()).Wrap(verifyErr)
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !exists || !valid {
		return nil, "", oops.Code(CodeInvalidCredentials).Errorf("invalid handle or password")
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return user, token, nil
}

// Logout revokes the session behind token. Unknown or empty tokens are
// not an error; the client is logged out either way.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	if session.Revoked {
		return nil
	}
	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}
