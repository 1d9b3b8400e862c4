// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// SessionService owns the session lifecycle.
type SessionService struct {
	repo     SessionRepository
	clock    func() time.Time
	lifetime time.Duration
	newToken func() (string, error)
	logger   *slog.Logger
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *SessionService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLifetime overrides SessionLifetime.
func WithLifetime(d time.Duration) SessionOption {
	return func(s *SessionService) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

// WithSessionLogger sets the logger used for best-effort failures.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *SessionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// withTokenSource replaces the token generator. Tests only.
func withTokenSource(fn func() (string, error)) SessionOption {
	return func(s *SessionService) { s.newToken = fn }
}

// NewSessionService creates a SessionService.
func NewSessionService(repo SessionRepository, opts ...SessionOption) (*SessionService, error) {
	if repo == nil {
		return nil, oops.Code("SESSION_SERVICE_INVALID").Errorf("session repository is required")
	}
	s := &SessionService{
		repo:     repo,
		clock:    time.Now,
		lifetime: SessionLifetime,
		newToken: GenerateToken,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Now returns the service clock's current time.
func (s *SessionService) Now() time.Time {
	return s.clock()
}

// Create issues a new session for userID and returns its token.
// Nothing is persisted unless the whole row is written.
func (s *SessionService) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := s.newToken()
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").With("operation", "generate token").Wrap(err)
	}

	session, err := NewSession(userID, token, s.clock(), s.lifetime)
	if err != nil {
		return "", oops.With("operation", "build session").Wrap(err)
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return token, nil
}

// GetByToken returns the session with exactly this token.
// A miss is reported as ErrNotFound.
func (s *SessionService) GetByToken(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code(CodeSessionNotFound).Wrap(ErrNotFound)
	}
	session, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, oops.With("operation", "get session by token").Wrap(err)
	}
	return session, nil
}

// GetByID returns the session with this ID.
func (s *SessionService) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "get session by id").With("session_id", id.String()).Wrap(err)
	}
	return session, nil
}

// IsValid evaluates session validity against the service clock.
func (s *SessionService) IsValid(session *Session) bool {
	return session != nil && session.IsValidAt(s.clock())
}

// Revoke invalidates a session before its expiry.
func (s *SessionService) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Revoke(ctx, id, s.clock()); err != nil {
		return oops.With("operation", "revoke session").With("session_id", id.String()).Wrap(err)
	}
	return nil
}

// Touch records a successful use of the session. Failures are logged and
// never returned.
func (s *SessionService) Touch(ctx context.Context, id uuid.UUID) {
	if err := s.repo.TouchLastAccess(ctx, id, s.clock()); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.DebugContext(ctx, "failed to update session last_access",
			"session_id", id.String(),
			"error", err)
	}
}
