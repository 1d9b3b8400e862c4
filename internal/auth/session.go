// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// SessionLifetime is how long a new session stays valid.
const SessionLifetime = 30 * 24 * time.Hour

// Session represents one authenticated client continuity.
// ID is never sent to the client; Token is.
type Session struct {
	ID         uuid.UUID
	Token      string
	UserID     uuid.UUID
	Expiry     time.Time
	LastAccess time.Time
	Revoked    bool
	RevokedAt  *time.Time
}

// NewSession creates a validated, unrevoked Session issued at now.
func NewSession(userID uuid.UUID, token string, now time.Time, lifetime time.Duration) (*Session, error) {
	if userID == uuid.Nil {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be nil")
	}
	if token == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("token cannot be empty")
	}
	if lifetime <= 0 {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").With("lifetime", lifetime).Errorf("lifetime must be positive")
	}

	id, err := newSessionID(now)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:         id,
		Token:      token,
		UserID:     userID,
		Expiry:     now.Add(lifetime),
		LastAccess: now,
	}, nil
}

// newSessionID returns a UUIDv7 whose timestamp is now rather than the
// wall clock, so Issued agrees with the injected clock.
func newSessionID(now time.Time) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, oops.Code("SESSION_ID_GENERATE_FAILED").Wrap(err)
	}
	var ms [8]byte
	binary.BigEndian.PutUint64(ms[:], uint64(now.UnixMilli()))
	copy(id[0:6], ms[2:8])
	return id, nil
}

// IsValidAt reports whether the session is usable at t.
func (s *Session) IsValidAt(t time.Time) bool {
	return !s.Revoked && t.Before(s.Expiry)
}

// IsValid reports whether the session is usable now.
func (s *Session) IsValid() bool {
	return s.IsValidAt(time.Now())
}

// Issued returns the creation instant encoded in the session ID.
func (s *Session) Issued() time.Time {
	var ms [8]byte
	copy(ms[2:8], s.ID[0:6])
	return time.UnixMilli(int64(binary.BigEndian.Uint64(ms[:]))).UTC()
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session in a single statement.
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// GetByToken retrieves the session whose token matches exactly.
	GetByToken(ctx context.Context, token string) (*Session, error)

	// Revoke sets revoked and revoked_at together. Already revoked
	// sessions keep their original revoked_at.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error

	// TouchLastAccess updates last_access.
	TouchLastAccess(ctx context.Context, id uuid.UUID, at time.Time) error
}
