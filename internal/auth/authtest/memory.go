// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

// Package authtest provides in-memory repositories for auth tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/wpikzbior/wpikzbior/internal/auth"
)

// Users is an in-memory auth.UserRepository.
// Setting an Err field makes the matching method fail with it.
type Users struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]auth.User
	byHandle map[string]uuid.UUID

	CreateErr      error
	GetByIDErr     error
	GetByHandleErr error
}

// NewUsers creates an empty Users store seeded with the given users.
func NewUsers(users ...*auth.User) *Users {
	u := &Users{
		byID:     make(map[uuid.UUID]auth.User),
		byHandle: make(map[string]uuid.UUID),
	}
	for _, user := range users {
		u.put(user)
	}
	return u
}

func (u *Users) put(user *auth.User) {
	u.byID[user.ID] = *user
	u.byHandle[user.Handle] = user.ID
}

// Create stores a user. Duplicate IDs or handles fail with auth.ErrAlreadyExists.
func (u *Users) Create(_ context.Context, user *auth.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.CreateErr != nil {
		return u.CreateErr
	}
	if _, ok := u.byID[user.ID]; ok {
		return oops.Code(auth.CodeUserExists).With("id", user.ID.String()).Wrap(auth.ErrAlreadyExists)
	}
	if _, ok := u.byHandle[user.Handle]; ok {
		return oops.Code(auth.CodeUserExists).With("handle", user.Handle).Wrap(auth.ErrAlreadyExists)
	}
	u.put(user)
	return nil
}

// GetByID returns a copy of the user with this ID.
func (u *Users) GetByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.GetByIDErr != nil {
		return nil, u.GetByIDErr
	}
	user, ok := u.byID[id]
	if !ok {
		return nil, oops.Code(auth.CodeUserNotFound).With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &user, nil
}

// GetByHandle returns a copy of the user with this handle.
func (u *Users) GetByHandle(_ context.Context, handle string) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.GetByHandleErr != nil {
		return nil, u.GetByHandleErr
	}
	id, ok := u.byHandle[handle]
	if !ok {
		return nil, oops.Code(auth.CodeUserNotFound).Wrap(auth.ErrNotFound)
	}
	user := u.byID[id]
	return &user, nil
}

// Sessions is an in-memory auth.SessionRepository.
type Sessions struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]auth.Session
	byToken map[string]uuid.UUID
	touches int

	CreateErr     error
	GetByIDErr    error
	GetByTokenErr error
	RevokeErr     error
	TouchErr      error

	// TouchGate, when set, holds TouchLastAccess until it is closed or
	// the context ends.
	TouchGate chan struct{}
}

// NewSessions creates an empty Sessions store.
func NewSessions() *Sessions {
	return &Sessions{
		byID:    make(map[uuid.UUID]auth.Session),
		byToken: make(map[string]uuid.UUID),
	}
}

// Create stores a session. Duplicate IDs or tokens fail.
func (s *Sessions) Create(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if _, ok := s.byID[session.ID]; ok {
		return oops.Code("SESSION_EXISTS").Errorf("duplicate session id")
	}
	if _, ok := s.byToken[session.Token]; ok {
		return oops.Code("SESSION_EXISTS").Errorf("duplicate session token")
	}
	s.byID[session.ID] = *session
	s.byToken[session.Token] = session.ID
	return nil
}

// GetByID returns a copy of the session with this ID.
func (s *Sessions) GetByID(_ context.Context, id uuid.UUID) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetByIDErr != nil {
		return nil, s.GetByIDErr
	}
	session, ok := s.byID[id]
	if !ok {
		return nil, oops.Code(auth.CodeSessionNotFound).Wrap(auth.ErrNotFound)
	}
	return &session, nil
}

// GetByToken returns a copy of the session with exactly this token.
func (s *Sessions) GetByToken(_ context.Context, token string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetByTokenErr != nil {
		return nil, s.GetByTokenErr
	}
	id, ok := s.byToken[token]
	if !ok {
		return nil, oops.Code(auth.CodeSessionNotFound).Wrap(auth.ErrNotFound)
	}
	session := s.byID[id]
	return &session, nil
}

// Revoke marks a session revoked, keeping the first revoked_at.
func (s *Sessions) Revoke(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RevokeErr != nil {
		return s.RevokeErr
	}
	session, ok := s.byID[id]
	if !ok {
		return oops.Code(auth.CodeSessionNotFound).Wrap(auth.ErrNotFound)
	}
	if !session.Revoked {
		session.Revoked = true
		session.RevokedAt = &at
		s.byID[id] = session
	}
	return nil
}

// TouchLastAccess updates last_access.
func (s *Sessions) TouchLastAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.TouchGate != nil {
		select {
		case <-s.TouchGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TouchErr != nil {
		return s.TouchErr
	}
	session, ok := s.byID[id]
	if !ok {
		return oops.Code(auth.CodeSessionNotFound).Wrap(auth.ErrNotFound)
	}
	session.LastAccess = at
	s.byID[id] = session
	s.touches++
	return nil
}

// Touches returns the number of successful TouchLastAccess calls.
func (s *Sessions) Touches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touches
}

// Len returns the number of stored sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

var (
	_ auth.UserRepository    = (*Users)(nil)
	_ auth.SessionRepository = (*Sessions)(nil)
)
