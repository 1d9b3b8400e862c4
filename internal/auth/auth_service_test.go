// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	"github.com/wpikzbior/wpikzbior/internal/auth/authtest"
	"github.com/wpikzbior/wpikzbior/pkg/errutil"
)

// mockHasher is a testify mock of auth.PasswordHasher.
type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func TestNewAuthService_NilDependencies(t *testing.T) {
	sessions, err := auth.NewSessionService(authtest.NewSessions())
	require.NoError(t, err)

	tests := []struct {
		name        string
		users       auth.UserRepository
		sessions    *auth.SessionService
		hasher      auth.PasswordHasher
		expectError string
	}{
		{"nil users repository", nil, sessions, &mockHasher{}, "users repository is required"},
		{"nil session service", authtest.NewUsers(), nil, &mockHasher{}, "session service is required"},
		{"nil password hasher", authtest.NewUsers(), sessions, nil, "password hasher is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewAuthService(tt.users, tt.sessions, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewAuthServiceWithLogger_NilLogger(t *testing.T) {
	sessions, err := auth.NewSessionService(authtest.NewSessions())
	require.NoError(t, err)

	svc, err := auth.NewAuthServiceWithLogger(authtest.NewUsers(), sessions, &mockHasher{}, nil)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "logger")
}

type loginFixture struct {
	users    *authtest.Users
	sessions *authtest.Sessions
	svc      *auth.SessionService
	authSvc  *auth.Service
	logs     *bytes.Buffer
}

func newLoginFixture(t *testing.T, hasher auth.PasswordHasher) *loginFixture {
	t.Helper()
	f := &loginFixture{
		users:    authtest.NewUsers(),
		sessions: authtest.NewSessions(),
		logs:     &bytes.Buffer{},
	}
	var err error
	f.svc, err = auth.NewSessionService(f.sessions)
	require.NoError(t, err)
	logger := slog.New(slog.NewJSONHandler(f.logs, nil))
	f.authSvc, err = auth.NewAuthServiceWithLogger(f.users, f.svc, hasher, logger)
	require.NoError(t, err)
	return f
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login creates session", func(t *testing.T) {
		hasher := cheapHasher(t)
		f := newLoginFixture(t, hasher)
		hash, err := hasher.Hash("p@ss")
		require.NoError(t, err)
		alice, err := auth.NewUser("alice", hash)
		require.NoError(t, err)
		require.NoError(t, f.users.Create(ctx, alice))

		user, token, err := f.authSvc.Login(ctx, "alice", "p@ss")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, user.ID)
		assert.Len(t, token, auth.TokenLength)

		session, err := f.svc.GetByToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, session.UserID)
		assert.True(t, f.svc.IsValid(session))
	})

	t.Run("wrong password", func(t *testing.T) {
		hasher := &mockHasher{}
		f := newLoginFixture(t, hasher)
		alice, err := auth.NewUser("alice", "$argon2id$stored")
		require.NoError(t, err)
		require.NoError(t, f.users.Create(ctx, alice))
		hasher.On("Verify", "wrong", "$argon2id$stored").Return(false, nil)

		user, token, err := f.authSvc.Login(ctx, "alice", "wrong")
		require.Error(t, err)
		assert.Nil(t, user)
		assert.Empty(t, token)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
		assert.Equal(t, 0, f.sessions.Len())
		hasher.AssertExpectations(t)
	})

	t.Run("unknown handle still verifies against dummy hash", func(t *testing.T) {
		hasher := &mockHasher{}
		f := newLoginFixture(t, hasher)
		hasher.On("Verify", "p@ss", mock.MatchedBy(func(h string) bool {
			return strings.HasPrefix(h, "$argon2id$")
		})).Return(false, nil).Once()

		_, token, err := f.authSvc.Login(ctx, "nobody", "p@ss")
		require.Error(t, err)
		assert.Empty(t, token)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
		hasher.AssertExpectations(t)
	})

	t.Run("unknown handle and wrong password are indistinguishable", func(t *testing.T) {
		hasher := cheapHasher(t)
		f := newLoginFixture(t, hasher)
		hash, err := hasher.Hash("p@ss")
		require.NoError(t, err)
		alice, err := auth.NewUser("alice", hash)
		require.NoError(t, err)
		require.NoError(t, f.users.Create(ctx, alice))

		_, _, unknownErr := f.authSvc.Login(ctx, "nobody", "p@ss")
		_, _, wrongErr := f.authSvc.Login(ctx, "alice", "nope")
		require.Error(t, unknownErr)
		require.Error(t, wrongErr)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})

	t.Run("malformed stored hash is returned unlogged", func(t *testing.T) {
		f := newLoginFixture(t, cheapHasher(t))
		carol, err := auth.NewUser("carol", "not-a-phc-string")
		require.NoError(t, err)
		require.NoError(t, f.users.Create(ctx, carol))

		_, token, err := f.authSvc.Login(ctx, "carol", "anything")
		require.Error(t, err)
		assert.Empty(t, token)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidHash)
		errutil.AssertErrorContext(t, err, "user_id", carol.ID.String())
		assert.Empty(t, f.logs.String())
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newLoginFixture(t, &mockHasher{})
		f.users.GetByHandleErr = errors.New("connection refused")

		_, _, err := f.authSvc.Login(ctx, "alice", "p@ss")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "get user by handle")
	})

	t.Run("hasher failure", func(t *testing.T) {
		hasher := &mockHasher{}
		f := newLoginFixture(t, hasher)
		alice, err := auth.NewUser("alice", "$argon2id$stored")
		require.NoError(t, err)
		require.NoError(t, f.users.Create(ctx, alice))
		hasher.On("Verify", "p@ss", "$argon2id$stored").Return(false, errors.New("out of memory"))

		_, _, err = f.authSvc.Login(ctx, "alice", "p@ss")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("session persistence failure returns no token", func(t *testing.T) {
		hasher := &mockHasher{}
		f := newLoginFixture(t, hasher)
		alice, err := auth.NewUser("alice", "$argon2id$stored")
		require.NoError(t, err)
		require.NoError(t, f.users.Create(ctx, alice))
		hasher.On("Verify", "p@ss", "$argon2id$stored").Return(true, nil)
		f.sessions.CreateErr = errors.New("disk full")

		user, token, err := f.authSvc.Login(ctx, "alice", "p@ss")
		require.Error(t, err)
		assert.Nil(t, user)
		assert.Empty(t, token)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes the session", func(t *testing.T) {
		f := newLoginFixture(t, &mockHasher{})
		alice, err := auth.NewUser("alice", "$argon2id$stored")
		require.NoError(t, err)
		token, err := f.svc.Create(ctx, alice.ID)
		require.NoError(t, err)

		require.NoError(t, f.authSvc.Logout(ctx, token))

		session, err := f.svc.GetByToken(ctx, token)
		require.NoError(t, err)
		assert.True(t, session.Revoked)
		assert.NotNil(t, session.RevokedAt)
		assert.False(t, f.svc.IsValid(session))
	})

	t.Run("second logout is a no-op", func(t *testing.T) {
		f := newLoginFixture(t, &mockHasher{})
		alice, err := auth.NewUser("alice", "$argon2id$stored")
		require.NoError(t, err)
		token, err := f.svc.Create(ctx, alice.ID)
		require.NoError(t, err)

		require.NoError(t, f.authSvc.Logout(ctx, token))
		f.sessions.RevokeErr = errors.New("must not be called")
		assert.NoError(t, f.authSvc.Logout(ctx, token))
	})

	t.Run("unknown and empty tokens are ignored", func(t *testing.T) {
		f := newLoginFixture(t, &mockHasher{})
		assert.NoError(t, f.authSvc.Logout(ctx, "0123456789ABCDEF"))
		assert.NoError(t, f.authSvc.Logout(ctx, ""))
	})

	t.Run("lookup failure", func(t *testing.T) {
		f := newLoginFixture(t, &mockHasher{})
		f.sessions.GetByTokenErr = errors.New("connection reset")

		err := f.authSvc.Logout(ctx, "0123456789ABCDEF")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGOUT_FAILED")
	})
}
