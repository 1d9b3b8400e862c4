// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	"github.com/wpikzbior/wpikzbior/internal/auth/postgres"
)

func createTestUser(ctx context.Context, t *testing.T, handle string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(handle, "$argon2id$placeholder")
	require.NoError(t, err)
	require.NoError(t, postgres.NewUserRepository(testPool).Create(ctx, user))
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID.String())
	})
	return user
}

func TestUserRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)
	alice := createTestUser(ctx, t, "alice_it")

	t.Run("get by handle and id", func(t *testing.T) {
		byHandle, err := repo.GetByHandle(ctx, "alice_it")
		require.NoError(t, err)
		assert.Equal(t, alice, byHandle)

		byID, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice, byID)
	})

	t.Run("handle lookup is exact", func(t *testing.T) {
		_, err := repo.GetByHandle(ctx, "ALICE_IT")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("duplicate handle", func(t *testing.T) {
		dup, err := auth.NewUser("alice_it", "$argon2id$other")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), auth.ErrAlreadyExists)
	})

	t.Run("admin sentinel id round trips", func(t *testing.T) {
		admin := &auth.User{ID: auth.AdminID, Handle: "admin_it", PasswordHash: "$argon2id$admin"}
		require.NoError(t, repo.Create(ctx, admin))
		t.Cleanup(func() {
			_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, auth.AdminID.String())
		})

		got, err := repo.GetByID(ctx, auth.AdminID)
		require.NoError(t, err)
		assert.True(t, got.IsAdmin())
		assert.ErrorIs(t, repo.Create(ctx, admin), auth.ErrAlreadyExists)
	})
}

func TestSessionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	user := createTestUser(ctx, t, "session_it")

	now := time.Now().UTC().Truncate(time.Millisecond)
	token, err := auth.GenerateToken()
	require.NoError(t, err)
	session, err := auth.NewSession(user.ID, token, now, auth.SessionLifetime)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, session))

	t.Run("round trips every column", func(t *testing.T) {
		got, err := repo.GetByToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, user.ID, got.UserID)
		assert.True(t, session.Expiry.Equal(got.Expiry))
		assert.True(t, session.LastAccess.Equal(got.LastAccess))
		assert.False(t, got.Revoked)
		assert.Nil(t, got.RevokedAt)
		assert.Equal(t, now, got.Issued())
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := repo.GetByToken(ctx, "ZZZZZZZZZZZZZZZZ")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("touch", func(t *testing.T) {
		later := now.Add(time.Hour)
		require.NoError(t, repo.TouchLastAccess(ctx, session.ID, later))
		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, later.Equal(got.LastAccess))
	})

	t.Run("revoke keeps first timestamp", func(t *testing.T) {
		first := now.Add(2 * time.Hour)
		require.NoError(t, repo.Revoke(ctx, session.ID, first))
		require.NoError(t, repo.Revoke(ctx, session.ID, first.Add(time.Hour)))

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, got.Revoked)
		require.NotNil(t, got.RevokedAt)
		assert.True(t, first.Equal(*got.RevokedAt))
	})

	t.Run("revoke unknown", func(t *testing.T) {
		err := repo.Revoke(ctx, uuid.Must(uuid.NewV7()), now)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("sessions go with their user", func(t *testing.T) {
		other := createTestUser(ctx, t, "cascade_it")
		tok, err := auth.GenerateToken()
		require.NoError(t, err)
		s, err := auth.NewSession(other.ID, tok, now, auth.SessionLifetime)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, s))

		_, err = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, other.ID.String())
		require.NoError(t, err)
		_, err = repo.GetByID(ctx, s.ID)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
