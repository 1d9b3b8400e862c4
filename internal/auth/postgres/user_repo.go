// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wpikzbior/wpikzbior/internal/auth"
)

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository. pool is usually a
// *pgxpool.Pool.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user. A duplicate id or handle returns
// auth.ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, handle, passhash)
		VALUES ($1, $2, $3)
	`, user.ID.String(), user.Handle, user.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code(auth.CodeUserExists).
				With("id", user.ID.String()).
				With("handle", user.Handle).
				Wrap(errors.Join(auth.ErrAlreadyExists, err))
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("handle", user.Handle).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, handle, passhash
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeUserNotFound).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByHandle retrieves a user by exact handle.
func (r *UserRepository) GetByHandle(ctx context.Context, handle string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, handle, passhash
		FROM users
		WHERE handle = $1
	`, handle)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeUserNotFound).
			With("handle", handle).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_HANDLE_FAILED").
			With("operation", "get user by handle").
			Wrap(err)
	}
	return user, nil
}

// scanUser scans a single row into a User. Scan errors, pgx.ErrNoRows
// included, are returned unwrapped for the caller to classify.
func scanUser(row pgx.Row) (*auth.User, error) {
	var idStr, handle, passhash string
	if err := row.Scan(&idStr, &handle, &passhash); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with lookup context
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	return &auth.User{ID: id, Handle: handle, PasswordHash: passhash}, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
