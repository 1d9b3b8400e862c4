// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

// Package provision creates the records a fresh deployment needs.
package provision

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/wpikzbior/wpikzbior/internal/auth"
)

// EnsureAdmin makes sure the built-in admin account exists.
//
// When the account is created, its generated password is returned once and
// created is true; the caller must show it to the operator. An existing
// account, including one inserted concurrently by another process, yields
// ("", false, nil).
func EnsureAdmin(ctx context.Context, users auth.UserRepository, hasher auth.PasswordHasher, logger *slog.Logger) (password string, created bool, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	existing, err := users.GetByID(ctx, auth.AdminID)
	switch {
	case err == nil:
		if existing.Handle != auth.AdminHandle {
			logger.WarnContext(ctx, "admin account handle differs from default",
				"expected", auth.AdminHandle,
				"actual", existing.Handle)
		}
		logger.DebugContext(ctx, "admin account already provisioned")
		return "", false, nil
	case !errors.Is(err, auth.ErrNotFound):
		return "", false, oops.Code("PROVISION_FAILED").With("operation", "look up admin").Wrap(err)
	}

	password, err = auth.GenerateToken()
	if err != nil {
		return "", false, oops.Code("PROVISION_FAILED").With("operation", "generate admin password").Wrap(err)
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return "", false, oops.Code("PROVISION_FAILED").With("operation", "hash admin password").Wrap(err)
	}

	admin := &auth.User{ID: auth.AdminID, Handle: auth.AdminHandle, PasswordHash: hash}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			logger.InfoContext(ctx, "admin account provisioned concurrently, skipping")
			return "", false, nil
		}
		return "", false, oops.Code("PROVISION_FAILED").With("operation", "create admin").Wrap(err)
	}

	logger.InfoContext(ctx, "created admin account", "user_id", auth.AdminID.String())
	return password, true, nil
}
