// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wpikzbior/wpikzbior/internal/store"
)

// SchemaMigrator is the part of *store.Migrator the commands use.
type SchemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
	Pending() ([]store.Migration, error)
	Applied() ([]store.Migration, error)
	Close() error
}

// Deps contains injectable dependencies shared by the commands.
// All fields with nil values use their default implementations.
type Deps struct {
	// Connect opens the database pool.
	// Default: store.Connect
	Connect func(ctx context.Context, url string, timeout time.Duration) (*pgxpool.Pool, error)

	// NewMigrator creates a schema migrator.
	// Default: store.NewMigrator
	NewMigrator func(url string) (SchemaMigrator, error)
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.Connect == nil {
		out.Connect = store.Connect
	}
	if out.NewMigrator == nil {
		out.NewMigrator = func(url string) (SchemaMigrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return &out
}
