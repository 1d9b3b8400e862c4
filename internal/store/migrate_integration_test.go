//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wpikzbior/wpikzbior/internal/store"
)

var _ = Describe("Migrator against PostgreSQL", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("wpikzbior_test"),
			postgres.WithUsername("wpikzbior"),
			postgres.WithPassword("wpikzbior"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		pool, err = store.Connect(ctx, connStr, 30*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	tableExists := func(name string) bool {
		var exists bool
		err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+name).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		return exists
	}

	It("runs the full up, step and down cycle", func() {
		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = migrator.Close() }()

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(0)))
		Expect(dirty).To(BeFalse())

		Expect(migrator.Up()).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(tableExists("users")).To(BeTrue())
		Expect(tableExists("sessions")).To(BeTrue())

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())

		Expect(migrator.Steps(-1)).To(Succeed())
		Expect(tableExists("sessions")).To(BeFalse())
		Expect(tableExists("users")).To(BeTrue())

		Expect(migrator.Steps(1)).To(Succeed())
		Expect(tableExists("sessions")).To(BeTrue())

		Expect(migrator.Down()).To(Succeed())
		Expect(tableExists("users")).To(BeFalse())

		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed(), "second Up is a no-op")
	})

	It("rejects a revoked session without revoked_at", func() {
		_, err := pool.Exec(ctx, `INSERT INTO users (id, handle, passhash) VALUES ($1, 'check', 'x')`,
			"00000000-0000-7000-8000-000000000001")
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `
			INSERT INTO sessions (id, token, user_id, expiry, last_access, revoked, revoked_at)
			VALUES ($1, 'CHECKTOKEN000000', $2, NOW(), NOW(), TRUE, NULL)`,
			"00000000-0000-7000-8000-000000000002", "00000000-0000-7000-8000-000000000001")
		Expect(err).To(HaveOccurred())
	})
})
