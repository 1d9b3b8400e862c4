// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

//go:build integration

package auth_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wpikzbior/wpikzbior/internal/auth"
	authpg "github.com/wpikzbior/wpikzbior/internal/auth/postgres"
	"github.com/wpikzbior/wpikzbior/internal/provision"
	"github.com/wpikzbior/wpikzbior/internal/store"
)

// fakeClock is a settable clock shared by session services.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func basicHeader(handle, password string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(handle+":"+password)))
	return h
}

var _ = Describe("Authentication against PostgreSQL", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		pool      *pgxpool.Pool
		users     *authpg.UserRepository
		sessions  *authpg.SessionRepository
		hasher    *auth.Argon2idHasher
		clock     *fakeClock
		svc       *auth.Service
		authn     *auth.Authenticator
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

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(ctx, connStr, 30*time.Second)
		Expect(err).NotTo(HaveOccurred())

		users = authpg.NewUserRepository(pool)
		sessions = authpg.NewSessionRepository(pool)
		hasher, err = auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
		Expect(err).NotTo(HaveOccurred())

		clock = &fakeClock{now: time.Now().UTC()}
		sessionSvc, err := auth.NewSessionService(sessions, auth.WithClock(clock.Now))
		Expect(err).NotTo(HaveOccurred())
		svc, err = auth.NewAuthService(users, sessionSvc, hasher)
		Expect(err).NotTo(HaveOccurred())
		authn, err = auth.NewAuthenticator(users, sessionSvc, hasher)
		Expect(err).NotTo(HaveOccurred())

		hash, err := hasher.Hash("p@ss")
		Expect(err).NotTo(HaveOccurred())
		alice, err := auth.NewUser("alice", hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, alice)).To(Succeed())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	It("authenticates a Basic credential", func() {
		res := authn.Authenticate(ctx, basicHeader("alice", "p@ss"))
		Expect(res.Outcome).To(Equal(auth.OutcomeAuthenticated))
		Expect(res.User.Handle).To(Equal("alice"))
	})

	It("rejects a wrong Basic password as invalid", func() {
		res := authn.Authenticate(ctx, basicHeader("alice", "nope"))
		Expect(res.Outcome).To(Equal(auth.OutcomeInvalid))
	})

	It("accepts a session cookie until the session expires", func() {
		user, token, err := svc.Login(ctx, "alice", "p@ss")
		Expect(err).NotTo(HaveOccurred())
		Expect(user.Handle).To(Equal("alice"))
		Expect(token).To(HaveLen(auth.TokenLength))

		h := http.Header{}
		h.Set("Cookie", auth.CookieName+"="+token)

		res := authn.Authenticate(ctx, h)
		Expect(res.Outcome).To(Equal(auth.OutcomeAuthenticated))
		Expect(res.User.ID).To(Equal(user.ID))
		Expect(res.Via).To(Equal(auth.CredentialBearer))

		clock.Advance(auth.SessionLifetime + time.Second)
		DeferCleanup(func() { clock.Advance(-(auth.SessionLifetime + time.Second)) })

		res = authn.Authenticate(ctx, h)
		Expect(res.Outcome).To(Equal(auth.OutcomeInvalid))
	})

	It("rejects a revoked session", func() {
		_, token, err := svc.Login(ctx, "alice", "p@ss")
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.Logout(ctx, token)).To(Succeed())

		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		Expect(authn.Authenticate(ctx, h).Outcome).To(Equal(auth.OutcomeInvalid))

		session, err := sessions.GetByToken(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Revoked).To(BeTrue())
		Expect(session.RevokedAt).NotTo(BeNil())
	})

	It("classifies a malformed Basic payload as malformed", func() {
		h := http.Header{}
		h.Set("Authorization", "Basic not-base64!!")
		Expect(authn.Authenticate(ctx, h).Outcome).To(Equal(auth.OutcomeMalformed))
	})

	It("treats a token that was never issued as invalid", func() {
		token, err := auth.GenerateToken()
		Expect(err).NotTo(HaveOccurred())

		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		res := authn.Authenticate(ctx, h)
		Expect(res.Outcome).To(Equal(auth.OutcomeInvalid))
	})

	It("provisions the admin once", func() {
		password, created, err := provision.EnsureAdmin(ctx, users, hasher, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())

		res := authn.Authenticate(ctx, basicHeader(auth.AdminHandle, password))
		Expect(res.Outcome).To(Equal(auth.OutcomeAuthenticated))
		Expect(res.User.ID).To(Equal(uuid.Max))
		Expect(res.User.IsAdmin()).To(BeTrue())

		_, created, err = provision.EnsureAdmin(ctx, users, hasher, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeFalse())
	})

	It("rejects a second user with the same handle", func() {
		hash, err := hasher.Hash("other")
		Expect(err).NotTo(HaveOccurred())
		dup, err := auth.NewUser("alice", hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, dup)).To(MatchError(auth.ErrAlreadyExists))
	})
})
