// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/wpikzbior/wpikzbior/pkg/errutil"
)

// Outcome classifies the result of authenticating a request.
type Outcome int

// Authentication outcomes.
const (
	// OutcomeAnonymous means no recognized credential was presented.
	OutcomeAnonymous Outcome = iota
	// OutcomeMalformed means a credential was presented but could not be parsed.
	OutcomeMalformed
	// OutcomeInvalid means a well-formed credential did not match.
	OutcomeInvalid
	// OutcomeAuthenticated means the request belongs to a known user.
	OutcomeAuthenticated
	// OutcomeInternalError means authentication could not be decided.
	OutcomeInternalError
)

// String implements fmt.Stringer. Values are used as metric labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeAnonymous:
		return "anonymous"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Result is what the Authenticator decided for one request.
// User is set only for OutcomeAuthenticated. Err is set for every outcome
// other than Anonymous and Authenticated and is meant for server logs only.
type Result struct {
	Outcome Outcome
	User    *User
	Err     error

	// Via is the credential kind that produced the outcome.
	Via CredentialKind
	// Session is the backing session when authenticated by bearer token.
	Session *Session
}

// PublicMessage returns the text that may be shown to the client.
func (r Result) PublicMessage() string {
	switch r.Outcome {
	case OutcomeInvalid:
		return "invalid credentials"
	case OutcomeMalformed:
		return "malformed credentials"
	case OutcomeInternalError:
		return "internal server error"
	default:
		return ""
	}
}

// Authenticator turns request headers into a Result.
type Authenticator struct {
	users    UserRepository
	sessions *SessionService
	hasher   PasswordHasher
	logger   *slog.Logger
	touch    bool
	touches  sync.WaitGroup
}

// touchTimeout bounds one background last_access update.
const touchTimeout = 2 * time.Second

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithTouch enables the best-effort last_access update after a successful
// bearer authentication. The update runs in the background and never
// delays or changes the outcome.
func WithTouch(enabled bool) AuthenticatorOption {
	return func(a *Authenticator) { a.touch = enabled }
}

// WithAuthenticatorLogger sets the logger for server-side failure details.
func WithAuthenticatorLogger(logger *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(users UserRepository, sessions *SessionService, hasher PasswordHasher, opts ...AuthenticatorOption) (*Authenticator, error) {
	if users == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID").Errorf("session service is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTHENTICATOR_INVALID").Errorf("password hasher is required")
	}
	a := &Authenticator{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate resolves the request credential and checks it.
func (a *Authenticator) Authenticate(ctx context.Context, h http.Header) Result {
	return a.AuthenticateCredential(ctx, Resolve(h))
}

// AuthenticateCredential checks an already resolved credential.
func (a *Authenticator) AuthenticateCredential(ctx context.Context, c Credential) Result {
	var r Result
	switch c.Kind {
	case CredentialBasic:
		r = a.basic(ctx, c.Payload)
	case CredentialBearer:
		r = a.bearer(ctx, c.Payload)
	default:
		return Result{Outcome: OutcomeAnonymous}
	}
	r.Via = c.Kind
	return r
}

func (a *Authenticator) basic(ctx context.Context, payload string) Result {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return malformed(oops.Code(CodeMalformed).With("reason", "base64").Wrap(err))
	}
	if !utf8.Valid(raw) {
		return malformed(oops.Code(CodeMalformed).With("reason", "utf8").Errorf("basic credential is not valid UTF-8"))
	}
	handle, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return malformed(oops.Code(CodeMalformed).With("reason", "separator").Errorf("basic credential has no ':' separator"))
	}

	user, err := a.users.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_, _ = a.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // equalises timing only
			return invalid(oops.Code(CodeInvalidCredentials).With("handle", handle).Errorf("unknown handle"))
		}
		return internal(oops.Code(CodeInternal).With("operation", "get user by handle").Wrap(err))
	}

	match, err := a.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		badHash := IsMalformedHash(err)
		err = oops.With("operation", "verify password").With("user_id", user.ID.String()).Wrap(err)
		if badHash {
			errutil.LogErrorContext(ctx, a.logger, "stored password hash is malformed", err)
			return malformed(err)
		}
		return internal(err)
	}
	if !match {
		return invalid(oops.Code(CodeInvalidCredentials).With("handle", handle).Errorf("password mismatch"))
	}
	return Result{Outcome: OutcomeAuthenticated, User: user}
}

func (a *Authenticator) bearer(ctx context.Context, token string) Result {
	if token == "" {
		return invalid(oops.Code(CodeInvalidCredentials).Errorf("empty bearer token"))
	}

	session, err := a.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid(oops.Code(CodeInvalidCredentials).Errorf("unknown session token"))
		}
		return internal(oops.Code(CodeInternal).With("operation", "get session by token").Wrap(err))
	}
	if !a.sessions.IsValid(session) {
		return invalid(oops.Code(CodeInvalidCredentials).
			With("session_id", session.ID.String()).
			With("revoked", session.Revoked).
			Errorf("session is expired or revoked"))
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		// A valid session always points at an existing user.
		return internal(oops.Code(CodeInternal).
			With("operation", "get session user").
			With("session_id", session.ID.String()).
			Wrap(err))
	}

	if a.touch {
		a.touchAsync(ctx, session.ID)
	}
	return Result{Outcome: OutcomeAuthenticated, User: user, Session: session}
}

func (a *Authenticator) touchAsync(ctx context.Context, id uuid.UUID) {
	a.touches.Add(1)
	go func() {
		defer a.touches.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
		defer cancel()
		a.sessions.Touch(ctx, id)
	}()
}

// Wait blocks until pending last_access updates have finished.
func (a *Authenticator) Wait() {
	a.touches.Wait()
}

func malformed(err error) Result { return Result{Outcome: OutcomeMalformed, Err: err} }
func invalid(err error) Result   { return Result{Outcome: OutcomeInvalid, Err: err} }
func internal(err error) Result  { return Result{Outcome: OutcomeInternalError, Err: err} }
