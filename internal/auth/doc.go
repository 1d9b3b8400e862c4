// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

// Package auth provides authentication and session primitives for the
// contribution panel.
//
// # Domain Types
//
// User and Session are plain records. Create them with their constructors:
//   - NewUser - validates the handle and requires a password hash
//   - NewSession - validates the owner and token and sets the expiry
//
// Repositories receive pre-validated values and never hold references to
// each other; a Session refers to its User by ID only.
//
// # Request Authentication
//
// Resolve picks at most one credential from request headers. The first
// Basic credential wins; otherwise the first Bearer credential, which may
// come from the Authorization header or the session cookie. The
// Authenticator checks that credential and returns a Result whose Outcome
// is one of Anonymous, Malformed, Invalid, Authenticated or InternalError.
//
// # Services
//   - SessionService - session create, lookup, revocation and expiry
//   - Service - login with constant-cost failure paths, and logout
package auth
