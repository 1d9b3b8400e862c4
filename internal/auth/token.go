// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

import (
	"crypto/rand"
	"encoding/base32"

	"github.com/samber/oops"
)

// TokenBytes is the amount of entropy in a session token (80 bits).
const TokenBytes = 10

// TokenLength is the encoded length of a token: 80 bits in 5-bit symbols.
const TokenLength = TokenBytes * 8 / 5

// crockfordAlphabet omits I, L, O and U.
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockford = base32.NewEncoding(crockfordAlphabet).WithPadding(base32.NoPadding)

// GenerateToken returns a fresh random token encoded in Crockford base32.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	return crockford.EncodeToString(b), nil
}
