// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wpikzbior Contributors

package auth

import (
	"net/http"
	"strings"
)

// CookieName is the session cookie carrying a bearer token.
const CookieName = "wpikzbiorauth"

// CredentialKind tags the credential chosen for a request.
type CredentialKind int

// Credential kinds.
const (
	CredentialNone CredentialKind = iota
	CredentialBasic
	CredentialBearer
)

// String implements fmt.Stringer.
func (k CredentialKind) String() string {
	switch k {
	case CredentialBasic:
		return "basic"
	case CredentialBearer:
		return "bearer"
	default:
		return "none"
	}
}

// Credential is the single candidate selected from a request.
// Payload is the base64 user:password blob for Basic, the token for Bearer.
type Credential struct {
	Kind    CredentialKind
	Payload string

	// FromCookie is set when a Bearer credential came from the session cookie.
	FromCookie bool
}

const (
	basicPrefix  = "basic "
	bearerPrefix = "bearer "
)

type candidate struct {
	value      string
	fromCookie bool
}

// Resolve picks the credential to attempt for a request.
//
// Every Authorization value is considered, followed by every session
// cookie as a synthetic Bearer value. The first Basic credential wins
// outright and ends the scan; otherwise the first Bearer credential wins.
// Unrecognized schemes are ignored.
func Resolve(h http.Header) Credential {
	var candidates []candidate
	for _, v := range h.Values("Authorization") {
		candidates = append(candidates, candidate{value: v})
	}
	for _, token := range sessionCookies(h) {
		candidates = append(candidates, candidate{value: "Bearer " + token, fromCookie: true})
	}

	var bearer *Credential
	for _, c := range candidates {
		v := strings.TrimSpace(c.value)
		switch {
		case hasPrefixFold(v, basicPrefix):
			return Credential{Kind: CredentialBasic, Payload: strings.TrimSpace(v[len(basicPrefix):])}
		case hasPrefixFold(v, bearerPrefix):
			if bearer == nil {
				bearer = &Credential{
					Kind:       CredentialBearer,
					Payload:    strings.TrimSpace(v[len(bearerPrefix):]),
					FromCookie: c.fromCookie,
				}
			}
		}
	}
	if bearer != nil {
		return *bearer
	}
	return Credential{Kind: CredentialNone}
}

// HasSessionCookie reports whether the request carries the session cookie.
func HasSessionCookie(h http.Header) bool {
	return len(sessionCookies(h)) > 0
}

// sessionCookies returns the values of every session cookie across all
// Cookie header lines, in order.
func sessionCookies(h http.Header) []string {
	var values []string
	prefix := CookieName + "="
	for _, line := range h.Values("Cookie") {
		for _, part := range strings.Split(line, ";") {
			part = strings.TrimSpace(part)
			if value, ok := strings.CutPrefix(part, prefix); ok {
				values = append(values, value)
			}
		}
	}
	return values
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
