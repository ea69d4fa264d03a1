// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package auth verifies bearer tokens presented at connect time. The wire
// protocol otherwise leaves authentication entirely to request handlers
// (spec.md §4.4); this package backs the transport layer's optional
// pre-authentication step and nothing else — it has no sessions, no OAuth
// flows, no user store.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/areanode/internal/cache"
)

// Claims identifies the pre-authenticated owner a bearer token speaks for.
type Claims struct {
	OwnerID uint64 `json:"owner_id"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed (HS256, HS384, HS512) bearer tokens and
// rejects ones that have been
// explicitly revoked, using an LRUCache as the revocation list. Using a
// bounded LRU for revocation — rather than an ever-growing set — trades
// perfect long-term revocation recall for bounded memory, which is
// appropriate here since a bearer token is already short-lived.
type Verifier struct {
	secret   []byte
	revoked  *cache.LRUCache
}

// NewVerifier constructs a Verifier. revokedCapacity bounds the revocation
// cache's entry count; revokedTTL bounds how long a revoked token's entry
// is remembered (it only needs to outlive the token's own expiry).
func NewVerifier(secret []byte, revokedCapacity int, revokedTTL time.Duration) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth: bearer signing secret is required")
	}
	return &Verifier{
		secret:  secret,
		revoked: cache.NewLRUCache(revokedCapacity, revokedTTL),
	}, nil
}

// VerifyBearer validates token and returns the owner identifier it speaks
// for, or an error if the token is malformed, expired, signed with an
// unexpected algorithm, or has been revoked.
func (v *Verifier) VerifyBearer(token string) (uint64, error) {
	if v.revoked.Contains(token) {
		return 0, fmt.Errorf("auth: token has been revoked")
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("auth: parse bearer token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, fmt.Errorf("auth: invalid bearer claims")
	}
	return claims.OwnerID, nil
}

// Revoke marks token as no longer valid for the lifetime of the
// revocation cache entry.
func (v *Verifier) Revoke(token string) {
	v.revoked.Add(token, time.Now())
}
