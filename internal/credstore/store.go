// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package credstore persists the client's credential record: the opaque bearer
token and the last-known raw user blob.

Architecture:

  - Contract: every other component depends only on the [Store] interface,
    never on a concrete backend. This is what lets tests substitute an
    in-memory store and kiosk deployments substitute Redis.
  - Passivity: the store has no lifecycle of its own and no validation logic.
    It never inspects the token; authenticity is the backend's concern,
    delegated through 401 responses.
  - Tolerance: malformed persisted data is treated as absence of data, never
    as an error.

Backends:

  - FileStore: JSON file under the user's config dir (default).
  - MemStore: process-local map, for tests and ephemeral runs.
  - RedisStore: shared key-value server for multi-device kiosk setups.
*/
package credstore

import (
	"context"
	"encoding/json"
)

// Store is the credential persistence contract.
//
// # Semantics
//
// Last write wins; there are no transactional guarantees and none are needed,
// since the session controller is the single mutator. GetUser returns nil for
// absent or corrupt data. IsAuthenticated is a pure presence check on the
// token.
type Store interface {
	// SetAuthData atomically replaces the credential record.
	SetAuthData(ctx context.Context, token string, user json.RawMessage) error

	// GetToken returns the stored token, or "" when absent.
	GetToken(ctx context.Context) string

	// GetUser returns the stored raw user blob, or nil when absent or corrupt.
	GetUser(ctx context.Context) json.RawMessage

	// ClearAuthData removes both the token and the user blob.
	ClearAuthData(ctx context.Context) error

	// IsAuthenticated reports whether a token is present. No expiry or
	// signature validation is performed client-side.
	IsAuthenticated(ctx context.Context) bool
}

// credentialRecord is the serialized shape shared by the file and Redis
// backends.
type credentialRecord struct {
	AccessToken string          `json:"access_token"`
	UserData    json.RawMessage `json:"user_data,omitempty"`
}
