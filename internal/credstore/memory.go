// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package credstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemStore is a process-local [Store] used by tests and ephemeral runs
// (STAGE_STORE_DRIVER=memory). Credentials vanish when the process exits.
type MemStore struct {
	mu     sync.RWMutex
	record credentialRecord
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// SetAuthData replaces the credential record.
func (store *MemStore) SetAuthData(_ context.Context, token string, user json.RawMessage) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	// Copy the blob so callers cannot mutate stored state afterwards.
	var userCopy json.RawMessage
	if user != nil {
		userCopy = append(json.RawMessage(nil), user...)
	}

	store.record = credentialRecord{AccessToken: token, UserData: userCopy}
	return nil
}

// GetToken returns the stored token, or "" when absent.
func (store *MemStore) GetToken(_ context.Context) string {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.record.AccessToken
}

// GetUser returns the stored raw user blob, or nil when absent.
func (store *MemStore) GetUser(_ context.Context) json.RawMessage {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if store.record.UserData == nil {
		return nil
	}
	return append(json.RawMessage(nil), store.record.UserData...)
}

// ClearAuthData removes both entries.
func (store *MemStore) ClearAuthData(_ context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.record = credentialRecord{}
	return nil
}

// IsAuthenticated reports token presence only.
func (store *MemStore) IsAuthenticated(ctx context.Context) bool {
	return store.GetToken(ctx) != ""
}
