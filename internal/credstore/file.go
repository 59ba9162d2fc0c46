// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/studentsstage/stagectl/internal/platform/constants"
)

// FileStore persists the credential record as a mode-0600 JSON file under the
// per-user config directory. Survives restarts, scoped to the OS user, no
// locking beyond last-write-wins.
type FileStore struct {
	path string

	mu sync.Mutex
}

// NewFileStore creates the store directory (0700) and returns a [*FileStore]
// for <dir>/credentials.json.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("credstore: failed to create store directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, constants.CredentialsFileName)}, nil
}

// SetAuthData serializes and writes the full credential record.
func (store *FileStore) SetAuthData(_ context.Context, token string, user json.RawMessage) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	record := credentialRecord{AccessToken: token, UserData: user}
	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: failed to encode credential record: %w", err)
	}

	if err := os.WriteFile(store.path, payload, 0o600); err != nil {
		return fmt.Errorf("credstore: failed to write credential record: %w", err)
	}
	return nil
}

// GetToken returns the stored token, or "" when absent.
func (store *FileStore) GetToken(_ context.Context) string {
	return store.read().AccessToken
}

// GetUser returns the stored raw user blob, or nil when absent or corrupt.
func (store *FileStore) GetUser(_ context.Context) json.RawMessage {
	return store.read().UserData
}

// ClearAuthData removes the credential file. A missing file is not an error:
// clearing is idempotent.
func (store *FileStore) ClearAuthData(_ context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credstore: failed to clear credential record: %w", err)
	}
	return nil
}

// IsAuthenticated reports token presence only.
func (store *FileStore) IsAuthenticated(ctx context.Context) bool {
	return store.GetToken(ctx) != ""
}

// read loads the record, mapping every failure mode (missing file, corrupt
// JSON, permission error) to the zero record.
func (store *FileStore) read() credentialRecord {
	store.mu.Lock()
	defer store.mu.Unlock()

	payload, err := os.ReadFile(store.path)
	if err != nil {
		return credentialRecord{}
	}

	var record credentialRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return credentialRecord{}
	}
	return record
}

// # Cross-Process Change Notification

// Watch polls the credential file's modification time and invokes onChange
// whenever it moves, until ctx is done.
//
// Best-effort sync with no ordering guarantee. Another stagectl process (or
// the serve surface) writing the store is eventually observed here.
func (store *FileStore) Watch(ctx context.Context, onChange func()) {
	go func() {
		ticker := time.NewTicker(constants.StoreWatchInterval)
		defer ticker.Stop()

		last := store.modTime()
		for {
			select {
			case <-ticker.C:
				current := store.modTime()
				if current != last {
					last = current
					onChange()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// modTime returns the file's mtime, or the zero time when the file is absent.
func (store *FileStore) modTime() time.Time {
	info, err := os.Stat(store.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
