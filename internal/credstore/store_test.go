// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package credstore_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentsstage/stagectl/internal/credstore"
)

// storeUnderTest lets the contract suite run over every backend that can be
// exercised without external services.
func storesUnderTest(t *testing.T) map[string]credstore.Store {
	t.Helper()

	fileStore, err := credstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	return map[string]credstore.Store{
		"file":   fileStore,
		"memory": credstore.NewMemStore(),
	}
}

/*
TestStore_RoundTrip verifies that SetAuthData followed by GetUser deep-equals
the original blob, and that GetToken matches. One contract, every backend.
*/
func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	user := json.RawMessage(`{"id":7,"username":"amina","profile":{"role":"tutor"}}`)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetAuthData(ctx, "tok-123", user))

			assert.Equal(t, "tok-123", store.GetToken(ctx))
			assert.True(t, store.IsAuthenticated(ctx))
			assert.JSONEq(t, string(user), string(store.GetUser(ctx)))
		})
	}
}

/*
TestStore_Clear verifies that ClearAuthData removes both entries and that the
store reports unauthenticated afterwards.
*/
func TestStore_Clear(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetAuthData(ctx, "tok-123", json.RawMessage(`{"id":1}`)))
			require.NoError(t, store.ClearAuthData(ctx))

			assert.False(t, store.IsAuthenticated(ctx))
			assert.Empty(t, store.GetToken(ctx))
			assert.Nil(t, store.GetUser(ctx))

			// Clearing again must stay idempotent.
			assert.NoError(t, store.ClearAuthData(ctx))
		})
	}
}

/*
TestFileStore_CorruptFile verifies that corrupt persisted data reads as
absence, never as an error.
*/
func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := credstore.NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), []byte(`{"access_token":`), 0o600))

	assert.Empty(t, store.GetToken(ctx))
	assert.Nil(t, store.GetUser(ctx))
	assert.False(t, store.IsAuthenticated(ctx))
}

/*
TestFileStore_Permissions verifies that the credential file is only readable
by the owning user.
*/
func TestFileStore_Permissions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := credstore.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetAuthData(ctx, "secret", nil))

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

/*
TestPrefs_Theme verifies theme persistence with its separate lifecycle.
*/
func TestPrefs_Theme(t *testing.T) {
	dir := t.TempDir()

	prefs, err := credstore.NewPrefs(dir)
	require.NoError(t, err)

	// Default when nothing is stored.
	assert.Equal(t, "system", prefs.Theme())

	require.NoError(t, prefs.SetTheme("dark"))
	assert.Equal(t, "dark", prefs.Theme())

	// Unknown values are rejected and do not overwrite.
	assert.Error(t, prefs.SetTheme("solarized"))
	assert.Equal(t, "dark", prefs.Theme())

	// A fresh handle over the same dir sees the persisted value.
	reopened, err := credstore.NewPrefs(dir)
	require.NoError(t, err)
	assert.Equal(t, "dark", reopened.Theme())
}
