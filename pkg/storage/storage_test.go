package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/d-kuro/useraccount/pkg/constants"
)

func TestServiceName(t *testing.T) {
	assert.Equal(t, "PrusaSlicer/PrusaAccount/tokens", ServiceName("PrusaSlicer", "tokens"))
}

func TestFileSystemStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSystemStore(dir, "TestApp")
	require.NoError(t, err)
	require.NoError(t, store.Available())
	assert.Equal(t, dir, store.GetStoragePath())

	_, _, err = store.Load(constants.TokensScope)
	assert.ErrorIs(t, err, ErrStorageNotFound)

	require.NoError(t, store.Save(constants.TokensScope, "session-key", "a|r|123"))
	key, value, err := store.Load(constants.TokensScope)
	require.NoError(t, err)
	assert.Equal(t, "session-key", key)
	assert.Equal(t, "a|r|123", value)

	// Overwrite with an empty value forgets the tokens but keeps a record.
	require.NoError(t, store.Save(constants.TokensScope, "session-key", ""))
	_, value, err = store.Load(constants.TokensScope)
	require.NoError(t, err)
	assert.Empty(t, value)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(constants.FilePermissions), info.Mode().Perm())
}

func TestFileSystemStoreCorrupted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSystemStore(dir, "TestApp")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.pathFor("tokens"), []byte("{not json"), 0o600))
	_, _, err = store.Load("tokens")
	assert.ErrorIs(t, err, ErrStorageCorrupted)
}

func TestFileSystemStoreUnavailable(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSystemStore(filepath.Join(dir, "secrets"), "TestApp")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "secrets")))

	assert.ErrorIs(t, store.Available(), ErrStorageUnavailable)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Available())

	_, _, err := store.Load("tokens")
	assert.ErrorIs(t, err, ErrStorageNotFound)

	require.NoError(t, store.Save("tokens", "k", "v"))
	key, value, err := store.Load("tokens")
	require.NoError(t, err)
	assert.Equal(t, "k", key)
	assert.Equal(t, "v", value)
	assert.Equal(t, 1, store.Saves())
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("TestApp")

	require.NoError(t, store.Available())

	_, _, err := store.Load("tokens")
	assert.ErrorIs(t, err, ErrStorageNotFound)

	require.NoError(t, store.Save("tokens", "session-key", "a|r|42"))
	key, value, err := store.Load("tokens")
	require.NoError(t, err)
	assert.Equal(t, "session-key", key)
	assert.Equal(t, "a|r|42", value)

	require.NoError(t, keyring.Set(ServiceName("TestApp", "legacy"), "TestApp", "plain"))
	_, _, err = store.Load("legacy")
	assert.ErrorIs(t, err, ErrStorageCorrupted)
}

func TestKeyringStoreUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)

	store := NewKeyringStore("TestApp")
	assert.ErrorIs(t, store.Available(), ErrStorageUnavailable)
	assert.Error(t, store.Save("tokens", "k", "v"))
	_, _, err := store.Load("tokens")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrStorageNotFound)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		kind        string
		expectError bool
		available   bool
	}{
		{name: "default is keyring", kind: "", available: true},
		{name: "keyring", kind: constants.StoreKeyring, available: true},
		{name: "file", kind: constants.StoreFile, available: true},
		{name: "memory", kind: constants.StoreMemory, available: true},
		{name: "none", kind: constants.StoreNone, available: false},
		{name: "unknown", kind: "vault", expectError: true},
	}

	keyring.MockInit()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.kind, "TestApp", t.TempDir())
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.available {
				assert.NoError(t, store.Available())
			} else {
				assert.ErrorIs(t, store.Available(), ErrStorageUnavailable)
				assert.ErrorIs(t, store.Save("tokens", "k", "v"), ErrStorageUnavailable)
			}
		})
	}
}
