// Package storage provides the key/value secret stores used to persist
// account credentials between application runs.
package storage

import (
	"errors"
	"fmt"

	"github.com/d-kuro/useraccount/pkg/constants"
)

// SecretStore is a platform key/value secret store. Each scope holds exactly
// one record made of a key (the shared session key) and a secret value.
type SecretStore interface {
	// Save stores key and value under scope, replacing any previous record.
	Save(scope, key, value string) error

	// Load returns the record stored under scope.
	// Returns ErrStorageNotFound if nothing is stored there.
	Load(scope string) (key, value string, err error)

	// Available reports whether the backend can be used at all.
	// A non-nil result wraps ErrStorageUnavailable.
	Available() error
}

// ServiceName returns the namespaced service identifier for scope.
func ServiceName(appName, scope string) string {
	return fmt.Sprintf(constants.SecretServiceFormat, appName, scope)
}

// Sentinel errors for storage operations
var (
	ErrStorageNotFound    = errors.New("storage item not found")
	ErrStorageCorrupted   = errors.New("storage data corrupted")
	ErrStoragePermission  = errors.New("storage permission denied")
	ErrStorageUnavailable = errors.New("secure storage unavailable")
)

// record is the serialized form of a scope entry for backends that only
// store a single opaque string.
type record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// New returns the store selected by kind. An unknown kind is an error;
// constants.StoreNone yields a store that is never available.
func New(kind, appName, dir string) (SecretStore, error) {
	switch kind {
	case "", constants.StoreKeyring:
		return NewKeyringStore(appName), nil
	case constants.StoreFile:
		return NewFileSystemStore(dir, appName)
	case constants.StoreMemory:
		return NewMemoryStore(), nil
	case constants.StoreNone:
		return unavailableStore{}, nil
	default:
		return nil, fmt.Errorf("unknown secret store %q", kind)
	}
}

type unavailableStore struct{}

func (unavailableStore) Save(string, string, string) error {
	return ErrStorageUnavailable
}

func (unavailableStore) Load(string) (string, string, error) {
	return "", "", ErrStorageUnavailable
}

func (unavailableStore) Available() error {
	return ErrStorageUnavailable
}
