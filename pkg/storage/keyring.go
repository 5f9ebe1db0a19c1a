package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const probeScope = "probe"

// KeyringStore implements SecretStore on top of the platform secret service
// (macOS Keychain, Windows Credential Manager, Secret Service on Linux).
// The platform API addresses secrets by service and user, so the record key
// travels inside the stored value and the user is always the application name.
type KeyringStore struct {
	appName string
}

// NewKeyringStore creates a keyring-backed store namespaced by appName.
func NewKeyringStore(appName string) *KeyringStore {
	return &KeyringStore{appName: appName}
}

// Save implements SecretStore.Save.
func (ks *KeyringStore) Save(scope, key, value string) error {
	data, err := json.Marshal(record{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("failed to marshal secret for %s: %w", scope, err)
	}
	if err := keyring.Set(ServiceName(ks.appName, scope), ks.appName, string(data)); err != nil {
		return fmt.Errorf("failed to save secret %s: %w", scope, err)
	}
	return nil
}

// Load implements SecretStore.Load.
func (ks *KeyringStore) Load(scope string) (string, string, error) {
	data, err := keyring.Get(ServiceName(ks.appName, scope), ks.appName)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", "", fmt.Errorf("secret %s: %w", scope, ErrStorageNotFound)
		}
		return "", "", fmt.Errorf("failed to load secret %s: %w", scope, err)
	}

	var rec record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return "", "", fmt.Errorf("secret %s: %w", scope, ErrStorageCorrupted)
	}
	return rec.Key, rec.Value, nil
}

// Available implements SecretStore.Available by probing the secret service.
// A missing probe entry means the service answered and is usable.
func (ks *KeyringStore) Available() error {
	_, err := keyring.Get(ServiceName(ks.appName, probeScope), ks.appName)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
