package storage

import (
	"fmt"
	"sync"
)

// MemoryStore keeps secrets for the lifetime of the process only.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]record
	saves   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]record)}
}

// Save implements SecretStore.Save.
func (ms *MemoryStore) Save(scope, key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.records[scope] = record{Key: key, Value: value}
	ms.saves++
	return nil
}

// Load implements SecretStore.Load.
func (ms *MemoryStore) Load(scope string) (string, string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	rec, ok := ms.records[scope]
	if !ok {
		return "", "", fmt.Errorf("secret %s: %w", scope, ErrStorageNotFound)
	}
	return rec.Key, rec.Value, nil
}

// Available implements SecretStore.Available.
func (ms *MemoryStore) Available() error {
	return nil
}

// Saves returns how many times Save was called.
func (ms *MemoryStore) Saves() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.saves
}
