// Package prefs persists user preferences and the saved-city list in a
// durable key-value store. Storage is best-effort: callers keep running on
// in-memory state when a write fails.
package prefs

import (
	"context"
	"sync"
)

// Keys under which preferences are stored.
const (
	KeyTemperatureUnit = "temperatureUnit"
	KeyViewMode        = "viewMode"
	KeySavedCities     = "savedCities"
)

// KeyValueStore is a durable string key-value store.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is a process-local KeyValueStore used when no state file is
// configured, and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
