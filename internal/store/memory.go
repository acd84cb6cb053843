package store

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store, used when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]PersistedState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]PersistedState)}
}

func (m *MemoryStore) Load(_ context.Context, name string) (*PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, name string, st *PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = *st
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }
func (m *MemoryStore) Close() error                  { return nil }
