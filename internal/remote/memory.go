package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"radius-go/internal/radius"
)

// MemoryStore is an in-memory implementation of the radius.RemoteStore interface.
// It is useful for testing and for running without a remote backend.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	leaves map[string][]byte // path -> JSON value
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory remote store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leaves: make(map[string][]byte),
	}
}

// ReadSnapshot returns the children of path as they are at the time of the call.
func (m *MemoryStore) ReadSnapshot(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	leaves := make(map[string][]byte, len(m.leaves))
	for k, v := range m.leaves {
		leaves[k] = v
	}
	m.mu.RUnlock()

	return AssembleChildren(p, leaves), nil
}

// Write stores the JSON encoding of value at path.
func (m *MemoryStore) Write(ctx context.Context, path string, value any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", p, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaves[p] = data
	return nil
}

// Get returns the raw value stored at exactly path.
func (m *MemoryStore) Get(path string) (json.RawMessage, bool) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.leaves[p]
	return data, ok
}

// PutRaw stores data at path without encoding it.
// It lets callers seed values a client would never write itself.
func (m *MemoryStore) PutRaw(path string, data []byte) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaves[p] = append([]byte(nil), data...)
	return nil
}

// Len returns the number of stored paths.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.leaves)
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// Compile-time check that MemoryStore implements radius.RemoteStore interface
var _ radius.RemoteStore = (*MemoryStore)(nil)
