// Package store persists the reader's book, last chapter and key override.
package store

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// StorageProvider is a small durable key/value store.
type StorageProvider interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// MemoryStorageProvider keeps values in memory.
type MemoryStorageProvider struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorageProvider returns an empty in-memory store.
func NewMemoryStorageProvider() *MemoryStorageProvider {
	return &MemoryStorageProvider{values: make(map[string][]byte)}
}

func (m *MemoryStorageProvider) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorageProvider) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *MemoryStorageProvider) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStorageProvider) Close() error { return nil }
