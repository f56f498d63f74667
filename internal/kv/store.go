// ABOUTME: Store interface for the durable key-value backend
// ABOUTME: Defines get/put/delete semantics shared by charm and in-memory impls
package kv

import (
	"sync"
)

// Key prefixes for the entity types kept in the store
const (
	CachePrefix    = "llm:"
	MemoryPrefix   = "memory:"
	ProgressPrefix = "progress:"
	ChunksKey      = "letter:chunks"
)

// Store is the durable key-value surface the session stores are built on.
// Get returns (nil, nil) on a missing key rather than an error so callers can
// treat absence as "no state yet" without string-matching backend errors.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// MemoryKey returns the store key for a session's conversation memory
func MemoryKey(sessionID string) string {
	return MemoryPrefix + sessionID
}

// ProgressKey returns the store key for a session's chunk progress
func ProgressKey(sessionID string) string {
	return ProgressPrefix + sessionID
}

// MemStore is an in-process Store used by tests and by deployments that run
// without a charm server. Last-writer-wins, like the durable backend.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Get retrieves a value, returning (nil, nil) when absent
func (m *MemStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Set stores a value under key, replacing any prior value
func (m *MemStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

// Delete removes a key; deleting an absent key is not an error
func (m *MemStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns all keys with the given prefix
func (m *MemStore) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []string
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			result = append(result, k)
		}
	}
	return result, nil
}
