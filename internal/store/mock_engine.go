// ABOUTME: Mock Engine implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject per-operation failures

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MockEngine is an in-memory Engine implementation for testing.
// The Fail* hooks, when non-nil, are consulted before each operation
// and let tests force failures for specific keys.
type MockEngine struct {
	mu   sync.RWMutex
	data map[string][]byte

	FailGet    func(key string) error
	FailSet    func(key string) error
	FailDelete func(key string) error
	FailKeys   func(prefix string) error
}

// NewMockEngine creates a new MockEngine.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		data: make(map[string][]byte),
	}
}

// Get retrieves the value stored under key.
func (m *MockEngine) Get(ctx context.Context, key string) ([]byte, error) {
	if m.FailGet != nil {
		if err := m.FailGet(key); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Set writes value under key, overwriting any existing value.
func (m *MockEngine) Set(ctx context.Context, key string, value []byte) error {
	if m.FailSet != nil {
		if err := m.FailSet(key); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a copy to avoid external modification
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *MockEngine) Delete(ctx context.Context, key string) error {
	if m.FailDelete != nil {
		if err := m.FailDelete(key); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Keys returns all keys starting with prefix, sorted ascending.
func (m *MockEngine) Keys(ctx context.Context, prefix string) ([]string, error) {
	if m.FailKeys != nil {
		if err := m.FailKeys(prefix); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteMany removes all given keys. Missing keys are skipped.
func (m *MockEngine) DeleteMany(ctx context.Context, keys []string) error {
	if m.FailDelete != nil {
		for _, key := range keys {
			if err := m.FailDelete(key); err != nil {
				return err
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Close is a no-op for the mock engine.
func (m *MockEngine) Close() error {
	return nil
}

// Len reports the number of stored keys.
func (m *MockEngine) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
