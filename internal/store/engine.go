// ABOUTME: Engine interface and shared errors for the key-value persistence layer
// ABOUTME: Implemented by SQLiteEngine for production and MockEngine for tests

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the requested key does not exist.
var ErrNotFound = errors.New("not found")

// Engine is a flat key-value persistence engine. Values are opaque byte
// slices; callers own key layout. Delete and DeleteMany are no-ops for
// keys that do not exist.
type Engine interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys starting with prefix, sorted ascending.
	// An empty prefix returns every key in the engine.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// DeleteMany removes all given keys atomically. Missing keys are skipped.
	DeleteMany(ctx context.Context, keys []string) error

	// Close releases the underlying resources.
	Close() error
}
