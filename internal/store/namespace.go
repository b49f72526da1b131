// ABOUTME: Namespace provides a key-prefix view over a shared Engine
// ABOUTME: Clear removes exactly the keys under the namespace prefix and no others

package store

import (
	"context"
	"fmt"
)

// Separator joins a namespace prefix with the keys beneath it.
const Separator = "/"

// Namespace is a logical key range within a shared Engine. All keys are
// stored as prefix + Separator + key; operations never touch keys
// outside the prefix.
type Namespace struct {
	engine Engine
	prefix string
}

// NewNamespace creates a namespace with the given prefix on engine.
func NewNamespace(engine Engine, prefix string) *Namespace {
	return &Namespace{
		engine: engine,
		prefix: prefix + Separator,
	}
}

// Key returns the full engine key for a namespaced key.
func (n *Namespace) Key(key string) string {
	return n.prefix + key
}

// Get retrieves the value stored under key within the namespace.
// Returns ErrNotFound if the key does not exist.
func (n *Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	return n.engine.Get(ctx, n.prefix+key)
}

// Set writes value under key within the namespace, overwriting any
// existing value.
func (n *Namespace) Set(ctx context.Context, key string, value []byte) error {
	return n.engine.Set(ctx, n.prefix+key, value)
}

// Delete removes key from the namespace. Deleting a missing key is not
// an error.
func (n *Namespace) Delete(ctx context.Context, key string) error {
	return n.engine.Delete(ctx, n.prefix+key)
}

// DeleteMany removes the given namespaced keys. Missing keys are skipped.
func (n *Namespace) DeleteMany(ctx context.Context, keys []string) error {
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = n.prefix + key
	}
	return n.engine.DeleteMany(ctx, full)
}

// Keys returns all keys in the namespace, with the prefix stripped,
// sorted ascending.
func (n *Namespace) Keys(ctx context.Context) ([]string, error) {
	full, err := n.engine.Keys(ctx, n.prefix)
	if err != nil {
		return nil, fmt.Errorf("listing namespace %q: %w", n.prefix, err)
	}
	keys := make([]string, len(full))
	for i, key := range full {
		keys[i] = key[len(n.prefix):]
	}
	return keys, nil
}

// Clear deletes every key under the namespace prefix. Keys under other
// prefixes in the same engine are untouched.
func (n *Namespace) Clear(ctx context.Context) error {
	full, err := n.engine.Keys(ctx, n.prefix)
	if err != nil {
		return fmt.Errorf("listing namespace %q for clear: %w", n.prefix, err)
	}
	if len(full) == 0 {
		return nil
	}
	if err := n.engine.DeleteMany(ctx, full); err != nil {
		return fmt.Errorf("clearing namespace %q: %w", n.prefix, err)
	}
	return nil
}
