// Package store provides the persistent key-value layer for fold-stash
// using SQLite.
//
// # Architecture
//
// The package has two layers:
//
//   - Engine: flat key-value persistence (Get/Set/Delete/Keys/DeleteMany)
//   - Namespace: a key-prefix view over a shared Engine
//
// SQLiteEngine implements Engine on a single kv table. Multiple
// namespaces can share one engine; Clear on a namespace removes exactly
// the keys under its prefix.
//
// # SQLite Configuration
//
// The engine uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//
// # Error Handling
//
// Get returns ErrNotFound for missing keys. Delete and DeleteMany are
// no-ops for missing keys. All methods accept context.Context for
// cancellation support.
//
// # Testing
//
// Use NewMockEngine() for unit tests:
//
//	engine := store.NewMockEngine()
//	engine.FailSet = func(key string) error { return errBoom }
//
// Use NewSQLiteEngine(":memory:") for integration tests with real SQLite.
package store
