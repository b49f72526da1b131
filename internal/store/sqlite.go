// ABOUTME: SQLite implementation of the Engine interface using modernc.org/sqlite
// ABOUTME: Stores opaque values in a single kv table with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteEngine implements the Engine interface using SQLite.
type SQLiteEngine struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteEngine creates a new SQLite engine at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteEngine(path string) (*SQLiteEngine, error) {
	logger := slog.Default().With("component", "engine")

	// Ensure parent directory exists (skip for in-memory databases)
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	e := &SQLiteEngine{
		db:     db,
		logger: logger,
	}

	if err := e.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite engine initialized", "path", path)
	return e, nil
}

// createSchema creates the kv table if it doesn't exist
func (e *SQLiteEngine) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
	`
	_, err := e.db.Exec(schema)
	return err
}

// Get retrieves the value stored under key.
// Returns ErrNotFound if the key does not exist.
func (e *SQLiteEngine) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := e.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying key %q: %w", key, err)
	}
	return value, nil
}

// Set writes value under key, overwriting any existing value.
func (e *SQLiteEngine) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := e.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	e.logger.Debug("set key", "key", key, "bytes", len(value))
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (e *SQLiteEngine) Delete(ctx context.Context, key string) error {
	if _, err := e.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys starting with prefix, sorted ascending.
func (e *SQLiteEngine) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = e.db.QueryContext(ctx, "SELECT key FROM kv ORDER BY key")
	} else {
		query := "SELECT key FROM kv WHERE key >= ? AND key < ? ORDER BY key"
		rows, err = e.db.QueryContext(ctx, query, prefix, prefixUpperBound(prefix))
	}
	if err != nil {
		return nil, fmt.Errorf("listing keys with prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return keys, nil
}

// DeleteMany removes all given keys in a single transaction.
func (e *SQLiteEngine) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM kv WHERE key = ?")
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer stmt.Close()

	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key); err != nil {
			return fmt.Errorf("deleting key %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete transaction: %w", err)
	}
	e.logger.Debug("deleted keys", "count", len(keys))
	return nil
}

// Close closes the underlying database.
func (e *SQLiteEngine) Close() error {
	return e.db.Close()
}

// prefixUpperBound returns the smallest string greater than every string
// with the given non-empty prefix, for use as an exclusive range end.
func prefixUpperBound(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return prefix + "\xff"
}
