// ABOUTME: Tests for SQLite engine implementation
// ABOUTME: Covers kv CRUD, prefix listing, and bulk deletes

package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestEngine(t *testing.T) *SQLiteEngine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	engine, err := NewSQLiteEngine(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteEngine failed: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestNewSQLiteEngine(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	engine, err := NewSQLiteEngine(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteEngine failed: %v", err)
	}
	defer engine.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteEngine_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	engine, err := NewSQLiteEngine(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteEngine failed: %v", err)
	}
	defer engine.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestSetAndGet(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	want := []byte("hello world")
	if err := engine.Set(ctx, "k1", want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := engine.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get returned %q, want %q", got, want)
	}
}

func TestSet_Overwrites(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Set(ctx, "k1", []byte("first")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := engine.Set(ctx, "k1", []byte("second")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := engine.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get returned %q, want %q", got, "second")
	}
}

func TestGet_NotFound(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get returned %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Set(ctx, "k1", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := engine.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := engine.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete returned %v, want ErrNotFound", err)
	}
}

func TestDelete_MissingKeyIsNoop(t *testing.T) {
	engine := newTestEngine(t)

	if err := engine.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("Delete of missing key returned %v, want nil", err)
	}
}

func TestKeys_PrefixFiltering(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	for _, key := range []string{"a/1", "a/2", "b/1", "a-other"} {
		if err := engine.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := engine.Keys(ctx, "a/")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []string{"a/1", "a/2"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys returned %v, want %v", keys, want)
	}
}

func TestKeys_EmptyPrefixReturnsAll(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	for _, key := range []string{"x", "y", "z"} {
		if err := engine.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys, err := engine.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("Keys returned %d keys, want 3", len(keys))
	}
}

func TestDeleteMany(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	for _, key := range []string{"k1", "k2", "k3"} {
		if err := engine.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	// One of the keys doesn't exist; that must not be an error
	if err := engine.DeleteMany(ctx, []string{"k1", "k3", "k9"}); err != nil {
		t.Fatalf("DeleteMany failed: %v", err)
	}

	keys, err := engine.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"k2"}) {
		t.Errorf("Keys returned %v, want [k2]", keys)
	}
}

func TestDeleteMany_Empty(t *testing.T) {
	engine := newTestEngine(t)

	if err := engine.DeleteMany(context.Background(), nil); err != nil {
		t.Errorf("DeleteMany(nil) returned %v, want nil", err)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"a", "b"},
		{"a/", "a0"},
		{"local-files/", "local-files0"},
		{"\xff", "\xff\xff"},
	}
	for _, tt := range tests {
		if got := prefixUpperBound(tt.prefix); got != tt.want {
			t.Errorf("prefixUpperBound(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestBinaryValuesRoundTrip(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	value := make([]byte, 256)
	for i := range value {
		value[i] = byte(i)
	}

	if err := engine.Set(ctx, "bin", value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := engine.Get(ctx, "bin")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Error("binary value did not round-trip")
	}
}
