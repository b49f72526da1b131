// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and size parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
storage:
  path: "./stash.db"
  namespace: "local-files"

limits:
  max_file_size: "100MiB"
  max_total_size: "500MiB"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.Path != "./stash.db" {
		t.Errorf("Storage.Path = %q, want ./stash.db", cfg.Storage.Path)
	}
	if cfg.Storage.Namespace != "local-files" {
		t.Errorf("Storage.Namespace = %q, want local-files", cfg.Storage.Namespace)
	}
	if cfg.Limits.MaxFileSize != 100<<20 {
		t.Errorf("Limits.MaxFileSize = %d, want %d", cfg.Limits.MaxFileSize, 100<<20)
	}
	if cfg.Limits.MaxTotalSize != 500<<20 {
		t.Errorf("Limits.MaxTotalSize = %d, want %d", cfg.Limits.MaxTotalSize, 500<<20)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	configPath := writeConfig(t, `
storage:
  path: "./stash.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.Namespace != "local-files" {
		t.Errorf("Storage.Namespace = %q, want default local-files", cfg.Storage.Namespace)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
	// Unset limits stay zero; the files service applies its own defaults
	if cfg.Limits.MaxFileSize != 0 {
		t.Errorf("Limits.MaxFileSize = %d, want 0", cfg.Limits.MaxFileSize)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("STASH_DB_PATH", "/tmp/expanded.db")

	configPath := writeConfig(t, `
storage:
  path: "${STASH_DB_PATH}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Path != "/tmp/expanded.db" {
		t.Errorf("Storage.Path = %q, want /tmp/expanded.db", cfg.Storage.Path)
	}
}

func TestLoad_MissingStoragePath(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "info"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "storage.path is required") {
		t.Errorf("Load returned %v, want storage.path error", err)
	}
}

func TestLoad_NamespaceWithSeparator(t *testing.T) {
	configPath := writeConfig(t, `
storage:
  path: "./stash.db"
  namespace: "bad/name"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "namespace") {
		t.Errorf("Load returned %v, want namespace error", err)
	}
}

func TestLoad_InvalidSize(t *testing.T) {
	configPath := writeConfig(t, `
storage:
  path: "./stash.db"

limits:
  max_file_size: "lots"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "max_file_size") {
		t.Errorf("Load returned %v, want size parse error", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"100MiB", 100 << 20},
		{"500MiB", 500 << 20},
		{"1GiB", 1 << 30},
		{"512KiB", 512 << 10},
		{"64B", 64},
		{"1024", 1024},
		{" 2MiB ", 2 << 20},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if err != nil {
			t.Errorf("parseSize(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "MiB", "ten MiB", "1.5GiB"} {
		if _, err := parseSize(bad); err == nil {
			t.Errorf("parseSize(%q) should fail", bad)
		}
	}
}
