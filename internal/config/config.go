// ABOUTME: Configuration loading and parsing for fold-stash
// ABOUTME: Supports YAML files with environment variable expansion and size parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete fold-stash configuration
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Limits  LimitsConfig  `yaml:"limits"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig holds persistence engine configuration
type StorageConfig struct {
	// Path is the SQLite database file location
	Path string `yaml:"path"`
	// Namespace is the key prefix for stored file records
	Namespace string `yaml:"namespace"`
}

// LimitsConfig holds size-limit configuration
type LimitsConfig struct {
	MaxFileSize  int64 `yaml:"-"`
	MaxTotalSize int64 `yaml:"-"`

	// Raw string values for YAML unmarshaling ("100MiB", "512KiB", ...)
	MaxFileSizeRaw  string `yaml:"max_file_size"`
	MaxTotalSizeRaw string `yaml:"max_total_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Namespace: "local-files",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Size strings are parsed into byte counts.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseSizes(cfg); err != nil {
		return nil, fmt.Errorf("parsing sizes: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.Namespace == "" {
		return fmt.Errorf("storage.namespace is required")
	}
	if strings.Contains(c.Storage.Namespace, "/") {
		return fmt.Errorf("storage.namespace must not contain %q", "/")
	}
	if c.Limits.MaxFileSize < 0 || c.Limits.MaxTotalSize < 0 {
		return fmt.Errorf("size limits must not be negative")
	}
	return nil
}

// parseSizes converts the raw size strings into byte counts
func parseSizes(cfg *Config) error {
	var err error

	if cfg.Limits.MaxFileSizeRaw != "" {
		cfg.Limits.MaxFileSize, err = parseSize(cfg.Limits.MaxFileSizeRaw)
		if err != nil {
			return fmt.Errorf("parsing max_file_size %q: %w", cfg.Limits.MaxFileSizeRaw, err)
		}
	}

	if cfg.Limits.MaxTotalSizeRaw != "" {
		cfg.Limits.MaxTotalSize, err = parseSize(cfg.Limits.MaxTotalSizeRaw)
		if err != nil {
			return fmt.Errorf("parsing max_total_size %q: %w", cfg.Limits.MaxTotalSizeRaw, err)
		}
	}

	return nil
}

// parseSize parses a human-readable size string ("100MiB", "512KiB",
// "1GiB", or a plain byte count) into a byte count.
func parseSize(s string) (int64, error) {
	units := []struct {
		suffix string
		factor int64
	}{
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"B", 1},
	}

	trimmed := strings.TrimSpace(s)
	for _, unit := range units {
		if !strings.HasSuffix(trimmed, unit.suffix) {
			continue
		}
		number := strings.TrimSpace(strings.TrimSuffix(trimmed, unit.suffix))
		value, err := strconv.ParseInt(number, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size number %q: %w", number, err)
		}
		return value * unit.factor, nil
	}

	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return value, nil
}
