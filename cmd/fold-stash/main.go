// ABOUTME: Entry point for the fold-stash CLI
// ABOUTME: Stores, lists, retrieves, and removes files in the local vault

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/fold-stash/internal/config"
	"github.com/2389/fold-stash/internal/files"
	"github.com/2389/fold-stash/internal/store"
	"github.com/2389/fold-stash/internal/vault"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the fold-stash config file.
// Priority: STASH_CONFIG env var > XDG_CONFIG_HOME/fold-stash/config.yaml > ~/.config/fold-stash/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("STASH_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "fold-stash", "config.yaml")
}

// getDataPath returns the default database location.
// Priority: XDG_DATA_HOME/fold-stash > ~/.local/share/fold-stash
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "fold-stash")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: fold-stash <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  add <file>...          Store files in the vault")
		fmt.Println("  ls [--status STATUS]   List stored files")
		fmt.Println("  get <id> [-o PATH]     Write a stored file to disk")
		fmt.Println("  rm <id>...             Remove stored files")
		fmt.Println("  clear                  Remove every stored file")
		fmt.Println("  status                 Show storage usage")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(ctx, os.Args[2:])
	case "ls":
		err = runList(ctx, os.Args[2:])
	case "get":
		err = runGet(ctx, os.Args[2:])
	case "rm":
		err = runRemove(ctx, os.Args[2:])
	case "clear":
		err = runClear(ctx)
	case "status":
		err = runStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults with the
// XDG data path when no file exists.
func loadConfig() (*config.Config, error) {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
		cfg.Storage.Path = filepath.Join(getDataPath(), "stash.db")
	}
	return cfg, nil
}

// openVault wires the engine, namespace, service, and vault together
// and hydrates metadata from the records already on disk.
func openVault(ctx context.Context) (*vault.Vault, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	setupLogger(cfg.Logging)

	engine, err := store.NewSQLiteEngine(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	ns := store.NewNamespace(engine, cfg.Storage.Namespace)
	svc, err := files.NewService(ctx, ns, files.Limits{
		MaxFileSize:  cfg.Limits.MaxFileSize,
		MaxTotalSize: cfg.Limits.MaxTotalSize,
	})
	if err != nil {
		engine.Close()
		return nil, nil, err
	}

	v := vault.New(svc)
	if err := v.Hydrate(ctx); err != nil {
		engine.Close()
		return nil, nil, err
	}
	return v, engine.Close, nil
}

func setupLogger(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func runAdd(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("usage: fold-stash add <file>...")
	}

	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	toAdd := make([]*files.File, 0, len(paths))
	for _, path := range paths {
		f, err := readFile(path)
		if err != nil {
			return err
		}
		toAdd = append(toAdd, f)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	results := v.AddFiles(ctx, toAdd)
	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			red.Print("  ✗ ")
			fmt.Printf("%s: %v\n", toAdd[i].Name, r.Err)
			continue
		}
		green.Print("  ✓ ")
		fmt.Printf("%s  %s  (%s)\n", r.FileID, toAdd[i].Name, formatSize(toAdd[i].Size()))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// readFile builds a vault file from a path on disk. The MIME type is
// derived from the extension.
func readFile(path string) (*files.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &files.File{
		Name:         filepath.Base(path),
		Type:         mimeType,
		LastModified: info.ModTime().UTC(),
		Data:         data,
	}, nil
}

func runList(ctx context.Context, args []string) error {
	var statusFilter string
	if len(args) == 2 && args[0] == "--status" {
		statusFilter = args[1]
	} else if len(args) != 0 {
		return fmt.Errorf("usage: fold-stash ls [--status STATUS]")
	}

	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var entries []vault.Metadata
	if statusFilter != "" {
		entries = v.FilesByStatus(vault.Status(statusFilter))
	} else {
		for _, meta := range v.AllMetadata() {
			entries = append(entries, meta)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name < entries[j].Name
		})
	}

	if len(entries) == 0 {
		fmt.Println("no files")
		return nil
	}

	gray := color.New(color.FgHiBlack)
	for _, meta := range entries {
		fmt.Printf("%s  %-30s  %9s  %s\n",
			meta.FileKey, meta.Name, formatSize(meta.Size), meta.Status)
		if meta.Error != "" {
			gray.Printf("    error: %s\n", meta.Error)
		}
	}
	return nil
}

func runGet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: fold-stash get <id> [-o PATH]")
	}
	fileID := args[0]

	outPath := ""
	if len(args) == 3 && args[1] == "-o" {
		outPath = args[2]
	} else if len(args) != 1 {
		return fmt.Errorf("usage: fold-stash get <id> [-o PATH]")
	}

	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	f := v.GetFile(ctx, fileID)
	if f == nil {
		return fmt.Errorf("no stored file with id %q", fileID)
	}

	if outPath == "" {
		outPath = f.Name
	}
	if err := os.WriteFile(outPath, f.Data, 0644); err != nil {
		return fmt.Errorf("writing %q: %w", outPath, err)
	}

	fmt.Printf("wrote %s (%s)\n", outPath, formatSize(f.Size()))
	return nil
}

func runRemove(ctx context.Context, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return fmt.Errorf("usage: fold-stash rm <id>...")
	}

	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := v.RemoveFiles(ctx, fileIDs); err != nil {
		return err
	}
	fmt.Printf("removed %d file(s)\n", len(fileIDs))
	return nil
}

func runClear(ctx context.Context) error {
	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	count := len(v.AllMetadata())
	if err := v.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Printf("cleared %d file(s)\n", count)
	return nil
}

func runStatus(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	v, closeStore, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	cyan := color.New(color.FgCyan)
	cyan.Printf("fold-stash %s\n", version)

	maxTotal := cfg.Limits.MaxTotalSize
	if maxTotal == 0 {
		maxTotal = files.DefaultMaxTotalSize
	}

	fmt.Printf("  database: %s\n", cfg.Storage.Path)
	fmt.Printf("  files:    %d\n", len(v.AllMetadata()))
	fmt.Printf("  used:     %s of %s\n", formatSize(v.TotalSize()), formatSize(maxTotal))
	return nil
}

// formatSize renders a byte count with a binary unit suffix.
func formatSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
