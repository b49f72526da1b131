// ABOUTME: Service converts files to stored records and enforces size limits
// ABOUTME: Keeps a size cache rebuilt from storage so totals survive restarts

package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/fold-stash/internal/store"
)

// Default size limits. Browser-profile storage engines carry
// engine-specific quotas; enforcing before write avoids wasted writes.
const (
	DefaultMaxFileSize  = 100 << 20 // 100 MiB per file
	DefaultMaxTotalSize = 500 << 20 // 500 MiB across the namespace
)

var (
	// ErrFileTooLarge is returned when a single file exceeds the
	// per-file size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum file size")
	// ErrStoreFull is returned when saving a file would push the
	// namespace past the total size limit.
	ErrStoreFull = errors.New("store would exceed maximum total size")
)

// Limits configures the service's size enforcement. Zero values fall
// back to the defaults.
type Limits struct {
	MaxFileSize  int64
	MaxTotalSize int64
}

func (l Limits) withDefaults() Limits {
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = DefaultMaxFileSize
	}
	if l.MaxTotalSize <= 0 {
		l.MaxTotalSize = DefaultMaxTotalSize
	}
	return l
}

// Service persists files as records in a store namespace. All writes to
// the namespace must go through the service so the size accounting
// stays authoritative; the cache is additionally rebuilt from stored
// record headers at construction so a restart reconverges with storage.
type Service struct {
	ns     *store.Namespace
	limits Limits
	logger *slog.Logger

	mu    sync.Mutex
	sizes map[string]int64 // fileKey -> payload size
}

// NewService creates a Service over the given namespace and rebuilds
// the size cache from the records already stored there.
func NewService(ctx context.Context, ns *store.Namespace, limits Limits) (*Service, error) {
	s := &Service{
		ns:     ns,
		limits: limits.withDefaults(),
		logger: slog.Default().With("component", "files"),
		sizes:  make(map[string]int64),
	}
	if err := s.recalculateSizes(ctx); err != nil {
		return nil, fmt.Errorf("rebuilding size cache: %w", err)
	}
	return s, nil
}

// recalculateSizes scans the namespace and rebuilds the size cache from
// stored record headers. Records that fail to decode are skipped with a
// warning; they stay invisible to the total until overwritten or cleared.
func (s *Service) recalculateSizes(ctx context.Context) error {
	keys, err := s.ns.Keys(ctx)
	if err != nil {
		return err
	}

	sizes := make(map[string]int64, len(keys))
	for _, key := range keys {
		value, err := s.ns.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("reading record %q: %w", key, err)
		}
		header, err := decodeHeader(value)
		if err != nil {
			s.logger.Warn("skipping undecodable record in size scan", "key", key, "error", err)
			continue
		}
		sizes[key] = header.Size
	}

	s.mu.Lock()
	s.sizes = sizes
	s.mu.Unlock()

	s.logger.Debug("size cache rebuilt", "records", len(sizes))
	return nil
}

// SaveFile persists file under fileKey, overwriting any existing record.
// It fails with ErrFileTooLarge or ErrStoreFull before touching storage
// if the size limits would be violated.
func (s *Service) SaveFile(ctx context.Context, fileKey string, file *File) error {
	size := file.Size()
	if size > s.limits.MaxFileSize {
		return fmt.Errorf("%w: %q is %d bytes, limit is %d",
			ErrFileTooLarge, file.Name, size, s.limits.MaxFileSize)
	}

	// Reserve the size up front so concurrent saves cannot jointly
	// slip past the total limit. Rolled back if the write fails.
	s.mu.Lock()
	previous, overwriting := s.sizes[fileKey]
	total := s.total() - previous
	if total+size > s.limits.MaxTotalSize {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d bytes stored, %q adds %d, limit is %d",
			ErrStoreFull, total, file.Name, size, s.limits.MaxTotalSize)
	}
	s.sizes[fileKey] = size
	s.mu.Unlock()

	record, err := encodeRecord(file)
	if err == nil {
		err = s.ns.Set(ctx, fileKey, record)
	}
	if err != nil {
		s.mu.Lock()
		if overwriting {
			s.sizes[fileKey] = previous
		} else {
			delete(s.sizes, fileKey)
		}
		s.mu.Unlock()
		return fmt.Errorf("saving file %q: %w", fileKey, err)
	}

	s.logger.Debug("saved file", "key", fileKey, "name", file.Name, "bytes", size)
	return nil
}

// LoadFile reconstructs the file stored under fileKey. Returns nil if
// no record exists or the record cannot be read or decoded; read
// failures are logged, never returned.
func (s *Service) LoadFile(ctx context.Context, fileKey string) *File {
	value, err := s.ns.Get(ctx, fileKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to read file record", "key", fileKey, "error", err)
		}
		return nil
	}

	file, err := decodeRecord(value)
	if err != nil {
		s.logger.Warn("failed to decode file record", "key", fileKey, "error", err)
		return nil
	}
	return file
}

// LoadFiles loads each referenced file independently and concurrently.
// refs maps fileID to fileKey. Entries with no loadable record are
// omitted from the result.
func (s *Service) LoadFiles(ctx context.Context, refs map[string]string) map[string]*File {
	result := make(map[string]*File, len(refs))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for fileID, fileKey := range refs {
		wg.Add(1)
		go func(fileID, fileKey string) {
			defer wg.Done()
			if file := s.LoadFile(ctx, fileKey); file != nil {
				mu.Lock()
				result[fileID] = file
				mu.Unlock()
			}
		}(fileID, fileKey)
	}
	wg.Wait()

	return result
}

// FileInfo describes a stored record without its payload.
type FileInfo struct {
	FileKey      string
	Name         string
	Type         string
	Size         int64
	LastModified time.Time
}

// ListStored returns metadata for every decodable record in the
// namespace, sorted by file key. Payloads are not loaded.
func (s *Service) ListStored(ctx context.Context) ([]FileInfo, error) {
	keys, err := s.ns.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored files: %w", err)
	}

	infos := make([]FileInfo, 0, len(keys))
	for _, key := range keys {
		value, err := s.ns.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("reading record %q: %w", key, err)
		}
		header, err := decodeHeader(value)
		if err != nil {
			s.logger.Warn("skipping undecodable record in listing", "key", key, "error", err)
			continue
		}
		infos = append(infos, FileInfo{
			FileKey:      key,
			Name:         header.Name,
			Type:         header.Type,
			Size:         header.Size,
			LastModified: time.UnixMilli(header.LastModified).UTC(),
		})
	}
	return infos, nil
}

// DeleteFile removes the record under fileKey. Deleting a missing key
// is a no-op.
func (s *Service) DeleteFile(ctx context.Context, fileKey string) error {
	if err := s.ns.Delete(ctx, fileKey); err != nil {
		return fmt.Errorf("deleting file %q: %w", fileKey, err)
	}

	s.mu.Lock()
	delete(s.sizes, fileKey)
	s.mu.Unlock()
	return nil
}

// DeleteFiles removes the records under the given keys. Every key is
// attempted; failures are joined into the returned error while
// successful deletes still take effect.
func (s *Service) DeleteFiles(ctx context.Context, fileKeys []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, fileKey := range fileKeys {
		wg.Add(1)
		go func(fileKey string) {
			defer wg.Done()
			if err := s.DeleteFile(ctx, fileKey); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(fileKey)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// ClearAll wipes every record in the namespace and resets the size
// cache. On failure the cache is left untouched.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.ns.Clear(ctx); err != nil {
		return fmt.Errorf("clearing files: %w", err)
	}

	s.mu.Lock()
	s.sizes = make(map[string]int64)
	s.mu.Unlock()

	s.logger.Debug("cleared all files")
	return nil
}

// TotalSize reports the sum of all stored payload sizes.
func (s *Service) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total()
}

// total sums the size cache. Caller must hold s.mu.
func (s *Service) total() int64 {
	var sum int64
	for _, size := range s.sizes {
		sum += size
	}
	return sum
}
