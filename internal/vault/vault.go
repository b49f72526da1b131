// ABOUTME: Vault tracks per-file upload metadata and orchestrates the file service
// ABOUTME: Optimistic status transitions with per-file failure isolation on adds

package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/fold-stash/internal/files"
)

// Status is the upload state of a tracked file.
type Status string

const (
	// StatusPending marks an entry accepted but not yet persisting.
	StatusPending Status = "pending"
	// StatusUploading marks an entry whose save is in flight.
	StatusUploading Status = "uploading"
	// StatusSuccess marks an entry whose record is durably stored.
	StatusSuccess Status = "success"
	// StatusError marks an entry whose save failed.
	StatusError Status = "error"
)

// Metadata is the tracked state of one file. The file ID and the
// persistence key are the same value.
type Metadata struct {
	FileKey      string
	Name         string
	Type         string
	Size         int64
	LastModified time.Time
	Status       Status
	Error        string
	UploadedAt   time.Time
}

// AddResult reports the outcome of one file in an AddFiles call, in
// input order.
type AddResult struct {
	FileID string
	Err    error
}

// Vault owns the authoritative in-memory metadata map and mediates all
// file operations through a files.Service. Entries with status success
// always have a stored record; pending, uploading, and error entries
// may not.
type Vault struct {
	service *files.Service
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Metadata // keyed by fileID
}

// New creates an empty vault over the given file service.
func New(service *files.Service) *Vault {
	return &Vault{
		service: service,
		logger:  slog.Default().With("component", "vault"),
		entries: make(map[string]*Metadata),
	}
}

// Hydrate populates the vault from the records already persisted in
// the underlying service. Rehydrated entries are marked success; their
// UploadedAt is unknown and left zero. Existing in-memory entries are
// kept.
func (v *Vault) Hydrate(ctx context.Context) error {
	infos, err := v.service.ListStored(ctx)
	if err != nil {
		return fmt.Errorf("hydrating vault: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, info := range infos {
		if _, ok := v.entries[info.FileKey]; ok {
			continue
		}
		v.entries[info.FileKey] = &Metadata{
			FileKey:      info.FileKey,
			Name:         info.Name,
			Type:         info.Type,
			Size:         info.Size,
			LastModified: info.LastModified,
			Status:       StatusSuccess,
		}
	}
	return nil
}

// AddFiles stores the given files concurrently and independently. Every
// entry is inserted with status pending before any save starts, moves
// to uploading when its save begins, and ends in success or error. One
// file's failure never aborts its siblings; the caller gets one
// AddResult per input, and the metadata map carries the same outcomes.
func (v *Vault) AddFiles(ctx context.Context, fs []*files.File) []AddResult {
	results := make([]AddResult, len(fs))

	// Insert all entries pending first so callers observing the map
	// mid-add see every accepted file.
	v.mu.Lock()
	for i, f := range fs {
		fileKey := uuid.NewString()
		v.entries[fileKey] = &Metadata{
			FileKey:      fileKey,
			Name:         f.Name,
			Type:         f.Type,
			Size:         f.Size(),
			LastModified: f.LastModified,
			Status:       StatusPending,
		}
		results[i].FileID = fileKey
	}
	v.mu.Unlock()

	var wg sync.WaitGroup
	for i, f := range fs {
		wg.Add(1)
		go func(i int, f *files.File) {
			defer wg.Done()
			fileID := results[i].FileID

			v.setStatus(fileID, StatusUploading, "")
			if err := v.service.SaveFile(ctx, fileID, f); err != nil {
				v.setStatus(fileID, StatusError, err.Error())
				results[i].Err = err
				return
			}
			v.setStatus(fileID, StatusSuccess, "")
		}(i, f)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		v.logger.Warn("some files failed to store", "failed", failed, "total", len(fs))
	}
	return results
}

// SetStatus explicitly transitions an entry. Unknown fileIDs are
// ignored. errMsg is recorded for StatusError and cleared otherwise.
func (v *Vault) SetStatus(fileID string, status Status, errMsg string) {
	v.setStatus(fileID, status, errMsg)
}

func (v *Vault) setStatus(fileID string, status Status, errMsg string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.entries[fileID]
	if !ok {
		return
	}
	entry.Status = status
	entry.Error = ""
	if status == StatusError {
		entry.Error = errMsg
	}
	if status == StatusSuccess {
		entry.UploadedAt = time.Now().UTC()
	}
}

// RemoveFile deletes the stored record, then the metadata entry. An
// unknown fileID is a no-op. If the record delete fails, the entry is
// retained and the error returned so the caller can retry.
func (v *Vault) RemoveFile(ctx context.Context, fileID string) error {
	v.mu.RLock()
	entry, ok := v.entries[fileID]
	var fileKey string
	if ok {
		fileKey = entry.FileKey
	}
	v.mu.RUnlock()

	if !ok {
		return nil
	}

	if err := v.service.DeleteFile(ctx, fileKey); err != nil {
		v.logger.Error("failed to delete file record", "file_id", fileID, "error", err)
		return fmt.Errorf("removing file %q: %w", fileID, err)
	}

	v.mu.Lock()
	delete(v.entries, fileID)
	v.mu.Unlock()
	return nil
}

// RemoveFiles removes the given entries concurrently. Every fileID is
// attempted: entries whose record delete succeeded are removed, failed
// ones are retained, and all failures are joined into the returned
// error.
func (v *Vault) RemoveFiles(ctx context.Context, fileIDs []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, fileID := range fileIDs {
		wg.Add(1)
		go func(fileID string) {
			defer wg.Done()
			if err := v.RemoveFile(ctx, fileID); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(fileID)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// ClearAll wipes the persistent namespace, then resets the metadata
// map. If the persistent clear fails, the error is returned and the
// in-memory state is left untouched.
func (v *Vault) ClearAll(ctx context.Context) error {
	if err := v.service.ClearAll(ctx); err != nil {
		v.logger.Error("failed to clear stored files", "error", err)
		return err
	}

	v.mu.Lock()
	v.entries = make(map[string]*Metadata)
	v.mu.Unlock()
	return nil
}

// GetFile loads the stored file for fileID. Returns nil for unknown
// IDs, entries without a record, or unreadable records.
func (v *Vault) GetFile(ctx context.Context, fileID string) *files.File {
	v.mu.RLock()
	entry, ok := v.entries[fileID]
	var fileKey string
	if ok {
		fileKey = entry.FileKey
	}
	v.mu.RUnlock()

	if !ok {
		return nil
	}
	return v.service.LoadFile(ctx, fileKey)
}

// GetFiles loads the stored files for the given IDs concurrently.
// Unknown IDs and missing records are omitted from the result.
func (v *Vault) GetFiles(ctx context.Context, fileIDs []string) map[string]*files.File {
	refs := make(map[string]string, len(fileIDs))

	v.mu.RLock()
	for _, fileID := range fileIDs {
		if entry, ok := v.entries[fileID]; ok {
			refs[fileID] = entry.FileKey
		}
	}
	v.mu.RUnlock()

	return v.service.LoadFiles(ctx, refs)
}

// GetAllFiles loads every tracked file that has a stored record.
func (v *Vault) GetAllFiles(ctx context.Context) map[string]*files.File {
	refs := make(map[string]string)

	v.mu.RLock()
	for fileID, entry := range v.entries {
		refs[fileID] = entry.FileKey
	}
	v.mu.RUnlock()

	return v.service.LoadFiles(ctx, refs)
}

// HasFile reports whether fileID is tracked.
func (v *Vault) HasFile(fileID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.entries[fileID]
	return ok
}

// GetMetadata returns a copy of the metadata for fileID.
func (v *Vault) GetMetadata(fileID string) (Metadata, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	entry, ok := v.entries[fileID]
	if !ok {
		return Metadata{}, false
	}
	return *entry, true
}

// AllMetadata returns a copy of the full metadata map.
func (v *Vault) AllMetadata() map[string]Metadata {
	v.mu.RLock()
	defer v.mu.RUnlock()

	result := make(map[string]Metadata, len(v.entries))
	for fileID, entry := range v.entries {
		result[fileID] = *entry
	}
	return result
}

// FilesByStatus returns copies of all entries in the given status,
// sorted by file key for stable output.
func (v *Vault) FilesByStatus(status Status) []Metadata {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var result []Metadata
	for _, entry := range v.entries {
		if entry.Status == status {
			result = append(result, *entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FileKey < result[j].FileKey
	})
	return result
}

// TotalSize reports the total bytes stored by the underlying service.
func (v *Vault) TotalSize() int64 {
	return v.service.TotalSize()
}
