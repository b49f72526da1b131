// ABOUTME: File value type passed between the UI layer and the storage service
// ABOUTME: Holds the binary payload plus the metadata persisted alongside it

package files

import "time"

// File is an in-memory binary file: the payload plus the metadata that
// is persisted alongside it.
type File struct {
	Name         string
	Type         string // MIME type
	LastModified time.Time
	Data         []byte
}

// Size reports the payload size in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}
