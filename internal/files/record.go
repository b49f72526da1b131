// ABOUTME: Binary codec for stored file records
// ABOUTME: Frames a JSON metadata header ahead of the raw payload with a blake2b checksum

package files

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	recordMagic   = 0xF5
	recordVersion = 1
)

var (
	// ErrBadRecord is returned when a stored record cannot be decoded.
	ErrBadRecord = errors.New("malformed file record")
	// ErrChecksumMismatch is returned when the stored payload does not
	// match its recorded checksum.
	ErrChecksumMismatch = errors.New("payload checksum mismatch")
)

// recordHeader is the JSON metadata block stored ahead of the payload.
// LastModified is epoch milliseconds.
type recordHeader struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	LastModified int64  `json:"last_modified"`
	Size         int64  `json:"size"`
	Checksum     string `json:"checksum"`
}

// encodeRecord serializes a file into its stored form:
// magic byte, version byte, uvarint header length, JSON header, payload.
// The payload is stored raw (no base64), so record size stays close to
// file size.
func encodeRecord(f *File) ([]byte, error) {
	sum := blake2b.Sum256(f.Data)
	header := recordHeader{
		Name:         f.Name,
		Type:         f.Type,
		LastModified: f.LastModified.UnixMilli(),
		Size:         f.Size(),
		Checksum:     hex.EncodeToString(sum[:]),
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling record header: %w", err)
	}

	buf := make([]byte, 0, 2+binary.MaxVarintLen32+len(hdr)+len(f.Data))
	buf = append(buf, recordMagic, recordVersion)
	buf = binary.AppendUvarint(buf, uint64(len(hdr)))
	buf = append(buf, hdr...)
	buf = append(buf, f.Data...)
	return buf, nil
}

// decodeRecord reconstructs a file from its stored form, verifying the
// payload checksum.
func decodeRecord(value []byte) (*File, error) {
	header, payload, err := splitRecord(value)
	if err != nil {
		return nil, err
	}

	if int64(len(payload)) != header.Size {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d",
			ErrBadRecord, len(payload), header.Size)
	}

	sum := blake2b.Sum256(payload)
	if hex.EncodeToString(sum[:]) != header.Checksum {
		return nil, ErrChecksumMismatch
	}

	return &File{
		Name:         header.Name,
		Type:         header.Type,
		LastModified: time.UnixMilli(header.LastModified).UTC(),
		Data:         payload,
	}, nil
}

// decodeHeader reads only the metadata header of a stored record,
// without touching or verifying the payload.
func decodeHeader(value []byte) (*recordHeader, error) {
	header, _, err := splitRecord(value)
	if err != nil {
		return nil, err
	}
	return header, nil
}

func splitRecord(value []byte) (*recordHeader, []byte, error) {
	if len(value) < 3 {
		return nil, nil, fmt.Errorf("%w: record too short", ErrBadRecord)
	}
	if value[0] != recordMagic {
		return nil, nil, fmt.Errorf("%w: bad magic byte 0x%02x", ErrBadRecord, value[0])
	}
	if value[1] != recordVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrBadRecord, value[1])
	}

	hdrLen, n := binary.Uvarint(value[2:])
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid header length", ErrBadRecord)
	}
	rest := value[2+n:]
	if uint64(len(rest)) < hdrLen {
		return nil, nil, fmt.Errorf("%w: truncated header", ErrBadRecord)
	}

	var header recordHeader
	if err := json.Unmarshal(rest[:hdrLen], &header); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	return &header, rest[hdrLen:], nil
}
