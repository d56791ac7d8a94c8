package zipengine

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Entry is one member of a manifest: a file the engine will place in the
// synthesized archive, backed by an object in the blob store.
type Entry struct {
	// ArchiveName is the in-archive path. It is opaque to the engine and
	// treated as raw bytes when encoded.
	ArchiveName string

	// Length is the exact, trusted, uncompressed size of the member.
	Length uint64

	// CRC32 is the precomputed checksum of the member's content.
	CRC32 uint32

	// Source identifies the blob-store object, e.g. "s3://bucket/key".
	Source string

	// LastModified is encoded into the ZIP local header and central
	// directory entry as an MS-DOS date/time, in UTC.
	LastModified time.Time
}

// Manifest describes the archive a client has requested: a download name
// plus an ordered list of members.
type Manifest struct {
	Filename string
	Entries  []Entry
}

type wireEntry struct {
	ArchiveName  string `json:"archive_name"`
	Length       uint64 `json:"length"`
	CRC          uint32 `json:"crc"`
	Source       string `json:"source"`
	LastModified string `json:"last_modified"`
}

type wireManifest struct {
	Filename string      `json:"filename"`
	Entries  []wireEntry `json:"entries"`
}

// ParseManifest decodes the JSON manifest format described in the wire
// contract. Unknown fields are ignored; a missing required field is a fatal
// parse error reported as ErrManifestInvalid.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var wire wireManifest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrManifestInvalid, err)
	}

	if wire.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrManifestInvalid)
	}

	entries := make([]Entry, 0, len(wire.Entries))
	for i, we := range wire.Entries {
		if we.ArchiveName == "" {
			return nil, fmt.Errorf("%w: entries[%d]: archive_name is required", ErrManifestInvalid, i)
		}
		if we.Source == "" {
			return nil, fmt.Errorf("%w: entries[%d]: source is required", ErrManifestInvalid, i)
		}
		if we.LastModified == "" {
			return nil, fmt.Errorf("%w: entries[%d]: last_modified is required", ErrManifestInvalid, i)
		}
		lm, err := time.Parse(time.RFC3339, we.LastModified)
		if err != nil {
			return nil, fmt.Errorf("%w: entries[%d]: invalid last_modified: %v", ErrManifestInvalid, i, err)
		}
		entries = append(entries, Entry{
			ArchiveName:  we.ArchiveName,
			Length:       we.Length,
			CRC32:        we.CRC,
			Source:       we.Source,
			LastModified: lm.UTC(),
		})
	}

	return &Manifest{Filename: wire.Filename, Entries: entries}, nil
}
