// Package models defines the persisted file entry and related aggregates.
package models

import (
	"strings"
	"time"
)

// UnknownType is stored when no MIME type was supplied at creation.
const UnknownType = "unknown"

// FileEntry is one stored file: metadata plus the payload it owns.
// Entries are immutable after creation.
type FileEntry struct {
	// ID is generated by the store from a cryptographically random source
	// and is never reused, even after the entry is deleted.
	ID string

	// Name is the original file name. Not unique.
	Name string

	// Size is the payload length in bytes at creation.
	Size int64

	// Type is a MIME type or UnknownType.
	Type string

	// CreatedAt is stamped by the store with millisecond precision.
	CreatedAt time.Time

	// Checksum is the hex BLAKE2b-256 digest of Payload. Empty for entries
	// written before checksums were recorded.
	Checksum string

	// Payload is opaque to the store. Listings leave it nil.
	Payload []byte
}

// IsImage reports whether the entry can be previewed as an image.
func (e FileEntry) IsImage() bool {
	return strings.HasPrefix(e.Type, "image/")
}

// Stats summarises the whole collection.
type Stats struct {
	Count     int
	TotalSize int64
}
