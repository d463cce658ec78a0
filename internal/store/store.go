package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/models"
)

// DefaultMaxIDAttempts bounds id regeneration after write conflicts.
const DefaultMaxIDAttempts = 5

// Store describes durable CRUD and query operations over file entries.
type Store interface {
	// Create stores a new immutable entry and returns its generated id.
	Create(ctx context.Context, name string, size int64, typ string, payload []byte) (string, error)

	// ListAll returns metadata of every entry, newest first. Payloads are
	// not loaded.
	ListAll(ctx context.Context) ([]models.FileEntry, error)

	// Search filters ListAll by a case-insensitive substring of the name.
	Search(ctx context.Context, query string) ([]models.FileEntry, error)

	// GetByID returns the entry including its payload, or ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.FileEntry, error)

	// DeleteByID removes one entry, or reports ErrorNotFound.
	DeleteByID(ctx context.Context, id string) error

	// Clear removes every entry. Callers confirm with the user first.
	Clear(ctx context.Context) error

	// Stats returns entry count and total payload size.
	Stats(ctx context.Context) (models.Stats, error)

	Close() error
}

// IDGenerator returns a fresh entry id. now is the creation time of the
// entry being stored.
type IDGenerator func(now time.Time) (string, error)

type options struct {
	now           func() time.Time
	newID         IDGenerator
	maxIDAttempts int
}

// Option customises a store.
type Option func(*options)

// WithClock replaces time.Now for CreatedAt stamping.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the default ULID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.newID = g }
}

// WithMaxIDAttempts sets how many ids Create tries before giving up on
// ErrWriteConflict. Values below 1 are ignored.
func WithMaxIDAttempts(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxIDAttempts = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:           time.Now,
		newID:         NewULID,
		maxIDAttempts: DefaultMaxIDAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newEntry validates the create arguments and returns the entry to persist,
// without id.
func newEntry(now time.Time, name string, size int64, typ string, payload []byte) (models.FileEntry, error) {
	if size != int64(len(payload)) {
		return models.FileEntry{}, fmt.Errorf("%w: size %d does not match payload length %d",
			common.ErrValidation, size, len(payload))
	}
	if typ == "" {
		typ = models.UnknownType
	}
	if payload == nil {
		payload = []byte{}
	}
	return models.FileEntry{
		Name:      name,
		Size:      size,
		Type:      typ,
		CreatedAt: time.UnixMilli(now.UnixMilli()),
		Payload:   payload,
	}, nil
}
