package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
	"github.com/dmitrijs2005/gophdrive/internal/models"
)

type memEntry struct {
	entry models.FileEntry
	seq   int64
}

// MemoryStore is a Store kept entirely in process memory. It follows the
// same ordering, id and error rules as SQLiteStore and is used in tests and
// for throwaway sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	issued  map[string]struct{}
	seq     int64
	closed  bool
	opts    options
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		issued:  make(map[string]struct{}),
		opts:    buildOptions(opts),
	}
}

func (m *MemoryStore) checkOpen() error {
	if m.closed {
		return fmt.Errorf("%w: store is closed", common.ErrStorageUnavailable)
	}
	return nil
}

func (m *MemoryStore) Create(_ context.Context, name string, size int64, typ string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return "", err
	}

	e, err := newEntry(m.opts.now(), name, size, typ, slices.Clone(payload))
	if err != nil {
		return "", err
	}
	e.Checksum = cryptox.Checksum(e.Payload)

	for range m.opts.maxIDAttempts {
		id, err := m.opts.newID(e.CreatedAt)
		if err != nil {
			return "", err
		}
		if _, taken := m.issued[id]; taken {
			continue
		}

		m.issued[id] = struct{}{}
		m.seq++
		e.ID = id
		m.entries[id] = memEntry{entry: e, seq: m.seq}
		return id, nil
	}

	return "", fmt.Errorf("create entry: %w: id space exhausted after %d attempts",
		common.ErrWriteConflict, m.opts.maxIDAttempts)
}

func (m *MemoryStore) ListAll(_ context.Context) ([]models.FileEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	rows := make([]memEntry, 0, len(m.entries))
	for _, me := range m.entries {
		rows = append(rows, me)
	}
	slices.SortStableFunc(rows, func(a, b memEntry) int {
		if c := b.entry.CreatedAt.Compare(a.entry.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]models.FileEntry, 0, len(rows))
	for _, me := range rows {
		e := me.entry
		e.Payload = nil
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryStore) Search(ctx context.Context, query string) ([]models.FileEntry, error) {
	all, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByName(all, query), nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*models.FileEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	me, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	e := me.entry
	e.Payload = slices.Clone(me.entry.Payload)
	return &e, nil
}

func (m *MemoryStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}
	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	delete(m.entries, id)
	return nil
}

// Clear drops every entry. Issued ids stay reserved.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen(); err != nil {
		return err
	}
	clear(m.entries)
	return nil
}

func (m *MemoryStore) Stats(_ context.Context) (models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		return models.Stats{}, err
	}

	st := models.Stats{Count: len(m.entries)}
	for _, me := range m.entries {
		st.TotalSize += me.entry.Size
	}
	return st, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
