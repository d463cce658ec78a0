package handles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultTTL     = 15 * time.Minute
	DefaultBaseURL = "http://127.0.0.1:8787"

	secretSize = 32
)

// EntryFetcher loads a full entry. store.Store satisfies it.
type EntryFetcher interface {
	GetByID(ctx context.Context, id string) (*models.FileEntry, error)
}

type options struct {
	baseURL string
	ttl     time.Duration
	secret  []byte
	now     func() time.Time
}

type Option func(*options)

// WithBaseURL sets the scheme and host that locators point at.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithTTL bounds how long an unreleased handle stays resolvable.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithSecret fixes the signing key. By default a random key is generated
// for every manager.
func WithSecret(secret []byte) Option {
	return func(o *options) { o.secret = secret }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type liveHandle struct {
	handle *Handle
	blob   Blob
}

// Manager owns every live handle of a session. It is safe for concurrent
// use.
type Manager struct {
	fetcher EntryFetcher
	logger  logging.Logger
	opts    options

	mu   sync.Mutex
	live map[string]*liveHandle

	done     chan struct{}
	doneOnce sync.Once
}

func NewManager(fetcher EntryFetcher, logger logging.Logger, opts ...Option) (*Manager, error) {
	o := options{
		baseURL: DefaultBaseURL,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.secret) == 0 {
		secret, err := common.GenerateRandByteArray(secretSize)
		if err != nil {
			return nil, fmt.Errorf("handle secret: %w", err)
		}
		o.secret = secret
	}

	return &Manager{
		fetcher: fetcher,
		logger:  logger.With("component", "handles"),
		opts:    o,
		live:    make(map[string]*liveHandle),
		done:    make(chan struct{}),
	}, nil
}

// Issue loads the entry and returns a new handle to its payload. A missing
// entry is reported with the fetcher's error unchanged.
func (m *Manager) Issue(ctx context.Context, entryID string, purpose Purpose) (*Handle, error) {
	e, err := m.fetcher.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	now := m.opts.now()
	h := &Handle{
		ID:        uuid.NewString(),
		EntryID:   e.ID,
		Purpose:   purpose,
		ExpiresAt: now.Add(m.opts.ttl),
		Name:      e.Name,
		Type:      e.Type,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        h.ID,
			Subject:   e.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(h.ExpiresAt),
		},
		Purpose: purpose,
	})
	h.Token, err = token.SignedString(m.opts.secret)
	if err != nil {
		return nil, fmt.Errorf("sign handle: %w", err)
	}
	h.Locator = m.opts.baseURL + "/blobs/" + h.Token

	m.mu.Lock()
	if m.isShutDownLocked() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: manager is shut down", common.ErrHandleReleased)
	}
	m.live[h.ID] = &liveHandle{
		handle: h,
		blob: Blob{
			Name:      e.Name,
			Type:      e.Type,
			Checksum:  e.Checksum,
			Purpose:   purpose,
			CreatedAt: e.CreatedAt,
			Payload:   e.Payload,
		},
	}
	m.mu.Unlock()

	m.logger.Debug(ctx, "handle issued", "handle", h.ID, "entry", e.ID, "purpose", purpose)
	return h, nil
}

// Release drops the handle's payload. Releasing twice, or releasing nil, is
// a no-op.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked(h)
}

func (m *Manager) releaseLocked(h *Handle) {
	if h.state == StateReleased {
		return
	}
	h.state = StateReleased
	delete(m.live, h.ID)
	m.logger.Debug(context.Background(), "handle released", "handle", h.ID, "entry", h.EntryID)
}

// State reports the current state of h.
func (m *Manager) State(h *Handle) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return h.state
}

// WithHandle issues a handle, passes it to fn and releases it when fn
// returns, whether or not fn failed.
func (m *Manager) WithHandle(ctx context.Context, entryID string, purpose Purpose, fn func(*Handle) error) error {
	h, err := m.Issue(ctx, entryID, purpose)
	if err != nil {
		return err
	}
	defer m.Release(h)

	return fn(h)
}

// ReleaseOnClose releases h once closing is closed or the manager shuts
// down, whichever happens first.
func (m *Manager) ReleaseOnClose(h *Handle, closing <-chan struct{}) {
	go func() {
		select {
		case <-closing:
		case <-m.done:
		}
		m.Release(h)
	}()
}

// Resolve validates a token and returns the payload behind it. Expired
// handles are released on the spot.
func (m *Manager) Resolve(token string) (*Blob, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c,
		func(*jwt.Token) (any, error) { return m.opts.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.opts.now),
		jwt.WithExpirationRequired(),
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		if lh, ok := m.live[c.ID]; ok {
			m.releaseLocked(lh.handle)
		}
		return nil, fmt.Errorf("%w: expired", common.ErrHandleReleased)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidHandle, err)
	}

	lh, ok := m.live[c.ID]
	if !ok {
		return nil, common.ErrHandleReleased
	}
	if lh.handle.EntryID != c.Subject {
		return nil, fmt.Errorf("%w: subject mismatch", common.ErrInvalidHandle)
	}

	b := lh.blob
	return &b, nil
}

// Sweep releases every handle past its expiry and returns how many were
// dropped.
func (m *Manager) Sweep() int {
	now := m.opts.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for _, lh := range m.live {
		if !now.Before(lh.handle.ExpiresAt) {
			m.releaseLocked(lh.handle)
			n++
		}
	}
	return n
}

// Shutdown releases every handle and stops pending ReleaseOnClose waiters.
// Issue fails with ErrHandleReleased afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, lh := range m.live {
		m.releaseLocked(lh.handle)
	}
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *Manager) isShutDownLocked() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Active returns the number of issued, unreleased handles.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
