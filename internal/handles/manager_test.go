package handles

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T, opts ...Option) (*Manager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	m, err := NewManager(st, logging.NewDiscardLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)
	return m, st
}

func createEntry(t *testing.T, st store.Store, name, typ string, payload []byte) string {
	t.Helper()
	id, err := st.Create(context.Background(), name, int64(len(payload)), typ, payload)
	require.NoError(t, err)
	return id
}

func TestIssueAndResolve(t *testing.T) {
	m, st := setup(t, WithBaseURL("http://localhost:9999/"))
	id := createEntry(t, st, "note.txt", "text/plain", []byte("hello"))

	h, err := m.Issue(context.Background(), id, PurposeDownload)
	require.NoError(t, err)

	assert.NotEmpty(t, h.ID)
	assert.Equal(t, id, h.EntryID)
	assert.Equal(t, StateIssued, m.State(h))
	assert.Equal(t, "http://localhost:9999/blobs/"+h.Token, h.Locator)
	assert.Equal(t, 1, m.Active())

	b, err := m.Resolve(h.Token)
	require.NoError(t, err)
	assert.Equal(t, "note.txt", b.Name)
	assert.Equal(t, "text/plain", b.Type)
	assert.Equal(t, PurposeDownload, b.Purpose)
	assert.Equal(t, []byte("hello"), b.Payload)
}

func TestIssue_EachCallIsNewHandle(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "a", "", []byte("a"))

	h1, err := m.Issue(context.Background(), id, PurposePreview)
	require.NoError(t, err)
	h2, err := m.Issue(context.Background(), id, PurposePreview)
	require.NoError(t, err)

	assert.NotEqual(t, h1.ID, h2.ID)
	assert.NotEqual(t, h1.Locator, h2.Locator)
	assert.Equal(t, 2, m.Active())
}

func TestIssue_MissingEntry(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "a", "", []byte("a"))
	require.NoError(t, st.DeleteByID(context.Background(), id))

	_, err := m.Issue(context.Background(), id, PurposeDownload)
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.Zero(t, m.Active())
}

func TestRelease_Idempotent(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "a", "", []byte("a"))

	h, err := m.Issue(context.Background(), id, PurposeDownload)
	require.NoError(t, err)

	m.Release(h)
	assert.Equal(t, StateReleased, m.State(h))
	assert.Zero(t, m.Active())

	assert.NotPanics(t, func() { m.Release(h) })
	assert.NotPanics(t, func() { m.Release(nil) })
	assert.Equal(t, StateReleased, m.State(h))

	_, err = m.Resolve(h.Token)
	require.ErrorIs(t, err, common.ErrHandleReleased)
}

func TestResolve_InvalidTokens(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "a", "", []byte("a"))

	_, err := m.Resolve("garbage")
	require.ErrorIs(t, err, common.ErrInvalidHandle)

	foreign, err := NewManager(st, logging.NewDiscardLogger())
	require.NoError(t, err)
	fh, err := foreign.Issue(context.Background(), id, PurposeDownload)
	require.NoError(t, err)

	_, err = m.Resolve(fh.Token)
	require.ErrorIs(t, err, common.ErrInvalidHandle, "tokens from another session must not resolve")
}

func TestResolve_ExpiredIsReleased(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	m, st := setup(t, WithClock(clock.Now), WithTTL(time.Minute))
	id := createEntry(t, st, "a", "", []byte("a"))

	h, err := m.Issue(context.Background(), id, PurposeDownload)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = m.Resolve(h.Token)
	require.ErrorIs(t, err, common.ErrHandleReleased)
	assert.Equal(t, StateReleased, m.State(h))
	assert.Zero(t, m.Active())
}

func TestSweep(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	m, st := setup(t, WithClock(clock.Now), WithTTL(time.Minute))
	id := createEntry(t, st, "a", "", []byte("a"))

	old, err := m.Issue(context.Background(), id, PurposeDownload)
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	fresh, err := m.Issue(context.Background(), id, PurposeDownload)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, StateReleased, m.State(old))
	assert.Equal(t, StateIssued, m.State(fresh))
}

func TestWithHandle_ReleasesOnSuccessAndFailure(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "a", "", []byte("a"))

	var seen *Handle
	err := m.WithHandle(context.Background(), id, PurposeDownload, func(h *Handle) error {
		seen = h
		assert.Equal(t, 1, m.Active())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateReleased, m.State(seen))

	boom := errors.New("write failed")
	err = m.WithHandle(context.Background(), id, PurposeDownload, func(h *Handle) error {
		seen = h
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateReleased, m.State(seen))
	assert.Zero(t, m.Active())
}

func TestReleaseOnClose(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "pic.png", "image/png", []byte{0x89, 'P', 'N', 'G'})

	h, err := m.Issue(context.Background(), id, PurposePreview)
	require.NoError(t, err)

	closing := make(chan struct{})
	m.ReleaseOnClose(h, closing)
	assert.Equal(t, StateIssued, m.State(h))

	close(closing)
	require.Eventually(t, func() bool { return m.State(h) == StateReleased }, time.Second, 5*time.Millisecond)
}

func TestShutdown_ReleasesEverything(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "a", "", []byte("a"))

	pending, err := m.Issue(context.Background(), id, PurposePreview)
	require.NoError(t, err)
	m.ReleaseOnClose(pending, make(chan struct{}))

	for range 3 {
		_, err := m.Issue(context.Background(), id, PurposeDownload)
		require.NoError(t, err)
	}
	require.Equal(t, 4, m.Active())

	m.Shutdown()
	assert.Zero(t, m.Active())
	assert.Equal(t, StateReleased, m.State(pending))
	assert.NotPanics(t, m.Shutdown)
}

func TestIssue_AfterShutdownIsRefused(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "a", "", []byte("a"))

	m.Shutdown()

	h, err := m.Issue(context.Background(), id, PurposeDownload)
	require.ErrorIs(t, err, common.ErrHandleReleased)
	assert.Nil(t, h)
	assert.Zero(t, m.Active())

	err = m.WithHandle(context.Background(), id, PurposeDownload, func(*Handle) error {
		t.Fatal("callback must not run after shutdown")
		return nil
	})
	require.ErrorIs(t, err, common.ErrHandleReleased)
	assert.Zero(t, m.Active())
}

func TestLocatorEmbedsToken(t *testing.T) {
	m, st := setup(t)
	id := createEntry(t, st, "a", "", []byte("a"))

	h, err := m.Issue(context.Background(), id, PurposeDownload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h.Locator, DefaultBaseURL+"/blobs/"))
	assert.Equal(t, 2, strings.Count(h.Token, "."))
}
