package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/config"
	"github.com/dmitrijs2005/gophdrive/internal/handles"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/models"
	"github.com/dmitrijs2005/gophdrive/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type testEnv struct {
	app   *App
	store *store.MemoryStore
	out   *bytes.Buffer
	lines chan string
}

func newTestEnv(t *testing.T, opts ...handles.Option) *testEnv {
	t.Helper()
	logger := logging.NewDiscardLogger()
	st := store.NewMemoryStore()

	ts := httptest.NewUnstartedServer(nil)
	opts = append([]handles.Option{handles.WithBaseURL("http://" + ts.Listener.Addr().String())}, opts...)
	m, err := handles.NewManager(st, logger, opts...)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DownloadDir = filepath.Join(t.TempDir(), "downloads")

	out := &bytes.Buffer{}
	a := newApp(cfg, logger, st, m, strings.NewReader(""), out)
	lines := make(chan string, 8)
	a.lines = lines

	ts.Config.Handler = a.server.Handler()
	ts.Start()
	t.Cleanup(ts.Close)
	t.Cleanup(m.Shutdown)

	return &testEnv{app: a, store: st, out: out, lines: lines}
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func (e *testEnv) add(t *testing.T, name string, data []byte) string {
	t.Helper()
	require.NoError(t, e.app.Add(context.Background(), []string{writeTemp(t, name, data)}))
	all, err := e.store.ListAll(context.Background())
	require.NoError(t, err)
	for _, f := range all {
		if f.Name == name {
			return f.ID
		}
	}
	t.Fatalf("%s not stored", name)
	return ""
}

var locatorRe = regexp.MustCompile(`http://\S+/blobs/\S+`)

func TestAdd_BatchContinuesPastFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	txt := writeTemp(t, "a.txt", []byte("hello"))
	png := writeTemp(t, "b.png", pngHeader)
	missing := filepath.Join(t.TempDir(), "missing.bin")
	dir := t.TempDir()

	err := env.app.Add(ctx, []string{txt, missing, png, dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 4")

	out := env.out.String()
	assert.Contains(t, out, "added a.txt as ")
	assert.Contains(t, out, "added b.png as ")
	assert.Contains(t, out, "failed "+missing)
	assert.Contains(t, out, "failed "+dir)

	all, err := env.store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	types := map[string]string{}
	for _, e := range all {
		types[e.Name] = e.Type
	}
	assert.True(t, strings.HasPrefix(types["a.txt"], "text/plain"))
	assert.Equal(t, "image/png", types["b.png"])
}

func TestAdd_PromptsForPath(t *testing.T) {
	env := newTestEnv(t)
	env.lines <- writeTemp(t, "prompted.txt", []byte("x"))

	require.NoError(t, env.app.Add(context.Background(), nil))
	assert.Contains(t, env.out.String(), "added prompted.txt")
}

func TestListSearchStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.add(t, "Annual Report.pdf", []byte("1234"))
	env.add(t, "photo.png", pngHeader)

	require.NoError(t, env.app.List(ctx))
	out := env.out.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Annual Report.pdf")
	assert.Contains(t, out, "photo.png")
	assert.Contains(t, out, "Files: 2 · Used: 16 B")

	env.out.Reset()
	require.NoError(t, env.app.Search(ctx, "REPORT"))
	assert.Contains(t, env.out.String(), "Annual Report.pdf")
	assert.NotContains(t, env.out.String(), "photo.png")

	env.out.Reset()
	require.NoError(t, env.app.Search(ctx, "nothing-like-this"))
	assert.Contains(t, env.out.String(), "no files match")
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.add(t, "a.txt", []byte("hello"))

	require.NoError(t, env.app.Info(ctx, id))
	out := env.out.String()
	assert.Contains(t, out, id)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "(5 bytes)")
	assert.Contains(t, out, "BLAKE2b:")

	err := env.app.Info(ctx, "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDownload_WritesFileAndReleasesHandle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.add(t, "a.txt", []byte("hello, drive"))

	require.NoError(t, env.app.Download(ctx, id))
	require.NoError(t, env.app.Download(ctx, id))

	first, err := os.ReadFile(filepath.Join(env.app.config.DownloadDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello, drive"), first)

	second, err := os.ReadFile(filepath.Join(env.app.config.DownloadDir, "a (1).txt"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Zero(t, env.app.handles.Active())
}

func TestDownload_MissingEntry(t *testing.T) {
	env := newTestEnv(t)

	err := env.app.Download(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)

	entries, err := os.ReadDir(env.app.config.DownloadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreview_ImageLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.add(t, "photo.png", pngHeader)

	require.NoError(t, env.app.Preview(ctx, id))
	require.Equal(t, 1, env.app.handles.Active())

	locator := locatorRe.FindString(env.out.String())
	require.NotEmpty(t, locator)

	resp, err := http.Get(locator)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pngHeader, body)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Disposition"), "inline"))

	require.NoError(t, env.app.ClosePreview(ctx, id))
	require.Eventually(t, func() bool { return env.app.handles.Active() == 0 }, time.Second, 5*time.Millisecond)

	resp, err = http.Get(locator)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	env.out.Reset()
	require.NoError(t, env.app.ClosePreview(ctx, ""))
	assert.Contains(t, env.out.String(), "no open previews")
}

func TestPreview_ExpiredPreviewsAreForgotten(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Unix(1_700_000_000, 0)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	env := newTestEnv(t, handles.WithClock(clock), handles.WithTTL(time.Minute))
	ctx := context.Background()
	first := env.add(t, "first.png", pngHeader)
	second := env.add(t, "second.png", pngHeader)

	require.NoError(t, env.app.Preview(ctx, first))
	require.NoError(t, env.app.Preview(ctx, first))

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	require.Equal(t, 2, env.app.handles.Sweep())

	require.NoError(t, env.app.Preview(ctx, second))
	env.app.mu.Lock()
	assert.NotContains(t, env.app.previews, first)
	assert.Len(t, env.app.previews[second], 1)
	env.app.mu.Unlock()

	env.out.Reset()
	require.NoError(t, env.app.ClosePreview(ctx, first))
	assert.Contains(t, env.out.String(), "no open previews")

	env.out.Reset()
	require.NoError(t, env.app.ClosePreview(ctx, ""))
	assert.Contains(t, env.out.String(), "closed 1 preview(s)")

	env.app.mu.Lock()
	assert.Empty(t, env.app.previews)
	env.app.mu.Unlock()
	require.Eventually(t, func() bool { return env.app.handles.Active() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPreview_RejectsNonImages(t *testing.T) {
	env := newTestEnv(t)
	id := env.add(t, "a.txt", []byte("hello"))

	err := env.app.Preview(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only images")
	assert.Zero(t, env.app.handles.Active())
}

func TestDelete_Confirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("non-interactive requires -y", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.add(t, "a.txt", []byte("a"))

		err := env.app.Delete(ctx, id, false)
		require.Error(t, err)
		_, err = env.store.GetByID(ctx, id)
		require.NoError(t, err)

		require.NoError(t, env.app.Delete(ctx, id, true))
		_, err = env.store.GetByID(ctx, id)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("interactive answer no", func(t *testing.T) {
		env := newTestEnv(t)
		env.app.interactive = true
		id := env.add(t, "a.txt", []byte("a"))

		env.lines <- "n"
		require.NoError(t, env.app.Delete(ctx, id, false))
		assert.Contains(t, env.out.String(), "cancelled")
		_, err := env.store.GetByID(ctx, id)
		require.NoError(t, err)
	})

	t.Run("interactive answer yes", func(t *testing.T) {
		env := newTestEnv(t)
		env.app.interactive = true
		id := env.add(t, "a.txt", []byte("a"))

		env.lines <- "Y"
		require.NoError(t, env.app.Delete(ctx, id, false))
		assert.Contains(t, env.out.String(), "deleted a.txt")
		_, err := env.store.GetByID(ctx, id)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.app.Delete(ctx, "nope", true)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.add(t, "a.txt", []byte("a"))
	env.add(t, "b.txt", []byte("b"))

	require.Error(t, env.app.Clear(ctx, false))
	st, err := env.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)

	require.NoError(t, env.app.Clear(ctx, true))
	assert.Contains(t, env.out.String(), "deleted 2 files")

	st, err = env.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, st)

	env.out.Reset()
	require.NoError(t, env.app.Clear(ctx, true))
	assert.Contains(t, env.out.String(), "no files")
}

func TestDetectType(t *testing.T) {
	assert.Equal(t, "image/png", detectType("x.png", nil))
	assert.Equal(t, "image/png", detectType("noext", pngHeader))
	assert.Equal(t, models.UnknownType, detectType("noext", nil))
	assert.Equal(t, models.UnknownType, detectType("noext", []byte{0x00, 0x01, 0x02, 0xff}))
}

func TestRun_ExitsAndCleansUp(t *testing.T) {
	captureOutput(t)

	logger := logging.NewDiscardLogger()
	st := store.NewMemoryStore()
	m, err := handles.NewManager(st, logger)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HandleAddr = "127.0.0.1:0"

	out := &bytes.Buffer{}
	a := newApp(cfg, logger, st, m, strings.NewReader("stats\nexit\n"), out)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.Contains(t, out.String(), "Files: 0 · Used: 0 B")
	_, err = st.Stats(context.Background())
	require.ErrorIs(t, err, common.ErrStorageUnavailable, "store must be closed")
}
