package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/filex"
	"github.com/dmitrijs2005/gophdrive/internal/handles"
	"github.com/dmitrijs2005/gophdrive/internal/models"
	"github.com/dmitrijs2005/gophdrive/internal/netx"
	"github.com/dustin/go-humanize"
)

// Download saves an entry into the download directory through a
// download handle. The handle is released before Download returns.
func (a *App) Download(ctx context.Context, id string) error {
	dir, err := filex.EnsureDir(a.config.DownloadDir)
	if err != nil {
		return err
	}

	var (
		dest string
		n    int64
	)
	err = a.handles.WithHandle(ctx, id, handles.PurposeDownload, func(h *handles.Handle) error {
		path, err := filex.UniquePath(dir, h.Name)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if err != nil {
			return err
		}

		n, err = netx.FetchTo(ctx, h.Locator, f)
		if err = errors.Join(err, f.Close()); err != nil {
			_ = os.Remove(path)
			return err
		}
		dest = path
		return nil
	})
	if err != nil {
		return notFoundHint(id, err)
	}

	fmt.Fprintf(a.out, "saved %s (%s)\n", dest, humanize.IBytes(uint64(n)))
	return nil
}

// Preview issues a preview handle for an image and prints its locator. The
// handle lives until ClosePreview, its expiry, or the end of the session.
func (a *App) Preview(ctx context.Context, id string) error {
	h, err := a.handles.Issue(ctx, id, handles.PurposePreview)
	if err != nil {
		return notFoundHint(id, err)
	}

	if !(models.FileEntry{Type: h.Type}).IsImage() {
		a.handles.Release(h)
		return fmt.Errorf("%s has type %s: only images can be previewed", h.Name, h.Type)
	}

	closing := make(chan struct{})
	a.handles.ReleaseOnClose(h, closing)

	a.mu.Lock()
	a.prunePreviewsLocked()
	a.previews[id] = append(a.previews[id], preview{handle: h, closing: closing})
	a.mu.Unlock()

	fmt.Fprintf(a.out, "preview of %s:\n  %s\n(valid until %s; 'close %s' when done)\n",
		h.Name, h.Locator, h.ExpiresAt.Local().Format(timeLayout), id)
	return nil
}

// ClosePreview releases the open previews of id, or all of them when id
// is empty. Previews that already expired are not counted.
func (a *App) ClosePreview(_ context.Context, id string) error {
	a.mu.Lock()
	a.prunePreviewsLocked()
	var open []preview
	if id == "" {
		for k, ps := range a.previews {
			open = append(open, ps...)
			delete(a.previews, k)
		}
	} else {
		open = a.previews[id]
		delete(a.previews, id)
	}
	a.mu.Unlock()

	for _, p := range open {
		close(p.closing)
	}

	if len(open) == 0 {
		fmt.Fprintln(a.out, "no open previews")
		return nil
	}
	fmt.Fprintf(a.out, "closed %d preview(s)\n", len(open))
	return nil
}

// prunePreviewsLocked forgets previews whose handle was released by expiry
// or a sweep. Their closing channels are closed so the waiters exit.
// a.mu must be held.
func (a *App) prunePreviewsLocked() {
	for id, ps := range a.previews {
		kept := ps[:0]
		for _, p := range ps {
			if a.handles.State(p.handle) == handles.StateReleased {
				close(p.closing)
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(a.previews, id)
			continue
		}
		a.previews[id] = kept
	}
}
