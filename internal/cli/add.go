package cli

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/models"
)

// Add stores every file in paths. A failing file is reported and the rest
// of the batch still runs. With no paths the user is asked for one.
func (a *App) Add(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		p, err := a.readLine(ctx, "Enter file path\n> ")
		if err != nil {
			return err
		}
		if p = strings.TrimSpace(p); p == "" {
			return nil
		}
		paths = []string{p}
	}

	var failed int
	for _, p := range paths {
		id, err := a.addFile(ctx, p)
		if err != nil {
			failed++
			fmt.Fprintf(a.out, "failed %s: %v\n", p, err)
			a.logger.Warn(ctx, "add failed", "path", p, "error", err)
			continue
		}
		fmt.Fprintf(a.out, "added %s as %s\n", filepath.Base(p), id)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files not added", failed, len(paths))
	}
	return nil
}

func (a *App) addFile(ctx context.Context, path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%w: not a regular file", common.ErrValidation)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(data)

	return a.store.Create(ctx, filepath.Base(path), int64(len(data)), detectType(path, data), data)
}

// detectType guesses a MIME type from the extension, then from content.
func detectType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	if len(data) == 0 {
		return models.UnknownType
	}
	if t := http.DetectContentType(data); t != "application/octet-stream" {
		return t
	}
	return models.UnknownType
}
