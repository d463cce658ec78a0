// Package netx fetches payloads from handle locators.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FetchTo streams the body at url into w and returns the number of bytes
// copied. Any status other than 200 is an error.
func FetchTo(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("fetch failed: %s; body: %s", resp.Status, string(b))
	}

	return io.Copy(w, resp.Body)
}
