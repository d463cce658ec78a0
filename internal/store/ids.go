package store

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/oklog/ulid/v2"
)

// NewULID is the default IDGenerator: a ULID whose 80 random bits come from
// crypto/rand. A failing random source is reported as ErrStorageUnavailable.
func NewULID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("%w: generate id: %w", common.ErrStorageUnavailable, err)
	}
	return id.String(), nil
}
