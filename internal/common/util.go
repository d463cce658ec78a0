package common

import (
	"crypto/rand"
	"fmt"
)

// GenerateRandByteArray returns n bytes read from the system CSPRNG.
// A failing random source is reported as ErrStorageUnavailable since nothing
// that depends on it (ids, handle secrets) can proceed safely.
func GenerateRandByteArray(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: random source: %w", ErrStorageUnavailable, err)
	}
	return b, nil
}

// WipeByteArray overwrites b with zeros. Nil is allowed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
