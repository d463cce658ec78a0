// Package cryptox computes content digests for stored payloads.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Checksum returns the hex BLAKE2b-256 digest of payload.
func Checksum(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether payload matches the recorded checksum. An empty
// checksum (entry stored before digests existed) always verifies.
func Verify(payload []byte, checksum string) bool {
	if checksum == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(Checksum(payload)), []byte(checksum)) == 1
}
