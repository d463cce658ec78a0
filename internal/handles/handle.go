// Package handles issues short-lived, dereferenceable handles for stored file
// payloads and serves them over a loopback HTTP endpoint.
//
// A handle is created for one use (a download or a preview) and must be
// released when that use ends. Handles never outlive the session that issued
// them: tokens are signed with a per-session secret and the manager drops all
// live payloads on shutdown.
package handles

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose says what a handle was issued for. It controls how the server
// presents the payload.
type Purpose string

const (
	PurposeDownload Purpose = "download"
	PurposePreview  Purpose = "preview"
)

// State of a handle. Issued is the only non-terminal state.
type State int

const (
	StateIssued State = iota
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIssued:
		return "issued"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Handle is a transient reference to one entry's payload.
type Handle struct {
	// ID is unique per Issue call and appears as the token's jti.
	ID string

	EntryID   string
	Purpose   Purpose
	ExpiresAt time.Time

	// Name and Type describe the entry at issue time.
	Name string
	Type string

	// Token is the signed handle token. Locator embeds it.
	Token string

	// Locator is a URL that resolves to the payload while the handle is
	// issued.
	Locator string

	// state is guarded by the owning Manager's mutex.
	state State
}

// Blob is what a resolved handle serves.
type Blob struct {
	Name      string
	Type      string
	Checksum  string
	Purpose   Purpose
	CreatedAt time.Time
	Payload   []byte
}

type claims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose"`
}
