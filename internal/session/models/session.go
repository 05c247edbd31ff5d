// Package models holds the observable session types.
package models

import (
	"warden/internal/identity"
	"warden/internal/profile"
)

// State names the session state machine positions. Loading is re-entered from
// Authenticated or Anonymous only through an imperative operation, never
// through passive observation.
type State string

const (
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Snapshot is a settled, point-in-time view of the session. Invariant: Profile
// is non-nil iff Identity is non-nil and reconciliation succeeded; a failed
// reconciliation clears both.
type Snapshot struct {
	Identity *identity.Identity
	Profile  *profile.Profile
	Loading  bool
	LastErr  error
}

// State derives the state machine position from the snapshot.
func (s Snapshot) State() State {
	switch {
	case s.Loading:
		return StateLoading
	case s.Profile != nil:
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}
