package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Document stores and the dev
// identity provider return these (optionally wrapped) so the session service
// can translate them into taxonomy errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: document or account does not exist
// - ErrConflict: document or account already exists
// - ErrUnavailable: backend temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
