// Package domain holds shared domain primitives: typed identifiers and the
// role/permission vocabulary. Typed IDs prevent cross-type assignment at
// compile time; construct them via the Parse helpers at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "warden/pkg/domain-errors"
)

// UserID identifies a user. It mirrors the identity provider's uid so profile
// records stay keyed 1:1 by provider identity.
type UserID uuid.UUID

// ParseUserID constructs a UserID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or nil.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func (id UserID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be nil", what)
	}
	return u, nil
}
