package domain

import dErrors "warden/pkg/domain-errors"

// Role is a coarse-grained access category from a closed set.
// Invariant: roles are membership-only, never hierarchical; admin does not
// imply moderator. Checks must use set membership.
//
// Usage: construct via ParseRole at trust boundaries to enforce the allowlist;
// direct casting bypasses validation.
type Role string

// Supported roles.
const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleGuest     Role = "guest"
)

// validRoles is the single source of truth for the closed role set.
var validRoles = map[Role]bool{
	RoleAdmin:     true,
	RoleUser:      true,
	RoleModerator: true,
	RoleGuest:     true,
}

// ParseRole constructs a Role from external input.
// Errors: CodeInvalidInput when the value is empty or outside the closed set.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
	return r, nil
}

// ParseRoles validates a full role list, rejecting the first unknown value.
func ParseRoles(values []string) ([]Role, error) {
	roles := make([]Role, 0, len(values))
	for _, v := range values {
		r, err := ParseRole(v)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Permission is a fine-grained access tag. The set is open: any non-empty
// string is a valid permission, so there is no Parse allowlist.
type Permission = string

// Default grants applied when a profile is created or read back without any
// stored roles/permissions.
const (
	PermissionRead = "read"
)

// DefaultRoles returns the role set assigned to newly created profiles.
func DefaultRoles() []Role { return []Role{RoleUser} }

// DefaultPermissions returns the permission set assigned to new profiles.
func DefaultPermissions() []Permission { return []Permission{PermissionRead} }
