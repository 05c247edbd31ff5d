// Package profile persists the domain record describing a user. Records are
// keyed 1:1 by provider uid; the adapter applies default role/permission
// grants on first creation and re-applies them at read time when storage
// carries none, so a reconciled profile never surfaces empty sets.
package profile

import (
	"time"

	"warden/pkg/domain"
)

// Collection is the document-store collection holding profile records.
const Collection = "users"

// Profile is the persisted domain record for a user.
type Profile struct {
	UID         string              `json:"uid"`
	Email       string              `json:"email"`
	DisplayName string              `json:"displayName"`
	PhotoURL    string              `json:"photoURL"`
	Roles       []domain.Role       `json:"roles"`
	Permissions []domain.Permission `json:"permissions"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	LastLoginAt time.Time           `json:"lastLoginAt"`
}

// HasRole reports set membership. Roles are never hierarchical.
func (p *Profile) HasRole(r domain.Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether any of the given roles is present.
// An empty requirement is vacuously satisfied.
func (p *Profile) HasAnyRole(roles []domain.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether every given role is present.
// An empty requirement is vacuously satisfied.
func (p *Profile) HasAllRoles(roles []domain.Role) bool {
	for _, r := range roles {
		if !p.HasRole(r) {
			return false
		}
	}
	return true
}

// HasPermission reports set membership for a permission tag.
func (p *Profile) HasPermission(perm domain.Permission) bool {
	for _, have := range p.Permissions {
		if have == perm {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether any of the given permissions is present.
// An empty requirement is vacuously satisfied.
func (p *Profile) HasAnyPermission(perms []domain.Permission) bool {
	if len(perms) == 0 {
		return true
	}
	for _, perm := range perms {
		if p.HasPermission(perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every given permission is present.
func (p *Profile) HasAllPermissions(perms []domain.Permission) bool {
	for _, perm := range perms {
		if !p.HasPermission(perm) {
			return false
		}
	}
	return true
}

// withDefaults replaces empty role/permission sets with the default grants.
func (p *Profile) withDefaults() *Profile {
	if len(p.Roles) == 0 {
		p.Roles = domain.DefaultRoles()
	}
	if len(p.Permissions) == 0 {
		p.Permissions = domain.DefaultPermissions()
	}
	return p
}
