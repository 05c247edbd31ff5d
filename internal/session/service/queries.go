package service

import (
	"warden/internal/profile"
	"warden/internal/session/models"
	"warden/pkg/domain"
)

// Derived queries. All are pure, synchronous reads of the settled snapshot;
// none of them suspends. Guards and transports consume these, never the
// internals.

// Snapshot returns a copy of the current session view.
func (s *Service) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{Loading: s.loading, LastErr: s.lastErr}
	if s.identity != nil {
		ident := *s.identity
		snap.Identity = &ident
	}
	if s.profile != nil {
		prof := *s.profile
		prof.Roles = append([]domain.Role(nil), s.profile.Roles...)
		prof.Permissions = append([]domain.Permission(nil), s.profile.Permissions...)
		snap.Profile = &prof
	}
	return snap
}

// State reports the current state machine position.
func (s *Service) State() models.State {
	return s.Snapshot().State()
}

// Loading reports whether the session has not yet settled.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the last classified operation or reconciliation error.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// IsAuthenticated reports whether a reconciled profile is attached.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil
}

// EmailVerified reports the provider-asserted verification flag. It lives on
// the identity, not in storage.
func (s *Service) EmailVerified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil && s.identity.EmailVerified
}

// Roles returns a copy of the session's role set; empty when anonymous.
func (s *Service) Roles() []domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	return append([]domain.Role(nil), s.profile.Roles...)
}

// Permissions returns a copy of the session's permission set.
func (s *Service) Permissions() []domain.Permission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	return append([]domain.Permission(nil), s.profile.Permissions...)
}

// HasRole reports role membership; always false when anonymous.
func (s *Service) HasRole(r domain.Role) bool {
	return s.withProfile(func(p *profile.Profile) bool { return p.HasRole(r) })
}

// HasAnyRole reports whether any of the given roles is held.
func (s *Service) HasAnyRole(roles []domain.Role) bool {
	return s.withProfile(func(p *profile.Profile) bool { return p.HasAnyRole(roles) })
}

// HasAllRoles reports whether every given role is held.
func (s *Service) HasAllRoles(roles []domain.Role) bool {
	return s.withProfile(func(p *profile.Profile) bool { return p.HasAllRoles(roles) })
}

// HasPermission reports permission membership; always false when anonymous.
func (s *Service) HasPermission(perm domain.Permission) bool {
	return s.withProfile(func(p *profile.Profile) bool { return p.HasPermission(perm) })
}

// HasAnyPermission reports whether any of the given permissions is held.
func (s *Service) HasAnyPermission(perms []domain.Permission) bool {
	return s.withProfile(func(p *profile.Profile) bool { return p.HasAnyPermission(perms) })
}

// HasAllPermissions reports whether every given permission is held.
func (s *Service) HasAllPermissions(perms []domain.Permission) bool {
	return s.withProfile(func(p *profile.Profile) bool { return p.HasAllPermissions(perms) })
}

func (s *Service) withProfile(check func(*profile.Profile) bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return false
	}
	return check(s.profile)
}
