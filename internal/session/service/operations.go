package service

import (
	"context"
	"errors"

	"warden/internal/identity"
	"warden/internal/platform/device"
	"warden/internal/profile"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/email"
	audit "warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

// Login verifies credentials with the provider and reconciles the profile.
// On failure the error is classified into the taxonomy, recorded as the last
// error, and the session resolves to Anonymous. Loading is set at entry and
// cleared at settle on every path.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*profile.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "session.login")
	defer span.End()

	if err := s.beginOperation(); err != nil {
		return nil, err
	}

	ident, err := s.provider.SignIn(ctx, emailAddr, password)
	if err != nil {
		return nil, s.failAuth(ctx, emailAddr, err)
	}
	return s.completeLogin(ctx, ident)
}

// LoginWithProvider runs the popup-based federated flow. Contract matches
// Login; abandoning the popup classifies as popup_closed.
func (s *Service) LoginWithProvider(ctx context.Context, kind identity.ProviderKind) (*profile.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "session.login_with_provider")
	defer span.End()

	if err := s.beginOperation(); err != nil {
		return nil, err
	}

	ident, err := s.provider.SignInWithProvider(ctx, kind)
	if err != nil {
		return nil, s.failAuth(ctx, string(kind), err)
	}
	return s.completeLogin(ctx, ident)
}

// Register creates a provider identity and its profile record with default
// grants. The verification email is an independent best-effort side effect:
// its failure never rolls back account creation.
func (s *Service) Register(ctx context.Context, emailAddr, password, displayName string) (*profile.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "session.register")
	defer span.End()

	if err := s.beginOperation(); err != nil {
		return nil, err
	}

	ident, err := s.provider.SignUp(ctx, emailAddr, password)
	if err != nil {
		return nil, s.failAuth(ctx, emailAddr, err)
	}

	if displayName == "" {
		displayName = email.DeriveDisplayName(emailAddr)
	}
	if err := s.provider.UpdateDisplayName(ctx, ident.UID, displayName); err != nil {
		s.logger.WarnContext(ctx, "display name update failed", "uid", ident.UID, "error", err)
	} else {
		ident.DisplayName = displayName
	}

	if err := s.provider.SendVerification(ctx, ident.UID); err != nil {
		s.logger.WarnContext(ctx, "verification email dispatch failed", "uid", ident.UID, "error", err)
	} else {
		s.emitAudit(ctx, audit.Event{Subject: ident.UID, Action: string(audit.ActionVerificationSent)})
	}

	prof, err := s.adoptProfile(ctx, ident)
	if err != nil {
		classified := dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
		s.endOperation(nil, nil, classified)
		return nil, classified
	}

	s.endOperation(ident, prof, nil)
	if s.metrics != nil {
		s.metrics.Registrations.Inc()
	}
	return prof, nil
}

// Logout requests provider sign-out and clears the local session regardless
// of the outcome, so the UI never sits in a zombie authenticated state.
func (s *Service) Logout(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "session.logout")
	defer span.End()

	if err := s.beginOperation(); err != nil {
		return err
	}

	s.mu.RLock()
	uid := ""
	if s.identity != nil {
		uid = s.identity.UID
	}
	s.mu.RUnlock()

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.WarnContext(ctx, "provider sign-out failed, clearing local session anyway", "error", err)
	}

	s.endOperation(nil, nil, nil)
	if s.metrics != nil {
		s.metrics.Logouts.Inc()
	}
	if uid != "" {
		s.emitAudit(ctx, audit.Event{Subject: uid, Action: string(audit.ActionLogout)})
	}
	return nil
}

// ResetPassword dispatches a provider reset email. Session state is
// unchanged; failures classify into the taxonomy.
func (s *Service) ResetPassword(ctx context.Context, emailAddr string) error {
	ctx, span := s.tracer.Start(ctx, "session.reset_password")
	defer span.End()

	if err := s.beginOperation(); err != nil {
		return err
	}

	if err := s.provider.SendPasswordReset(ctx, emailAddr); err != nil {
		classified := classifyProviderError(err)
		s.endOperationKeepState(classified)
		return classified
	}

	s.endOperationKeepState(nil)
	s.emitAudit(ctx, audit.Event{Email: emailAddr, Action: string(audit.ActionPasswordResetRequested)})
	return nil
}

// ResendVerificationEmail dispatches a verification email for the attached
// identity. Errors from the dispatch itself are best-effort and swallowed.
func (s *Service) ResendVerificationEmail(ctx context.Context) error {
	s.mu.RLock()
	ident := s.identity
	s.mu.RUnlock()

	if ident == nil {
		return dErrors.New(dErrors.CodeNoActiveSession, "no active session")
	}

	if err := s.provider.SendVerification(ctx, ident.UID); err != nil {
		s.logger.WarnContext(ctx, "verification email dispatch failed", "uid", ident.UID, "error", err)
		return nil
	}
	s.emitAudit(ctx, audit.Event{Subject: ident.UID, Action: string(audit.ActionVerificationSent)})
	return nil
}

// UpdateUserRoles writes a new role set for the user. When the target is the
// current session's user, the in-memory profile is patched to stay consistent
// with storage without a re-fetch. An absent uid classifies as not_found;
// other store errors propagate uncaught.
func (s *Service) UpdateUserRoles(ctx context.Context, uid string, roles []domain.Role) error {
	if uid == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "uid is required")
	}
	if len(roles) == 0 {
		return dErrors.New(dErrors.CodeValidation, "role set cannot be empty")
	}
	for _, r := range roles {
		if !r.IsValid() {
			return dErrors.Newf(dErrors.CodeValidation, "unknown role %q", r)
		}
	}

	if err := s.profiles.UpdateRoles(ctx, uid, roles); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return err
	}

	s.mu.Lock()
	if s.profile != nil && s.profile.UID == uid {
		s.profile.Roles = append([]domain.Role(nil), roles...)
		s.profile.UpdatedAt = requestcontext.Now(ctx)
	}
	s.mu.Unlock()

	s.emitAudit(ctx, audit.Event{Subject: uid, Action: string(audit.ActionRolesUpdated)})
	return nil
}

// UpdateUserPermissions writes a new permission set for the user, patching
// the in-memory profile when it targets the current session's user.
func (s *Service) UpdateUserPermissions(ctx context.Context, uid string, perms []domain.Permission) error {
	if uid == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "uid is required")
	}
	if len(perms) == 0 {
		return dErrors.New(dErrors.CodeValidation, "permission set cannot be empty")
	}

	if err := s.profiles.UpdatePermissions(ctx, uid, perms); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return err
	}

	s.mu.Lock()
	if s.profile != nil && s.profile.UID == uid {
		s.profile.Permissions = append([]domain.Permission(nil), perms...)
		s.profile.UpdatedAt = requestcontext.Now(ctx)
	}
	s.mu.Unlock()

	s.emitAudit(ctx, audit.Event{Subject: uid, Action: string(audit.ActionPermissionsUpdated)})
	return nil
}

// completeLogin reconciles the profile for a fresh provider identity and
// refreshes the login timestamps in storage.
func (s *Service) completeLogin(ctx context.Context, ident *identity.Identity) (*profile.Profile, error) {
	prof, err := s.adoptProfile(ctx, ident)
	if err != nil {
		classified := dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
		s.endOperation(nil, nil, classified)
		s.emitAudit(ctx, audit.Event{
			Subject: ident.UID,
			Action:  string(audit.ActionLoginFailed),
			Reason:  string(dErrors.CodeInternal),
		})
		return nil, classified
	}

	if err := s.profiles.TouchLogin(ctx, ident.UID); err != nil {
		s.logger.WarnContext(ctx, "login timestamp refresh failed", "uid", ident.UID, "error", err)
	} else {
		now := requestcontext.Now(ctx)
		prof.UpdatedAt = now
		prof.LastLoginAt = now
	}

	s.endOperation(ident, prof, nil)
	if s.metrics != nil {
		s.metrics.LoginsTotal.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Subject: ident.UID,
		Email:   ident.Email,
		Action:  string(audit.ActionLoginSucceeded),
		Device:  device.Summarize(requestcontext.UserAgent(ctx)),
		IP:      requestcontext.ClientIP(ctx),
	})
	return prof, nil
}

// failAuth classifies a provider failure, settles the session to Anonymous
// with the classified error recorded, and audits the failure.
func (s *Service) failAuth(ctx context.Context, subject string, err error) error {
	classified := classifyProviderError(err)
	s.endOperation(nil, nil, classified)

	if s.metrics != nil {
		s.metrics.LoginFailures.WithLabelValues(string(dErrors.CodeOf(classified))).Inc()
	}
	s.logger.WarnContext(ctx, "authentication failed",
		"subject", subject,
		"code", string(dErrors.CodeOf(classified)),
	)
	s.emitAudit(ctx, audit.Event{
		Email:  subject,
		Action: string(audit.ActionLoginFailed),
		Reason: string(dErrors.CodeOf(classified)),
		IP:     requestcontext.ClientIP(ctx),
		Device: device.Summarize(requestcontext.UserAgent(ctx)),
	})
	return classified
}
