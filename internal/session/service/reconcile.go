package service

import (
	"context"
	"errors"
	"time"

	"warden/internal/identity"
	"warden/internal/profile"
	"warden/pkg/email"
	audit "warden/pkg/platform/audit"
	"warden/pkg/platform/sentinel"
)

// reconcile derives session state from one provider push event. Absence of an
// identity clears the session; presence adopts the stored profile, creating it
// with defaults on first login. Any fetch/create failure fails closed: no
// partial or stale profile is ever surfaced, and the session resolves to
// Anonymous rather than sticking.
//
// Events pushed during an imperative operation are dropped: the operation owns
// the settle and adopts the profile itself, so reconciling here would race its
// create. A late event for the same change finds the already-adopted state.
func (s *Service) reconcile(ctx context.Context, ev identity.Event) {
	if s.operationOwnsSettle() {
		return
	}

	ctx, span := s.tracer.Start(ctx, "session.reconcile")
	defer span.End()
	start := time.Now()

	var (
		ident *identity.Identity
		prof  *profile.Profile
		rerr  error
	)
	if ev.Identity != nil {
		ident = ev.Identity
		prof, rerr = s.adoptProfile(ctx, ident)
		if rerr != nil {
			ident, prof = nil, nil
		}
	}

	s.mu.Lock()
	if s.opActive {
		s.mu.Unlock()
		return
	}
	s.identity = ident
	s.profile = prof
	if rerr != nil {
		s.lastErr = rerr
	}
	s.loading = false
	s.signalReadyLocked()
	s.mu.Unlock()

	outcome := "anonymous"
	switch {
	case rerr != nil:
		outcome = "failed"
	case prof != nil:
		outcome = "authenticated"
	}
	if s.metrics != nil {
		s.metrics.Reconciliations.WithLabelValues(outcome).Inc()
		s.metrics.ReconcileDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}

	if rerr != nil {
		// Passive reconciliation failures are swallowed: log, audit, resolve
		// to Anonymous. The user must never sit in an authenticated UI backed
		// by a failed profile fetch.
		s.logger.ErrorContext(ctx, "reconciliation failed, resolving to anonymous",
			"uid", ev.Identity.UID,
			"error", rerr,
		)
		s.emitAudit(ctx, audit.Event{
			Subject: ev.Identity.UID,
			Action:  string(audit.ActionReconciliationFailed),
			Reason:  rerr.Error(),
		})
	}
}

// adoptProfile fetches the profile for an identity, creating it with default
// grants on first login. The live EmailVerified flag stays on the identity;
// storage does not carry it.
func (s *Service) adoptProfile(ctx context.Context, ident *identity.Identity) (*profile.Profile, error) {
	prof, err := s.profiles.FindByUID(ctx, ident.UID)
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	displayName := ident.DisplayName
	if displayName == "" {
		displayName = email.DeriveDisplayName(ident.Email)
	}
	created, err := s.profiles.Create(ctx, profile.Profile{
		UID:         ident.UID,
		Email:       ident.Email,
		DisplayName: displayName,
		PhotoURL:    ident.PhotoURL,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "profile created on first login", "uid", ident.UID)
	s.emitAudit(ctx, audit.Event{
		Subject: ident.UID,
		Email:   ident.Email,
		Action:  string(audit.ActionUserCreated),
	})
	return created, nil
}
