// Package service implements the session state manager: the single source of
// truth for who is signed in and what they may do. Provider push events are
// consumed by a dedicated reconciliation loop; imperative operations wrap
// provider calls and keep the observable snapshot consistent.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"warden/internal/identity"
	"warden/internal/profile"
	"warden/internal/session/metrics"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	audit "warden/pkg/platform/audit"
)

// ProfileStore is the profile persistence surface the service depends on.
type ProfileStore interface {
	FindByUID(ctx context.Context, uid string) (*profile.Profile, error)
	Create(ctx context.Context, p profile.Profile) (*profile.Profile, error)
	TouchLogin(ctx context.Context, uid string) error
	UpdateRoles(ctx context.Context, uid string, roles []domain.Role) error
	UpdatePermissions(ctx context.Context, uid string, perms []domain.Permission) error
}

// AuditPublisher records key auth actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the session. All mutation funnels through the reconciliation
// loop and the imperative operations; everything else reads derived queries.
type Service struct {
	provider identity.Provider
	profiles ProfileStore

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditPublisher
	tracer  trace.Tracer

	mu       sync.RWMutex
	identity *identity.Identity
	profile  *profile.Profile
	loading  bool
	lastErr  error
	opActive bool

	readyOnce sync.Once
	ready     chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher sets the audit publisher.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// New constructs a session service. The session starts Loading and settles on
// the first provider event consumed by Run.
func New(provider identity.Provider, profiles ProfileStore, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity provider is required")
	}
	if profiles == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "profile store is required")
	}

	s := &Service{
		provider: provider,
		profiles: profiles,
		logger:   slog.Default(),
		loading:  true,
		ready:    make(chan struct{}),
		tracer:   otel.Tracer("warden/internal/session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run consumes provider identity-change events until ctx is cancelled or the
// provider closes its stream. Events are reconciled strictly in order; state
// is never advertised as settled with a torn profile.
func (s *Service) Run(ctx context.Context) error {
	events := s.provider.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				// Provider detached. Future reconciliation stops; current
				// state stays as-is.
				return nil
			}
			s.reconcile(ctx, ev)
		}
	}
}

// Ready returns a channel closed once the first reconciliation completes.
// Guards wait on it instead of polling the loading flag.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// beginOperation marks an imperative operation in flight. Concurrent
// operations are rejected rather than queued; the session re-enters Loading
// and the last error is cleared until the operation settles.
func (s *Service) beginOperation() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opActive {
		return dErrors.New(dErrors.CodeConflict, "operation already in progress")
	}
	s.opActive = true
	s.loading = true
	s.lastErr = nil
	return nil
}

// endOperation settles the operation: loading clears on success and failure
// alike, so callers never observe a dangling loading state.
func (s *Service) endOperation(ident *identity.Identity, prof *profile.Profile, opErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opActive = false
	s.loading = false
	s.identity = ident
	s.profile = prof
	s.lastErr = opErr
	s.signalReadyLocked()
}

// endOperationKeepState settles an operation that does not change who is
// signed in (password reset).
func (s *Service) endOperationKeepState(opErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opActive = false
	s.loading = false
	s.lastErr = opErr
	s.signalReadyLocked()
}

// operationOwnsSettle reports whether an imperative operation is in flight.
// While one is, the reconciliation loop must not act on pushed events.
func (s *Service) operationOwnsSettle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opActive
}

func (s *Service) signalReadyLocked() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// emitAudit records an audit event, logging instead of failing the operation
// when the publisher is unavailable or saturated.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}
