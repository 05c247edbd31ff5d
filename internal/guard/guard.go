// Package guard implements the route-access predicates evaluated before a
// navigation is permitted. Guards are pure over (route, session state): they
// never mutate the session, and they return either Allow or a redirect
// descriptor for the router to follow.
package guard

import (
	"context"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"warden/pkg/domain"
)

// Redirect targets.
const (
	PathLogin        = "/login"
	PathDashboard    = "/dashboard"
	PathUnauthorized = "/unauthorized"
)

// DefaultSettleTimeout bounds how long a guard waits for the session to
// settle before denying. An unbounded wait would hang navigation whenever
// reconciliation never completes.
const DefaultSettleTimeout = 5 * time.Second

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_guard_decisions_total",
	Help: "Guard evaluations by guard name and outcome",
}, []string{"guard", "outcome"})

// State is the read-only session view guards consume.
type State interface {
	// Ready is closed once the first reconciliation completes.
	Ready() <-chan struct{}
	IsAuthenticated() bool
	HasAnyRole(roles []domain.Role) bool
	HasAllRoles(roles []domain.Role) bool
	HasAnyPermission(perms []domain.Permission) bool
	HasAllPermissions(perms []domain.Permission) bool
}

// RouteAccess is the requirement attached to a navigation target by the route
// table. Both sets empty means unconditional allow once authenticated.
type RouteAccess struct {
	Roles       []domain.Role
	Permissions []domain.Permission
	// RequireAll demands every listed role/permission instead of any one.
	// An empty required set still allows: no requirement means allow.
	RequireAll bool
}

// Route describes the pending navigation.
type Route struct {
	RequestedPath string
	Access        RouteAccess
}

// Decision is a guard verdict: allowed, or a redirect descriptor.
type Decision struct {
	Allowed bool
	Path    string
	Query   url.Values
}

// Allow is the permissive verdict.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny builds a redirect verdict.
func Deny(path string, query url.Values) Decision {
	return Decision{Path: path, Query: query}
}

// denyToLogin redirects to the login page carrying the requested path so the
// UI can return after authentication.
func denyToLogin(requestedPath string) Decision {
	return Deny(PathLogin, url.Values{"returnUrl": []string{requestedPath}})
}

// Guard evaluates a pending route against session state.
type Guard func(ctx context.Context, route Route) Decision

// Evaluator holds the dependency-injected session handle guards read from.
// The settle timeout applies wherever a guard must wait for the first
// reconciliation; timing out resolves to Deny, never to an unbounded hang.
type Evaluator struct {
	state         State
	settleTimeout time.Duration
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSettleTimeout overrides the bounded settle wait.
func WithSettleTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		e.settleTimeout = d
	}
}

// NewEvaluator constructs a guard evaluator over the given session state.
func NewEvaluator(state State, opts ...Option) *Evaluator {
	e := &Evaluator{
		state:         state,
		settleTimeout: DefaultSettleTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// settled waits for the session to settle. False means the wait was bounded
// out or cancelled; callers must deny.
func (e *Evaluator) settled(ctx context.Context) bool {
	select {
	case <-e.state.Ready():
		return true
	default:
	}

	timer := time.NewTimer(e.settleTimeout)
	defer timer.Stop()
	select {
	case <-e.state.Ready():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// RequireAuth allows only authenticated sessions, redirecting to the login
// page with the requested path as the return URL.
func (e *Evaluator) RequireAuth(ctx context.Context, route Route) Decision {
	if !e.settled(ctx) {
		return record("require_auth", denyToLogin(route.RequestedPath))
	}
	if !e.state.IsAuthenticated() {
		return record("require_auth", denyToLogin(route.RequestedPath))
	}
	return record("require_auth", Allow())
}

// AnonymousOnly is the mirror guard: authenticated sessions are sent to the
// dashboard instead of, say, a login or registration page.
func (e *Evaluator) AnonymousOnly(ctx context.Context, route Route) Decision {
	if !e.settled(ctx) {
		return record("anonymous_only", Deny(PathDashboard, nil))
	}
	if e.state.IsAuthenticated() {
		return record("anonymous_only", Deny(PathDashboard, nil))
	}
	return record("anonymous_only", Allow())
}

// RequireRoles enforces the route's role requirement. Authentication is a
// precondition: anonymous sessions go to login without a role check. An
// absent requirement allows, including RequireAll over an empty set.
func (e *Evaluator) RequireRoles(ctx context.Context, route Route) Decision {
	if !e.settled(ctx) || !e.state.IsAuthenticated() {
		return record("require_roles", denyToLogin(route.RequestedPath))
	}

	required := route.Access.Roles
	if len(required) == 0 {
		return record("require_roles", Allow())
	}

	ok := e.state.HasAnyRole(required)
	if route.Access.RequireAll {
		ok = e.state.HasAllRoles(required)
	}
	if !ok {
		return record("require_roles", Deny(PathUnauthorized, nil))
	}
	return record("require_roles", Allow())
}

// RequirePermissions is the permission-set twin of RequireRoles.
func (e *Evaluator) RequirePermissions(ctx context.Context, route Route) Decision {
	if !e.settled(ctx) || !e.state.IsAuthenticated() {
		return record("require_permissions", denyToLogin(route.RequestedPath))
	}

	required := route.Access.Permissions
	if len(required) == 0 {
		return record("require_permissions", Allow())
	}

	ok := e.state.HasAnyPermission(required)
	if route.Access.RequireAll {
		ok = e.state.HasAllPermissions(required)
	}
	if !ok {
		return record("require_permissions", Deny(PathUnauthorized, nil))
	}
	return record("require_permissions", Allow())
}

// Roles builds a guard closed over a fixed role list. Route data is ignored;
// matching is ANY, and authentication is a precondition.
func (e *Evaluator) Roles(roles ...domain.Role) Guard {
	return func(ctx context.Context, route Route) Decision {
		fixed := route
		fixed.Access = RouteAccess{Roles: roles}
		return e.RequireRoles(ctx, fixed)
	}
}

// Permissions builds a guard closed over a fixed permission list, ANY match.
func (e *Evaluator) Permissions(perms ...domain.Permission) Guard {
	return func(ctx context.Context, route Route) Decision {
		fixed := route
		fixed.Access = RouteAccess{Permissions: perms}
		return e.RequirePermissions(ctx, fixed)
	}
}

// CanLoad gates resource loading for lazily loaded routes. The decision logic
// is identical to RequireAuth; only the evaluation point in the routing
// pipeline differs, so denied navigations never fetch the route's resources.
func (e *Evaluator) CanLoad(ctx context.Context, route Route) Decision {
	if !e.settled(ctx) {
		return record("can_load", denyToLogin(route.RequestedPath))
	}
	if !e.state.IsAuthenticated() {
		return record("can_load", denyToLogin(route.RequestedPath))
	}
	return record("can_load", Allow())
}

// Compose chains guards: the first deny wins. A route carrying both role and
// permission requirements fails when either check fails.
func Compose(guards ...Guard) Guard {
	return func(ctx context.Context, route Route) Decision {
		for _, g := range guards {
			if d := g(ctx, route); !d.Allowed {
				return d
			}
		}
		return Allow()
	}
}

func record(name string, d Decision) Decision {
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	decisionsTotal.WithLabelValues(name, outcome).Inc()
	return d
}
