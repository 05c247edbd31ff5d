package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warden/internal/guard"
)

// Service bundles the session surface the router wires up.
type Service interface {
	SessionService
	AdminService
}

// NewRouter wires all endpoints: the auth operations, the admin surface and a
// handful of guarded pages standing in for a client application's routes.
func NewRouter(svc Service, guards *guard.Evaluator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(ClientMetadata)

	NewSessionHandler(svc, logger).Register(r)
	NewAdminHandler(svc, guards, logger).Register(r)
	registerPages(r, guards)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// registerPages wires guarded page routes. These mirror the navigation targets
// a client router would protect: the dashboard needs a session, the login page
// is for anonymous visitors only, and the unauthorized page is open.
func registerPages(r chi.Router, guards *guard.Evaluator) {
	page := func(title string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"page": title})
		}
	}

	r.With(guard.Middleware(guards.RequireAuth, guard.RouteAccess{})).
		Get(guard.PathDashboard, page("dashboard"))
	r.With(guard.Middleware(guards.AnonymousOnly, guard.RouteAccess{})).
		Get(guard.PathLogin, page("login"))
	r.Get(guard.PathUnauthorized, page("unauthorized"))
}
