package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/identity"
	"warden/internal/profile"
	"warden/internal/session/models"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/email"
	"warden/pkg/requestcontext"
)

// SessionService defines the session operations the transport layer needs.
type SessionService interface {
	Login(ctx context.Context, emailAddr, password string) (*profile.Profile, error)
	LoginWithProvider(ctx context.Context, kind identity.ProviderKind) (*profile.Profile, error)
	Register(ctx context.Context, emailAddr, password, displayName string) (*profile.Profile, error)
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context, emailAddr string) error
	ResendVerificationEmail(ctx context.Context) error
	Snapshot() models.Snapshot
}

// SessionHandler handles authentication endpoints.
type SessionHandler struct {
	logger  *slog.Logger
	session SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(session SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{logger: logger, session: session}
}

// Register registers the session routes with the chi router.
func (h *SessionHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/login/{provider}", h.handleProviderLogin)
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/password-reset", h.handlePasswordReset)
	r.Post("/auth/verification-email", h.handleResendVerification)
	r.Get("/auth/me", h.handleMe)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type sessionResponse struct {
	State   string           `json:"state"`
	Profile *profile.Profile `json:"profile,omitempty"`
}

func (h *SessionHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !email.IsValid(req.Email) {
		writeError(w, dErrors.New(dErrors.CodeInvalidEmail, "invalid email"))
		return
	}

	prof, err := h.session.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		State:   string(models.StateAuthenticated),
		Profile: prof,
	})
}

func (h *SessionHandler) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, err := identity.ParseProviderKind(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	prof, err := h.session.LoginWithProvider(ctx, kind)
	if err != nil {
		h.logger.WarnContext(ctx, "provider login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"provider", string(kind),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		State:   string(models.StateAuthenticated),
		Profile: prof,
	})
}

func (h *SessionHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !email.IsValid(req.Email) {
		writeError(w, dErrors.New(dErrors.CodeInvalidEmail, "invalid email"))
		return
	}

	prof, err := h.session.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		State:   string(models.StateAuthenticated),
		Profile: prof,
	})
}

func (h *SessionHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.session.ResetPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ResendVerificationEmail(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	writeJSON(w, http.StatusOK, sessionResponse{
		State:   string(snap.State()),
		Profile: snap.Profile,
	})
}
