package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warden/internal/guard"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	pstrings "warden/pkg/platform/strings"
	"warden/pkg/requestcontext"
)

// AdminService defines the user administration operations.
type AdminService interface {
	UpdateUserRoles(ctx context.Context, uid string, roles []domain.Role) error
	UpdateUserPermissions(ctx context.Context, uid string, perms []domain.Permission) error
}

// AdminHandler handles user administration endpoints. All routes require the
// admin role.
type AdminHandler struct {
	logger *slog.Logger
	admin  AdminService
	guards *guard.Evaluator
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin AdminService, guards *guard.Evaluator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{logger: logger, admin: admin, guards: guards}
}

// Register registers the admin routes with the chi router.
func (h *AdminHandler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(guard.Middleware(h.guards.Roles(domain.RoleAdmin), guard.RouteAccess{
		Roles: []domain.Role{domain.RoleAdmin},
	}))
	adminRouter.Put("/users/{uid}/roles", h.handleUpdateRoles)
	adminRouter.Put("/users/{uid}/permissions", h.handleUpdatePermissions)

	r.Mount("/admin", adminRouter)
}

type rolesRequest struct {
	Roles []string `json:"roles"`
}

type permissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (h *AdminHandler) handleUpdateRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid, err := domain.ParseUserID(chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req rolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	roles, err := domain.ParseRoles(pstrings.DedupeAndTrimLower(req.Roles))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.admin.UpdateUserRoles(ctx, uid.String(), roles); err != nil {
		h.logger.WarnContext(ctx, "role update rejected",
			"request_id", requestcontext.RequestID(ctx),
			"uid", uid.String(),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid, err := domain.ParseUserID(chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req permissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	cleaned := pstrings.DedupeAndTrim(req.Permissions)
	perms := make([]domain.Permission, 0, len(cleaned))
	for _, p := range cleaned {
		perms = append(perms, domain.Permission(p))
	}

	if err := h.admin.UpdateUserPermissions(ctx, uid.String(), perms); err != nil {
		h.logger.WarnContext(ctx, "permission update rejected",
			"request_id", requestcontext.RequestID(ctx),
			"uid", uid.String(),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
