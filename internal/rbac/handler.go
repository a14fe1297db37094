package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prontivus/prontivus/internal/platform/httpx"
	"github.com/prontivus/prontivus/internal/shared"
)

// Handler serves the authorization query surface: the navigation tree for
// the current principal, per-role menus for administrators, and effective
// permissions.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	principals PrincipalSource
	middleware Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, principals PrincipalSource, middleware Middleware) *Handler {
	return &Handler{logger: logger, service: service, principals: principals, middleware: middleware}
}

// MountRoutes registers authorization query routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/menu/user", h.userMenu)
	r.Get("/permissions/me", h.myPermissions)
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireRole(RoleNameSuperAdmin))
		r.Get("/menu/roles/{name}", h.roleMenu)
	})
}

type menuResponse struct {
	Groups []GroupView `json:"groups"`
}

type permissionsResponse struct {
	RoleID      int64    `json:"role_id"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) userMenu(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resolveCurrent(w, r)
	if !ok {
		return
	}
	groups := auth.Menu
	if groups == nil {
		groups = []GroupView{}
	}
	httpx.JSON(w, http.StatusOK, menuResponse{Groups: groups})
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	auth, ok := h.resolveCurrent(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{
		RoleID:      auth.RoleID,
		RoleName:    auth.RoleName,
		Permissions: auth.Permissions.Values(),
	})
}

func (h *Handler) roleMenu(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.directory.RoleByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	auth, err := h.service.Resolve(r.Context(), role.ID)
	if err != nil {
		h.logger.Error("resolve role menu", slog.String("role", role.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	groups := auth.Menu
	if groups == nil {
		groups = []GroupView{}
	}
	httpx.JSON(w, http.StatusOK, menuResponse{Groups: groups})
}

// resolveCurrent resolves the authorization bundle for the authenticated
// principal, writing the error response itself when resolution fails.
func (h *Handler) resolveCurrent(w http.ResponseWriter, r *http.Request) (*ResolvedAuthorization, bool) {
	claims := shared.ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return nil, false
	}
	principal := Principal{UserID: claims.UserID}
	if h.principals != nil {
		loaded, err := h.principals.PrincipalByID(r.Context(), claims.UserID)
		if err != nil {
			httpx.RespondError(w, err)
			return nil, false
		}
		principal = loaded
	} else {
		roleID := claims.RoleID
		principal.RoleID = &roleID
	}
	auth, err := h.service.ResolveForPrincipal(r.Context(), principal)
	if err != nil {
		h.logger.Error("resolve principal authorization", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return auth, true
}
