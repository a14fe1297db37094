package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/prontivus/prontivus/internal/platform/httpx"
	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate

	// LoginLimiter, when set, throttles the login endpoint.
	LoginLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h.LoginLimiter != nil {
		r.Group(func(r chi.Router) {
			r.Use(h.LoginLimiter)
			r.Post("/login", h.handleLogin)
		})
	} else {
		r.Post("/login", h.handleLogin)
	}
	r.Post("/refresh", h.handleRefresh)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	ClinicID int64  `json:"clinic_id"`
	RoleID   int64  `json:"role_id"`
	RoleName string `json:"role_name"`
}

type loginResponse struct {
	TokenPair
	User        userResponse     `json:"user"`
	Permissions []string         `json:"permissions"`
	Menu        []rbac.GroupView `json:"menu"`
}

func toLoginResponse(result *LoginResult) loginResponse {
	menu := result.Auth.Menu
	if menu == nil {
		menu = []rbac.GroupView{}
	}
	return loginResponse{
		TokenPair: result.Tokens,
		User: userResponse{
			ID:       result.User.ID,
			Username: result.User.Username,
			Email:    result.User.Email,
			FullName: result.User.FullName,
			ClinicID: result.User.ClinicID,
			RoleID:   result.Auth.RoleID,
			RoleName: result.Auth.RoleName,
		},
		Permissions: result.Auth.Permissions.Values(),
		Menu:        menu,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RecordLogin(r.Context(), result.User, r.RemoteAddr, r.UserAgent()); err != nil {
		// Alerting is best effort; the credential is already issued.
		h.logger.Warn("record login", slog.Int64("user_id", result.User.ID), slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, toLoginResponse(result))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toLoginResponse(result))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := shared.ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		ClinicID: user.ClinicID,
		RoleID:   claims.RoleID,
		RoleName: claims.RoleName,
	})
}
