package menu

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/prontivus/prontivus/internal/platform/httpx"
	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/shared"
)

// Handler manages menu catalog administration endpoints. Every successful
// mutation invalidates the authorization cache for the affected roles
// before the response is written.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers menu administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermMenuView))
		r.Get("/groups", h.listGroups)
		r.Get("/items/{id}", h.getItem)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermMenuEdit))
		r.Post("/groups", h.createGroup)
		r.Put("/groups/{id}", h.updateGroup)
		r.Delete("/groups/{id}", h.deleteGroup)
		r.Post("/items", h.createItem)
		r.Put("/items/{id}", h.updateItem)
		r.Delete("/items/{id}", h.deleteItem)
		r.Post("/roles/{roleID}/items/{itemID}", h.assignItem)
		r.Delete("/roles/{roleID}/items/{itemID}", h.revokeItem)
	})
}

type groupPayload struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	OrderIndex  int    `json:"order"`
	Icon        string `json:"icon" validate:"max=50"`
	IsActive    *bool  `json:"is_active"`
}

type itemPayload struct {
	GroupID             int64    `json:"group_id" validate:"required"`
	Name                string   `json:"name" validate:"required,max=100"`
	Route               string   `json:"route" validate:"required,max=200"`
	Icon                string   `json:"icon" validate:"max=50"`
	OrderIndex          int      `json:"order"`
	RequiredPermissions []string `json:"permissions_required"`
	Description         string   `json:"description" validate:"max=500"`
	Badge               string   `json:"badge" validate:"max=20"`
	IsExternal          bool     `json:"is_external"`
	IsActive            *bool    `json:"is_active"`
}

type groupResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OrderIndex  int       `json:"order"`
	Icon        string    `json:"icon"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type itemResponse struct {
	ID                  int64     `json:"id"`
	GroupID             int64     `json:"group_id"`
	Name                string    `json:"name"`
	Route               string    `json:"route"`
	Icon                string    `json:"icon"`
	OrderIndex          int       `json:"order"`
	RequiredPermissions []string  `json:"permissions_required"`
	Description         string    `json:"description"`
	Badge               string    `json:"badge,omitempty"`
	IsExternal          bool      `json:"is_external"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toGroupResponse(g Group) groupResponse {
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		OrderIndex:  g.OrderIndex,
		Icon:        g.Icon,
		IsActive:    g.IsActive,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func toItemResponse(item Item) itemResponse {
	perms := item.RequiredPermissions
	if perms == nil {
		perms = []string{}
	}
	return itemResponse{
		ID:                  item.ID,
		GroupID:             item.GroupID,
		Name:                item.Name,
		Route:               item.Route,
		Icon:                item.Icon,
		OrderIndex:          item.OrderIndex,
		RequiredPermissions: perms,
		Description:         item.Description,
		Badge:               item.Badge,
		IsExternal:          item.IsExternal,
		IsActive:            item.IsActive,
		CreatedAt:           item.CreatedAt,
		UpdatedAt:           item.UpdatedAt,
	}
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		h.logger.Error("list menu groups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeGroup(w, r)
	if !ok {
		return
	}
	group, err := h.service.CreateGroup(r.Context(), payloadToGroup(0, payload))
	if err != nil {
		h.logger.Error("create menu group", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toGroupResponse(group))
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	payload, ok := h.decodeGroup(w, r)
	if !ok {
		return
	}
	group, err := h.service.UpdateGroup(r.Context(), payloadToGroup(id, payload))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteGroup(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	item, err := h.service.CreateItem(r.Context(), payloadToItem(0, payload))
	if err != nil {
		h.logger.Error("create menu item", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toItemResponse(item))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	payload, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	item, err := h.service.UpdateItem(r.Context(), payloadToItem(id, payload))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignItem(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.service.AssignItem(r.Context(), roleID, itemID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeItem(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	if err := h.service.RevokeItem(r.Context(), roleID, itemID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeGroup(w http.ResponseWriter, r *http.Request) (groupPayload, bool) {
	var payload groupPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return payload, false
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return payload, false
	}
	return payload, true
}

func (h *Handler) decodeItem(w http.ResponseWriter, r *http.Request) (itemPayload, bool) {
	var payload itemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return payload, false
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return payload, false
	}
	return payload, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", param+" must be numeric")
		return 0, false
	}
	return id, true
}

func payloadToGroup(id int64, p groupPayload) Group {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return Group{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		OrderIndex:  p.OrderIndex,
		Icon:        p.Icon,
		IsActive:    active,
	}
}

func payloadToItem(id int64, p itemPayload) Item {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	return Item{
		ID:                  id,
		GroupID:             p.GroupID,
		Name:                p.Name,
		Route:               p.Route,
		Icon:                p.Icon,
		OrderIndex:          p.OrderIndex,
		RequiredPermissions: p.RequiredPermissions,
		Description:         p.Description,
		Badge:               p.Badge,
		IsExternal:          p.IsExternal,
		IsActive:            active,
	}
}
