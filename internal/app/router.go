package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/prontivus/prontivus/internal/auth"
	"github.com/prontivus/prontivus/internal/menu"
	"github.com/prontivus/prontivus/internal/observability"
	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/roles"
	"github.com/prontivus/prontivus/internal/users"
	"github.com/prontivus/prontivus/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	TokenIssuer *auth.TokenIssuer

	AuthHandler  *auth.Handler
	RBACHandler  *rbac.Handler
	RolesHandler *roles.Handler
	UsersHandler *users.Handler
	MenuHandler  *menu.Handler
	JobHandler   *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router for the API surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		TokenIssuer: params.TokenIssuer,
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.RBACHandler != nil {
			params.RBACHandler.MountRoutes(r)
		}
		r.Route("/admin", func(r chi.Router) {
			if params.RolesHandler != nil {
				r.Route("/roles", params.RolesHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.MenuHandler != nil {
				r.Route("/menu", params.MenuHandler.MountRoutes)
			}
		})
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
