package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/clientflow/alertrunner/internal/api/handlers"
	"github.com/clientflow/alertrunner/internal/api/middleware"
	"github.com/clientflow/alertrunner/internal/auth"
	"github.com/clientflow/alertrunner/internal/config"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/metrics"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Rule     *handlers.RuleHandler
	Run      *handlers.RunHandler
	Inbox    *handlers.InboxHandler
	Workflow *handlers.WorkflowHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.Server))
	r.Use(metrics.Middleware)
	r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)
		r.Handle("/metrics", metrics.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))

		// Rule administration
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))

			r.Route("/alert-rules", func(r chi.Router) {
				r.Get("/", h.Rule.List)
				r.Post("/", h.Rule.Create)
				r.Get("/options", h.Rule.Options)
				r.Post("/seed", h.Rule.Seed)
				r.Get("/{id}", h.Rule.Get)
				r.Patch("/{id}", h.Rule.Update)
				r.Delete("/{id}", h.Rule.Delete)
				r.Get("/{id}/logs", h.Rule.Logs)
			})
		})

		// Scheduled runs and business events
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleCron))

			r.Post("/alerts/run", h.Run.RunScheduled)
			r.Post("/alerts/events", h.Run.TriggerEvent)
		})

		// Tenant scoped; handlers check the token's tenant
		r.Route("/tenants/{tenantId}", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleTenant))

			r.Get("/alerts", h.Inbox.List)
			r.Post("/alerts/{id}/read", h.Inbox.MarkRead)
			r.Post("/alerts/{id}/dismiss", h.Inbox.Dismiss)

			r.Get("/workflows", h.Workflow.List)
			r.Post("/workflows/defaults", h.Workflow.ProvisionDefaults)
		})
	})

	return r
}
