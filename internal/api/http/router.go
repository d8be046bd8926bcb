package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/profile-service/internal/api/http/handlers"
	"github.com/spec-kit/profile-service/internal/auth"
	"github.com/spec-kit/profile-service/internal/observability"
	"github.com/spec-kit/profile-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	ClientLimiter  *ratelimit.Limiter
	RateLimiter    *ratelimit.Limiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	// Create is rejected before authentication is attempted.
	app.Post("/users", cfg.Users.Create)

	// The client limiter runs before authentication and so counts per IP,
	// rejected tokens included; the second limiter counts per user.
	users := app.Group("/users", cfg.ClientLimiter.Handle, cfg.AuthMiddleware.Handle, cfg.RateLimiter.Handle)
	users.Get("/", cfg.Users.List)
	users.Put("/", cfg.Users.Update)
	users.Delete("/", cfg.Users.Delete)
	users.Get("/:id/cohorts", cfg.Users.GetCohortsByID)
	users.Put("/:userId/cohorts/:cohortId", cfg.Users.AddCohort)
	users.Delete("/:userId/cohorts/:cohortId", cfg.Users.RemoveCohort)
	users.Get("/:id/messages", cfg.Users.GetMessages)
	users.Get("/:id", cfg.Users.GetByID)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)
}
