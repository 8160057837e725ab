package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-relay/internal/api/http/handlers"
	"github.com/spec-kit/support-relay/internal/auth"
	"github.com/spec-kit/support-relay/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Events         *handlers.EventsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/token", cfg.Auth.IssueToken)

	authn := cfg.AuthMiddleware.Handle
	app.Post("/events", authn, cfg.Events.PostEvent)
	app.Post("/commands/:name", authn, cfg.Events.RunCommand)

	reports := app.Group("/reports", authn)
	reports.Get("/summary", auth.RequireRole(domain.RolePrimaryAdmin, domain.RoleSecondaryAdmin), cfg.Reports.Summary)
	reports.Get("/admins/:id", auth.RequireRole(domain.RolePrimaryAdmin, domain.RoleSecondaryAdmin), cfg.Reports.Admin)

	tickets := app.Group("/tickets", authn, auth.RequireAdmin())
	tickets.Get("/pending", auth.RequireRole(domain.RolePrimaryAdmin), cfg.Reports.Pending)
	tickets.Get("/:id", cfg.Reports.Ticket)
}
