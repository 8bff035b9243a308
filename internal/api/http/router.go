package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/http/handlers"
	"github.com/spec-kit/field-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Directory      *handlers.DirectoryHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Role enforcement lives in the services
// behind the access filter; the middleware only resolves the principal.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	protected.Post("/auth/principals", cfg.Auth.CreatePrincipal)

	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Get("/tickets/:id/equipment", cfg.Tickets.GetTicketEquipment)
	protected.Post("/tickets/:id/arrival", cfg.Tickets.RecordArrival)
	protected.Post("/tickets/:id/close", cfg.Tickets.CloseTicket)

	protected.Post("/institutions", cfg.Directory.CreateInstitution)
	protected.Get("/institutions", cfg.Directory.ListInstitutions)
	protected.Get("/institutions/:id", cfg.Directory.GetInstitution)
	protected.Put("/institutions/:id", cfg.Directory.UpdateInstitution)
	protected.Delete("/institutions/:id", cfg.Directory.DeleteInstitution)

	protected.Post("/equipment", cfg.Directory.CreateEquipment)
	protected.Post("/equipment/import", cfg.Directory.ImportEquipment)
	protected.Get("/equipment", cfg.Directory.ListEquipment)
	protected.Get("/equipment/:id", cfg.Directory.GetEquipment)
	protected.Put("/equipment/:id", cfg.Directory.UpdateEquipment)
	protected.Delete("/equipment/:id", cfg.Directory.DeleteEquipment)

	protected.Get("/reports/audit", cfg.Reports.GetAuditReport)
	protected.Get("/reports/compliance", cfg.Reports.GetCompliance)
}
