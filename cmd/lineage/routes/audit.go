package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/cmd/lineage/container"
	"github.com/qefaraki/lineage/cmd/lineage/handlers"
	"github.com/qefaraki/lineage/cmd/lineage/middleware"
)

// RegisterAuditRoutes registers ledger and revert routes
func RegisterAuditRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewAuditHandler(c)

	audit := e.Group("/api/v1/audit")
	audit.Use(middleware.RequireActor())
	audit.Use(middleware.LimitWrites(c.Limiter, c.Components.Config.RateLimit))
	{
		audit.GET("/:id", h.GetEntry)
		audit.POST("/:id/revert", h.Revert)
	}

	// Per-person ledger listing lives under the person resource
	persons := e.Group("/api/v1/persons")
	persons.Use(middleware.RequireActor())
	{
		persons.GET("/:id/audit", h.ListByPerson)
	}
}
