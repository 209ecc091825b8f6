package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/cmd/lineage/container"
	"github.com/qefaraki/lineage/cmd/lineage/handlers"
	"github.com/qefaraki/lineage/cmd/lineage/middleware"
)

// RegisterAdminRoutes registers the moderation surface
func RegisterAdminRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewAdminHandler(c)

	admin := e.Group("/api/v1/admin")
	admin.Use(middleware.RequireActor())
	{
		admin.POST("/grants", h.GrantModerator)
		admin.DELETE("/grants/:id", h.RevokeModerator)
		admin.POST("/blocks/:id", h.BlockSuggestions)
		admin.DELETE("/blocks/:id", h.UnblockSuggestions)
		admin.PUT("/roles/:id", h.SetRole)
		admin.GET("/integrity/cycles", h.FindParentCycles)
	}
}
