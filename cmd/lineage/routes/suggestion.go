package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/cmd/lineage/container"
	"github.com/qefaraki/lineage/cmd/lineage/handlers"
	"github.com/qefaraki/lineage/cmd/lineage/middleware"
)

// RegisterSuggestionRoutes registers the edit suggestion workflow routes
func RegisterSuggestionRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewSuggestionHandler(c)

	sg := e.Group("/api/v1/suggestions")
	sg.Use(middleware.RequireActor())
	sg.Use(middleware.LimitSuggestions(c.Limiter, c.Components.Config.RateLimit))
	{
		sg.POST("", h.Propose)
		sg.GET("", h.ListPending)
		sg.GET("/:id", h.GetSuggestion)
		sg.POST("/:id/approve", h.Approve)
		sg.POST("/:id/reject", h.Reject)
		sg.POST("/:id/cancel", h.Cancel)
	}
}
