package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/cmd/lineage/container"
	"github.com/qefaraki/lineage/cmd/lineage/handlers"
	"github.com/qefaraki/lineage/cmd/lineage/middleware"
)

// RegisterPersonRoutes registers person, marriage and permission routes
func RegisterPersonRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewPersonHandler(c)

	persons := e.Group("/api/v1/persons")
	persons.Use(middleware.RequireActor())
	persons.Use(middleware.LimitWrites(c.Limiter, c.Components.Config.RateLimit))
	{
		persons.GET("/:id", h.GetPerson)
		persons.POST("", h.CreatePerson)
		persons.POST("/:id/children", h.CreateChildren)
		persons.PATCH("/:id", h.UpdatePerson)
		persons.DELETE("/:id", h.DeletePerson)
		persons.GET("/:id/relation/:other", h.Relate)
		persons.GET("/:id/descendants", h.GetDescendants)
		persons.GET("/:id/permission", h.GetPermission)
	}

	marriages := e.Group("/api/v1/marriages")
	marriages.Use(middleware.RequireActor())
	marriages.Use(middleware.LimitWrites(c.Limiter, c.Components.Config.RateLimit))
	{
		marriages.POST("", h.CreateMarriage)
		marriages.POST("/:id/end", h.EndMarriage)
	}
}
