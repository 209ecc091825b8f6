package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ActorIDKey is the context key for the authenticated actor's person id
	ActorIDKey ContextKey = "actor_id"
)

// RequireActor extracts the X-Actor-ID header, parses it as a uuid and
// stores it in the request context. Requests without a valid actor id
// are rejected; every permission decision downstream keys off it.
//
// Usage:
//   g := e.Group("/api/v1/persons")
//   g.Use(middleware.RequireActor())
func RequireActor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get("X-Actor-ID")
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "X-Actor-ID header is required",
				})
			}
			actorID, err := uuid.Parse(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "X-Actor-ID must be a uuid",
				})
			}
			c.Set(string(ActorIDKey), actorID)
			return next(c)
		}
	}
}

// GetActorID retrieves the actor id stored by RequireActor. The zero
// uuid means the middleware did not run on this route.
func GetActorID(c echo.Context) uuid.UUID {
	if id, ok := c.Get(string(ActorIDKey)).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
