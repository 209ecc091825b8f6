package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/cmd/lineage/container"
	"github.com/qefaraki/lineage/cmd/lineage/middleware"
	"github.com/qefaraki/lineage/common/models"
)

// AdminHandler handles moderation requests
type AdminHandler struct {
	container *container.Container
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(c *container.Container) *AdminHandler {
	return &AdminHandler{container: c}
}

type grantRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
	RootID  uuid.UUID `json:"root_id"`
}

// GrantModerator gives an actor full access over a branch
// POST /api/v1/admin/grants
func (h *AdminHandler) GrantModerator(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	g, err := h.container.AdminService.GrantModerator(c.Request().Context(), middleware.GetActorID(c), req.ActorID, req.RootID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

// RevokeModerator deactivates a grant
// DELETE /api/v1/admin/grants/:id
func (h *AdminHandler) RevokeModerator(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.container.AdminService.RevokeModerator(c.Request().Context(), middleware.GetActorID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type blockRequest struct {
	Reason string `json:"reason,omitempty"`
}

// BlockSuggestions blocks a person from suggesting
// POST /api/v1/admin/blocks/:id
func (h *AdminHandler) BlockSuggestions(c echo.Context) error {
	personID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req blockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.container.AdminService.BlockSuggestions(c.Request().Context(), middleware.GetActorID(c), personID, req.Reason); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UnblockSuggestions lifts a suggestion block
// DELETE /api/v1/admin/blocks/:id
func (h *AdminHandler) UnblockSuggestions(c echo.Context) error {
	personID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.container.AdminService.UnblockSuggestions(c.Request().Context(), middleware.GetActorID(c), personID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type roleRequest struct {
	Role string `json:"role"`
}

// SetRole changes a person's platform role
// PUT /api/v1/admin/roles/:id
func (h *AdminHandler) SetRole(c echo.Context) error {
	personID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.container.AdminService.SetRole(c.Request().Context(), middleware.GetActorID(c), personID, models.Role(req.Role)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// FindParentCycles runs the parent-reference integrity diagnostic
// GET /api/v1/admin/integrity/cycles
func (h *AdminHandler) FindParentCycles(c echo.Context) error {
	isAdmin, err := h.container.PermissionService.IsAdmin(c.Request().Context(), middleware.GetActorID(c))
	if err != nil {
		return respondError(c, err)
	}
	if !isAdmin {
		return c.JSON(http.StatusForbidden, map[string]interface{}{
			"error": "forbidden",
		})
	}
	cycles, err := h.container.IntegrityService.FindParentCycles(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cycles": cycles,
	})
}
