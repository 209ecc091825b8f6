package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/cmd/lineage/container"
	"github.com/qefaraki/lineage/cmd/lineage/middleware"
)

// AuditHandler exposes the ledger and the revert operation
type AuditHandler struct {
	container *container.Container
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(c *container.Container) *AuditHandler {
	return &AuditHandler{container: c}
}

// GetEntry retrieves one ledger entry
// GET /api/v1/audit/:id
func (h *AuditHandler) GetEntry(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	entry, err := h.container.AuditService.Get(c.Request().Context(), middleware.GetActorID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// ListByPerson returns a person's ledger, newest first
// GET /api/v1/persons/:id/audit?limit=50
func (h *AuditHandler) ListByPerson(c echo.Context) error {
	personID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	entries, err := h.container.AuditService.ListByPerson(c.Request().Context(), middleware.GetActorID(c), personID, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// Revert undoes one ledger entry as a new guarded mutation
// POST /api/v1/audit/:id/revert
func (h *AuditHandler) Revert(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	updated, err := h.container.AuditService.Revert(c.Request().Context(), middleware.GetActorID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}
