package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/cmd/lineage/container"
	"github.com/qefaraki/lineage/cmd/lineage/middleware"
	"github.com/qefaraki/lineage/cmd/lineage/service"
)

// SuggestionHandler handles the edit suggestion workflow
type SuggestionHandler struct {
	container *container.Container
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(c *container.Container) *SuggestionHandler {
	return &SuggestionHandler{container: c}
}

type proposeRequest struct {
	PersonID uuid.UUID `json:"person_id"`
	Field    string    `json:"field"`
	NewValue *string   `json:"new_value"`
	Reason   string    `json:"reason,omitempty"`
}

// Propose records a pending suggestion
// POST /api/v1/suggestions
func (h *SuggestionHandler) Propose(c echo.Context) error {
	var req proposeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sg, err := h.container.SuggestionService.Propose(c.Request().Context(), service.ProposeInput{
		ActorID:  middleware.GetActorID(c),
		TargetID: req.PersonID,
		Field:    req.Field,
		NewValue: req.NewValue,
		Reason:   req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, sg)
}

// GetSuggestion retrieves one suggestion
// GET /api/v1/suggestions/:id
func (h *SuggestionHandler) GetSuggestion(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	sg, err := h.container.SuggestionService.Get(c.Request().Context(), middleware.GetActorID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sg)
}

// ListPending lists reviewable pending suggestions
// GET /api/v1/suggestions?person_id=...&limit=50
func (h *SuggestionHandler) ListPending(c echo.Context) error {
	var personID *uuid.UUID
	if raw := c.QueryParam("person_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "person_id must be a uuid")
		}
		personID = &id
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	list, err := h.container.SuggestionService.ListPending(c.Request().Context(), middleware.GetActorID(c), personID, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"suggestions": list,
	})
}

// Approve applies a pending suggestion as a guarded mutation
// POST /api/v1/suggestions/:id/approve
func (h *SuggestionHandler) Approve(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	updated, err := h.container.SuggestionService.Approve(c.Request().Context(), middleware.GetActorID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Reject settles a pending suggestion without applying it
// POST /api/v1/suggestions/:id/reject
func (h *SuggestionHandler) Reject(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.container.SuggestionService.Reject(c.Request().Context(), middleware.GetActorID(c), id, req.Reason); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Cancel withdraws the caller's own pending suggestion
// POST /api/v1/suggestions/:id/cancel
func (h *SuggestionHandler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.container.SuggestionService.Cancel(c.Request().Context(), middleware.GetActorID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
