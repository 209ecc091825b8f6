package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/cmd/lineage/container"
	"github.com/qefaraki/lineage/cmd/lineage/middleware"
	"github.com/qefaraki/lineage/cmd/lineage/service"
	"github.com/qefaraki/lineage/common/models"
)

// PersonHandler handles person node requests
type PersonHandler struct {
	container *container.Container
}

// NewPersonHandler creates a new person handler
func NewPersonHandler(c *container.Container) *PersonHandler {
	return &PersonHandler{container: c}
}

// GetPerson retrieves a person by id
// GET /api/v1/persons/:id
func (h *PersonHandler) GetPerson(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.container.PersonService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type createPersonRequest struct {
	Name     string     `json:"name"`
	Gender   string     `json:"gender"`
	FatherID *uuid.UUID `json:"father_id,omitempty"`
	MotherID *uuid.UUID `json:"mother_id,omitempty"`
	Status   string     `json:"status,omitempty"`
}

// CreatePerson adds a single node
// POST /api/v1/persons
func (h *PersonHandler) CreatePerson(c echo.Context) error {
	var req createPersonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.container.PersonService.Create(c.Request().Context(), service.CreateInput{
		ActorID:  middleware.GetActorID(c),
		Name:     req.Name,
		Gender:   models.Gender(req.Gender),
		FatherID: req.FatherID,
		MotherID: req.MotherID,
		Status:   models.LifecycleStatus(req.Status),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

type createChildrenRequest struct {
	MotherID *uuid.UUID `json:"mother_id,omitempty"`
	Children []struct {
		Name   string `json:"name"`
		Gender string `json:"gender"`
		Status string `json:"status,omitempty"`
	} `json:"children"`
}

// CreateChildren adds a batch of children under one father
// POST /api/v1/persons/:id/children
func (h *PersonHandler) CreateChildren(c echo.Context) error {
	fatherID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req createChildrenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	inputs := make([]service.ChildInput, 0, len(req.Children))
	for _, child := range req.Children {
		inputs = append(inputs, service.ChildInput{
			Name:   child.Name,
			Gender: models.Gender(child.Gender),
			Status: models.LifecycleStatus(child.Status),
		})
	}
	children, err := h.container.PersonService.CreateChildren(c.Request().Context(), middleware.GetActorID(c), fatherID, req.MotherID, inputs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"children": children,
	})
}

type updatePersonRequest struct {
	ExpectedVersion int64          `json:"expected_version"`
	Changes         map[string]any `json:"changes"`
	Description     string         `json:"description,omitempty"`
}

// UpdatePerson applies a direct guarded field edit
// PATCH /api/v1/persons/:id
func (h *PersonHandler) UpdatePerson(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req updatePersonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	updated, err := h.container.MutationService.Update(c.Request().Context(), service.UpdateInput{
		ActorID:         middleware.GetActorID(c),
		TargetID:        id,
		ExpectedVersion: req.ExpectedVersion,
		Changes:         req.Changes,
		Description:     req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeletePerson soft-deletes a node
// DELETE /api/v1/persons/:id
func (h *PersonHandler) DeletePerson(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.container.PersonService.Delete(c.Request().Context(), middleware.GetActorID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Relate answers the relationship queries between two nodes
// GET /api/v1/persons/:id/relation/:other
func (h *PersonHandler) Relate(c echo.Context) error {
	a, err := parseID(c, "id")
	if err != nil {
		return err
	}
	b, err := parseID(c, "other")
	if err != nil {
		return err
	}
	rel, err := h.container.PersonService.Relate(c.Request().Context(), a, b)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rel)
}

// GetDescendants returns every descendant id of a node
// GET /api/v1/persons/:id/descendants
func (h *PersonHandler) GetDescendants(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	set, err := h.container.RelationshipService.AllDescendants(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	ids := make([]uuid.UUID, 0, len(set))
	for did := range set {
		ids = append(ids, did)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"descendants": ids,
		"count":       len(ids),
	})
}

// GetPermission evaluates the caller's access level over a target
// GET /api/v1/persons/:id/permission
func (h *PersonHandler) GetPermission(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	level, err := h.container.PermissionService.Evaluate(c.Request().Context(), middleware.GetActorID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"level": level,
	})
}

type createMarriageRequest struct {
	HusbandID uuid.UUID `json:"husband_id"`
	WifeID    uuid.UUID `json:"wife_id"`
}

// CreateMarriage records a current marriage
// POST /api/v1/marriages
func (h *PersonHandler) CreateMarriage(c echo.Context) error {
	var req createMarriageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.container.PersonService.CreateMarriage(c.Request().Context(), middleware.GetActorID(c), req.HusbandID, req.WifeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// EndMarriage transitions a marriage to past
// POST /api/v1/marriages/:id/end
func (h *PersonHandler) EndMarriage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.container.PersonService.EndMarriage(c.Request().Context(), middleware.GetActorID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
