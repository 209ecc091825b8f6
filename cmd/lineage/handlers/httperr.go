package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qefaraki/lineage/common/apperr"
)

// respondError translates the service error taxonomy into HTTP. Every
// handler funnels failures through here so the mapping stays in one
// place.
func respondError(c echo.Context, err error) error {
	var vc *apperr.VersionConflictError
	if errors.As(err, &vc) {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":            "version conflict",
			"expected_version": vc.Expected,
			"actual_version":   vc.Actual,
		})
	}
	var inv *apperr.InvalidFieldError
	if errors.As(err, &inv) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "invalid field",
			"field": inv.Field,
		})
	}

	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, map[string]interface{}{
			"error": "forbidden",
		})
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "not found",
		})
	case errors.Is(err, apperr.ErrAlreadyProcessed):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "already processed",
		})
	case errors.Is(err, apperr.ErrAlreadyReverted):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "already reverted",
		})
	case errors.Is(err, apperr.ErrNotRevertable):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "entry cannot be reverted",
		})
	case errors.Is(err, apperr.ErrValidation):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "validation failed",
			"detail": err.Error(),
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": "internal error",
	})
}

// parseID parses a uuid path parameter, failing with 400 on garbage.
func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a uuid")
	}
	return id, nil
}
