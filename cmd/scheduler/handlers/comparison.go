package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/planfab/scheduler/cmd/scheduler/container"
	"github.com/planfab/scheduler/cmd/scheduler/middleware"
	"github.com/planfab/scheduler/cmd/scheduler/repository"
	"github.com/planfab/scheduler/cmd/scheduler/service"
	"github.com/planfab/scheduler/common/bootstrap"
)

// ComparisonHandler handles version diff requests
type ComparisonHandler struct {
	components  *bootstrap.Components
	comparator  *service.ComparatorService
	comparisons *repository.ComparisonRepository
}

// NewComparisonHandler creates a new comparison handler
func NewComparisonHandler(c *container.Container) *ComparisonHandler {
	return &ComparisonHandler{
		components:  c.Components,
		comparator:  c.ComparatorService,
		comparisons: c.ComparisonRepo,
	}
}

// GetComparison retrieves a previously persisted comparison
// GET /api/v1/comparisons/:comparison_id
func (h *ComparisonHandler) GetComparison(c echo.Context) error {
	ctx := c.Request().Context()

	comparisonID, err := uuid.Parse(c.Param("comparison_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "comparison_id must be a UUID")
	}

	comparison, err := h.comparisons.GetByID(ctx, comparisonID)
	if err != nil {
		h.components.Logger.Error("failed to get comparison", "comparison_id", comparisonID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to get comparison",
		})
	}
	if comparison == nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "comparison not found",
		})
	}

	return c.JSON(http.StatusOK, comparison)
}

// CompareVersions diffs two versions and persists the result
// POST /api/v1/versions/compare
func (h *ComparisonHandler) CompareVersions(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		VersionID1 uuid.UUID `json:"version_id_1"`
		VersionID2 uuid.UUID `json:"version_id_2"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if req.VersionID1 == uuid.Nil || req.VersionID2 == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "version_id_1 and version_id_2 are required",
		})
	}

	comparison, err := h.comparator.CompareVersions(ctx, req.VersionID1, req.VersionID2, userID)
	if err != nil {
		if errors.Is(err, service.ErrVersionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"error": err.Error(),
			})
		}
		h.components.Logger.Error("failed to compare versions", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to compare versions",
		})
	}

	return c.JSON(http.StatusOK, comparison)
}
