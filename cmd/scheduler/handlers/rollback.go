package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/planfab/scheduler/cmd/scheduler/container"
	"github.com/planfab/scheduler/cmd/scheduler/middleware"
	"github.com/planfab/scheduler/cmd/scheduler/service"
	"github.com/planfab/scheduler/common/bootstrap"
)

// RollbackHandler handles restore requests
type RollbackHandler struct {
	components *bootstrap.Components
	rollbacks  *service.RollbackService
}

// NewRollbackHandler creates a new rollback handler
func NewRollbackHandler(c *container.Container) *RollbackHandler {
	return &RollbackHandler{
		components: c.Components,
		rollbacks:  c.RollbackService,
	}
}

// Rollback restores a schedule to a prior version's content
// POST /api/v1/schedules/:schedule_id/rollback
func (h *RollbackHandler) Rollback(c echo.Context) error {
	ctx := c.Request().Context()

	scheduleID, err := parseScheduleID(c)
	if err != nil {
		return err
	}

	userID, err := middleware.RequireUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		TargetVersionID uuid.UUID `json:"target_version_id"`
		Reason          string    `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if req.TargetVersionID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "target_version_id is required",
		})
	}
	if req.Reason == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "reason is required",
		})
	}

	version, err := h.rollbacks.RollbackToVersion(ctx, scheduleID, req.TargetVersionID, userID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVersionNotFound):
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"error": err.Error(),
			})
		case errors.Is(err, service.ErrRollbackNotApproved):
			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"error": err.Error(),
			})
		}
		h.components.Logger.Error("rollback failed", "schedule_id", scheduleID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "rollback failed",
		})
	}

	return c.JSON(http.StatusCreated, version)
}

// GetRollbackHistory returns a schedule's rollback audit records
// GET /api/v1/schedules/:schedule_id/rollbacks?limit=50
func (h *RollbackHandler) GetRollbackHistory(c echo.Context) error {
	ctx := c.Request().Context()

	scheduleID, err := parseScheduleID(c)
	if err != nil {
		return err
	}

	limit := h.components.Config.Versioning.HistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "limit must be a positive integer",
			})
		}
	}

	history, err := h.rollbacks.GetRollbackHistory(ctx, scheduleID, limit)
	if err != nil {
		h.components.Logger.Error("failed to get rollback history", "schedule_id", scheduleID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to get rollback history",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"schedule_id": scheduleID,
		"rollbacks":   history,
	})
}
