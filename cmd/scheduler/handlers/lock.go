package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/planfab/scheduler/cmd/scheduler/container"
	"github.com/planfab/scheduler/cmd/scheduler/middleware"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/cmd/scheduler/service"
	"github.com/planfab/scheduler/common/bootstrap"
)

// LockHandler handles advisory lock requests
type LockHandler struct {
	components *bootstrap.Components
	locks      *service.LockService
}

// NewLockHandler creates a new lock handler
func NewLockHandler(c *container.Container) *LockHandler {
	return &LockHandler{
		components: c.Components,
		locks:      c.LockService,
	}
}

// AcquireLock attempts to take a lock on a schedule. A conflict with an
// existing lock is a 409, not a failure.
// POST /api/v1/schedules/:schedule_id/locks
func (h *LockHandler) AcquireLock(c echo.Context) error {
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
		VersionID *uuid.UUID      `json:"version_id"`
		LockType  models.LockType `json:"lock_type"`
		SessionID string          `json:"session_id"`
		Purpose   *string         `json:"purpose"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "session_id is required",
		})
	}

	lock, err := h.locks.AcquireLock(ctx, scheduleID, req.VersionID, userID, req.LockType, req.SessionID, req.Purpose)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLockType) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": err.Error(),
			})
		}
		h.components.Logger.Error("failed to acquire lock", "schedule_id", scheduleID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to acquire lock",
		})
	}
	if lock == nil {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "schedule is locked by another session",
		})
	}

	return c.JSON(http.StatusCreated, lock)
}

// ReleaseLock deactivates a lock
// DELETE /api/v1/locks/:lock_id
func (h *LockHandler) ReleaseLock(c echo.Context) error {
	ctx := c.Request().Context()

	lockID, err := uuid.Parse(c.Param("lock_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lock_id must be a UUID")
	}

	released, err := h.locks.ReleaseLock(ctx, lockID)
	if err != nil {
		h.components.Logger.Error("failed to release lock", "lock_id", lockID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to release lock",
		})
	}
	if !released {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "lock not found or already released",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"released": true,
	})
}

// ListActiveLocks returns a schedule's unexpired active locks
// GET /api/v1/schedules/:schedule_id/locks
func (h *LockHandler) ListActiveLocks(c echo.Context) error {
	ctx := c.Request().Context()

	scheduleID, err := parseScheduleID(c)
	if err != nil {
		return err
	}

	locks, err := h.locks.ListActiveLocks(ctx, scheduleID)
	if err != nil {
		h.components.Logger.Error("failed to list locks", "schedule_id", scheduleID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to list locks",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"schedule_id": scheduleID,
		"locks":       locks,
	})
}
