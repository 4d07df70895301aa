package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/planfab/scheduler/cmd/scheduler/container"
	"github.com/planfab/scheduler/cmd/scheduler/middleware"
	"github.com/planfab/scheduler/cmd/scheduler/models"
	"github.com/planfab/scheduler/cmd/scheduler/repository"
	"github.com/planfab/scheduler/cmd/scheduler/service"
	"github.com/planfab/scheduler/common/bootstrap"
)

// VersionHandler handles version lifecycle requests
type VersionHandler struct {
	components *bootstrap.Components
	versions   *service.VersionService
	changes    *repository.OperationVersionRepository
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(c *container.Container) *VersionHandler {
	return &VersionHandler{
		components: c.Components,
		versions:   c.VersionService,
		changes:    c.OperationVersionRepo,
	}
}

// CreateVersion captures the schedule's current state as a new version
// POST /api/v1/schedules/:schedule_id/versions
func (h *VersionHandler) CreateVersion(c echo.Context) error {
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
		Source  models.VersionSource `json:"source"`
		Comment *string              `json:"comment"`
		Tag     *string              `json:"tag"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}
	if req.Source == "" {
		req.Source = models.SourceManual
	}

	version, err := h.versions.CreateVersion(ctx, scheduleID, userID, req.Source, req.Comment, req.Tag)
	if err != nil {
		h.components.Logger.Error("failed to create version", "schedule_id", scheduleID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to create version",
		})
	}

	return c.JSON(http.StatusCreated, version)
}

// GetLatestVersion returns the newest version of a schedule
// GET /api/v1/schedules/:schedule_id/versions/latest
func (h *VersionHandler) GetLatestVersion(c echo.Context) error {
	ctx := c.Request().Context()

	scheduleID, err := parseScheduleID(c)
	if err != nil {
		return err
	}

	version, err := h.versions.GetLatestVersion(ctx, scheduleID)
	if err != nil {
		h.components.Logger.Error("failed to get latest version", "schedule_id", scheduleID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to get latest version",
		})
	}
	if version == nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "no versions exist for this schedule",
		})
	}

	return c.JSON(http.StatusOK, version)
}

// GetVersion returns one version by id
// GET /api/v1/versions/:version_id
func (h *VersionHandler) GetVersion(c echo.Context) error {
	ctx := c.Request().Context()

	versionID, err := parseVersionID(c, "version_id")
	if err != nil {
		return err
	}

	version, err := h.versions.GetVersion(ctx, versionID)
	if err != nil {
		h.components.Logger.Error("failed to get version", "version_id", versionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to get version",
		})
	}
	if version == nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "version not found",
		})
	}

	return c.JSON(http.StatusOK, version)
}

// GetVersionChanges returns the per-operation change records recorded
// for a version. Change tracking is best effort, so an empty list is a
// normal outcome even for versions with a parent.
// GET /api/v1/versions/:version_id/changes
func (h *VersionHandler) GetVersionChanges(c echo.Context) error {
	ctx := c.Request().Context()

	versionID, err := parseVersionID(c, "version_id")
	if err != nil {
		return err
	}

	records, err := h.changes.ListByVersion(ctx, versionID)
	if err != nil {
		h.components.Logger.Error("failed to list version changes", "version_id", versionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to list version changes",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version_id": versionID,
		"changes":    records,
	})
}

// GetVersionHistory returns versions newest first with creator names
// GET /api/v1/schedules/:schedule_id/versions?limit=50
func (h *VersionHandler) GetVersionHistory(c echo.Context) error {
	ctx := c.Request().Context()

	scheduleID, err := parseScheduleID(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "limit must be a positive integer",
			})
		}
	}

	history, err := h.versions.GetVersionHistory(ctx, scheduleID, limit)
	if err != nil {
		h.components.Logger.Error("failed to get version history", "schedule_id", scheduleID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to get version history",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"schedule_id": scheduleID,
		"versions":    history,
	})
}

// CheckConcurrency reports whether a caller's version is still current
// POST /api/v1/schedules/:schedule_id/concurrency-check
func (h *VersionHandler) CheckConcurrency(c echo.Context) error {
	ctx := c.Request().Context()

	scheduleID, err := parseScheduleID(c)
	if err != nil {
		return err
	}

	var req struct {
		ExpectedVersion int `json:"expected_version"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	check, err := h.versions.CheckConcurrency(ctx, scheduleID, req.ExpectedVersion)
	if err != nil {
		h.components.Logger.Error("concurrency check failed", "schedule_id", scheduleID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "concurrency check failed",
		})
	}

	return c.JSON(http.StatusOK, check)
}

func parseScheduleID(c echo.Context) (int64, error) {
	scheduleID, err := strconv.ParseInt(c.Param("schedule_id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "schedule_id must be an integer")
	}
	return scheduleID, nil
}

func parseVersionID(c echo.Context, param string) (uuid.UUID, error) {
	versionID, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, param+" must be a UUID")
	}
	return versionID, nil
}
