package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/planfab/scheduler/cmd/scheduler/container"
	"github.com/planfab/scheduler/cmd/scheduler/handlers"
	"github.com/planfab/scheduler/cmd/scheduler/middleware"
)

// RegisterVersionRoutes registers version lifecycle and comparison routes
func RegisterVersionRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewVersionHandler(c)
	ch := handlers.NewComparisonHandler(c)

	schedules := e.Group("/api/v1/schedules")
	schedules.Use(middleware.ExtractUserID())
	{
		schedules.POST("/:schedule_id/versions", h.CreateVersion)            // POST /api/v1/schedules/{id}/versions
		schedules.GET("/:schedule_id/versions", h.GetVersionHistory)         // GET /api/v1/schedules/{id}/versions
		schedules.GET("/:schedule_id/versions/latest", h.GetLatestVersion)   // GET /api/v1/schedules/{id}/versions/latest
		schedules.POST("/:schedule_id/concurrency-check", h.CheckConcurrency)
	}

	versions := e.Group("/api/v1/versions")
	versions.Use(middleware.ExtractUserID())
	{
		versions.GET("/:version_id", h.GetVersion)   // GET /api/v1/versions/{version_id}
		versions.GET("/:version_id/changes", h.GetVersionChanges)
		versions.POST("/compare", ch.CompareVersions)
	}

	comparisons := e.Group("/api/v1/comparisons")
	comparisons.Use(middleware.ExtractUserID())
	{
		comparisons.GET("/:comparison_id", ch.GetComparison)
	}
}
