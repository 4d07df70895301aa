package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/planfab/scheduler/cmd/scheduler/container"
	"github.com/planfab/scheduler/cmd/scheduler/handlers"
	"github.com/planfab/scheduler/cmd/scheduler/middleware"
)

// RegisterRollbackRoutes registers restore routes
func RegisterRollbackRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRollbackHandler(c)

	schedules := e.Group("/api/v1/schedules")
	schedules.Use(middleware.ExtractUserID())
	{
		schedules.POST("/:schedule_id/rollback", h.Rollback)      // POST /api/v1/schedules/{id}/rollback
		schedules.GET("/:schedule_id/rollbacks", h.GetRollbackHistory)
	}
}
