package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/planfab/scheduler/cmd/scheduler/container"
	"github.com/planfab/scheduler/cmd/scheduler/handlers"
	"github.com/planfab/scheduler/cmd/scheduler/middleware"
)

// RegisterLockRoutes registers advisory lock routes
func RegisterLockRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewLockHandler(c)

	schedules := e.Group("/api/v1/schedules")
	schedules.Use(middleware.ExtractUserID())
	{
		schedules.POST("/:schedule_id/locks", h.AcquireLock)  // POST /api/v1/schedules/{id}/locks
		schedules.GET("/:schedule_id/locks", h.ListActiveLocks)
	}

	locks := e.Group("/api/v1/locks")
	locks.Use(middleware.ExtractUserID())
	{
		locks.DELETE("/:lock_id", h.ReleaseLock)   // DELETE /api/v1/locks/{lock_id}
	}
}
