package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/planfab/scheduler/cmd/scheduler/container"
	"github.com/planfab/scheduler/cmd/scheduler/routes"
	"github.com/planfab/scheduler/common/bootstrap"
	"github.com/planfab/scheduler/common/config"
	"github.com/planfab/scheduler/common/db"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := bootstrap.Setup(ctx, "scheduler",
		bootstrap.WithDBInitHook(func(cfg *config.Config, database *db.DB) error {
			return database.RunMigrations(ctx, cfg.Database.MigrationsPath)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap scheduler: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		components.Logger.Error("failed to initialize service container", "error", err)
		os.Exit(1)
	}

	// Background workers: change tracking off the queue, expired-lock
	// sweeping on a timer
	if err := serviceContainer.ChangeTracker.Start(ctx); err != nil {
		components.Logger.Error("failed to start change tracker", "error", err)
		os.Exit(1)
	}
	go serviceContainer.LockSweeper.Run(ctx)

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	startServer(ctx, cancel, e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "scheduler",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterVersionRoutes(e, serviceContainer)
	routes.RegisterLockRoutes(e, serviceContainer)
	routes.RegisterRollbackRoutes(e, serviceContainer)
}

// startServer runs the Echo server until a shutdown signal arrives
func startServer(ctx context.Context, cancel context.CancelFunc, e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	components.Logger.Info("starting scheduler", "port", port)

	errChan := make(chan error, 1)
	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		components.Logger.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		components.Logger.Error("server error", "error", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		components.Logger.Warn("server shutdown error", "error", err)
	}
}
