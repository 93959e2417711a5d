package http

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/http/handlers"
)

// RegisterHealthRoutes mounts the liveness and readiness probes on e.
// deps maps a backend name (e.g. "postgres") to its pinger.
func RegisterHealthRoutes(e *echo.Echo, deps map[string]ports.Pinger) {
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps)

	e.GET("/health", healthHandler.Liveness)            // is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // are dependencies up?
}
