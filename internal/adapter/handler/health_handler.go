package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]Pinger
	logger *slog.Logger
}

// NewHealthHandler takes named dependencies, e.g. "database", "redis", "queue".
func NewHealthHandler(checks map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: logger,
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	overallStatus := "healthy"
	statuses := make(map[string]string, len(h.checks))

	for name, dep := range h.checks {
		statuses[name] = "healthy"
		if err := dep.Ping(ctx); err != nil {
			statuses[name] = "unhealthy"
			overallStatus = "degraded"
			h.logger.Warn("health check failed", "dependency", name, "error", err)
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status": overallStatus,
		"checks": statuses,
	})
}
