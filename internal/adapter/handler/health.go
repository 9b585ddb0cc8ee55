package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Health reports the reachability of every backing service
type Health struct {
	checks  map[string]func(ctx context.Context) error
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealth creates a health handler over the named pings
func NewHealth(checks map[string]func(ctx context.Context) error, logger *zap.Logger) *Health {
	return &Health{
		checks:  checks,
		timeout: 3 * time.Second,
		logger:  logger,
	}
}

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Detailed godoc
// @Summary      Dependency health
// @Description  Pings the database, Redis and the object store
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health/detailed [get]
func (h *Health) Detailed(c echo.Context) error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	report := make(map[string]dependencyStatus, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
		started := time.Now()
		err := h.checks[name](ctx)
		cancel()

		dep := dependencyStatus{Status: "ok", LatencyMS: time.Since(started).Milliseconds()}
		if err != nil {
			dep.Status = "down"
			dep.Error = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			if h.logger != nil {
				h.logger.Warn("⚠️ Health check failed", zap.String("dependency", name), zap.Error(err))
			}
		}
		report[name] = dep
	}

	return c.JSON(code, map[string]interface{}{
		"status": status,
		"checks": report,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
