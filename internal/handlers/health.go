package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	pkghttp "github.com/BradenHooton/ditto/pkg/http"
)

// HealthCheck pings one backing dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the status of the database and the optional registry backend
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *slog.Logger
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(checks map[string]HealthCheck, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second, logger: logger}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "healthy", Dependencies: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed", slog.String("dependency", name), slog.Any("error", err))
			resp.Dependencies[name] = "down"
			resp.Status = "unhealthy"
			continue
		}
		resp.Dependencies[name] = "up"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	pkghttp.WriteJSON(w, status, resp)
}
