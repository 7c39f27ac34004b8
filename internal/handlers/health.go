package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"
)

// HealthCheckFunc probes one dependency
type HealthCheckFunc func(ctx context.Context) error

// RebuildStatus reports whether an affinity rebuild currently holds the rebuild lock
type RebuildStatus interface {
	Held(ctx context.Context) (bool, error)
}

// HealthChecker handles health check requests
type HealthChecker struct {
	checks  map[string]HealthCheckFunc
	rebuild RebuildStatus
	timeout time.Duration
}

// NewHealthChecker creates a new health checker with the database as its first check
func NewHealthChecker(database HealthCheckFunc) *HealthChecker {
	h := &HealthChecker{
		checks:  make(map[string]HealthCheckFunc),
		timeout: 5 * time.Second,
	}
	if database != nil {
		h.checks["database"] = database
	}
	return h
}

// AddCheck registers an additional dependency check reported in extended mode
func (h *HealthChecker) AddCheck(name string, check HealthCheckFunc) {
	if check != nil {
		h.checks[name] = check
	}
}

// SetRebuildStatus reports rebuild state in extended mode. It never affects health.
func (h *HealthChecker) SetRebuildStatus(status RebuildStatus) {
	h.rebuild = status
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Rebuild   string            `json:"affinity_rebuild,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		response.Checks = make(map[string]string, len(h.checks))
		names := make([]string, 0, len(h.checks))
		for name := range h.checks {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			if err := h.checks[name](ctx); err != nil {
				response.Status = "unhealthy"
				response.Checks[name] = "unhealthy: " + sanitizeErrorMessage(err.Error())
				continue
			}
			response.Checks[name] = "healthy"
		}

		// Readers are served from a possibly partial store while this reports "running".
		if h.rebuild != nil {
			response.Rebuild = rebuildState(ctx, h.rebuild)
		}

		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func rebuildState(ctx context.Context, status RebuildStatus) string {
	held, err := status.Held(ctx)
	switch {
	case err != nil:
		return "unknown"
	case held:
		return "running"
	default:
		return "idle"
	}
}
