package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Check reports the state of one dependency; nil means healthy.
type Check func(ctx context.Context) error

type HealthHandler struct {
	Checks    map[string]Check
	StartTime time.Time
	Version   string
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(version string, checks map[string]Check) *HealthHandler {
	return &HealthHandler{
		Checks:    checks,
		StartTime: time.Now(),
		Version:   version,
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.Checks))
	status := "healthy"
	for name, check := range h.Checks {
		if check == nil {
			deps[name] = "not configured"
			continue
		}
		if err := check(ctx); err != nil {
			deps[name] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
			continue
		}
		deps[name] = "healthy"
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	})
}
