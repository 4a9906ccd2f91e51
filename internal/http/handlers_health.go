package httpx

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck probes a single dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandlers serves readiness checks over the configured dependency
// probes. A nil or empty check map degrades to a plain liveness response.
type HealthHandlers struct {
	Checks map[string]HealthCheck
}

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports overall status plus the result of each dependency probe.
// Any failing probe turns the response into a 503.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	if len(h.Checks) > 0 {
		resp.Checks = make(map[string]string, len(h.Checks))
		for name, check := range h.Checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		return
	}

	WriteJSON(w, status, resp)
}
