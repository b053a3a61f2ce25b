package httptransport

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// handleHealth probes every registered dependency. Any failure turns the
// whole response into a 503 so load balancers stop routing here.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.health))
	for name, checker := range h.health {
		if err := checker.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	label := "ok"
	if status != http.StatusOK {
		label = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status": label,
		"checks": checks,
	})
}
