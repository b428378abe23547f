package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness checks. Every configured check must pass
// within the timeout for a 200.
type HealthHandler struct {
	checks    map[string]Pinger
	timeout   time.Duration
	responder responder
}

func NewHealthHandler(checks map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second, responder: newResponder(defaultLogger(logger))}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, pinger := range h.checks {
		if pinger == nil {
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			h.responder.loggerFor(ctx).WarnContext(ctx, "health check failed", "check", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.responder.writeJSON(r.Context(), w, status, resp)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
