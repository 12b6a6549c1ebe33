package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/hackjudge/internal/domain/types"
	"github.com/okian/hackjudge/pkg/metrics"
)

// HealthHandler serves liveness and metrics.
type HealthHandler struct {
	store string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store string) *HealthHandler {
	return &HealthHandler{store: store}
}

// HandleHealth handles GET /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", Store: h.store})
}

// MetricsHandler serves the custom Prometheus registry.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
