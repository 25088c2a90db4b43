package handlers

import (
	"metricore/internal/transport/http/handlers/health"
	"metricore/internal/transport/http/handlers/metrics"
)

// Handlers contains the ambient HTTP handlers shared across the server
// (the metric entry and widget evaluation handlers are wired directly
// into NewServer since they each carry their own domain dependencies).
type Handlers struct {
	Health  *health.Handler
	Metrics *metrics.Handler
}

// NewHandlers creates a new handlers instance with all dependencies
func NewHandlers(health *health.Handler, metrics *metrics.Handler) *Handlers {
	return &Handlers{
		Health:  health,
		Metrics: metrics,
	}
}
