package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ReadinessReporter reports whether the process should receive traffic.
type ReadinessReporter interface {
	Ready() bool
}

// HealthHandler handles health check HTTP requests.
type HealthHandler struct {
	db      HealthChecker
	gateway HealthChecker
	probe   ReadinessReporter
	logger  *zap.Logger
}

// HealthHandlerConfig holds configuration for HealthHandler.
type HealthHandlerConfig struct {
	DB      HealthChecker
	Gateway HealthChecker
	Probe   ReadinessReporter
	Logger  *zap.Logger
}

// NewHealthHandler creates a HealthHandler with all required dependencies.
func NewHealthHandler(cfg HealthHandlerConfig) *HealthHandler {
	if cfg.Logger == nil {
		panic("logger is required")
	}
	return &HealthHandler{
		db:      cfg.DB,
		gateway: cfg.Gateway,
		probe:   cfg.Probe,
		logger:  cfg.Logger,
	}
}

// RegisterRoutes registers health routes on the router.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReadiness)
	r.Get("/live", h.HandleLiveness)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HandleHealth returns a composite health report. The database is the
// critical dependency; an open dialogue circuit only degrades, since turns
// fall back to scripted prompts.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status: "ok",
		Checks: make(map[string]ComponentHealth),
	}

	critical := false
	degraded := false

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			critical = true
			resp.Checks["database"] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			h.logger.Error("database health check failed", zap.Error(err))
		} else {
			resp.Checks["database"] = ComponentHealth{Status: "healthy"}
		}
	}

	if h.gateway != nil {
		if err := h.gateway.Ping(ctx); err != nil {
			degraded = true
			resp.Checks["dialogue_gateway"] = ComponentHealth{
				Status:  "degraded",
				Message: err.Error(),
			}
			h.logger.Warn("dialogue gateway unavailable, turns answered from script", zap.Error(err))
		} else {
			resp.Checks["dialogue_gateway"] = ComponentHealth{Status: "healthy"}
		}
	}

	status := http.StatusOK
	if critical {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	} else if degraded {
		resp.Status = "degraded"
	}

	JSON(w, r, status, resp)
}

// HandleReadiness returns the readiness probe response. Not ready once
// shutdown has begun or the database is unreachable.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.probe != nil && !h.probe.Ready() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("readiness check failed", zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// HandleLiveness returns a simple liveness probe response.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
