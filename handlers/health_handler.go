package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// HealthChecker reports whether a dependency can serve traffic
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse represents the readiness check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     HealthChecker
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db may be nil, in which case
// the gateway never reports ready.
func NewHealthHandler(db HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// HandleLiveness handles GET /healthz and answers 200 while the process runs
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{},
	}

	switch {
	case h.db == nil:
		resp.Status = "not_ready"
		resp.Checks["database"] = "not_initialized"
	default:
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			resp.Status = "not_ready"
			resp.Checks["database"] = "unhealthy"
		} else {
			resp.Checks["database"] = "healthy"
		}
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	if err := utils.WriteJSON(w, status, resp); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
