package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/utils"
)

// SchedulerStatus reports whether the in-process scheduler is running
type SchedulerStatus interface {
	IsRunning() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db        *sql.DB
	scheduler SchedulerStatus
	logger    *logger.Logger
}

// NewHealthHandler creates a new health handler. scheduler may be nil when
// scheduled runs are driven externally.
func NewHealthHandler(db *sql.DB, scheduler SchedulerStatus, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		scheduler: scheduler,
		logger:    log,
	}
}

// Healthz handles liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Readyz handles readiness probe
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorWithErr(err, "Database ping failed")
		utils.WriteError(w, errors.ServiceUnavailable("Database connection failed"))
		return
	}

	status := map[string]string{
		"status":    "ready",
		"database":  "connected",
		"scheduler": "external",
	}
	if h.scheduler != nil {
		status["scheduler"] = "stopped"
		if h.scheduler.IsRunning() {
			status["scheduler"] = "running"
		}
	}

	utils.WriteSuccess(w, http.StatusOK, status)
}
