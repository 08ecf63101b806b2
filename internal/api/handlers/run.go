package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/clientflow/alertrunner/internal/api/dto"
	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/events"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/utils"
	"github.com/clientflow/alertrunner/internal/pkg/validator"
)

// RunHandler exposes the scheduled-run and event-trigger entry points
type RunHandler struct {
	runner     alert.Runner
	logger     *logger.Logger
	validator  *validator.Validator
	runTimeout time.Duration
}

// NewRunHandler creates the handler. runTimeout bounds a scheduled run
// requested over HTTP; zero leaves it bound only by the request.
func NewRunHandler(runner alert.Runner, log *logger.Logger, val *validator.Validator, runTimeout time.Duration) *RunHandler {
	return &RunHandler{runner: runner, logger: log, validator: val, runTimeout: runTimeout}
}

// RunScheduled evaluates every active schedule rule and returns the summary.
// A run cut short by cancellation still reports what it completed.
func (h *RunHandler) RunScheduled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	summary, err := h.runner.RunScheduled(ctx)
	if err != nil {
		if summary != nil {
			h.logger.WithError(err).Warn("Scheduled run interrupted")
			utils.WriteError(w, errors.Timeout("scheduled run", err).WithDetails(summary))
			return
		}
		utils.WriteError(w, errors.Internal("Scheduled run failed", err))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, summary)
}

// TriggerEvent evaluates the active rules for one business event
func (h *RunHandler) TriggerEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.EventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	result, err := events.Trigger(r.Context(), h.runner, events.Event{
		EventType:        req.EventType,
		TenantID:         req.TenantID,
		StripeCustomerID: req.StripeCustomerID,
		Metadata:         req.Metadata,
	})
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	if !result.Success {
		if result.Error == alert.ErrTenantNotFound {
			utils.WriteError(w, errors.NotFound("Tenant").WithDetails(result))
			return
		}
		utils.WriteError(w, errors.Internal(result.Error, nil).WithDetails(result))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, result)
}
