package handlers

import (
	"net/http"
	"strconv"

	"github.com/clientflow/alertrunner/internal/api/dto"
	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/utils"
)

const defaultLogLimit = 50

// RuleHandler serves alert rule administration
type RuleHandler struct {
	service alert.RuleService
	logger  *logger.Logger
}

func NewRuleHandler(service alert.RuleService, log *logger.Logger) *RuleHandler {
	return &RuleHandler{service: service, logger: log}
}

// List returns every rule with its sent/skipped/failed counts over the last 24 hours
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.List(r.Context())
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, rules)
}

// Get returns a single rule
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	rule, err := h.service.Get(r.Context(), id)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, rule)
}

// Create creates a rule
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRuleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	id, err := h.service.Create(r.Context(), req.ToRule())
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, dto.RuleCreatedResponse{ID: id})
}

// Update applies a partial update
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateRuleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	rule, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, rule)
}

// Delete removes a rule and its logs
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Alert rule deleted", nil)
}

// Logs returns the rule's most recent dispatch log entries. ?limit caps the
// count (default 50, max 500).
func (h *RuleHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	limit := defaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			utils.WriteError(w, errors.BadRequest("limit must be a positive integer"))
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	logs, err := h.service.Logs(r.Context(), id, limit)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, logs)
}

// Options returns the schedule, event and filter vocabularies
func (h *RuleHandler) Options(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, h.service.Options())
}

// Seed creates the default rules that do not exist yet
func (h *RuleHandler) Seed(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.SeedDefaults(r.Context())
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.NewSeedResponse(results))
}
