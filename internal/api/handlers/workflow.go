package handlers

import (
	"net/http"

	"github.com/clientflow/alertrunner/internal/domain/workflow"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/utils"
)

type WorkflowHandler struct {
	service workflow.Service
	logger  *logger.Logger
}

func NewWorkflowHandler(service workflow.Service, log *logger.Logger) *WorkflowHandler {
	return &WorkflowHandler{service: service, logger: log}
}

// ProvisionDefaults creates or repairs the tenant's default workflows.
// Per-workflow failures are reported in the result, not as an error status.
func (h *WorkflowHandler) ProvisionDefaults(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := authorizedTenant(w, r)
	if !ok {
		return
	}

	result, err := h.service.CreateDefaultWorkflowsForTenant(r.Context(), tenantID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, result)
}

// List returns the tenant's workflows
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := authorizedTenant(w, r)
	if !ok {
		return
	}

	workflows, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, workflows)
}
