package handlers

import (
	"net/http"

	"github.com/clientflow/alertrunner/internal/api/dto"
	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/utils"
)

// InboxHandler serves a tenant's alert inbox
type InboxHandler struct {
	service alert.InboxService
	logger  *logger.Logger
}

func NewInboxHandler(service alert.InboxService, log *logger.Logger) *InboxHandler {
	return &InboxHandler{service: service, logger: log}
}

// List returns the tenant's alerts, newest first. Query parameters:
// unread, includeDismissed, severity, page, pageSize.
func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := authorizedTenant(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := alert.AlertFilter{
		Unread:           parseBool(q.Get("unread")),
		IncludeDismissed: parseBool(q.Get("includeDismissed")),
		Severity:         q.Get("severity"),
	}
	p := utils.ParsePaginationParams(r)

	alerts, total, err := h.service.List(r.Context(), tenantID, filter, p.PageSize, p.Offset)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	dtos := make([]dto.AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = dto.NewAlertDTO(a)
	}

	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(dtos, p.Page, p.PageSize, total))
}

// MarkRead marks an alert read
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := authorizedTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), tenantID, id); err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Alert marked as read", nil)
}

// Dismiss hides an alert from the default inbox view
func (h *InboxHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := authorizedTenant(w, r)
	if !ok {
		return
	}
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Dismiss(r.Context(), tenantID, id); err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Alert dismissed", nil)
}
