package dto

import (
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
)

// AlertDTO represents an alert in API responses
// Uses camelCase for frontend compatibility
type AlertDTO struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ActionURL   string    `json:"actionUrl,omitempty"`
	ActionLabel string    `json:"actionLabel,omitempty"`
	Read        bool      `json:"read"`
	Dismissed   bool      `json:"dismissed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewAlertDTO converts a domain alert
func NewAlertDTO(a *alert.Alert) AlertDTO {
	return AlertDTO{
		ID:          a.ID,
		Type:        a.Type,
		Severity:    a.Severity,
		Title:       a.Title,
		Message:     a.Message,
		ActionURL:   a.ActionURL,
		ActionLabel: a.ActionLabel,
		Read:        a.Read,
		Dismissed:   a.Dismissed,
		CreatedAt:   a.CreatedAt,
	}
}

// EventRequest represents a business event submitted over HTTP
type EventRequest struct {
	EventType        string                 `json:"eventType" validate:"required"`
	TenantID         string                 `json:"tenantId,omitempty" validate:"required_without=StripeCustomerID"`
	StripeCustomerID string                 `json:"stripeCustomerId,omitempty" validate:"required_without=TenantID"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}
