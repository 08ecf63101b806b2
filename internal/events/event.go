// Package events routes business events to event-triggered alert rules
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
)

// Event is a business event naming its tenant directly or by billing customer
type Event struct {
	EventType        string                 `json:"eventType"`
	TenantID         string                 `json:"tenantId,omitempty"`
	StripeCustomerID string                 `json:"stripeCustomerId,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks that the event can be routed
func (e Event) Validate() error {
	if e.EventType == "" {
		return apperrors.BadRequest("eventType is required")
	}
	if e.TenantID == "" && e.StripeCustomerID == "" {
		return apperrors.BadRequest("tenantId or stripeCustomerId is required")
	}
	return nil
}

// Decode parses a JSON-encoded event
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, apperrors.BadRequest(fmt.Sprintf("invalid event payload: %v", err))
	}
	return e, e.Validate()
}

// Trigger runs e through runner. A tenant id takes precedence over a
// billing customer reference.
func Trigger(ctx context.Context, runner alert.Runner, e Event) (*alert.EventResult, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if e.TenantID != "" {
		return runner.TriggerEvent(ctx, e.EventType, e.TenantID, e.Metadata)
	}
	return runner.TriggerEventByStripeCustomer(ctx, e.EventType, e.StripeCustomerID, e.Metadata)
}
