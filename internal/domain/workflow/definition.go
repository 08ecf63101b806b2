package workflow

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Trigger event types for workflows
const (
	EventInvoiceSent        = "invoice_sent"
	EventInvoicePaid        = "invoice_paid"
	EventInvoiceDepositPaid = "invoice_deposit_paid"
	EventInvoiceRefunded    = "invoice_refunded"
	EventInvoiceOverdue     = "invoice_overdue"
	EventBookingScheduled   = "booking_scheduled"
	EventBookingConfirmed   = "booking_confirmed"
	EventBookingCancelled   = "booking_cancelled"
	EventBookingCreated     = "booking_created"
	EventBookingCompleted   = "booking_completed"
	EventBookingNoShow      = "booking_no_show"
	EventLeadCreated        = "lead_created"
	EventClientConverted    = "client_converted"
	EventContactConverted   = "contact_converted"
	EventPaymentReceived    = "payment_received"
	EventPaymentFailed      = "payment_failed"
)

// TriggerTypes returns every event a workflow may be triggered by
func TriggerTypes() []string {
	return []string{
		EventInvoiceSent, EventInvoicePaid, EventInvoiceDepositPaid, EventInvoiceRefunded, EventInvoiceOverdue,
		EventBookingScheduled, EventBookingConfirmed, EventBookingCancelled, EventBookingCreated,
		EventBookingCompleted, EventBookingNoShow,
		EventLeadCreated, EventClientConverted, EventContactConverted,
		EventPaymentReceived, EventPaymentFailed,
	}
}

// Definition is a workflow expressed with symbolic references
type Definition struct {
	SystemKey      string             `yaml:"systemKey"`
	Name           string             `yaml:"name"`
	Description    string             `yaml:"description"`
	TriggerType    string             `yaml:"triggerType"`
	TriggerTagName string             `yaml:"triggerTagName,omitempty"`
	TriggerTagType string             `yaml:"triggerTagType,omitempty"`
	DelayMinutes   int                `yaml:"delayMinutes"`
	Active         bool               `yaml:"active"`
	Actions        []ActionDefinition `yaml:"actions"`
}

// HasTriggerTag reports whether the definition is tag-activated
func (d Definition) HasTriggerTag() bool {
	return d.TriggerTagName != "" && d.TriggerTagType != ""
}

// ActionDefinition is an action whose target is named rather than identified
type ActionDefinition struct {
	Type ActionType `yaml:"type"`
	// TagName and optional TagType name the tag of a tag action
	TagName string `yaml:"tagName,omitempty"`
	TagType string `yaml:"tagType,omitempty"`
	// TemplateKey is the system key of a send_email template
	TemplateKey string `yaml:"templateKey,omitempty"`
}

//go:embed default_workflows.yaml
var defaultWorkflowsYAML []byte

// DefaultDefinitions returns the workflows provisioned for every tenant
func DefaultDefinitions() ([]Definition, error) {
	var defs []Definition
	if err := yaml.Unmarshal(defaultWorkflowsYAML, &defs); err != nil {
		return nil, fmt.Errorf("parse default workflows: %w", err)
	}
	for _, d := range defs {
		for _, a := range d.Actions {
			if !a.Type.Valid() {
				return nil, fmt.Errorf("workflow %q: unknown action type %q", d.Name, a.Type)
			}
		}
	}
	return defs, nil
}
