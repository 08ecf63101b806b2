package dto

import (
	"github.com/clientflow/alertrunner/internal/domain/alert"
)

// DefaultCooldownHours applies when a create request omits cooldownHours
const DefaultCooldownHours = 24

// CreateRuleRequest represents an alert rule creation request.
// Field validation happens in the rule service.
type CreateRuleRequest struct {
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	TriggerType   string            `json:"triggerType"`
	ScheduleType  string            `json:"scheduleType,omitempty"`
	EventType     string            `json:"eventType,omitempty"`
	Severity      string            `json:"severity,omitempty"`
	AlertTitle    string            `json:"alertTitle"`
	AlertMessage  string            `json:"alertMessage"`
	ActionURL     string            `json:"actionUrl,omitempty"`
	ActionLabel   string            `json:"actionLabel,omitempty"`
	CooldownHours *int              `json:"cooldownHours,omitempty"`
	Active        *bool             `json:"active,omitempty"`
	Filters       *alert.FilterSpec `json:"filters,omitempty"`
}

// ToRule converts the request, applying the cooldown and active defaults
func (r CreateRuleRequest) ToRule() *alert.Rule {
	rule := &alert.Rule{
		Name:            r.Name,
		Description:     r.Description,
		TriggerType:     r.TriggerType,
		ScheduleType:    r.ScheduleType,
		EventType:       r.EventType,
		Severity:        r.Severity,
		TitleTemplate:   r.AlertTitle,
		MessageTemplate: r.AlertMessage,
		ActionURL:       r.ActionURL,
		ActionLabel:     r.ActionLabel,
		CooldownHours:   DefaultCooldownHours,
		Active:          true,
		Filters:         r.Filters,
	}
	if r.CooldownHours != nil {
		rule.CooldownHours = *r.CooldownHours
	}
	if r.Active != nil {
		rule.Active = *r.Active
	}
	return rule
}

// UpdateRuleRequest is a partial rule update; omitted fields are unchanged
type UpdateRuleRequest = alert.RuleUpdate

// RuleCreatedResponse is returned after a rule is created
type RuleCreatedResponse struct {
	ID string `json:"id"`
}

// SeedResponse reports the outcome of seeding the default rules
type SeedResponse struct {
	Results []alert.SeedResult `json:"results"`
	Created int                `json:"created"`
	Existed int                `json:"existed"`
}

// NewSeedResponse counts seeding outcomes
func NewSeedResponse(results []alert.SeedResult) SeedResponse {
	resp := SeedResponse{Results: results}
	for _, r := range results {
		switch r.Status {
		case alert.SeedCreated:
			resp.Created++
		case alert.SeedExists:
			resp.Existed++
		}
	}
	return resp
}
