package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RuleService handles alert rule API calls. Requires an admin token.
type RuleService struct {
	client *Client
}

// CreateRuleRequest represents a request to create a rule. CooldownHours
// defaults to 24 and Active to true when nil.
type CreateRuleRequest struct {
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	TriggerType   string      `json:"triggerType"`
	ScheduleType  string      `json:"scheduleType,omitempty"`
	EventType     string      `json:"eventType,omitempty"`
	Severity      string      `json:"severity,omitempty"`
	AlertTitle    string      `json:"alertTitle"`
	AlertMessage  string      `json:"alertMessage"`
	ActionURL     string      `json:"actionUrl,omitempty"`
	ActionLabel   string      `json:"actionLabel,omitempty"`
	CooldownHours *int        `json:"cooldownHours,omitempty"`
	Active        *bool       `json:"active,omitempty"`
	Filters       *FilterSpec `json:"filters,omitempty"`
}

// UpdateRuleRequest is a partial update; nil fields are left unchanged
type UpdateRuleRequest struct {
	Name          *string     `json:"name,omitempty"`
	Description   *string     `json:"description,omitempty"`
	TriggerType   *string     `json:"triggerType,omitempty"`
	ScheduleType  *string     `json:"scheduleType,omitempty"`
	EventType     *string     `json:"eventType,omitempty"`
	Severity      *string     `json:"severity,omitempty"`
	AlertTitle    *string     `json:"alertTitle,omitempty"`
	AlertMessage  *string     `json:"alertMessage,omitempty"`
	ActionURL     *string     `json:"actionUrl,omitempty"`
	ActionLabel   *string     `json:"actionLabel,omitempty"`
	CooldownHours *int        `json:"cooldownHours,omitempty"`
	Active        *bool       `json:"active,omitempty"`
	Filters       *FilterSpec `json:"filters,omitempty"`
}

// List retrieves every rule with its recent dispatch counts
func (s *RuleService) List(ctx context.Context) ([]RuleWithStats, error) {
	var rules []RuleWithStats
	if err := s.client.doRequest(ctx, "GET", "/api/v1/alert-rules", nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Get retrieves a single rule by ID
func (s *RuleService) Get(ctx context.Context, id string) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, "GET", "/api/v1/alert-rules/"+url.PathEscape(id), nil, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create creates a rule and returns its ID
func (s *RuleService) Create(ctx context.Context, req CreateRuleRequest) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/alert-rules", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Update applies a partial update
func (s *RuleService) Update(ctx context.Context, id string, req UpdateRuleRequest) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, "PATCH", "/api/v1/alert-rules/"+url.PathEscape(id), req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Delete deletes a rule and its logs
func (s *RuleService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, "DELETE", "/api/v1/alert-rules/"+url.PathEscape(id), nil, nil)
}

// Logs retrieves a rule's most recent log entries. A zero limit uses the
// server default.
func (s *RuleService) Logs(ctx context.Context, id string, limit int) ([]RuleLog, error) {
	path := fmt.Sprintf("/api/v1/alert-rules/%s/logs", url.PathEscape(id))
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var logs []RuleLog
	if err := s.client.doRequest(ctx, "GET", path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Options retrieves the schedule types, event types and filter options
func (s *RuleService) Options(ctx context.Context) (*RuleOptions, error) {
	var opts RuleOptions
	if err := s.client.doRequest(ctx, "GET", "/api/v1/alert-rules/options", nil, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Seed creates the default rules that do not exist yet
func (s *RuleService) Seed(ctx context.Context) (*SeedResponse, error) {
	var resp SeedResponse
	if err := s.client.doRequest(ctx, "POST", "/api/v1/alert-rules/seed", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RunScheduled evaluates every active schedule rule once. Requires an admin
// or cron token.
func (c *Client) RunScheduled(ctx context.Context) (*RunSummary, error) {
	var summary RunSummary
	if err := c.doRequest(ctx, "POST", "/api/v1/alerts/run", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// TriggerEvent evaluates the active rules for one business event. An unknown
// tenant is reported as a not-found APIError.
func (c *Client) TriggerEvent(ctx context.Context, event Event) (*EventResult, error) {
	var result EventResult
	if err := c.doRequest(ctx, "POST", "/api/v1/alerts/events", event, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
