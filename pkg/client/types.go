package client

import (
	"encoding/json"
	"time"
)

// FilterSpec narrows the tenants a rule targets
type FilterSpec struct {
	PlanIDs              []string `json:"planIds,omitempty"`
	SubscriptionStatuses []string `json:"subscriptionStatuses,omitempty"`
	MinTenantAgeDays     *int     `json:"minTenantAgeDays,omitempty"`
	HasPaymentMethod     *bool    `json:"hasPaymentMethod,omitempty"`
	MinBookings          *int     `json:"minBookings,omitempty"`
	MaxBookings          *int     `json:"maxBookings,omitempty"`
	MinContacts          *int     `json:"minContacts,omitempty"`
	MaxContacts          *int     `json:"maxContacts,omitempty"`
	StripeConnectStatus  string   `json:"stripeConnectStatus,omitempty"`
	SetupComplete        *bool    `json:"setupComplete,omitempty"`
}

// Rule is an alert rule as returned by the API
type Rule struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	TriggerType   string      `json:"triggerType"`            // schedule or event
	ScheduleType  string      `json:"scheduleType,omitempty"` // e.g. trial_expiring_3_days
	EventType     string      `json:"eventType,omitempty"`    // e.g. payment_failed
	Severity      string      `json:"severity"`               // info, warning, error, critical
	AlertTitle    string      `json:"alertTitle"`
	AlertMessage  string      `json:"alertMessage"`
	ActionURL     string      `json:"actionUrl,omitempty"`
	ActionLabel   string      `json:"actionLabel,omitempty"`
	CooldownHours int         `json:"cooldownHours"`
	Active        bool        `json:"active"`
	AlertsSent    int64       `json:"alertsSent"`
	LastRunAt     *time.Time  `json:"lastRunAt,omitempty"`
	Filters       *FilterSpec `json:"filters,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// RuleStats counts a rule's log entries over the last 24 hours
type RuleStats struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RuleWithStats is a listed rule with its recent counts
type RuleWithStats struct {
	Rule
	RecentStats RuleStats `json:"recentStats"`
}

// RuleLog is one dispatch audit entry
type RuleLog struct {
	ID        string    `json:"id"`
	RuleID    string    `json:"ruleId"`
	TenantID  string    `json:"tenantId"`
	AlertID   string    `json:"alertId,omitempty"`
	Status    string    `json:"status"` // sent, skipped, failed
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Option is one selectable value in a rule form
type Option struct {
	Value interface{} `json:"value"`
	Label string      `json:"label"`
}

// RuleOptions lists the vocabularies a rule may use
type RuleOptions struct {
	ScheduleTypes []Option `json:"scheduleTypes"`
	EventTypes    []Option `json:"eventTypes"`
	FilterOptions struct {
		SubscriptionStatuses  []Option `json:"subscriptionStatuses"`
		StripeConnectStatuses []Option `json:"stripeConnectStatuses"`
		BooleanOptions        []Option `json:"booleanOptions"`
	} `json:"filterOptions"`
}

// SeedResult reports what seeding did for one default rule
type SeedResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // created or exists
	ID     string `json:"id"`
}

// SeedResponse summarizes a seed call
type SeedResponse struct {
	Results []SeedResult `json:"results"`
	Created int          `json:"created"`
	Existed int          `json:"existed"`
}

// Alert is one inbox entry
type Alert struct {
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

// AlertPage is one page of a tenant's inbox
type AlertPage struct {
	Data       []Alert `json:"data"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalItems int64   `json:"totalItems"`
	TotalPages int     `json:"totalPages"`
}

// DispatchResult is the outcome of one dispatch attempt
type DispatchResult struct {
	Status  string `json:"status"`
	AlertID string `json:"alertId,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunDetail is one per-tenant line of a scheduled run
type RunDetail struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	TenantID string `json:"tenantId"`
	DispatchResult
}

// RuleError records a rule that could not be evaluated
type RuleError struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Error    string `json:"error"`
}

// RunSummary aggregates a scheduled run
type RunSummary struct {
	RulesProcessed int         `json:"rulesProcessed"`
	AlertsSent     int         `json:"alertsSent"`
	AlertsSkipped  int         `json:"alertsSkipped"`
	AlertsFailed   int         `json:"alertsFailed"`
	Details        []RunDetail `json:"details"`
	RuleErrors     []RuleError `json:"ruleErrors,omitempty"`
	StartedAt      time.Time   `json:"startedAt"`
	FinishedAt     time.Time   `json:"finishedAt"`
}

// Event is a business event submitted for evaluation. One of TenantID or
// StripeCustomerID is required.
type Event struct {
	EventType        string                 `json:"eventType"`
	TenantID         string                 `json:"tenantId,omitempty"`
	StripeCustomerID string                 `json:"stripeCustomerId,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// RuleOutcome is one per-rule line of an event trigger
type RuleOutcome struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	DispatchResult
}

// EventResult is the outcome of an event trigger
type EventResult struct {
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	TenantID string        `json:"tenantId,omitempty"`
	Results  []RuleOutcome `json:"results,omitempty"`
}

// Workflow is a tenant automation. Actions are returned as raw
// {"type": ..., "config": {...}} objects.
type Workflow struct {
	ID           string            `json:"id"`
	TenantID     string            `json:"tenantId"`
	SystemKey    string            `json:"systemKey,omitempty"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	TriggerType  string            `json:"triggerType"`
	TriggerTagID *string           `json:"triggerTagId"`
	DelayMinutes int               `json:"delayMinutes"`
	Active       bool              `json:"active"`
	IsSystem     bool              `json:"isSystem"`
	Actions      []json.RawMessage `json:"actions"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// ProvisionFailure records a default workflow that could not be written
type ProvisionFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ProvisionResult reports what default-workflow provisioning did
type ProvisionResult struct {
	TenantID string             `json:"tenantId"`
	Created  []Workflow         `json:"created"`
	Updated  []Workflow         `json:"updated"`
	Skipped  []string           `json:"skipped"`
	Failed   []ProvisionFailure `json:"failed,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	Scheduler string `json:"scheduler,omitempty"`
}

// ListOptions contains common options for list operations
type ListOptions struct {
	Page     int // Page number (1-based)
	PageSize int // Items per page, capped at 100 by the server
}
