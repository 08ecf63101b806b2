package alert

import (
	"time"

	"github.com/clientflow/alertrunner/internal/domain/tenant"
)

// Alert is a notification instance shown to a tenant
type Alert struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
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

// TypeSystem is used for alerts whose rule names neither a schedule nor an event type
const TypeSystem = "system"

// Severity levels
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Trigger kinds
const (
	TriggerSchedule = "schedule"
	TriggerEvent    = "event"
)

// Rule maps a schedule condition or business event to an alert
type Rule struct {
	ID              string      `json:"id"`
	Name            string      `json:"name" validate:"required,max=200"`
	Description     string      `json:"description,omitempty"`
	TriggerType     string      `json:"triggerType" validate:"required,oneof=schedule event"`
	ScheduleType    string      `json:"scheduleType,omitempty" validate:"schedule_type"`
	EventType       string      `json:"eventType,omitempty" validate:"event_type"`
	Severity        string      `json:"severity" validate:"required,oneof=info warning error critical"`
	TitleTemplate   string      `json:"alertTitle" validate:"required"`
	MessageTemplate string      `json:"alertMessage" validate:"required"`
	ActionURL       string      `json:"actionUrl,omitempty"`
	ActionLabel     string      `json:"actionLabel,omitempty"`
	CooldownHours   int         `json:"cooldownHours" validate:"gte=0,lte=876000"`
	Active          bool        `json:"active"`
	AlertsSent      int64       `json:"alertsSent"`
	LastRunAt       *time.Time  `json:"lastRunAt,omitempty"`
	Filters         *FilterSpec `json:"filters,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// AlertType is the type recorded on alerts created from this rule
func (r *Rule) AlertType() string {
	switch {
	case r.ScheduleType != "":
		return r.ScheduleType
	case r.EventType != "":
		return r.EventType
	default:
		return TypeSystem
	}
}

// MaxCooldownHours is the longest cooldown a rule may carry, roughly a century
const MaxCooldownHours = 876000

// CooldownWindow converts a cooldown in hours to a duration, clamped to
// [0, MaxCooldownHours] so the multiplication cannot overflow.
func CooldownWindow(hours int) time.Duration {
	if hours <= 0 {
		return 0
	}
	if hours > MaxCooldownHours {
		hours = MaxCooldownHours
	}
	return time.Duration(hours) * time.Hour
}

// Dispatch outcomes, also used as rule log statuses
const (
	StatusSent    = "sent"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// RuleLog records one dispatch attempt. Immutable once written.
type RuleLog struct {
	ID        string    `json:"id"`
	RuleID    string    `json:"ruleId"`
	TenantID  string    `json:"tenantId"`
	AlertID   string    `json:"alertId,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subject is the context an alert is rendered and dispatched against: a
// tenant plus optional event metadata. Metadata keys shadow tenant fields.
type Subject struct {
	Tenant   *tenant.Tenant
	Metadata map[string]interface{}
}

// NewSubject returns a subject for t without metadata
func NewSubject(t *tenant.Tenant) Subject {
	return Subject{Tenant: t}
}

// TenantID returns the id of the underlying tenant. Metadata never overrides it.
func (s Subject) TenantID() string {
	if s.Tenant == nil {
		return ""
	}
	return s.Tenant.ID
}

// DispatchResult is the structured outcome of one dispatch attempt
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

// RuleError records a rule whose candidate selection could not complete
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

// Add counts one dispatch outcome
func (s *RunSummary) Add(d RunDetail) {
	switch d.Status {
	case StatusSent:
		s.AlertsSent++
	case StatusSkipped:
		s.AlertsSkipped++
	case StatusFailed:
		s.AlertsFailed++
	}
	s.Details = append(s.Details, d)
}

// RuleOutcome is one per-rule line of an event trigger
type RuleOutcome struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	DispatchResult
}

// EventResult is the structured outcome of an event trigger
type EventResult struct {
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	TenantID string        `json:"tenantId,omitempty"`
	Results  []RuleOutcome `json:"results,omitempty"`
}

// ErrTenantNotFound is the message reported when an event names an unknown tenant
const ErrTenantNotFound = "Tenant not found"

// RuleStats counts a rule's log entries over a recent window
type RuleStats struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RuleWithStats is a rule annotated with recent log counts
type RuleWithStats struct {
	*Rule
	RecentStats RuleStats `json:"recentStats"`
}

// SeedResult reports what seeding did for one default rule
type SeedResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	ID     string `json:"id"`
}

// Seed statuses
const (
	SeedCreated = "created"
	SeedExists  = "exists"
)

// AlertFilter narrows a tenant's alert inbox
type AlertFilter struct {
	Unread           bool
	IncludeDismissed bool
	Severity         string
}
