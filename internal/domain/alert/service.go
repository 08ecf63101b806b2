package alert

import (
	"context"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/tenant"
)

// CooldownGate decides whether a (rule, tenant) pair was notified recently
type CooldownGate interface {
	WasRecentlySent(ctx context.Context, ruleID, tenantID string, cooldownHours int) (bool, error)
}

// CooldownClaimer hardens the cooldown check against concurrent dispatches.
// Claim returns false when another dispatcher already holds the pair.
type CooldownClaimer interface {
	Claim(ctx context.Context, ruleID, tenantID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, ruleID, tenantID string) error
}

// CandidateSelector resolves a schedule type to the tenants it currently matches
type CandidateSelector interface {
	SelectForScheduleType(ctx context.Context, scheduleType string) ([]*tenant.Tenant, error)
}

// FilterEngine narrows candidate tenants with a rule's FilterSpec
type FilterEngine interface {
	Apply(ctx context.Context, tenants []*tenant.Tenant, spec *FilterSpec) ([]*tenant.Tenant, error)
}

// Dispatcher turns a matched (rule, subject) pair into an alert
type Dispatcher interface {
	// Dispatch never returns an error; failures are reported in the result
	Dispatch(ctx context.Context, rule *Rule, subject Subject) DispatchResult

	// Drain waits for in-flight notifications or until ctx is done
	Drain(ctx context.Context) error
}

// Runner exposes the scheduled and event-driven entry points
type Runner interface {
	// RunScheduled evaluates every active schedule rule
	RunScheduled(ctx context.Context) (*RunSummary, error)

	// TriggerEvent evaluates active event rules for one tenant
	TriggerEvent(ctx context.Context, eventType, tenantID string, metadata map[string]interface{}) (*EventResult, error)

	// TriggerEventByStripeCustomer resolves the tenant by billing customer, then triggers
	TriggerEventByStripeCustomer(ctx context.Context, eventType, customerID string, metadata map[string]interface{}) (*EventResult, error)
}

// RuleUpdate is a partial rule modification; nil fields are left unchanged
type RuleUpdate struct {
	Name            *string     `json:"name,omitempty"`
	Description     *string     `json:"description,omitempty"`
	TriggerType     *string     `json:"triggerType,omitempty"`
	ScheduleType    *string     `json:"scheduleType,omitempty"`
	EventType       *string     `json:"eventType,omitempty"`
	Severity        *string     `json:"severity,omitempty"`
	TitleTemplate   *string     `json:"alertTitle,omitempty"`
	MessageTemplate *string     `json:"alertMessage,omitempty"`
	ActionURL       *string     `json:"actionUrl,omitempty"`
	ActionLabel     *string     `json:"actionLabel,omitempty"`
	CooldownHours   *int        `json:"cooldownHours,omitempty"`
	Active          *bool       `json:"active,omitempty"`
	Filters         *FilterSpec `json:"filters,omitempty"`
}

// RuleService is the rule administration surface
type RuleService interface {
	Create(ctx context.Context, rule *Rule) (string, error)
	Get(ctx context.Context, id string) (*Rule, error)
	Update(ctx context.Context, id string, update RuleUpdate) (*Rule, error)
	Delete(ctx context.Context, id string) error

	// List returns every rule with its log counts over the last 24 hours
	List(ctx context.Context) ([]*RuleWithStats, error)

	// Logs returns a rule's most recent audit entries
	Logs(ctx context.Context, id string, limit int) ([]*RuleLog, error)

	// SeedDefaults creates the default rules that do not exist yet, matched by name
	SeedDefaults(ctx context.Context) ([]SeedResult, error)

	// Options returns the vocabularies offered by rule forms
	Options() Options
}

// InboxService is the tenant-facing alert surface
type InboxService interface {
	List(ctx context.Context, tenantID string, filter AlertFilter, limit, offset int) ([]*Alert, int64, error)
	MarkRead(ctx context.Context, tenantID, id string) error
	Dismiss(ctx context.Context, tenantID, id string) error
}
