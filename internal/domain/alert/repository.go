package alert

import (
	"context"
	"time"
)

// Repository defines data access for generated alerts
type Repository interface {
	// Create stores a new alert and returns its id
	Create(ctx context.Context, alert *Alert) (string, error)

	// GetByID retrieves an alert owned by tenantID
	GetByID(ctx context.Context, tenantID, id string) (*Alert, error)

	// ListByTenant retrieves a tenant's alerts, newest first
	ListByTenant(ctx context.Context, tenantID string, filter AlertFilter, limit, offset int) ([]*Alert, int64, error)

	// MarkRead sets the read flag
	MarkRead(ctx context.Context, tenantID, id string) error

	// Dismiss sets the dismissed flag
	Dismiss(ctx context.Context, tenantID, id string) error
}

// RuleRepository defines data access for alert rules
type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) (string, error)
	GetByID(ctx context.Context, id string) (*Rule, error)
	GetByName(ctx context.Context, name string) (*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Rule, error)

	// ListActiveSchedule returns active schedule rules with a schedule type set
	ListActiveSchedule(ctx context.Context) ([]*Rule, error)

	// ListActiveByEvent returns active event rules for eventType
	ListActiveByEvent(ctx context.Context, eventType string) ([]*Rule, error)

	// RecordSent increments the sent counter and sets the last-run timestamp
	RecordSent(ctx context.Context, id string, at time.Time) error
}

// LogRepository defines data access for the dispatch audit log
type LogRepository interface {
	Create(ctx context.Context, log *RuleLog) (string, error)

	// ExistsSentSince reports whether a sent entry exists for the pair at or after since
	ExistsSentSince(ctx context.Context, ruleID, tenantID string, since time.Time) (bool, error)

	// CountByRuleSince counts entries per rule and status created at or after since
	CountByRuleSince(ctx context.Context, since time.Time) (map[string]RuleStats, error)

	// ListByRule returns a rule's most recent entries
	ListByRule(ctx context.Context, ruleID string, limit int) ([]*RuleLog, error)

	// DeleteByRule removes every entry for a rule
	DeleteByRule(ctx context.Context, ruleID string) error
}
