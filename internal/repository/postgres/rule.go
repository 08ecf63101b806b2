package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
)

const ruleColumns = `id, name, description, trigger_type, schedule_type, event_type, severity, alert_title,
	alert_message, action_url, action_label, cooldown_hours, active, alerts_sent, last_run_at, filters,
	created_at, updated_at`

// RuleRepository stores alert rules
type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) alert.RuleRepository {
	return &RuleRepository{db: db}
}

func scanRule(row rowScanner) (*alert.Rule, error) {
	var rule alert.Rule
	var lastRun sql.NullTime
	var filters alert.FilterSpec
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.TriggerType, &rule.ScheduleType, &rule.EventType,
		&rule.Severity, &rule.TitleTemplate, &rule.MessageTemplate, &rule.ActionURL, &rule.ActionLabel,
		&rule.CooldownHours, &rule.Active, &rule.AlertsSent, &lastRun, &filters,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.LastRunAt = timePtr(lastRun)
	if !filters.IsEmpty() {
		rule.Filters = &filters
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	rule.UpdatedAt = rule.UpdatedAt.UTC()
	return &rule, nil
}

func (r *RuleRepository) Create(ctx context.Context, rule *alert.Rule) (string, error) {
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	id := newID()

	query := `
		INSERT INTO alert_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.ExecContext(ctx, query,
		id, rule.Name, rule.Description, rule.TriggerType, rule.ScheduleType, rule.EventType,
		rule.Severity, rule.TitleTemplate, rule.MessageTemplate, rule.ActionURL, rule.ActionLabel,
		rule.CooldownHours, rule.Active, rule.AlertsSent, nullTime(rule.LastRunAt), rule.Filters,
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", errors.Conflict("An alert rule named " + rule.Name + " already exists")
		}
		return "", errors.DatabaseError("Failed to create alert rule", err)
	}

	return id, nil
}

func (r *RuleRepository) get(ctx context.Context, where string, arg interface{}) (*alert.Rule, error) {
	query := "SELECT " + ruleColumns + " FROM alert_rules WHERE " + where

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Alert rule")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get alert rule", err)
	}
	return rule, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*alert.Rule, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *RuleRepository) GetByName(ctx context.Context, name string) (*alert.Rule, error) {
	return r.get(ctx, "name = $1", name)
}

func (r *RuleRepository) Update(ctx context.Context, rule *alert.Rule) error {
	rule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE alert_rules SET name = $1, description = $2, trigger_type = $3, schedule_type = $4,
			event_type = $5, severity = $6, alert_title = $7, alert_message = $8, action_url = $9,
			action_label = $10, cooldown_hours = $11, active = $12, filters = $13, updated_at = $14
		WHERE id = $15
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Description, rule.TriggerType, rule.ScheduleType, rule.EventType, rule.Severity,
		rule.TitleTemplate, rule.MessageTemplate, rule.ActionURL, rule.ActionLabel, rule.CooldownHours,
		rule.Active, rule.Filters, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("An alert rule named " + rule.Name + " already exists")
		}
		return errors.DatabaseError("Failed to update alert rule", err)
	}

	return requireRow(result, "Alert rule")
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = $1", id)
	if err != nil {
		return errors.DatabaseError("Failed to delete alert rule", err)
	}
	return requireRow(result, "Alert rule")
}

func (r *RuleRepository) List(ctx context.Context) ([]*alert.Rule, error) {
	return r.list(ctx, "SELECT "+ruleColumns+" FROM alert_rules ORDER BY created_at DESC, name")
}

func (r *RuleRepository) ListActiveSchedule(ctx context.Context) ([]*alert.Rule, error) {
	return r.list(ctx,
		"SELECT "+ruleColumns+" FROM alert_rules WHERE active = $1 AND trigger_type = $2 AND schedule_type <> '' ORDER BY created_at, name",
		true, alert.TriggerSchedule,
	)
}

func (r *RuleRepository) ListActiveByEvent(ctx context.Context, eventType string) ([]*alert.Rule, error) {
	return r.list(ctx,
		"SELECT "+ruleColumns+" FROM alert_rules WHERE active = $1 AND trigger_type = $2 AND event_type = $3 ORDER BY created_at, name",
		true, alert.TriggerEvent, eventType,
	)
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...interface{}) ([]*alert.Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list alert rules", err)
	}
	defer rows.Close()

	rules := make([]*alert.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan alert rule", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate alert rules", err)
	}
	return rules, nil
}

func (r *RuleRepository) RecordSent(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET alerts_sent = alerts_sent + 1, last_run_at = $1 WHERE id = $2",
		at.UTC(), id,
	)
	if err != nil {
		return errors.DatabaseError("Failed to record alert sent", err)
	}
	return requireRow(result, "Alert rule")
}

func requireRow(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
