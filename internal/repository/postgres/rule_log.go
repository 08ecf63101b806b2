package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
)

// RuleLogRepository stores the append-only dispatch audit log
type RuleLogRepository struct {
	db *sql.DB
}

func NewRuleLogRepository(db *sql.DB) alert.LogRepository {
	return &RuleLogRepository{db: db}
}

func (r *RuleLogRepository) Create(ctx context.Context, log *alert.RuleLog) (string, error) {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	id := newID()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_rule_logs (id, rule_id, tenant_id, alert_id, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, log.RuleID, log.TenantID, log.AlertID, log.Status, log.Error, log.CreatedAt.UTC())
	if err != nil {
		return "", errors.DatabaseError("Failed to create rule log", err)
	}

	return id, nil
}

func (r *RuleLogRepository) ExistsSentSince(ctx context.Context, ruleID, tenantID string, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alert_rule_logs
			WHERE rule_id = $1 AND tenant_id = $2 AND status = $3 AND created_at >= $4
		)
	`, ruleID, tenantID, alert.StatusSent, since.UTC()).Scan(&exists)
	if err != nil {
		return false, errors.DatabaseError("Failed to check cooldown", err)
	}
	return exists, nil
}

func (r *RuleLogRepository) CountByRuleSince(ctx context.Context, since time.Time) (map[string]alert.RuleStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rule_id, status, COUNT(*) FROM alert_rule_logs
		WHERE created_at >= $1
		GROUP BY rule_id, status
	`, since.UTC())
	if err != nil {
		return nil, errors.DatabaseError("Failed to count rule logs", err)
	}
	defer rows.Close()

	stats := make(map[string]alert.RuleStats)
	for rows.Next() {
		var ruleID, status string
		var n int
		if err := rows.Scan(&ruleID, &status, &n); err != nil {
			return nil, errors.DatabaseError("Failed to scan rule log count", err)
		}
		s := stats[ruleID]
		switch status {
		case alert.StatusSent:
			s.Sent += n
		case alert.StatusSkipped:
			s.Skipped += n
		case alert.StatusFailed:
			s.Failed += n
		}
		stats[ruleID] = s
	}
	return stats, rows.Err()
}

func (r *RuleLogRepository) ListByRule(ctx context.Context, ruleID string, limit int) ([]*alert.RuleLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_id, tenant_id, alert_id, status, error, created_at
		FROM alert_rule_logs WHERE rule_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2
	`, ruleID, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list rule logs", err)
	}
	defer rows.Close()

	logs := make([]*alert.RuleLog, 0, limit)
	for rows.Next() {
		var l alert.RuleLog
		if err := rows.Scan(&l.ID, &l.RuleID, &l.TenantID, &l.AlertID, &l.Status, &l.Error, &l.CreatedAt); err != nil {
			return nil, errors.DatabaseError("Failed to scan rule log", err)
		}
		l.CreatedAt = l.CreatedAt.UTC()
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (r *RuleLogRepository) DeleteByRule(ctx context.Context, ruleID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM alert_rule_logs WHERE rule_id = $1", ruleID); err != nil {
		return errors.DatabaseError("Failed to delete rule logs", err)
	}
	return nil
}
