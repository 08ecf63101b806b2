package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) alert.Repository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) (string, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	id := newID()

	query := `
		INSERT INTO alerts (id, tenant_id, type, severity, title, message, action_url, action_label, is_read, is_dismissed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		id, a.TenantID, a.Type, a.Severity, a.Title, a.Message, a.ActionURL, a.ActionLabel,
		a.Read, a.Dismissed, a.CreatedAt.UTC(),
	)
	if err != nil {
		return "", errors.DatabaseError("Failed to create alert", err)
	}

	return id, nil
}

func scanAlert(row rowScanner) (*alert.Alert, error) {
	var a alert.Alert
	err := row.Scan(&a.ID, &a.TenantID, &a.Type, &a.Severity, &a.Title, &a.Message,
		&a.ActionURL, &a.ActionLabel, &a.Read, &a.Dismissed, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (r *AlertRepository) GetByID(ctx context.Context, tenantID, id string) (*alert.Alert, error) {
	query := `
		SELECT id, tenant_id, type, severity, title, message, action_url, action_label, is_read, is_dismissed, created_at
		FROM alerts WHERE tenant_id = $1 AND id = $2
	`

	a, err := scanAlert(r.db.QueryRowContext(ctx, query, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Alert")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get alert", err)
	}
	return a, nil
}

func (r *AlertRepository) ListByTenant(ctx context.Context, tenantID string, filter alert.AlertFilter, limit, offset int) ([]*alert.Alert, int64, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}

	if filter.Unread {
		where = append(where, fmt.Sprintf("is_read = $%d", len(args)+1))
		args = append(args, false)
	}
	if !filter.IncludeDismissed {
		where = append(where, fmt.Sprintf("is_dismissed = $%d", len(args)+1))
		args = append(args, false)
	}
	if filter.Severity != "" {
		where = append(where, fmt.Sprintf("severity = $%d", len(args)+1))
		args = append(args, filter.Severity)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM alerts WHERE %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count alerts", err)
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, type, severity, title, message, action_url, action_label, is_read, is_dismissed, created_at
		FROM alerts WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)

	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list alerts", err)
	}
	defer rows.Close()

	alerts := make([]*alert.Alert, 0, limit)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan alert", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, total, rows.Err()
}

func (r *AlertRepository) MarkRead(ctx context.Context, tenantID, id string) error {
	return r.setFlag(ctx, "is_read", tenantID, id)
}

func (r *AlertRepository) Dismiss(ctx context.Context, tenantID, id string) error {
	return r.setFlag(ctx, "is_dismissed", tenantID, id)
}

func (r *AlertRepository) setFlag(ctx context.Context, column, tenantID, id string) error {
	query := fmt.Sprintf("UPDATE alerts SET %s = $1 WHERE tenant_id = $2 AND id = $3", column)
	result, err := r.db.ExecContext(ctx, query, true, tenantID, id)
	if err != nil {
		return errors.DatabaseError("Failed to update alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Alert")
	}

	return nil
}
