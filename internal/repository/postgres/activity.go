package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/tenant"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
)

// ActivityRepository aggregates bookings and contacts per tenant
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) tenant.ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) TenantIDsWithBookingsSince(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT tenant_id FROM bookings WHERE created_at >= $1 ORDER BY tenant_id",
		since.UTC(),
	)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list recently booked tenants", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.DatabaseError("Failed to scan tenant id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ActivityRepository) CountBookings(ctx context.Context, tenantIDs []string) (map[string]int, error) {
	return r.countByTenant(ctx, "bookings", tenantIDs)
}

func (r *ActivityRepository) CountContacts(ctx context.Context, tenantIDs []string) (map[string]int, error) {
	return r.countByTenant(ctx, "contacts", tenantIDs)
}

// countByTenant runs one grouped count over table. table is never user input.
func (r *ActivityRepository) countByTenant(ctx context.Context, table string, tenantIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(tenantIDs))
	if len(tenantIDs) == 0 {
		return counts, nil
	}

	query := fmt.Sprintf(
		"SELECT tenant_id, COUNT(*) FROM %s WHERE tenant_id IN (%s) GROUP BY tenant_id",
		table, placeholders(1, len(tenantIDs)),
	)
	rows, err := r.db.QueryContext(ctx, query, stringArgs(tenantIDs)...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count "+table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, errors.DatabaseError("Failed to scan "+table+" count", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
