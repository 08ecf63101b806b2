package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/tenant"
	"github.com/clientflow/alertrunner/internal/pkg/errors"
)

const tenantColumns = `id, name, business_name, email, stripe_customer_id, subscription_status, plan_id,
	current_period_end, stripe_account_id, stripe_onboarding_complete, setup_complete, created_at, updated_at`

type TenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) tenant.Repository {
	return &TenantRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTenant(row rowScanner) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var periodEnd sql.NullTime
	err := row.Scan(
		&t.ID, &t.Name, &t.BusinessName, &t.Email, &t.StripeCustomerID, &t.SubscriptionStatus, &t.PlanID,
		&periodEnd, &t.StripeAccountID, &t.StripeOnboardingComplete, &t.SetupComplete, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.CurrentPeriodEnd = timePtr(periodEnd)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants WHERE id = $1"

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Tenant")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get tenant", err)
	}
	return t, nil
}

func (r *TenantRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*tenant.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants WHERE stripe_customer_id = $1 ORDER BY created_at LIMIT 1"

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, customerID))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Tenant")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get tenant by customer", err)
	}
	return t, nil
}

// maxBoundExcludeIDs is the largest exclusion list bound as query parameters.
// Longer lists are applied while scanning so the statement stays under the
// drivers' parameter limits.
const maxBoundExcludeIDs = 500

func (r *TenantRepository) Find(ctx context.Context, q tenant.Query) ([]*tenant.Tenant, error) {
	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.Statuses) > 0 {
		where = append(where, fmt.Sprintf("subscription_status IN (%s)", placeholders(len(args)+1, len(q.Statuses))))
		args = append(args, stringArgs(q.Statuses)...)
	}
	if q.PeriodEndFrom != nil {
		where = append(where, "current_period_end >= "+arg(q.PeriodEndFrom.UTC()))
	}
	if q.PeriodEndTo != nil {
		where = append(where, "current_period_end <= "+arg(q.PeriodEndTo.UTC()))
	}
	if q.PeriodEndBefore != nil {
		where = append(where, "current_period_end < "+arg(q.PeriodEndBefore.UTC()))
	}
	if q.CreatedBefore != nil {
		where = append(where, "created_at < "+arg(q.CreatedBefore.UTC()))
	}
	var excluded map[string]struct{}
	if len(q.ExcludeIDs) > maxBoundExcludeIDs {
		excluded = make(map[string]struct{}, len(q.ExcludeIDs))
		for _, id := range q.ExcludeIDs {
			excluded[id] = struct{}{}
		}
	} else if len(q.ExcludeIDs) > 0 {
		where = append(where, fmt.Sprintf("id NOT IN (%s)", placeholders(len(args)+1, len(q.ExcludeIDs))))
		args = append(args, stringArgs(q.ExcludeIDs)...)
	}

	query := "SELECT " + tenantColumns + " FROM tenants"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to find tenants", err)
	}
	defer rows.Close()

	tenants := make([]*tenant.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan tenant", err)
		}
		if _, skip := excluded[t.ID]; skip {
			continue
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate tenants", err)
	}
	return tenants, nil
}

func (r *TenantRepository) Upsert(ctx context.Context, t *tenant.Tenant) error {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			business_name = excluded.business_name,
			email = excluded.email,
			stripe_customer_id = excluded.stripe_customer_id,
			subscription_status = excluded.subscription_status,
			plan_id = excluded.plan_id,
			current_period_end = excluded.current_period_end,
			stripe_account_id = excluded.stripe_account_id,
			stripe_onboarding_complete = excluded.stripe_onboarding_complete,
			setup_complete = excluded.setup_complete,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.BusinessName, t.Email, t.StripeCustomerID, t.SubscriptionStatus, t.PlanID,
		nullTime(t.CurrentPeriodEnd), t.StripeAccountID, t.StripeOnboardingComplete, t.SetupComplete,
		t.CreatedAt.UTC(), t.UpdatedAt,
	)
	if err != nil {
		return errors.DatabaseError("Failed to upsert tenant", err)
	}
	return nil
}
