package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/clientflow/alertrunner/internal/domain/tenant"
	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/testutil"
)

func seedTenants(t *testing.T, repo tenant.Repository, now time.Time) {
	t.Helper()
	for _, tn := range []*tenant.Tenant{
		{ID: "t-trial-exact", Name: "Exact", SubscriptionStatus: tenant.StatusTrialing, CurrentPeriodEnd: testutil.Time(now.AddDate(0, 0, 7)), CreatedAt: now.AddDate(0, 0, -7)},
		{ID: "t-trial-late", Name: "Late", SubscriptionStatus: tenant.StatusTrialing, CurrentPeriodEnd: testutil.Time(now.AddDate(0, 0, 8)), CreatedAt: now.AddDate(0, 0, -6)},
		{ID: "t-active", Name: "Active", SubscriptionStatus: tenant.StatusActive, StripeCustomerID: "cus_active", CurrentPeriodEnd: testutil.Time(now.AddDate(0, 0, 20)), CreatedAt: now.AddDate(0, -3, 0)},
		{ID: "t-past-due", Name: "Past Due", SubscriptionStatus: tenant.StatusPastDue, CreatedAt: now.AddDate(-1, 0, 0)},
	} {
		if err := repo.Upsert(context.Background(), tn); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
}

func TestTenantRepository_GetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewTenantRepository(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seedTenants(t, repo, now)

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "existing tenant", id: "t-trial-exact"},
		{name: "missing tenant", id: "t-missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByID(context.Background(), tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetByID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !apperrors.IsNotFound(err) {
					t.Errorf("GetByID() error = %v, want not found", err)
				}
				return
			}
			if got.CurrentPeriodEnd == nil || !got.CurrentPeriodEnd.Equal(now.AddDate(0, 0, 7)) {
				t.Errorf("GetByID() CurrentPeriodEnd = %v, want %v", got.CurrentPeriodEnd, now.AddDate(0, 0, 7))
			}
		})
	}
}

func TestTenantRepository_Find(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewTenantRepository(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seedTenants(t, repo, now)

	from := now.AddDate(0, 0, 7)
	to := now.AddDate(0, 0, 7).Add(time.Hour)

	tests := []struct {
		name  string
		query tenant.Query
		want  []string
	}{
		{name: "everything", query: tenant.Query{}, want: []string{"t-past-due", "t-active", "t-trial-exact", "t-trial-late"}},
		{name: "status", query: tenant.Query{Statuses: []string{tenant.StatusTrialing}}, want: []string{"t-trial-exact", "t-trial-late"}},
		{
			name:  "period end window",
			query: tenant.Query{Statuses: []string{tenant.StatusTrialing}, PeriodEndFrom: &from, PeriodEndTo: &to},
			want:  []string{"t-trial-exact"},
		},
		{name: "period end before", query: tenant.Query{PeriodEndBefore: testutil.Time(now.AddDate(0, 0, 10))}, want: []string{"t-trial-exact", "t-trial-late"}},
		{name: "null period end never matches", query: tenant.Query{Statuses: []string{tenant.StatusPastDue}, PeriodEndBefore: testutil.Time(now)}, want: []string{}},
		{
			name:  "created before with exclusions",
			query: tenant.Query{CreatedBefore: testutil.Time(now.AddDate(0, 0, -30)), ExcludeIDs: []string{"t-active"}},
			want:  []string{"t-past-due"},
		},
		{
			name:  "exclusions past the parameter limit",
			query: tenant.Query{CreatedBefore: testutil.Time(now.AddDate(0, 0, -30)), ExcludeIDs: exclusionList(maxBoundExcludeIDs+100, "t-active")},
			want:  []string{"t-past-due"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Find(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Find() returned %d tenants, want %d", len(got), len(tt.want))
			}
			for i, tn := range got {
				if tn.ID != tt.want[i] {
					t.Errorf("Find()[%d] = %s, want %s", i, tn.ID, tt.want[i])
				}
			}
		})
	}
}

func exclusionList(n int, ids ...string) []string {
	out := append([]string{}, ids...)
	for i := len(out); i < n; i++ {
		out = append(out, fmt.Sprintf("t-gone-%d", i))
	}
	return out
}

func TestTenantRepository_UpsertAndCustomerLookup(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewTenantRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seedTenants(t, repo, now)

	got, err := repo.GetByStripeCustomerID(ctx, "cus_active")
	if err != nil {
		t.Fatalf("GetByStripeCustomerID() error = %v", err)
	}
	if got.ID != "t-active" {
		t.Errorf("GetByStripeCustomerID() = %s, want t-active", got.ID)
	}

	got.SubscriptionStatus = tenant.StatusCanceled
	got.StripeOnboardingComplete = true
	if err := repo.Upsert(ctx, got); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	reloaded, _ := repo.GetByID(ctx, "t-active")
	if reloaded.SubscriptionStatus != tenant.StatusCanceled || !reloaded.StripeOnboardingComplete {
		t.Errorf("Upsert() did not replace the row: %+v", reloaded)
	}

	if _, err := repo.GetByStripeCustomerID(ctx, "cus_unknown"); !apperrors.IsNotFound(err) {
		t.Errorf("GetByStripeCustomerID() error = %v, want not found", err)
	}
}

func TestTenantRepository_FindQueryShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	from := time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Nanosecond)
	mock.ExpectQuery(`FROM tenants WHERE subscription_status IN \(\$1, \$2\) AND current_period_end >= \$3 AND current_period_end <= \$4 AND id NOT IN \(\$5\) ORDER BY created_at, id`).
		WithArgs(tenant.StatusTrialing, tenant.StatusActive, from, to, "t-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewTenantRepository(db)
	_, err = repo.Find(context.Background(), tenant.Query{
		Statuses:      []string{tenant.StatusTrialing, tenant.StatusActive},
		PeriodEndFrom: &from,
		PeriodEndTo:   &to,
		ExcludeIDs:    []string{"t-9"},
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTenantRepository_FindLargeExclusionNotBound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	cutoff := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM tenants WHERE created_at < \$1 ORDER BY created_at, id`).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewTenantRepository(db)
	_, err = repo.Find(context.Background(), tenant.Query{
		CreatedBefore: &cutoff,
		ExcludeIDs:    exclusionList(40000),
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
