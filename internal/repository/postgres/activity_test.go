package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/tenant"
	"github.com/clientflow/alertrunner/internal/testutil"
)

func TestActivityRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tenants := NewTenantRepository(db)
	for _, id := range []string{"t1", "t2", "t3"} {
		if err := tenants.Upsert(ctx, &tenant.Tenant{ID: id, Name: id, SubscriptionStatus: tenant.StatusActive}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	insert := func(table, tenantID string, at time.Time, n int) {
		for i := 0; i < n; i++ {
			_, err := db.ExecContext(ctx,
				fmt.Sprintf("INSERT INTO %s (id, tenant_id, created_at) VALUES ($1, $2, $3)", table),
				newID(), tenantID, at.UTC(),
			)
			if err != nil {
				t.Fatalf("insert %s error = %v", table, err)
			}
		}
	}
	insert("bookings", "t1", now.AddDate(0, 0, -2), 3)
	insert("bookings", "t2", now.AddDate(0, 0, -45), 1)
	insert("contacts", "t2", now, 4)

	repo := NewActivityRepository(db)

	recent, err := repo.TenantIDsWithBookingsSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("TenantIDsWithBookingsSince() error = %v", err)
	}
	if len(recent) != 1 || recent[0] != "t1" {
		t.Errorf("TenantIDsWithBookingsSince() = %v, want [t1]", recent)
	}

	tests := []struct {
		name  string
		count func([]string) (map[string]int, error)
		ids   []string
		want  map[string]int
	}{
		{name: "bookings", count: func(ids []string) (map[string]int, error) { return repo.CountBookings(ctx, ids) }, ids: []string{"t1", "t2", "t3"}, want: map[string]int{"t1": 3, "t2": 1}},
		{name: "bookings scoped", count: func(ids []string) (map[string]int, error) { return repo.CountBookings(ctx, ids) }, ids: []string{"t2"}, want: map[string]int{"t2": 1}},
		{name: "contacts", count: func(ids []string) (map[string]int, error) { return repo.CountContacts(ctx, ids) }, ids: []string{"t1", "t2"}, want: map[string]int{"t2": 4}},
		{name: "no ids", count: func(ids []string) (map[string]int, error) { return repo.CountContacts(ctx, ids) }, ids: nil, want: map[string]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.count(tt.ids)
			if err != nil {
				t.Fatalf("count error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("count = %v, want %v", got, tt.want)
			}
			for id, n := range tt.want {
				if got[id] != n {
					t.Errorf("count[%s] = %d, want %d", id, got[id], n)
				}
			}
		})
	}
}
