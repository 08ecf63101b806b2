package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/testutil"
)

func TestAlertRepository_Inbox(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewAlertRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i, a := range []*alert.Alert{
		{TenantID: "t1", Type: "trial_expiring_3_days", Severity: alert.SeverityWarning, Title: "first", Message: "m"},
		{TenantID: "t1", Type: "payment_failed", Severity: alert.SeverityError, Title: "second", Message: "m", ActionURL: "/billing"},
		{TenantID: "t2", Type: "payment_failed", Severity: alert.SeverityError, Title: "foreign", Message: "m"},
		{TenantID: "t1", Type: "dispute_created", Severity: alert.SeverityCritical, Title: "third", Message: "m"},
	} {
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		id, err := repo.Create(ctx, a)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, id)
	}

	if err := repo.MarkRead(ctx, "t1", ids[0]); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if err := repo.Dismiss(ctx, "t1", ids[3]); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	if err := repo.Dismiss(ctx, "t1", ids[2]); !apperrors.IsNotFound(err) {
		t.Errorf("Dismiss() of another tenant's alert error = %v, want not found", err)
	}

	tests := []struct {
		name      string
		filter    alert.AlertFilter
		limit     int
		offset    int
		want      []string
		wantTotal int64
	}{
		{name: "default", limit: 10, want: []string{"second", "first"}, wantTotal: 2},
		{name: "unread", filter: alert.AlertFilter{Unread: true}, limit: 10, want: []string{"second"}, wantTotal: 1},
		{name: "with dismissed", filter: alert.AlertFilter{IncludeDismissed: true}, limit: 10, want: []string{"third", "second", "first"}, wantTotal: 3},
		{name: "severity", filter: alert.AlertFilter{IncludeDismissed: true, Severity: alert.SeverityCritical}, limit: 10, want: []string{"third"}, wantTotal: 1},
		{name: "page two", filter: alert.AlertFilter{IncludeDismissed: true}, limit: 2, offset: 2, want: []string{"first"}, wantTotal: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.ListByTenant(ctx, "t1", tt.filter, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("ListByTenant() error = %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("ListByTenant() total = %d, want %d", total, tt.wantTotal)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListByTenant() returned %d alerts, want %d", len(got), len(tt.want))
			}
			for i, a := range got {
				if a.Title != tt.want[i] {
					t.Errorf("ListByTenant()[%d] = %s, want %s", i, a.Title, tt.want[i])
				}
			}
		})
	}

	got, err := repo.GetByID(ctx, "t1", ids[1])
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ActionURL != "/billing" || got.Read || !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("GetByID() = %+v", got)
	}
	if _, err := repo.GetByID(ctx, "t1", ids[2]); !apperrors.IsNotFound(err) {
		t.Errorf("GetByID() across tenants error = %v, want not found", err)
	}
}
