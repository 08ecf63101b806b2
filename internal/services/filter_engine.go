package services

import (
	"context"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/domain/tenant"
)

// FilterEngine implements alert.FilterEngine
type FilterEngine struct {
	activity tenant.ActivityRepository
	now      func() time.Time
	timeout  time.Duration
}

// NewFilterEngine creates a filter engine. activity backs the booking and
// contact count predicates.
func NewFilterEngine(activity tenant.ActivityRepository, now func() time.Time, timeout time.Duration) alert.FilterEngine {
	if now == nil {
		now = time.Now
	}
	return &FilterEngine{activity: activity, now: now, timeout: timeout}
}

// Apply returns the tenants satisfying every predicate in spec, preserving
// input order. A nil or empty spec returns tenants unchanged.
func (e *FilterEngine) Apply(ctx context.Context, tenants []*tenant.Tenant, spec *alert.FilterSpec) ([]*tenant.Tenant, error) {
	if spec.IsEmpty() {
		return tenants, nil
	}

	filtered := append([]*tenant.Tenant(nil), tenants...)

	if len(spec.PlanIDs) > 0 {
		plans := toSet(spec.PlanIDs)
		filtered = keep(filtered, func(t *tenant.Tenant) bool {
			_, ok := plans[t.PlanID]
			return t.PlanID != "" && ok
		})
	}

	if len(spec.SubscriptionStatuses) > 0 {
		statuses := toSet(spec.SubscriptionStatuses)
		filtered = keep(filtered, func(t *tenant.Tenant) bool {
			_, ok := statuses[t.SubscriptionStatus]
			return ok
		})
	}

	if spec.MinTenantAgeDays != nil && *spec.MinTenantAgeDays > 0 {
		cutoff := e.now().AddDate(0, 0, -*spec.MinTenantAgeDays)
		filtered = keep(filtered, func(t *tenant.Tenant) bool {
			return !t.CreatedAt.After(cutoff)
		})
	}

	if spec.HasPaymentMethod != nil {
		want := *spec.HasPaymentMethod
		filtered = keep(filtered, func(t *tenant.Tenant) bool {
			return t.HasPaymentMethod() == want
		})
	}

	if spec.HasBookingRange() && len(filtered) > 0 {
		var counts map[string]int
		err := withTimeout(ctx, e.timeout, "booking count", func(ctx context.Context) error {
			var err error
			counts, err = e.activity.CountBookings(ctx, tenantIDs(filtered))
			return err
		})
		if err != nil {
			return nil, err
		}
		filtered = keep(filtered, func(t *tenant.Tenant) bool {
			return alert.InRange(counts[t.ID], spec.MinBookings, spec.MaxBookings)
		})
	}

	if spec.HasContactRange() && len(filtered) > 0 {
		var counts map[string]int
		err := withTimeout(ctx, e.timeout, "contact count", func(ctx context.Context) error {
			var err error
			counts, err = e.activity.CountContacts(ctx, tenantIDs(filtered))
			return err
		})
		if err != nil {
			return nil, err
		}
		filtered = keep(filtered, func(t *tenant.Tenant) bool {
			return alert.InRange(counts[t.ID], spec.MinContacts, spec.MaxContacts)
		})
	}

	switch spec.StripeConnectStatus {
	case tenant.ConnectConnected, tenant.ConnectPending, tenant.ConnectNotConnected:
		filtered = keep(filtered, func(t *tenant.Tenant) bool {
			return t.ConnectStatus() == spec.StripeConnectStatus
		})
	}

	if spec.SetupComplete != nil {
		want := *spec.SetupComplete
		filtered = keep(filtered, func(t *tenant.Tenant) bool {
			return t.SetupComplete == want
		})
	}

	return filtered, nil
}

func keep(tenants []*tenant.Tenant, pred func(*tenant.Tenant) bool) []*tenant.Tenant {
	out := tenants[:0]
	for _, t := range tenants {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

func tenantIDs(tenants []*tenant.Tenant) []string {
	ids := make([]string, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}
	return ids
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
