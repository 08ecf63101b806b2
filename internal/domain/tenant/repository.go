package tenant

import (
	"context"
	"time"
)

// Repository defines read access to tenant records
type Repository interface {
	// GetByID retrieves a tenant, returning a NOT_FOUND AppError when absent
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// GetByStripeCustomerID retrieves a tenant by billing-customer reference
	GetByStripeCustomerID(ctx context.Context, customerID string) (*Tenant, error)

	// Find lists tenants matching the query
	Find(ctx context.Context, q Query) ([]*Tenant, error)

	// Upsert creates or replaces a tenant record (admin import and tests)
	Upsert(ctx context.Context, t *Tenant) error
}

// ActivityRepository exposes the booking and contact aggregates used by
// schedule conditions and filters
type ActivityRepository interface {
	// TenantIDsWithBookingsSince returns the distinct tenants with a booking created at or after since
	TenantIDsWithBookingsSince(ctx context.Context, since time.Time) ([]string, error)

	// CountBookings counts bookings per tenant, restricted to tenantIDs. Tenants with no bookings are absent.
	CountBookings(ctx context.Context, tenantIDs []string) (map[string]int, error)

	// CountContacts counts contacts per tenant, restricted to tenantIDs. Tenants with no contacts are absent.
	CountContacts(ctx context.Context, tenantIDs []string) (map[string]int, error)
}
