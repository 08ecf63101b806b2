package alert

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FilterSpec narrows a rule's candidate tenants. Every field is optional and
// the configured predicates are combined with AND. A nil or empty spec
// matches every tenant.
type FilterSpec struct {
	PlanIDs              []string `json:"planIds,omitempty" yaml:"planIds,omitempty"`
	SubscriptionStatuses []string `json:"subscriptionStatuses,omitempty" yaml:"subscriptionStatuses,omitempty" validate:"omitempty,dive,subscription_status"`
	MinTenantAgeDays     *int     `json:"minTenantAgeDays,omitempty" yaml:"minTenantAgeDays,omitempty" validate:"omitempty,gte=0"`
	HasPaymentMethod     *bool    `json:"hasPaymentMethod,omitempty" yaml:"hasPaymentMethod,omitempty"`
	MinBookings          *int     `json:"minBookings,omitempty" yaml:"minBookings,omitempty" validate:"omitempty,gte=0"`
	MaxBookings          *int     `json:"maxBookings,omitempty" yaml:"maxBookings,omitempty" validate:"omitempty,gte=0"`
	MinContacts          *int     `json:"minContacts,omitempty" yaml:"minContacts,omitempty" validate:"omitempty,gte=0"`
	MaxContacts          *int     `json:"maxContacts,omitempty" yaml:"maxContacts,omitempty" validate:"omitempty,gte=0"`
	StripeConnectStatus  string   `json:"stripeConnectStatus,omitempty" yaml:"stripeConnectStatus,omitempty" validate:"omitempty,oneof=connected pending not_connected"`
	SetupComplete        *bool    `json:"setupComplete,omitempty" yaml:"setupComplete,omitempty"`
}

// IsEmpty reports whether the spec configures no predicate
func (f *FilterSpec) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.PlanIDs) == 0 &&
		len(f.SubscriptionStatuses) == 0 &&
		f.MinTenantAgeDays == nil &&
		f.HasPaymentMethod == nil &&
		!f.HasBookingRange() &&
		!f.HasContactRange() &&
		f.StripeConnectStatus == "" &&
		f.SetupComplete == nil
}

// HasBookingRange reports whether a booking-count bound is set
func (f *FilterSpec) HasBookingRange() bool {
	return f.MinBookings != nil || f.MaxBookings != nil
}

// HasContactRange reports whether a contact-count bound is set
func (f *FilterSpec) HasContactRange() bool {
	return f.MinContacts != nil || f.MaxContacts != nil
}

// Value stores the spec as JSON, or NULL when empty
func (f *FilterSpec) Value() (driver.Value, error) {
	if f.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON column written by Value
func (f *FilterSpec) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = FilterSpec{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("filter spec: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*f = FilterSpec{}
		return nil
	}
	return json.Unmarshal(raw, f)
}

// InRange reports whether count satisfies the optional inclusive bounds
func InRange(count int, min, max *int) bool {
	if min != nil && count < *min {
		return false
	}
	if max != nil && count > *max {
		return false
	}
	return true
}
