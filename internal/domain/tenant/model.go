package tenant

import "time"

// Tenant is a business account of the platform
type Tenant struct {
	ID                       string     `json:"id"`
	Name                     string     `json:"name"`
	BusinessName             string     `json:"businessName,omitempty"`
	Email                    string     `json:"email,omitempty"`
	StripeCustomerID         string     `json:"stripeCustomerId,omitempty"`
	SubscriptionStatus       string     `json:"subscriptionStatus"`
	PlanID                   string     `json:"planId,omitempty"`
	CurrentPeriodEnd         *time.Time `json:"currentPeriodEnd,omitempty"`
	StripeAccountID          string     `json:"stripeAccountId,omitempty"`
	StripeOnboardingComplete bool       `json:"stripeOnboardingComplete"`
	SetupComplete            bool       `json:"setupComplete"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// Subscription statuses
const (
	StatusTrialing   = "trialing"
	StatusActive     = "active"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
)

// SubscriptionStatuses lists every subscription status in display order
func SubscriptionStatuses() []string {
	return []string{StatusTrialing, StatusActive, StatusPastDue, StatusCanceled, StatusIncomplete}
}

// Stripe Connect states derived from the account id and onboarding flag
const (
	ConnectConnected    = "connected"
	ConnectPending      = "pending"
	ConnectNotConnected = "not_connected"
)

// ConnectStatus classifies the tenant's Stripe Connect state. The three
// results partition every combination of account id and onboarding flag.
func (t *Tenant) ConnectStatus() string {
	switch {
	case t.StripeOnboardingComplete:
		return ConnectConnected
	case t.StripeAccountID == "":
		return ConnectNotConnected
	default:
		return ConnectPending
	}
}

// HasPaymentMethod reports whether the tenant has a billing customer on file
func (t *Tenant) HasPaymentMethod() bool {
	return t.StripeCustomerID != ""
}

// Query narrows a tenant listing. Zero-valued fields are ignored and the
// remaining conditions are combined with AND.
type Query struct {
	Statuses []string
	// PeriodEndFrom and PeriodEndTo bound CurrentPeriodEnd inclusively
	PeriodEndFrom *time.Time
	PeriodEndTo   *time.Time
	// PeriodEndBefore matches CurrentPeriodEnd strictly earlier than the value
	PeriodEndBefore *time.Time
	// CreatedBefore matches CreatedAt strictly earlier than the value
	CreatedBefore *time.Time
	ExcludeIDs    []string
}
