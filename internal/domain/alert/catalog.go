package alert

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/clientflow/alertrunner/internal/domain/tenant"
)

// Schedule types
const (
	ScheduleTrialExpiring7Days        = "trial_expiring_7_days"
	ScheduleTrialExpiring3Days        = "trial_expiring_3_days"
	ScheduleTrialExpiring1Day         = "trial_expiring_1_day"
	ScheduleTrialExpired              = "trial_expired"
	ScheduleSubscriptionExpiring7Days = "subscription_expiring_7_days"
	SchedulePaymentPastDue            = "payment_past_due"
	ScheduleInactive30Days            = "inactive_30_days"
)

// Event types handled by alert rules
const (
	EventPaymentFailed          = "payment_failed"
	EventPaymentSucceeded       = "payment_succeeded"
	EventSubscriptionCancelled  = "subscription_cancelled"
	EventSubscriptionUpgraded   = "subscription_upgraded"
	EventSubscriptionDowngraded = "subscription_downgraded"
	EventDisputeCreated         = "dispute_created"
	EventDisputeWon             = "dispute_won"
	EventDisputeLost            = "dispute_lost"
	EventTrialStarted           = "trial_started"
	EventOnboardingCompleted    = "onboarding_completed"
)

// Option is a value/label pair for administration UIs
type Option struct {
	Value interface{} `json:"value" yaml:"value"`
	Label string      `json:"label" yaml:"label"`
}

var scheduleTypeOptions = []Option{
	{Value: ScheduleTrialExpiring7Days, Label: "Trial expiring in 7 days"},
	{Value: ScheduleTrialExpiring3Days, Label: "Trial expiring in 3 days"},
	{Value: ScheduleTrialExpiring1Day, Label: "Trial expiring tomorrow"},
	{Value: ScheduleTrialExpired, Label: "Trial expired"},
	{Value: ScheduleSubscriptionExpiring7Days, Label: "Subscription expiring in 7 days"},
	{Value: SchedulePaymentPastDue, Label: "Payment past due"},
	{Value: ScheduleInactive30Days, Label: "Inactive for 30 days"},
}

var eventTypeOptions = []Option{
	{Value: EventPaymentFailed, Label: "Payment failed"},
	{Value: EventPaymentSucceeded, Label: "Payment succeeded"},
	{Value: EventSubscriptionCancelled, Label: "Subscription cancelled"},
	{Value: EventSubscriptionUpgraded, Label: "Subscription upgraded"},
	{Value: EventSubscriptionDowngraded, Label: "Subscription downgraded"},
	{Value: EventDisputeCreated, Label: "Payment dispute created"},
	{Value: EventDisputeWon, Label: "Payment dispute won"},
	{Value: EventDisputeLost, Label: "Payment dispute lost"},
	{Value: EventTrialStarted, Label: "Trial started"},
	{Value: EventOnboardingCompleted, Label: "Onboarding completed"},
}

// ScheduleTypeOptions lists the schedule vocabulary with display labels
func ScheduleTypeOptions() []Option {
	return append([]Option(nil), scheduleTypeOptions...)
}

// EventTypeOptions lists the alert event vocabulary with display labels
func EventTypeOptions() []Option {
	return append([]Option(nil), eventTypeOptions...)
}

// ScheduleTypes returns the schedule vocabulary
func ScheduleTypes() []string {
	return optionValues(scheduleTypeOptions)
}

// EventTypes returns the alert event vocabulary
func EventTypes() []string {
	return optionValues(eventTypeOptions)
}

// IsScheduleType reports whether s is a known schedule type
func IsScheduleType(s string) bool {
	return contains(ScheduleTypes(), s)
}

// IsEventType reports whether s is a known alert event type
func IsEventType(s string) bool {
	return contains(EventTypes(), s)
}

// FilterOptions lists the choices offered for FilterSpec fields
type FilterOptions struct {
	SubscriptionStatuses  []Option `json:"subscriptionStatuses"`
	StripeConnectStatuses []Option `json:"stripeConnectStatuses"`
	BooleanOptions        []Option `json:"booleanOptions"`
}

// GetFilterOptions returns the FilterSpec choices with display labels
func GetFilterOptions() FilterOptions {
	return FilterOptions{
		SubscriptionStatuses: []Option{
			{Value: tenant.StatusTrialing, Label: "Trial"},
			{Value: tenant.StatusActive, Label: "Active"},
			{Value: tenant.StatusPastDue, Label: "Past Due"},
			{Value: tenant.StatusCanceled, Label: "Canceled"},
			{Value: tenant.StatusIncomplete, Label: "Incomplete"},
		},
		StripeConnectStatuses: []Option{
			{Value: tenant.ConnectConnected, Label: "Stripe Connected"},
			{Value: tenant.ConnectPending, Label: "Stripe Pending"},
			{Value: tenant.ConnectNotConnected, Label: "Not Connected"},
		},
		BooleanOptions: []Option{
			{Value: true, Label: "Yes"},
			{Value: false, Label: "No"},
		},
	}
}

// Options bundles every vocabulary an administration UI needs
type Options struct {
	ScheduleTypes []Option      `json:"scheduleTypes"`
	EventTypes    []Option      `json:"eventTypes"`
	FilterOptions FilterOptions `json:"filterOptions"`
}

// AllOptions returns the schedule, event and filter vocabularies
func AllOptions() Options {
	return Options{
		ScheduleTypes: ScheduleTypeOptions(),
		EventTypes:    EventTypeOptions(),
		FilterOptions: GetFilterOptions(),
	}
}

//go:embed default_rules.yaml
var defaultRulesYAML []byte

type defaultRule struct {
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description"`
	TriggerType   string      `yaml:"triggerType"`
	ScheduleType  string      `yaml:"scheduleType"`
	EventType     string      `yaml:"eventType"`
	Severity      string      `yaml:"severity"`
	Title         string      `yaml:"title"`
	Message       string      `yaml:"message"`
	ActionURL     string      `yaml:"actionUrl"`
	ActionLabel   string      `yaml:"actionLabel"`
	CooldownHours int         `yaml:"cooldownHours"`
	Filters       *FilterSpec `yaml:"filters"`
}

// DefaultRules returns fresh copies of the rules seeded on a new installation
func DefaultRules() ([]*Rule, error) {
	var defs []defaultRule
	if err := yaml.Unmarshal(defaultRulesYAML, &defs); err != nil {
		return nil, fmt.Errorf("parse default rules: %w", err)
	}
	rules := make([]*Rule, 0, len(defs))
	for _, d := range defs {
		rules = append(rules, &Rule{
			Name:            d.Name,
			Description:     d.Description,
			TriggerType:     d.TriggerType,
			ScheduleType:    d.ScheduleType,
			EventType:       d.EventType,
			Severity:        d.Severity,
			TitleTemplate:   d.Title,
			MessageTemplate: d.Message,
			ActionURL:       d.ActionURL,
			ActionLabel:     d.ActionLabel,
			CooldownHours:   d.CooldownHours,
			Active:          true,
			Filters:         d.Filters,
		})
	}
	return rules, nil
}

func optionValues(opts []Option) []string {
	values := make([]string, 0, len(opts))
	for _, o := range opts {
		values = append(values, o.Value.(string))
	}
	return values
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
