package services

import (
	"context"
	"fmt"
	"time"

	playground "github.com/go-playground/validator/v10"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/domain/tenant"
	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/validator"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
	statsWindow     = 24 * time.Hour
)

// RuleService implements alert.RuleService
type RuleService struct {
	rules     alert.RuleRepository
	logs      alert.LogRepository
	validator *validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

// NewRuleService creates a rule administration service
func NewRuleService(rules alert.RuleRepository, logs alert.LogRepository, v *validator.Validator, log *logger.Logger) alert.RuleService {
	return &RuleService{
		rules:     rules,
		logs:      logs,
		validator: v,
		logger:    log,
		now:       time.Now,
	}
}

// NewRuleValidator returns a validator that knows the rule vocabularies and
// the cross-field rule constraints
func NewRuleValidator() (*validator.Validator, error) {
	v := validator.New()
	if err := v.RegisterEnum("schedule_type", alert.ScheduleTypes()); err != nil {
		return nil, err
	}
	if err := v.RegisterEnum("event_type", alert.EventTypes()); err != nil {
		return nil, err
	}
	if err := v.RegisterEnum("subscription_status", tenant.SubscriptionStatuses()); err != nil {
		return nil, err
	}
	v.RegisterStructValidation(validateRuleTrigger, alert.Rule{})
	v.RegisterStructValidation(validateFilterRanges, alert.FilterSpec{})
	return v, nil
}

func validateRuleTrigger(sl playground.StructLevel) {
	r := sl.Current().Interface().(alert.Rule)
	switch r.TriggerType {
	case alert.TriggerSchedule:
		if r.ScheduleType == "" {
			sl.ReportError(r.ScheduleType, "scheduleType", "ScheduleType", "required_if", "triggerType schedule")
		}
		if r.EventType != "" {
			sl.ReportError(r.EventType, "eventType", "EventType", "excluded_unless", "triggerType event")
		}
	case alert.TriggerEvent:
		if r.EventType == "" {
			sl.ReportError(r.EventType, "eventType", "EventType", "required_if", "triggerType event")
		}
		if r.ScheduleType != "" {
			sl.ReportError(r.ScheduleType, "scheduleType", "ScheduleType", "excluded_unless", "triggerType schedule")
		}
	}
}

func validateFilterRanges(sl playground.StructLevel) {
	f := sl.Current().Interface().(alert.FilterSpec)
	if f.MinBookings != nil && f.MaxBookings != nil && *f.MaxBookings < *f.MinBookings {
		sl.ReportError(*f.MaxBookings, "maxBookings", "MaxBookings", "gtefield", "minBookings")
	}
	if f.MinContacts != nil && f.MaxContacts != nil && *f.MaxContacts < *f.MinContacts {
		sl.ReportError(*f.MaxContacts, "maxContacts", "MaxContacts", "gtefield", "minContacts")
	}
}

// Create validates and stores a new rule
func (s *RuleService) Create(ctx context.Context, rule *alert.Rule) (string, error) {
	normalizeRule(rule)
	if err := s.validate(rule); err != nil {
		return "", err
	}

	id, err := s.rules.Create(ctx, rule)
	if err != nil {
		return "", err
	}
	rule.ID = id

	s.logger.WithFields(map[string]interface{}{
		"rule_id":      id,
		"trigger_type": rule.TriggerType,
	}).Info("Alert rule created")

	return id, nil
}

// Get retrieves a rule by ID
func (s *RuleService) Get(ctx context.Context, id string) (*alert.Rule, error) {
	return s.rules.GetByID(ctx, id)
}

// Update applies a partial modification. Switching the trigger type clears
// the type field of the other trigger.
func (s *RuleService) Update(ctx context.Context, id string, update alert.RuleUpdate) (*alert.Rule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		rule.Name = *update.Name
	}
	if update.Description != nil {
		rule.Description = *update.Description
	}
	if update.TriggerType != nil {
		rule.TriggerType = *update.TriggerType
	}
	if update.ScheduleType != nil {
		rule.ScheduleType = *update.ScheduleType
	}
	if update.EventType != nil {
		rule.EventType = *update.EventType
	}
	if update.Severity != nil {
		rule.Severity = *update.Severity
	}
	if update.TitleTemplate != nil {
		rule.TitleTemplate = *update.TitleTemplate
	}
	if update.MessageTemplate != nil {
		rule.MessageTemplate = *update.MessageTemplate
	}
	if update.ActionURL != nil {
		rule.ActionURL = *update.ActionURL
	}
	if update.ActionLabel != nil {
		rule.ActionLabel = *update.ActionLabel
	}
	if update.CooldownHours != nil {
		rule.CooldownHours = *update.CooldownHours
	}
	if update.Active != nil {
		rule.Active = *update.Active
	}
	if update.Filters != nil {
		rule.Filters = update.Filters
	}

	normalizeRule(rule)
	if err := s.validate(rule); err != nil {
		return nil, err
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"rule_id": id,
	}).Info("Alert rule updated")

	return rule, nil
}

// Delete removes a rule together with its audit log
func (s *RuleService) Delete(ctx context.Context, id string) error {
	if _, err := s.rules.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.logs.DeleteByRule(ctx, id); err != nil {
		return fmt.Errorf("delete rule logs: %w", err)
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"rule_id": id,
	}).Info("Alert rule deleted")

	return nil
}

// List returns every rule with its log counts over the last 24 hours
func (s *RuleService) List(ctx context.Context) ([]*alert.RuleWithStats, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.logs.CountByRuleSince(ctx, s.now().Add(-statsWindow))
	if err != nil {
		return nil, fmt.Errorf("count rule logs: %w", err)
	}

	out := make([]*alert.RuleWithStats, 0, len(rules))
	for _, r := range rules {
		out = append(out, &alert.RuleWithStats{Rule: r, RecentStats: stats[r.ID]})
	}
	return out, nil
}

// Logs returns a rule's most recent audit entries
func (s *RuleService) Logs(ctx context.Context, id string, limit int) ([]*alert.RuleLog, error) {
	if _, err := s.rules.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return s.logs.ListByRule(ctx, id, limit)
}

// SeedDefaults creates the default rules that are missing, matched by name
func (s *RuleService) SeedDefaults(ctx context.Context) ([]alert.SeedResult, error) {
	defaults, err := alert.DefaultRules()
	if err != nil {
		return nil, apperrors.Internal("failed to load default rules", err)
	}

	results := make([]alert.SeedResult, 0, len(defaults))
	for _, rule := range defaults {
		existing, err := s.rules.GetByName(ctx, rule.Name)
		switch {
		case err == nil:
			results = append(results, alert.SeedResult{Name: rule.Name, Status: alert.SeedExists, ID: existing.ID})
			continue
		case !apperrors.IsNotFound(err):
			return results, fmt.Errorf("look up rule %q: %w", rule.Name, err)
		}

		id, err := s.Create(ctx, rule)
		if err != nil {
			return results, fmt.Errorf("seed rule %q: %w", rule.Name, err)
		}
		results = append(results, alert.SeedResult{Name: rule.Name, Status: alert.SeedCreated, ID: id})
	}

	s.logger.WithFields(map[string]interface{}{
		"rules": len(results),
	}).Info("Default alert rules seeded")

	return results, nil
}

// Options returns the vocabularies offered by rule forms
func (s *RuleService) Options() alert.Options {
	return alert.AllOptions()
}

func (s *RuleService) validate(rule *alert.Rule) error {
	if errs := s.validator.Validate(rule); len(errs) > 0 {
		return apperrors.ValidationError("invalid alert rule", errs)
	}
	return nil
}

func normalizeRule(rule *alert.Rule) {
	if rule.Severity == "" {
		rule.Severity = alert.SeverityWarning
	}
	switch rule.TriggerType {
	case alert.TriggerSchedule:
		rule.EventType = ""
	case alert.TriggerEvent:
		rule.ScheduleType = ""
	}
	if rule.Filters.IsEmpty() {
		rule.Filters = nil
	}
}
