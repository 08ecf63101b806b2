package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/domain/tenant"
	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/metrics"
)

// AlertRunner implements alert.Runner
type AlertRunner struct {
	rules       alert.RuleRepository
	tenants     tenant.Repository
	selector    alert.CandidateSelector
	filters     alert.FilterEngine
	dispatcher  alert.Dispatcher
	logger      *logger.Logger
	now         func() time.Time
	timeout     time.Duration
	concurrency int
}

// RunnerConfig holds the tunables of an AlertRunner
type RunnerConfig struct {
	// Concurrency bounds parallel dispatches within one rule; values below 2 run sequentially
	Concurrency       int
	RepositoryTimeout time.Duration
	Now               func() time.Time
}

// NewAlertRunner creates the scheduled and event-driven entry points
func NewAlertRunner(
	rules alert.RuleRepository,
	tenants tenant.Repository,
	selector alert.CandidateSelector,
	filters alert.FilterEngine,
	dispatcher alert.Dispatcher,
	log *logger.Logger,
	cfg RunnerConfig,
) alert.Runner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &AlertRunner{
		rules:       rules,
		tenants:     tenants,
		selector:    selector,
		filters:     filters,
		dispatcher:  dispatcher,
		logger:      log,
		now:         cfg.Now,
		timeout:     cfg.RepositoryTimeout,
		concurrency: cfg.Concurrency,
	}
}

// RunScheduled evaluates every active schedule rule. Rules run one after
// another; a rule whose candidates cannot be selected is reported in
// RuleErrors and does not stop the run. Only failing to load the rules, or
// cancellation of ctx, aborts the run with an error.
func (r *AlertRunner) RunScheduled(ctx context.Context) (*alert.RunSummary, error) {
	start := r.now()

	var rules []*alert.Rule
	err := withTimeout(ctx, r.timeout, "schedule rule load", func(ctx context.Context) error {
		var err error
		rules, err = r.rules.ListActiveSchedule(ctx)
		return err
	})
	if err != nil {
		metrics.RecordScheduledRun("error", time.Since(start))
		return nil, fmt.Errorf("load schedule rules: %w", err)
	}

	summary := &alert.RunSummary{
		Details:   []alert.RunDetail{},
		StartedAt: start,
	}

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = r.now()
			metrics.RecordScheduledRun("cancelled", time.Since(start))
			return summary, err
		}

		candidates, err := r.candidates(ctx, rule)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"rule_id":       rule.ID,
				"schedule_type": rule.ScheduleType,
			}).ErrorWithErr(err, "Failed to select candidates for rule")
			summary.RuleErrors = append(summary.RuleErrors, alert.RuleError{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Error:    err.Error(),
			})
			continue
		}

		for _, detail := range r.dispatchAll(ctx, rule, candidates) {
			summary.Add(detail)
		}
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = r.now()
			metrics.RecordScheduledRun("cancelled", time.Since(start))
			r.logger.WithFields(map[string]interface{}{
				"rule_id":     rule.ID,
				"alerts_sent": summary.AlertsSent,
			}).Warn("Scheduled alert run cancelled")
			return summary, err
		}
		summary.RulesProcessed++
	}

	summary.FinishedAt = r.now()
	metrics.RecordScheduledRun("completed", time.Since(start))

	r.logger.WithFields(map[string]interface{}{
		"rules_processed": summary.RulesProcessed,
		"alerts_sent":     summary.AlertsSent,
		"alerts_skipped":  summary.AlertsSkipped,
		"alerts_failed":   summary.AlertsFailed,
		"rule_errors":     len(summary.RuleErrors),
	}).Info("Scheduled alert run completed")

	return summary, nil
}

func (r *AlertRunner) candidates(ctx context.Context, rule *alert.Rule) ([]*tenant.Tenant, error) {
	selected, err := r.selector.SelectForScheduleType(ctx, rule.ScheduleType)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", rule.ScheduleType, err)
	}
	filtered, err := r.filters.Apply(ctx, selected, rule.Filters)
	if err != nil {
		return nil, fmt.Errorf("apply filters: %w", err)
	}
	metrics.RecordRuleCandidates(rule.ScheduleType, len(filtered))
	return filtered, nil
}

// dispatchAll dispatches rule to every tenant, at most r.concurrency at a
// time. Details keep the candidate order. Once ctx is done no further tenant
// is attempted, and untried tenants get no detail.
func (r *AlertRunner) dispatchAll(ctx context.Context, rule *alert.Rule, tenants []*tenant.Tenant) []alert.RunDetail {
	details := make([]alert.RunDetail, len(tenants))
	tried := make([]bool, len(tenants))
	run := func(i int, t *tenant.Tenant) {
		details[i] = alert.RunDetail{
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			TenantID:       t.ID,
			DispatchResult: r.dispatcher.Dispatch(ctx, rule, alert.NewSubject(t)),
		}
		tried[i] = true
	}

	if r.concurrency < 2 || len(tenants) < 2 {
		for i, t := range tenants {
			if ctx.Err() != nil {
				break
			}
			run(i, t)
		}
		return compactDetails(details, tried)
	}

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
loop:
	for i, t := range tenants {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			break
		}
		wg.Add(1)
		go func(i int, t *tenant.Tenant) {
			defer wg.Done()
			defer func() { <-sem }()
			run(i, t)
		}(i, t)
	}
	wg.Wait()
	return compactDetails(details, tried)
}

func compactDetails(details []alert.RunDetail, tried []bool) []alert.RunDetail {
	out := details[:0]
	for i, d := range details {
		if tried[i] {
			out = append(out, d)
		}
	}
	return out
}

// TriggerEvent dispatches every active rule for eventType to one tenant.
// Metadata is merged over the tenant for rendering. An unknown tenant is a
// structured failure, not an error.
func (r *AlertRunner) TriggerEvent(ctx context.Context, eventType, tenantID string, metadata map[string]interface{}) (*alert.EventResult, error) {
	var rules []*alert.Rule
	err := withTimeout(ctx, r.timeout, "event rule load", func(ctx context.Context) error {
		var err error
		rules, err = r.rules.ListActiveByEvent(ctx, eventType)
		return err
	})
	if err != nil {
		metrics.RecordEvent(eventType, "error")
		return nil, fmt.Errorf("load event rules: %w", err)
	}

	var t *tenant.Tenant
	err = withTimeout(ctx, r.timeout, "tenant lookup", func(ctx context.Context) error {
		var err error
		t, err = r.tenants.GetByID(ctx, tenantID)
		return err
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return r.tenantNotFound(eventType, "tenant_id", tenantID), nil
		}
		metrics.RecordEvent(eventType, "error")
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	return r.dispatchEvent(ctx, eventType, rules, alert.Subject{Tenant: t, Metadata: metadata}), nil
}

// TriggerEventByStripeCustomer resolves the tenant by billing customer and
// triggers eventType for it.
func (r *AlertRunner) TriggerEventByStripeCustomer(ctx context.Context, eventType, customerID string, metadata map[string]interface{}) (*alert.EventResult, error) {
	if customerID == "" {
		return r.tenantNotFound(eventType, "stripe_customer_id", customerID), nil
	}

	var t *tenant.Tenant
	err := withTimeout(ctx, r.timeout, "tenant lookup", func(ctx context.Context) error {
		var err error
		t, err = r.tenants.GetByStripeCustomerID(ctx, customerID)
		return err
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return r.tenantNotFound(eventType, "stripe_customer_id", customerID), nil
		}
		metrics.RecordEvent(eventType, "error")
		return nil, fmt.Errorf("load tenant by customer: %w", err)
	}

	return r.TriggerEvent(ctx, eventType, t.ID, metadata)
}

func (r *AlertRunner) dispatchEvent(ctx context.Context, eventType string, rules []*alert.Rule, subject alert.Subject) *alert.EventResult {
	result := &alert.EventResult{
		Success:  true,
		TenantID: subject.TenantID(),
		Results:  make([]alert.RuleOutcome, 0, len(rules)),
	}
	for _, rule := range rules {
		result.Results = append(result.Results, alert.RuleOutcome{
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			DispatchResult: r.dispatcher.Dispatch(ctx, rule, subject),
		})
	}

	metrics.RecordEvent(eventType, "dispatched")
	r.logger.WithFields(map[string]interface{}{
		"event_type": eventType,
		"tenant_id":  result.TenantID,
		"rules":      len(rules),
	}).Info("Event alert triggered")

	return result
}

func (r *AlertRunner) tenantNotFound(eventType, key, value string) *alert.EventResult {
	metrics.RecordEvent(eventType, "tenant_not_found")
	r.logger.WithFields(map[string]interface{}{
		"event_type": eventType,
		key:          value,
	}).Warn("Event references unknown tenant")
	return &alert.EventResult{Success: false, Error: alert.ErrTenantNotFound}
}
