package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/domain/notification"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/metrics"
)

// Skip reasons reported in DispatchResult.Reason
const (
	ReasonCooldown = "cooldown"
	ReasonInFlight = "in_flight"
)

// AlertDispatcher implements alert.Dispatcher
type AlertDispatcher struct {
	alerts   alert.Repository
	rules    alert.RuleRepository
	logs     alert.LogRepository
	gate     alert.CooldownGate
	claimer  alert.CooldownClaimer
	renderer *PlaceholderRenderer
	notifier notification.Service
	logger   *logger.Logger
	now      func() time.Time

	repoTimeout   time.Duration
	notifyTimeout time.Duration

	inflight sync.WaitGroup
}

// DispatcherOption configures an AlertDispatcher
type DispatcherOption func(*AlertDispatcher)

// WithCooldownClaimer adds a shared claim taken before the synchronous path
func WithCooldownClaimer(c alert.CooldownClaimer) DispatcherOption {
	return func(d *AlertDispatcher) { d.claimer = c }
}

// WithDispatchTimeouts sets the per-repository-call and notification deadlines
func WithDispatchTimeouts(repo, notify time.Duration) DispatcherOption {
	return func(d *AlertDispatcher) {
		d.repoTimeout = repo
		d.notifyTimeout = notify
	}
}

// WithDispatchClock overrides the clock used for log and alert timestamps
func WithDispatchClock(now func() time.Time) DispatcherOption {
	return func(d *AlertDispatcher) { d.now = now }
}

// NewAlertDispatcher creates a dispatcher. notifier may be nil.
func NewAlertDispatcher(
	alerts alert.Repository,
	rules alert.RuleRepository,
	logs alert.LogRepository,
	gate alert.CooldownGate,
	renderer *PlaceholderRenderer,
	notifier notification.Service,
	log *logger.Logger,
	opts ...DispatcherOption,
) alert.Dispatcher {
	d := &AlertDispatcher{
		alerts:        alerts,
		rules:         rules,
		logs:          logs,
		gate:          gate,
		renderer:      renderer,
		notifier:      notifier,
		logger:        log,
		now:           time.Now,
		repoTimeout:   5 * time.Second,
		notifyTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch creates an alert for subject unless the pair is in cooldown. Only
// sent and failed attempts are logged.
func (d *AlertDispatcher) Dispatch(ctx context.Context, rule *alert.Rule, subject alert.Subject) (result alert.DispatchResult) {
	tenantID := subject.TenantID()
	log := d.logger.WithFields(map[string]interface{}{
		"rule_id":   rule.ID,
		"tenant_id": tenantID,
	})

	defer func() {
		if r := recover(); r != nil {
			result = d.fail(ctx, rule, tenantID, fmt.Errorf("panic during dispatch: %v", r))
		}
		metrics.RecordDispatch(rule.TriggerType, result.Status)
	}()

	var recent bool
	err := withTimeout(ctx, d.repoTimeout, "cooldown check", func(ctx context.Context) error {
		var err error
		recent, err = d.gate.WasRecentlySent(ctx, rule.ID, tenantID, rule.CooldownHours)
		return err
	})
	if err != nil {
		return d.fail(ctx, rule, tenantID, fmt.Errorf("cooldown check: %w", err))
	}
	if recent {
		log.Debug("Alert suppressed by cooldown")
		return alert.DispatchResult{Status: alert.StatusSkipped, Reason: ReasonCooldown}
	}

	claimed := false
	if d.claimer != nil && rule.CooldownHours > 0 {
		ok, err := d.claimer.Claim(ctx, rule.ID, tenantID, alert.CooldownWindow(rule.CooldownHours))
		switch {
		case err != nil:
			log.WithError(err).Warn("Cooldown claim unavailable, continuing without it")
		case !ok:
			log.Debug("Alert already being dispatched elsewhere")
			return alert.DispatchResult{Status: alert.StatusSkipped, Reason: ReasonInFlight}
		default:
			claimed = true
		}
	}

	created, err := d.persist(ctx, rule, subject)
	if err != nil {
		if claimed {
			if relErr := d.claimer.Release(context.WithoutCancel(ctx), rule.ID, tenantID); relErr != nil {
				log.WithError(relErr).Warn("Failed to release cooldown claim")
			}
		}
		return d.fail(ctx, rule, tenantID, err)
	}

	d.notifyAsync(created)

	log.WithFields(map[string]interface{}{
		"alert_id": created.ID,
		"status":   alert.StatusSent,
	}).Info("Alert dispatched")

	return alert.DispatchResult{Status: alert.StatusSent, AlertID: created.ID}
}

// persist runs the synchronous path: create the alert, log it as sent and
// bump the rule statistics. Once the alert row exists the remaining writes
// ignore cancellation of ctx so the log reflects what was stored.
//
// A stats failure after the sent entry is written still fails the dispatch,
// so that attempt ends with a sent entry followed by a failed one.
func (d *AlertDispatcher) persist(ctx context.Context, rule *alert.Rule, subject alert.Subject) (*alert.Alert, error) {
	now := d.now()
	a := &alert.Alert{
		TenantID:    subject.TenantID(),
		Type:        rule.AlertType(),
		Severity:    rule.Severity,
		Title:       d.renderer.Render(rule.TitleTemplate, subject),
		Message:     d.renderer.Render(rule.MessageTemplate, subject),
		ActionURL:   d.renderer.Render(rule.ActionURL, subject),
		ActionLabel: rule.ActionLabel,
		CreatedAt:   now,
	}

	err := withTimeout(ctx, d.repoTimeout, "alert create", func(ctx context.Context) error {
		id, err := d.alerts.Create(ctx, a)
		a.ID = id
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	ctx = context.WithoutCancel(ctx)

	err = withTimeout(ctx, d.repoTimeout, "rule log create", func(ctx context.Context) error {
		_, err := d.logs.Create(ctx, &alert.RuleLog{
			RuleID:    rule.ID,
			TenantID:  a.TenantID,
			AlertID:   a.ID,
			Status:    alert.StatusSent,
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("log sent alert: %w", err)
	}

	err = withTimeout(ctx, d.repoTimeout, "rule stats update", func(ctx context.Context) error {
		return d.rules.RecordSent(ctx, rule.ID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("update rule stats: %w", err)
	}

	return a, nil
}

// fail writes a failed log entry and reports the failure as data. A failure
// to write the log entry is logged and otherwise ignored.
func (d *AlertDispatcher) fail(ctx context.Context, rule *alert.Rule, tenantID string, cause error) alert.DispatchResult {
	d.logger.WithFields(map[string]interface{}{
		"rule_id":   rule.ID,
		"tenant_id": tenantID,
		"status":    alert.StatusFailed,
	}).ErrorWithErr(cause, "Alert dispatch failed")

	// The caller's context may already be the reason for the failure
	logCtx := context.WithoutCancel(ctx)
	err := withTimeout(logCtx, d.repoTimeout, "rule log create", func(ctx context.Context) error {
		_, err := d.logs.Create(ctx, &alert.RuleLog{
			RuleID:    rule.ID,
			TenantID:  tenantID,
			Status:    alert.StatusFailed,
			Error:     cause.Error(),
			CreatedAt: d.now(),
		})
		return err
	})
	if err != nil {
		d.logger.WithFields(map[string]interface{}{
			"rule_id":   rule.ID,
			"tenant_id": tenantID,
		}).ErrorWithErr(err, "Failed to record failed dispatch")
	}

	return alert.DispatchResult{Status: alert.StatusFailed, Error: cause.Error()}
}

// notifyAsync hands the alert to the notifier on its own goroutine. Delivery
// errors and panics are logged there and never reach the dispatch result.
func (d *AlertDispatcher) notifyAsync(a *alert.Alert) {
	if d.notifier == nil {
		return
	}

	n := &notification.Notification{
		AlertID:     a.ID,
		TenantID:    a.TenantID,
		Type:        a.Type,
		Severity:    a.Severity,
		Title:       a.Title,
		Message:     a.Message,
		ActionURL:   a.ActionURL,
		ActionLabel: a.ActionLabel,
		CreatedAt:   a.CreatedAt,
	}

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		log := d.logger.WithFields(map[string]interface{}{
			"alert_id":  n.AlertID,
			"tenant_id": n.TenantID,
		})
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("Notification sender panicked: %v", r)
			}
		}()

		ctx := context.Background()
		if d.notifyTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.notifyTimeout)
			defer cancel()
		}

		if err := d.notifier.Send(ctx, n); err != nil {
			log.ErrorWithErr(err, "Failed to send alert notification")
		}
	}()
}

// Drain waits for in-flight notifications or until ctx is done
func (d *AlertDispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
