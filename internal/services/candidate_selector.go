package services

import (
	"context"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/domain/tenant"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
)

// InactivityWindow is the look-back used by inactive_30_days
const InactivityWindow = 30

// CandidateSelector implements alert.CandidateSelector
type CandidateSelector struct {
	tenants  tenant.Repository
	activity tenant.ActivityRepository
	now      func() time.Time
	loc      *time.Location
	timeout  time.Duration
	logger   *logger.Logger
}

// NewCandidateSelector creates a selector. Day windows are computed in loc.
func NewCandidateSelector(
	tenants tenant.Repository,
	activity tenant.ActivityRepository,
	now func() time.Time,
	loc *time.Location,
	timeout time.Duration,
	log *logger.Logger,
) alert.CandidateSelector {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CandidateSelector{
		tenants:  tenants,
		activity: activity,
		now:      now,
		loc:      loc,
		timeout:  timeout,
		logger:   log,
	}
}

// SelectForScheduleType returns the tenants matching scheduleType right now.
// Unknown schedule types match nobody.
func (s *CandidateSelector) SelectForScheduleType(ctx context.Context, scheduleType string) ([]*tenant.Tenant, error) {
	now := s.now().In(s.loc)

	switch scheduleType {
	case alert.ScheduleTrialExpiring7Days:
		return s.periodEndingOn(ctx, tenant.StatusTrialing, now, 7)
	case alert.ScheduleTrialExpiring3Days:
		return s.periodEndingOn(ctx, tenant.StatusTrialing, now, 3)
	case alert.ScheduleTrialExpiring1Day:
		return s.periodEndingOn(ctx, tenant.StatusTrialing, now, 1)
	case alert.ScheduleSubscriptionExpiring7Days:
		return s.periodEndingOn(ctx, tenant.StatusActive, now, 7)
	case alert.ScheduleTrialExpired:
		return s.find(ctx, tenant.Query{
			Statuses:        []string{tenant.StatusTrialing},
			PeriodEndBefore: &now,
		})
	case alert.SchedulePaymentPastDue:
		return s.find(ctx, tenant.Query{Statuses: []string{tenant.StatusPastDue}})
	case alert.ScheduleInactive30Days:
		return s.inactive(ctx, now)
	default:
		s.logger.With("schedule_type", scheduleType).Warn("Unknown schedule type, no candidates selected")
		return []*tenant.Tenant{}, nil
	}
}

// periodEndingOn selects tenants in status whose period ends on the calendar
// day days after today, inclusive at both ends.
func (s *CandidateSelector) periodEndingOn(ctx context.Context, status string, now time.Time, days int) ([]*tenant.Tenant, error) {
	start, end := DayWindow(now, days)
	return s.find(ctx, tenant.Query{
		Statuses:      []string{status},
		PeriodEndFrom: &start,
		PeriodEndTo:   &end,
	})
}

// inactive selects active or trialing tenants older than the window with no
// booking created inside it.
func (s *CandidateSelector) inactive(ctx context.Context, now time.Time) ([]*tenant.Tenant, error) {
	since := now.AddDate(0, 0, -InactivityWindow)

	var recent []string
	err := withTimeout(ctx, s.timeout, "booking activity lookup", func(ctx context.Context) error {
		var err error
		recent, err = s.activity.TenantIDsWithBookingsSince(ctx, since)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.find(ctx, tenant.Query{
		Statuses:      []string{tenant.StatusActive, tenant.StatusTrialing},
		CreatedBefore: &since,
		ExcludeIDs:    recent,
	})
}

func (s *CandidateSelector) find(ctx context.Context, q tenant.Query) ([]*tenant.Tenant, error) {
	var out []*tenant.Tenant
	err := withTimeout(ctx, s.timeout, "tenant lookup", func(ctx context.Context) error {
		var err error
		out, err = s.tenants.Find(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*tenant.Tenant{}
	}
	return out, nil
}

// DayWindow returns the first and last instant of the calendar day offset
// days from now, in now's location.
func DayWindow(now time.Time, days int) (time.Time, time.Time) {
	d := now.AddDate(0, 0, days)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
