package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/domain/notification"
	"github.com/clientflow/alertrunner/internal/domain/tenant"
	"github.com/clientflow/alertrunner/internal/domain/workflow"
	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
)

// Clock returns a func reporting a fixed instant
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// String returns a pointer to v
func String(v string) *string { return &v }

// Time returns a pointer to v
func Time(v time.Time) *time.Time { return &v }

// MockTenantRepository is a mock implementation of tenant.Repository that
// evaluates queries in memory
type MockTenantRepository struct {
	mu       sync.Mutex
	Tenants  map[string]*tenant.Tenant
	order    []string
	Queries  []tenant.Query
	GetError error
	FindErr  error
}

func NewMockTenantRepository(tenants ...*tenant.Tenant) *MockTenantRepository {
	m := &MockTenantRepository{Tenants: make(map[string]*tenant.Tenant)}
	for _, t := range tenants {
		_ = m.Upsert(context.Background(), t)
	}
	return m
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	t, ok := m.Tenants[id]
	if !ok {
		return nil, apperrors.NotFound("Tenant")
	}
	return t, nil
}

func (m *MockTenantRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, id := range m.order {
		if t := m.Tenants[id]; t.StripeCustomerID == customerID {
			return t, nil
		}
	}
	return nil, apperrors.NotFound("Tenant")
}

func (m *MockTenantRepository) Find(ctx context.Context, q tenant.Query) ([]*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, q)
	if m.FindErr != nil {
		return nil, m.FindErr
	}

	statuses := make(map[string]bool, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses[s] = true
	}
	excluded := make(map[string]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}

	var out []*tenant.Tenant
	for _, id := range m.order {
		t := m.Tenants[id]
		if len(statuses) > 0 && !statuses[t.SubscriptionStatus] {
			continue
		}
		if excluded[t.ID] {
			continue
		}
		if q.CreatedBefore != nil && !t.CreatedAt.Before(*q.CreatedBefore) {
			continue
		}
		if q.PeriodEndFrom != nil || q.PeriodEndTo != nil || q.PeriodEndBefore != nil {
			end := t.CurrentPeriodEnd
			if end == nil {
				continue
			}
			if q.PeriodEndFrom != nil && end.Before(*q.PeriodEndFrom) {
				continue
			}
			if q.PeriodEndTo != nil && end.After(*q.PeriodEndTo) {
				continue
			}
			if q.PeriodEndBefore != nil && !end.Before(*q.PeriodEndBefore) {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *MockTenantRepository) Upsert(ctx context.Context, t *tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tenants[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	m.Tenants[t.ID] = t
	return nil
}

// MockActivityRepository is a mock implementation of tenant.ActivityRepository
type MockActivityRepository struct {
	mu         sync.Mutex
	Bookings   map[string][]time.Time
	Contacts   map[string]int
	Err        error
	CountCalls int
}

func NewMockActivityRepository() *MockActivityRepository {
	return &MockActivityRepository{
		Bookings: make(map[string][]time.Time),
		Contacts: make(map[string]int),
	}
}

// AddBookings records n bookings for tenantID created at at
func (m *MockActivityRepository) AddBookings(tenantID string, at time.Time, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.Bookings[tenantID] = append(m.Bookings[tenantID], at)
	}
}

func (m *MockActivityRepository) TenantIDsWithBookingsSince(ctx context.Context, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var ids []string
	for id, dates := range m.Bookings {
		for _, d := range dates {
			if !d.Before(since) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockActivityRepository) CountBookings(ctx context.Context, tenantIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CountCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]int)
	for _, id := range tenantIDs {
		if n := len(m.Bookings[id]); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (m *MockActivityRepository) CountContacts(ctx context.Context, tenantIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CountCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]int)
	for _, id := range tenantIDs {
		if n := m.Contacts[id]; n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

// MockAlertRepository is a mock implementation of alert.Repository
type MockAlertRepository struct {
	mu          sync.Mutex
	Alerts      map[string]*alert.Alert
	order       []string
	NextID      int
	CreateError error
	// FailTenantID limits CreateError to alerts for this tenant when set
	FailTenantID string
	Attempts     []string
	// AfterCreate runs after each stored alert
	AfterCreate func(a *alert.Alert)
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{
		Alerts: make(map[string]*alert.Alert),
		NextID: 1,
	}
}

func (m *MockAlertRepository) Create(ctx context.Context, a *alert.Alert) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, a.TenantID)
	if m.CreateError != nil && (m.FailTenantID == "" || m.FailTenantID == a.TenantID) {
		return "", m.CreateError
	}
	id := fmt.Sprintf("alert-%d", m.NextID)
	m.NextID++
	stored := *a
	stored.ID = id
	m.Alerts[id] = &stored
	m.order = append(m.order, id)
	if m.AfterCreate != nil {
		m.AfterCreate(&stored)
	}
	return id, nil
}

func (m *MockAlertRepository) GetByID(ctx context.Context, tenantID, id string) (*alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Alerts[id]
	if !ok || a.TenantID != tenantID {
		return nil, apperrors.NotFound("Alert")
	}
	return a, nil
}

func (m *MockAlertRepository) ListByTenant(ctx context.Context, tenantID string, filter alert.AlertFilter, limit, offset int) ([]*alert.Alert, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*alert.Alert
	for i := len(m.order) - 1; i >= 0; i-- {
		a := m.Alerts[m.order[i]]
		if a.TenantID != tenantID {
			continue
		}
		if filter.Unread && a.Read {
			continue
		}
		if !filter.IncludeDismissed && a.Dismissed {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		matched = append(matched, a)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []*alert.Alert{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *MockAlertRepository) MarkRead(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Alerts[id]; ok && a.TenantID == tenantID {
		a.Read = true
		return nil
	}
	return apperrors.NotFound("Alert")
}

func (m *MockAlertRepository) Dismiss(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Alerts[id]; ok && a.TenantID == tenantID {
		a.Dismissed = true
		return nil
	}
	return apperrors.NotFound("Alert")
}

// Count returns the number of stored alerts
func (m *MockAlertRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

// MockRuleRepository is a mock implementation of alert.RuleRepository
type MockRuleRepository struct {
	mu          sync.Mutex
	Rules       map[string]*alert.Rule
	order       []string
	NextID      int
	ListError   error
	UpdateError error
	StatsError  error
}

func NewMockRuleRepository(rules ...*alert.Rule) *MockRuleRepository {
	m := &MockRuleRepository{Rules: make(map[string]*alert.Rule), NextID: 1}
	for _, r := range rules {
		if r.ID == "" {
			_, _ = m.Create(context.Background(), r)
			continue
		}
		m.Rules[r.ID] = r
		m.order = append(m.order, r.ID)
	}
	return m
}

func (m *MockRuleRepository) Create(ctx context.Context, r *alert.Rule) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Rules {
		if existing.Name == r.Name {
			return "", apperrors.Conflict("alert rule name already exists")
		}
	}
	id := fmt.Sprintf("rule-%d", m.NextID)
	m.NextID++
	r.ID = id
	m.Rules[id] = r
	m.order = append(m.order, id)
	return id, nil
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id string) (*alert.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Rules[id]
	if !ok {
		return nil, apperrors.NotFound("Alert rule")
	}
	cp := *r
	return &cp, nil
}

func (m *MockRuleRepository) GetByName(ctx context.Context, name string) (*alert.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if m.Rules[id].Name == name {
			cp := *m.Rules[id]
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("Alert rule")
}

func (m *MockRuleRepository) Update(ctx context.Context, r *alert.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Rules[r.ID]; !ok {
		return apperrors.NotFound("Alert rule")
	}
	cp := *r
	m.Rules[r.ID] = &cp
	return nil
}

func (m *MockRuleRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Rules[id]; !ok {
		return apperrors.NotFound("Alert rule")
	}
	delete(m.Rules, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockRuleRepository) List(ctx context.Context) ([]*alert.Rule, error) {
	return m.filter(func(*alert.Rule) bool { return true })
}

func (m *MockRuleRepository) ListActiveSchedule(ctx context.Context) ([]*alert.Rule, error) {
	return m.filter(func(r *alert.Rule) bool {
		return r.Active && r.TriggerType == alert.TriggerSchedule && r.ScheduleType != ""
	})
}

func (m *MockRuleRepository) ListActiveByEvent(ctx context.Context, eventType string) ([]*alert.Rule, error) {
	return m.filter(func(r *alert.Rule) bool {
		return r.Active && r.TriggerType == alert.TriggerEvent && r.EventType == eventType
	})
}

func (m *MockRuleRepository) filter(pred func(*alert.Rule) bool) ([]*alert.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	out := []*alert.Rule{}
	for _, id := range m.order {
		if r := m.Rules[id]; pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockRuleRepository) RecordSent(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatsError != nil {
		return m.StatsError
	}
	r, ok := m.Rules[id]
	if !ok {
		return apperrors.NotFound("Alert rule")
	}
	r.AlertsSent++
	r.LastRunAt = &at
	return nil
}

// MockLogRepository is a mock implementation of alert.LogRepository
type MockLogRepository struct {
	mu          sync.Mutex
	Logs        []*alert.RuleLog
	CreateError error
	// FailStatus limits CreateError to entries with this status when set
	FailStatus  string
	ExistsError error
}

func NewMockLogRepository() *MockLogRepository {
	return &MockLogRepository{}
}

func (m *MockLogRepository) Create(ctx context.Context, l *alert.RuleLog) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil && (m.FailStatus == "" || m.FailStatus == l.Status) {
		return "", m.CreateError
	}
	cp := *l
	cp.ID = fmt.Sprintf("log-%d", len(m.Logs)+1)
	m.Logs = append(m.Logs, &cp)
	return cp.ID, nil
}

func (m *MockLogRepository) ExistsSentSince(ctx context.Context, ruleID, tenantID string, since time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	for _, l := range m.Logs {
		if l.RuleID == ruleID && l.TenantID == tenantID && l.Status == alert.StatusSent && !l.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockLogRepository) CountByRuleSince(ctx context.Context, since time.Time) (map[string]alert.RuleStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]alert.RuleStats)
	for _, l := range m.Logs {
		if l.CreatedAt.Before(since) {
			continue
		}
		s := out[l.RuleID]
		switch l.Status {
		case alert.StatusSent:
			s.Sent++
		case alert.StatusSkipped:
			s.Skipped++
		case alert.StatusFailed:
			s.Failed++
		}
		out[l.RuleID] = s
	}
	return out, nil
}

func (m *MockLogRepository) ListByRule(ctx context.Context, ruleID string, limit int) ([]*alert.RuleLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*alert.RuleLog
	for i := len(m.Logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.Logs[i].RuleID == ruleID {
			out = append(out, m.Logs[i])
		}
	}
	return out, nil
}

func (m *MockLogRepository) DeleteByRule(ctx context.Context, ruleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Logs[:0]
	for _, l := range m.Logs {
		if l.RuleID != ruleID {
			kept = append(kept, l)
		}
	}
	m.Logs = kept
	return nil
}

// ByStatus returns the entries with the given status
func (m *MockLogRepository) ByStatus(status string) []*alert.RuleLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*alert.RuleLog
	for _, l := range m.Logs {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

// MockNotifier is a mock implementation of notification.Service and
// notification.Sender. Block, when set, holds every Send until closed.
type MockNotifier struct {
	mu      sync.Mutex
	Sent    []*notification.Notification
	Err     error
	Panic   bool
	Block   chan struct{}
	Kind    notification.Channel
	Started chan struct{}
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Kind: notification.ChannelWebhook}
}

func (m *MockNotifier) Send(ctx context.Context, n *notification.Notification) error {
	if m.Started != nil {
		m.Started <- struct{}{}
	}
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.Panic {
		panic("notifier exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
	return m.Err
}

func (m *MockNotifier) Channel() notification.Channel {
	return m.Kind
}

// Count returns the number of completed sends
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockClaimer is a mock implementation of alert.CooldownClaimer
type MockClaimer struct {
	mu       sync.Mutex
	Held     map[string]bool
	Err      error
	Released []string
}

func NewMockClaimer() *MockClaimer {
	return &MockClaimer{Held: make(map[string]bool)}
}

func (m *MockClaimer) Claim(ctx context.Context, ruleID, tenantID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	key := ruleID + ":" + tenantID
	if m.Held[key] {
		return false, nil
	}
	m.Held[key] = true
	return true, nil
}

func (m *MockClaimer) Release(ctx context.Context, ruleID, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ruleID + ":" + tenantID
	delete(m.Held, key)
	m.Released = append(m.Released, key)
	return nil
}

// MockWorkflowRepository is a mock implementation of workflow.Repository
type MockWorkflowRepository struct {
	Workflows   map[string]*workflow.Workflow
	order       []string
	NextID      int
	CreateError error
	// FailName limits CreateError to the workflow with this name when set
	FailName    string
	UpdateCalls int
}

func NewMockWorkflowRepository() *MockWorkflowRepository {
	return &MockWorkflowRepository{Workflows: make(map[string]*workflow.Workflow), NextID: 1}
}

func (m *MockWorkflowRepository) Create(ctx context.Context, w *workflow.Workflow) (string, error) {
	if m.CreateError != nil && (m.FailName == "" || m.FailName == w.Name) {
		return "", m.CreateError
	}
	id := fmt.Sprintf("wf-%d", m.NextID)
	m.NextID++
	cp := *w
	cp.ID = id
	m.Workflows[id] = &cp
	m.order = append(m.order, id)
	return id, nil
}

func (m *MockWorkflowRepository) Update(ctx context.Context, w *workflow.Workflow) error {
	if _, ok := m.Workflows[w.ID]; !ok {
		return apperrors.NotFound("Workflow")
	}
	m.UpdateCalls++
	cp := *w
	m.Workflows[w.ID] = &cp
	return nil
}

func (m *MockWorkflowRepository) GetBySystemKey(ctx context.Context, tenantID, systemKey string) (*workflow.Workflow, error) {
	for _, id := range m.order {
		if w := m.Workflows[id]; w.TenantID == tenantID && w.SystemKey == systemKey {
			cp := *w
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("Workflow")
}

func (m *MockWorkflowRepository) GetByName(ctx context.Context, tenantID, name string) (*workflow.Workflow, error) {
	for _, id := range m.order {
		if w := m.Workflows[id]; w.TenantID == tenantID && w.Name == name {
			cp := *w
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("Workflow")
}

func (m *MockWorkflowRepository) ListByTenant(ctx context.Context, tenantID string) ([]*workflow.Workflow, error) {
	var out []*workflow.Workflow
	for _, id := range m.order {
		if w := m.Workflows[id]; w.TenantID == tenantID {
			out = append(out, w)
		}
	}
	return out, nil
}

// Insert stores w as-is, bypassing Create
func (m *MockWorkflowRepository) Insert(w *workflow.Workflow) {
	if w.ID == "" {
		w.ID = fmt.Sprintf("wf-%d", m.NextID)
		m.NextID++
	}
	m.Workflows[w.ID] = w
	m.order = append(m.order, w.ID)
}

// MockTemplateRepository is a mock implementation of workflow.TemplateRepository
type MockTemplateRepository struct {
	Templates []*workflow.EmailTemplate
	Err       error
}

func (m *MockTemplateRepository) ListByTenant(ctx context.Context, tenantID string) ([]*workflow.EmailTemplate, error) {
	return m.Templates, m.Err
}

// MockTagRepository is a mock implementation of workflow.TagRepository
type MockTagRepository struct {
	Tags []*workflow.Tag
	Err  error
}

func (m *MockTagRepository) ListByTenant(ctx context.Context, tenantID string) ([]*workflow.Tag, error) {
	return m.Tags, m.Err
}
