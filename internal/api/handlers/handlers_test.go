package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clientflow/alertrunner/internal/api/middleware"
	"github.com/clientflow/alertrunner/internal/auth"
	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/validator"
	"github.com/clientflow/alertrunner/internal/services"
	"github.com/clientflow/alertrunner/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

// withParams attaches chi URL params and claims to req
func withParams(req *http.Request, claims *auth.Claims, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if claims != nil {
		ctx = middleware.WithClaims(ctx, claims)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if v != nil {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
}

func newRuleHandler(t *testing.T) (*RuleHandler, *testutil.MockRuleRepository) {
	t.Helper()
	v, err := services.NewRuleValidator()
	if err != nil {
		t.Fatalf("NewRuleValidator() error = %v", err)
	}
	rules := testutil.NewMockRuleRepository()
	service := services.NewRuleService(rules, testutil.NewMockLogRepository(), v, testLogger())
	return NewRuleHandler(service, testLogger()), rules
}

func TestRuleHandler_Create(t *testing.T) {
	handler, rules := newRuleHandler(t)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		wantCooldown   int
		wantActive     bool
	}{
		{
			name:           "schedule rule with defaults",
			body:           `{"name":"Trial 3 days","triggerType":"schedule","scheduleType":"trial_expiring_3_days","alertTitle":"Trial ending","alertMessage":"{{daysRemaining}} days left"}`,
			expectedStatus: http.StatusCreated,
			wantCooldown:   24,
			wantActive:     true,
		},
		{
			name:           "event rule with explicit cooldown",
			body:           `{"name":"Payment failed","triggerType":"event","eventType":"payment_failed","alertTitle":"Payment failed","alertMessage":"Update your card","cooldownHours":0,"active":false}`,
			expectedStatus: http.StatusCreated,
			wantCooldown:   0,
			wantActive:     false,
		},
		{
			name:           "unknown schedule type",
			body:           `{"name":"Bad","triggerType":"schedule","scheduleType":"someday","alertTitle":"x","alertMessage":"y"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown field",
			body:           `{"name":"Bad","color":"red"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duplicate name",
			body:           `{"name":"Trial 3 days","triggerType":"schedule","scheduleType":"trial_expiring_3_days","alertTitle":"x","alertMessage":"y"}`,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/alert-rules", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			handler.Create(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if rr.Code != http.StatusCreated {
				return
			}

			var created struct {
				ID string `json:"id"`
			}
			decodeData(t, rr, &created)
			rule, err := rules.GetByID(context.Background(), created.ID)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if rule.CooldownHours != tt.wantCooldown || rule.Active != tt.wantActive {
				t.Errorf("stored rule cooldown=%d active=%v, want %d %v", rule.CooldownHours, rule.Active, tt.wantCooldown, tt.wantActive)
			}
			if rule.Severity != alert.SeverityWarning {
				t.Errorf("stored rule severity = %q, want warning", rule.Severity)
			}
		})
	}
}

func TestRuleHandler_GetUpdateDelete(t *testing.T) {
	handler, rules := newRuleHandler(t)
	id, err := rules.Create(context.Background(), &alert.Rule{
		Name:            "Inactive",
		TriggerType:     alert.TriggerSchedule,
		ScheduleType:    alert.ScheduleInactive30Days,
		Severity:        alert.SeverityInfo,
		TitleTemplate:   "We miss you",
		MessageTemplate: "Come back",
		CooldownHours:   24,
		Active:          true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name           string
		method         string
		id             string
		body           string
		call           func(http.ResponseWriter, *http.Request)
		expectedStatus int
	}{
		{name: "get existing", method: http.MethodGet, id: id, call: handler.Get, expectedStatus: http.StatusOK},
		{name: "get missing", method: http.MethodGet, id: "nope", call: handler.Get, expectedStatus: http.StatusNotFound},
		{name: "update severity", method: http.MethodPatch, id: id, body: `{"severity":"critical"}`, call: handler.Update, expectedStatus: http.StatusOK},
		{name: "update invalid severity", method: http.MethodPatch, id: id, body: `{"severity":"loud"}`, call: handler.Update, expectedStatus: http.StatusBadRequest},
		{name: "update missing", method: http.MethodPatch, id: "nope", body: `{"active":false}`, call: handler.Update, expectedStatus: http.StatusNotFound},
		{name: "logs", method: http.MethodGet, id: id, call: handler.Logs, expectedStatus: http.StatusOK},
		{name: "delete", method: http.MethodDelete, id: id, call: handler.Delete, expectedStatus: http.StatusOK},
		{name: "get deleted", method: http.MethodGet, id: id, call: handler.Get, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/alert-rules/"+tt.id, strings.NewReader(tt.body))
			req = withParams(req, nil, map[string]string{"id": tt.id})
			rr := httptest.NewRecorder()

			tt.call(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
		})
	}
}

func TestRuleHandler_LogsLimit(t *testing.T) {
	handler, rules := newRuleHandler(t)
	id, err := rules.Create(context.Background(), &alert.Rule{Name: "Any", TriggerType: alert.TriggerEvent, EventType: alert.EventPaymentFailed})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name           string
		query          string
		expectedStatus int
	}{
		{name: "default", expectedStatus: http.StatusOK},
		{name: "explicit", query: "?limit=10", expectedStatus: http.StatusOK},
		{name: "zero", query: "?limit=0", expectedStatus: http.StatusBadRequest},
		{name: "not a number", query: "?limit=ten", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/alert-rules/"+id+"/logs"+tt.query, nil)
			req = withParams(req, nil, map[string]string{"id": id})
			rr := httptest.NewRecorder()

			handler.Logs(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestRuleHandler_SeedAndOptions(t *testing.T) {
	handler, _ := newRuleHandler(t)

	var first, second struct {
		Created int `json:"created"`
		Existed int `json:"existed"`
	}

	rr := httptest.NewRecorder()
	handler.Seed(rr, httptest.NewRequest(http.MethodPost, "/api/v1/alert-rules/seed", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Seed() status = %v", rr.Code)
	}
	decodeData(t, rr, &first)

	rr = httptest.NewRecorder()
	handler.Seed(rr, httptest.NewRequest(http.MethodPost, "/api/v1/alert-rules/seed", nil))
	decodeData(t, rr, &second)

	if first.Created == 0 || first.Existed != 0 {
		t.Errorf("first seed = %+v, want all created", first)
	}
	if second.Created != 0 || second.Existed != first.Created {
		t.Errorf("second seed = %+v, want all existing", second)
	}

	rr = httptest.NewRecorder()
	handler.Options(rr, httptest.NewRequest(http.MethodGet, "/api/v1/alert-rules/options", nil))
	var opts alert.Options
	decodeData(t, rr, &opts)
	if len(opts.ScheduleTypes) == 0 || len(opts.EventTypes) == 0 {
		t.Errorf("Options() = %+v", opts)
	}
}

type stubRunner struct {
	summary *alert.RunSummary
	result  *alert.EventResult
	err     error
	lastEvt string
	lastKey string
}

func (r *stubRunner) RunScheduled(ctx context.Context) (*alert.RunSummary, error) {
	return r.summary, r.err
}

func (r *stubRunner) TriggerEvent(ctx context.Context, eventType, tenantID string, metadata map[string]interface{}) (*alert.EventResult, error) {
	r.lastEvt, r.lastKey = eventType, "tenant:"+tenantID
	return r.result, r.err
}

func (r *stubRunner) TriggerEventByStripeCustomer(ctx context.Context, eventType, customerID string, metadata map[string]interface{}) (*alert.EventResult, error) {
	r.lastEvt, r.lastKey = eventType, "customer:"+customerID
	return r.result, r.err
}

func TestRunHandler_RunScheduled(t *testing.T) {
	tests := []struct {
		name           string
		runner         *stubRunner
		expectedStatus int
	}{
		{
			name:           "completed",
			runner:         &stubRunner{summary: &alert.RunSummary{RulesProcessed: 2, AlertsSent: 3}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "interrupted keeps partial summary",
			runner:         &stubRunner{summary: &alert.RunSummary{RulesProcessed: 1}, err: context.DeadlineExceeded},
			expectedStatus: http.StatusGatewayTimeout,
		},
		{
			name:           "rules could not load",
			runner:         &stubRunner{err: errors.New("db down")},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRunHandler(tt.runner, testLogger(), validator.New(), time.Minute)
			rr := httptest.NewRecorder()

			handler.RunScheduled(rr, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/run", nil))

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if tt.runner.summary != nil && !bytes.Contains(rr.Body.Bytes(), []byte(`"rulesProcessed"`)) {
				t.Errorf("response missing summary: %s", rr.Body.String())
			}
		})
	}
}

func TestRunHandler_TriggerEvent(t *testing.T) {
	ok := &alert.EventResult{Success: true, TenantID: "t1"}
	notFound := &alert.EventResult{Success: false, Error: alert.ErrTenantNotFound}

	tests := []struct {
		name           string
		body           string
		result         *alert.EventResult
		err            error
		expectedStatus int
		wantKey        string
	}{
		{name: "by tenant", body: `{"eventType":"payment_failed","tenantId":"t1"}`, result: ok, expectedStatus: http.StatusOK, wantKey: "tenant:t1"},
		{name: "by customer", body: `{"eventType":"payment_failed","stripeCustomerId":"cus_1"}`, result: ok, expectedStatus: http.StatusOK, wantKey: "customer:cus_1"},
		{name: "unknown tenant", body: `{"eventType":"payment_failed","tenantId":"ghost"}`, result: notFound, expectedStatus: http.StatusNotFound, wantKey: "tenant:ghost"},
		{name: "missing subject", body: `{"eventType":"payment_failed"}`, expectedStatus: http.StatusBadRequest},
		{name: "missing type", body: `{"tenantId":"t1"}`, expectedStatus: http.StatusBadRequest},
		{name: "runner failure", body: `{"eventType":"payment_failed","tenantId":"t1"}`, err: errors.New("db down"), expectedStatus: http.StatusInternalServerError, wantKey: "tenant:t1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{result: tt.result, err: tt.err}
			handler := NewRunHandler(runner, testLogger(), validator.New(), 0)
			rr := httptest.NewRecorder()

			handler.TriggerEvent(rr, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/events", strings.NewReader(tt.body)))

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if runner.lastKey != tt.wantKey {
				t.Errorf("runner routed to %q, want %q", runner.lastKey, tt.wantKey)
			}
		})
	}
}

func TestInboxHandler(t *testing.T) {
	repo := testutil.NewMockAlertRepository()
	ctx := context.Background()
	own, _ := repo.Create(ctx, &alert.Alert{TenantID: "t1", Title: "Trial ending", Severity: alert.SeverityWarning})
	repo.Create(ctx, &alert.Alert{TenantID: "t1", Title: "Payment failed", Severity: alert.SeverityCritical})
	foreign, _ := repo.Create(ctx, &alert.Alert{TenantID: "t2", Title: "Other"})

	handler := NewInboxHandler(services.NewInboxService(repo, testLogger()), testLogger())
	tenant1 := &auth.Claims{Role: auth.RoleTenant, TenantID: "t1"}
	admin := &auth.Claims{Role: auth.RoleAdmin}

	tests := []struct {
		name           string
		method         string
		query          string
		claims         *auth.Claims
		params         map[string]string
		call           func(http.ResponseWriter, *http.Request)
		expectedStatus int
		expectedCount  int
	}{
		{name: "list own", method: http.MethodGet, claims: tenant1, params: map[string]string{"tenantId": "t1"}, call: handler.List, expectedStatus: http.StatusOK, expectedCount: 2},
		{name: "list by severity", method: http.MethodGet, query: "?severity=critical", claims: tenant1, params: map[string]string{"tenantId": "t1"}, call: handler.List, expectedStatus: http.StatusOK, expectedCount: 1},
		{name: "admin lists any", method: http.MethodGet, claims: admin, params: map[string]string{"tenantId": "t2"}, call: handler.List, expectedStatus: http.StatusOK, expectedCount: 1},
		{name: "list foreign", method: http.MethodGet, claims: tenant1, params: map[string]string{"tenantId": "t2"}, call: handler.List, expectedStatus: http.StatusForbidden},
		{name: "mark read", method: http.MethodPost, claims: tenant1, params: map[string]string{"tenantId": "t1", "id": own}, call: handler.MarkRead, expectedStatus: http.StatusOK},
		{name: "list unread", method: http.MethodGet, query: "?unread=true", claims: tenant1, params: map[string]string{"tenantId": "t1"}, call: handler.List, expectedStatus: http.StatusOK, expectedCount: 1},
		{name: "dismiss another tenant's alert", method: http.MethodPost, claims: tenant1, params: map[string]string{"tenantId": "t1", "id": foreign}, call: handler.Dismiss, expectedStatus: http.StatusNotFound},
		{name: "dismiss", method: http.MethodPost, claims: tenant1, params: map[string]string{"tenantId": "t1", "id": own}, call: handler.Dismiss, expectedStatus: http.StatusOK},
		{name: "dismissed hidden", method: http.MethodGet, claims: tenant1, params: map[string]string{"tenantId": "t1"}, call: handler.List, expectedStatus: http.StatusOK, expectedCount: 1},
		{name: "dismissed included", method: http.MethodGet, query: "?includeDismissed=1", claims: tenant1, params: map[string]string{"tenantId": "t1"}, call: handler.List, expectedStatus: http.StatusOK, expectedCount: 2},
		{name: "no claims", method: http.MethodGet, params: map[string]string{"tenantId": "t1"}, call: handler.List, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/tenants/x/alerts"+tt.query, nil)
			req = withParams(req, tt.claims, tt.params)
			rr := httptest.NewRecorder()

			tt.call(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.call == nil || rr.Code != http.StatusOK || tt.method != http.MethodGet {
				return
			}
			var page struct {
				Data       []map[string]interface{} `json:"data"`
				TotalItems int64                    `json:"totalItems"`
			}
			decodeData(t, rr, &page)
			if len(page.Data) != tt.expectedCount || page.TotalItems != int64(tt.expectedCount) {
				t.Errorf("List() returned %d items (total %d), want %d", len(page.Data), page.TotalItems, tt.expectedCount)
			}
		})
	}
}

func TestWorkflowHandler(t *testing.T) {
	workflows := testutil.NewMockWorkflowRepository()
	service := services.NewWorkflowService(workflows, &testutil.MockTemplateRepository{}, &testutil.MockTagRepository{}, testLogger())
	handler := NewWorkflowHandler(service, testLogger())
	admin := &auth.Claims{Role: auth.RoleAdmin}

	rr := httptest.NewRecorder()
	req := withParams(httptest.NewRequest(http.MethodPost, "/api/v1/tenants/t1/workflows/defaults", nil), admin, map[string]string{"tenantId": "t1"})
	handler.ProvisionDefaults(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("ProvisionDefaults() status = %v (%s)", rr.Code, rr.Body.String())
	}
	var result struct {
		Created  []map[string]interface{} `json:"created"`
		Warnings []string                 `json:"warnings"`
	}
	decodeData(t, rr, &result)
	if len(result.Created) == 0 {
		t.Error("ProvisionDefaults() created no workflows")
	}
	if len(result.Warnings) == 0 {
		t.Error("ProvisionDefaults() reported no warnings for an empty inventory")
	}

	rr = httptest.NewRecorder()
	req = withParams(httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/workflows", nil), admin, map[string]string{"tenantId": "t1"})
	handler.List(rr, req)
	var listed []map[string]interface{}
	decodeData(t, rr, &listed)
	if len(listed) != len(result.Created) {
		t.Errorf("List() = %d workflows, want %d", len(listed), len(result.Created))
	}

	rr = httptest.NewRecorder()
	req = withParams(httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/workflows", nil),
		&auth.Claims{Role: auth.RoleTenant, TenantID: "t2"}, map[string]string{"tenantId": "t1"})
	handler.List(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("List() for a foreign tenant status = %v, want 403", rr.Code)
	}
}
