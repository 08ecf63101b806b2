package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Token: "test-token"})
}

func writeEnvelope(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestClient_RulesList(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/alert-rules" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":[
			{"id":"r1","name":"Trial ending","triggerType":"schedule","alertTitle":"t","alertMessage":"m","recentStats":{"sent":3,"skipped":1,"failed":0}}
		]}`)
	})

	rules, err := c.Rules().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	if rules[0].ID != "r1" || rules[0].Name != "Trial ending" {
		t.Errorf("rule = %+v", rules[0].Rule)
	}
	if rules[0].RecentStats.Sent != 3 {
		t.Errorf("sent = %d, want 3", rules[0].RecentStats.Sent)
	}
}

func TestClient_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(*APIError) bool
		code   string
	}{
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   `{"success":false,"error":{"code":"CONFLICT","message":"Rule name already exists"}}`,
			check:  (*APIError).IsConflict,
			code:   "CONFLICT",
		},
		{
			name:   "not found with details",
			status: http.StatusNotFound,
			body:   `{"success":false,"error":{"code":"NOT_FOUND","message":"Tenant not found","details":{"success":false}}}`,
			check:  (*APIError).IsNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "plain text body",
			status: http.StatusBadGateway,
			body:   `bad gateway`,
			check:  (*APIError).IsServerError,
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"success":false,"error":{"code":"RATE_LIMITED","message":"Too many requests"}}`,
			check:  (*APIError).IsRateLimited,
			code:   "RATE_LIMITED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, tt.body)
			})

			_, err := c.Rules().Get(context.Background(), "r1")
			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("error = %v (%T), want *APIError", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if !tt.check(apiErr) {
				t.Errorf("status predicate false for %v", apiErr)
			}
			if apiErr.Code != tt.code {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.code)
			}
		})
	}
}

func TestClient_TriggerEvent(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/alerts/events" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var e Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if e.EventType != "payment_failed" || e.StripeCustomerID != "cus_1" {
			t.Errorf("event = %+v", e)
		}
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"success":true,"tenantId":"t1",
			"results":[{"ruleId":"r1","ruleName":"Payment failed","status":"sent","alertId":"a1"}]}}`)
	})

	result, err := c.TriggerEvent(context.Background(), Event{EventType: "payment_failed", StripeCustomerID: "cus_1"})
	if err != nil {
		t.Fatalf("TriggerEvent() error = %v", err)
	}
	if !result.Success || result.TenantID != "t1" {
		t.Errorf("result = %+v", result)
	}
	if len(result.Results) != 1 || result.Results[0].Status != "sent" || result.Results[0].AlertID != "a1" {
		t.Errorf("results = %+v", result.Results)
	}
}

func TestAlertService_List(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tenants/t1/alerts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("unread") != "true" || q.Get("pageSize") != "5" || q.Get("severity") != "critical" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if q.Has("includeDismissed") {
			t.Error("includeDismissed should be omitted when false")
		}
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"data":[{"id":"a1","severity":"critical","title":"x","message":"y","read":false,"dismissed":false}],
			"page":1,"pageSize":5,"totalItems":1,"totalPages":1}}`)
	})

	page, err := c.Alerts().List(context.Background(), "t1", &AlertListOptions{
		ListOptions: ListOptions{PageSize: 5},
		Unread:      true,
		Severity:    "critical",
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.TotalItems != 1 || len(page.Data) != 1 || page.Data[0].ID != "a1" {
		t.Errorf("page = %+v", page)
	}
}

func TestAlertService_MarkReadAndDismiss(t *testing.T) {
	var paths []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeEnvelope(w, http.StatusOK, `{"success":true,"message":"ok"}`)
	})

	ctx := context.Background()
	if err := c.Alerts().MarkRead(ctx, "t1", "a1"); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if err := c.Alerts().Dismiss(ctx, "t1", "a1"); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}

	want := []string{"POST /api/v1/tenants/t1/alerts/a1/read", "POST /api/v1/tenants/t1/alerts/a1/dismiss"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestClient_Ready(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, `{"success":true,"data":{"status":"ready","database":"connected","scheduler":"running"}}`)
	})

	h, err := c.Ready(context.Background())
	if err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
	if h.Scheduler != "running" {
		t.Errorf("scheduler = %q", h.Scheduler)
	}
}
