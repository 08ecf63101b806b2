package services

import (
	"strings"
	"testing"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/domain/tenant"
	"github.com/clientflow/alertrunner/internal/testutil"
)

func TestPlaceholderRenderer_Render(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	renderer := NewPlaceholderRenderer(testutil.Clock(now), time.UTC)

	acme := &tenant.Tenant{
		ID:               "t1",
		Name:             "acme",
		BusinessName:     "Acme",
		Email:            "owner@acme.test",
		CurrentPeriodEnd: testutil.Time(now.Add(72 * time.Hour)),
	}

	tests := []struct {
		name    string
		text    string
		subject alert.Subject
		want    string
	}{
		{
			name:    "business name and days remaining",
			text:    "{{businessName}} has {{daysRemaining}} days",
			subject: alert.NewSubject(acme),
			want:    "Acme has 3 days",
		},
		{
			name: "days remaining rounds up",
			text: "{{daysRemaining}}",
			subject: alert.NewSubject(&tenant.Tenant{
				ID:               "t2",
				CurrentPeriodEnd: testutil.Time(now.Add(49 * time.Hour)),
			}),
			want: "3",
		},
		{
			name:    "business name falls back to name",
			text:    "Hi {{businessName}} ({{tenantName}})",
			subject: alert.NewSubject(&tenant.Tenant{ID: "t3", Name: "Bob's Studio"}),
			want:    "Hi Bob's Studio (Bob's Studio)",
		},
		{
			name:    "expiry date",
			text:    "Ends {{expiryDate}} for {{email}}",
			subject: alert.NewSubject(acme),
			want:    "Ends Mar 13, 2026 for owner@acme.test",
		},
		{
			name:    "missing period end",
			text:    "{{daysRemaining}}|{{expiryDate}}",
			subject: alert.NewSubject(&tenant.Tenant{ID: "t4"}),
			want:    "0|",
		},
		{
			name: "metadata overrides tenant fields",
			text: "{{businessName}} disputed {{amount}} ({{reason}})",
			subject: alert.Subject{
				Tenant:   acme,
				Metadata: map[string]interface{}{"businessName": "Acme Europe", "amount": float64(120), "reason": "fraudulent"},
			},
			want: "Acme Europe disputed 120 (fraudulent)",
		},
		{
			name: "metadata name overrides tenant name",
			text: "{{tenantName}}",
			subject: alert.Subject{
				Tenant:   acme,
				Metadata: map[string]interface{}{"name": "Acme Holdings"},
			},
			want: "Acme Holdings",
		},
		{
			name:    "unknown token renders empty",
			text:    "Hello {{ nobody }}!",
			subject: alert.NewSubject(acme),
			want:    "Hello !",
		},
		{
			name:    "tokens with punctuation render empty",
			text:    "Hi {{first-name}} {{account.owner}} {{unknown}}!",
			subject: alert.NewSubject(acme),
			want:    "Hi   !",
		},
		{
			name:    "empty token renders empty",
			text:    "a{{}}b{{ }}c",
			subject: alert.NewSubject(acme),
			want:    "abc",
		},
		{
			name: "metadata key with punctuation",
			text: "Invoice {{invoice.number}}",
			subject: alert.Subject{
				Tenant:   acme,
				Metadata: map[string]interface{}{"invoice.number": "INV-7"},
			},
			want: "Invoice INV-7",
		},
		{
			name:    "text without placeholders",
			text:    "/billing",
			subject: alert.NewSubject(acme),
			want:    "/billing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderer.Render(tt.text, tt.subject); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholderRenderer_MetadataPeriodEnd(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	renderer := NewPlaceholderRenderer(testutil.Clock(now), time.UTC)

	subject := alert.Subject{
		Tenant: &tenant.Tenant{ID: "t1", Name: "Acme"},
		Metadata: map[string]interface{}{
			"currentPeriodEnd": now.Add(10 * 24 * time.Hour).Format(time.RFC3339),
		},
	}

	got := renderer.Render("{{daysRemaining}} days, until {{expiryDate}}", subject)
	if !strings.HasPrefix(got, "10 days") {
		t.Errorf("Render() = %q, want prefix %q", got, "10 days")
	}
	if !strings.Contains(got, "Mar 20, 2026") {
		t.Errorf("Render() = %q, want expiry Mar 20, 2026", got)
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{name: "exact days", end: now.AddDate(0, 0, 7), want: 7},
		{name: "partial day rounds up", end: now.Add(25 * time.Hour), want: 2},
		{name: "same instant", end: now, want: 0},
		{name: "past", end: now.Add(-36 * time.Hour), want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysUntil(now, tt.end); got != tt.want {
				t.Errorf("DaysUntil() = %d, want %d", got, tt.want)
			}
		})
	}
}
