package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
)

// Placeholder tokens understood by every template
const (
	TokenTenantName    = "tenantName"
	TokenBusinessName  = "businessName"
	TokenEmail         = "email"
	TokenDaysRemaining = "daysRemaining"
	TokenExpiryDate    = "expiryDate"
)

// ExpiryDateLayout formats {{expiryDate}}
const ExpiryDateLayout = "Jan 2, 2006"

// placeholderPattern matches any {{...}} token so names without a value,
// including ones with punctuation, never leak into rendered text
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// PlaceholderRenderer substitutes {{token}} placeholders in rule templates.
// Tokens without a value render as the empty string.
type PlaceholderRenderer struct {
	now func() time.Time
	loc *time.Location
}

// NewPlaceholderRenderer creates a renderer. loc is the zone expiry dates are printed in.
func NewPlaceholderRenderer(now func() time.Time, loc *time.Location) *PlaceholderRenderer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PlaceholderRenderer{now: now, loc: loc}
}

// Render replaces every placeholder in text
func (r *PlaceholderRenderer) Render(text string, subject alert.Subject) string {
	if text == "" || !strings.Contains(text, "{{") {
		return text
	}
	values := r.Values(subject)
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		return values[strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])]
	})
}

// Values returns the token table for a subject: the fixed tenant tokens plus
// one token per metadata key. Metadata wins on collisions.
func (r *PlaceholderRenderer) Values(subject alert.Subject) map[string]string {
	values := make(map[string]string, 5+len(subject.Metadata))

	name := r.field(subject, "name")
	values[TokenTenantName] = name
	if business := r.field(subject, "businessName"); business != "" {
		values[TokenBusinessName] = business
	} else {
		values[TokenBusinessName] = name
	}
	values[TokenEmail] = r.field(subject, "email")

	if end := r.periodEnd(subject); end != nil {
		values[TokenDaysRemaining] = fmt.Sprintf("%d", DaysUntil(r.now(), *end))
		values[TokenExpiryDate] = end.In(r.loc).Format(ExpiryDateLayout)
	} else {
		values[TokenDaysRemaining] = "0"
		values[TokenExpiryDate] = ""
	}

	for k, v := range subject.Metadata {
		values[k] = r.stringify(v)
	}
	return values
}

// DaysUntil returns the whole days from now to end, rounded up
func DaysUntil(now, end time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

func (r *PlaceholderRenderer) field(subject alert.Subject, key string) string {
	if v, ok := subject.Metadata[key]; ok {
		return r.stringify(v)
	}
	t := subject.Tenant
	if t == nil {
		return ""
	}
	switch key {
	case "name":
		return t.Name
	case "businessName":
		return t.BusinessName
	case "email":
		return t.Email
	}
	return ""
}

func (r *PlaceholderRenderer) periodEnd(subject alert.Subject) *time.Time {
	if v, ok := subject.Metadata["currentPeriodEnd"]; ok {
		switch end := v.(type) {
		case time.Time:
			return &end
		case *time.Time:
			return end
		case string:
			if parsed, err := time.Parse(time.RFC3339, end); err == nil {
				return &parsed
			}
		}
		return nil
	}
	if subject.Tenant == nil {
		return nil
	}
	return subject.Tenant.CurrentPeriodEnd
}

func (r *PlaceholderRenderer) stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.In(r.loc).Format(ExpiryDateLayout)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.In(r.loc).Format(ExpiryDateLayout)
	case float64:
		if val == math.Trunc(val) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
