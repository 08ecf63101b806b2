package services

import (
	"context"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/alert"
)

// CooldownService implements alert.CooldownGate on top of the rule log
type CooldownService struct {
	logs alert.LogRepository
	now  func() time.Time
}

// NewCooldownGate creates a cooldown gate reading sent entries from logs
func NewCooldownGate(logs alert.LogRepository, now func() time.Time) alert.CooldownGate {
	if now == nil {
		now = time.Now
	}
	return &CooldownService{logs: logs, now: now}
}

// WasRecentlySent reports whether a sent entry for the pair exists within the
// last cooldownHours. A non-positive window never suppresses; windows past
// alert.MaxCooldownHours are clamped.
func (s *CooldownService) WasRecentlySent(ctx context.Context, ruleID, tenantID string, cooldownHours int) (bool, error) {
	if cooldownHours <= 0 {
		return false, nil
	}
	since := s.now().Add(-alert.CooldownWindow(cooldownHours))
	return s.logs.ExistsSentSince(ctx, ruleID, tenantID, since)
}
