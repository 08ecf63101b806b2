package services

import (
	"context"

	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
)

// InboxService implements alert.InboxService
type InboxService struct {
	repo   alert.Repository
	logger *logger.Logger
}

// NewInboxService creates the tenant-facing alert service
func NewInboxService(repo alert.Repository, log *logger.Logger) alert.InboxService {
	return &InboxService{repo: repo, logger: log}
}

// List lists a tenant's alerts, newest first
func (s *InboxService) List(ctx context.Context, tenantID string, filter alert.AlertFilter, limit, offset int) ([]*alert.Alert, int64, error) {
	return s.repo.ListByTenant(ctx, tenantID, filter, limit, offset)
}

// MarkRead marks one of the tenant's alerts as read
func (s *InboxService) MarkRead(ctx context.Context, tenantID, id string) error {
	if _, err := s.repo.GetByID(ctx, tenantID, id); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, tenantID, id)
}

// Dismiss hides one of the tenant's alerts
func (s *InboxService) Dismiss(ctx context.Context, tenantID, id string) error {
	if _, err := s.repo.GetByID(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.repo.Dismiss(ctx, tenantID, id); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"tenant_id": tenantID,
		"alert_id":  id,
	}).Debug("Alert dismissed")

	return nil
}
