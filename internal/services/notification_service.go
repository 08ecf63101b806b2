package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clientflow/alertrunner/internal/domain/notification"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
	"github.com/clientflow/alertrunner/internal/pkg/metrics"
)

// NotificationService implements notification.Service by fanning out to senders
type NotificationService struct {
	senders []notification.Sender
	appURL  string
	logger  *logger.Logger
}

// NewNotificationService creates a new notification service. appURL prefixes
// relative action URLs so links work outside the dashboard.
func NewNotificationService(log *logger.Logger, appURL string, senders ...notification.Sender) notification.Service {
	return &NotificationService{
		senders: senders,
		appURL:  strings.TrimRight(appURL, "/"),
		logger:  log,
	}
}

// Send delivers n to every sender. All senders are attempted; the joined
// error lists each failed channel.
func (s *NotificationService) Send(ctx context.Context, n *notification.Notification) error {
	if len(s.senders) == 0 {
		return nil
	}

	out := *n
	if s.appURL != "" && strings.HasPrefix(out.ActionURL, "/") {
		out.ActionURL = s.appURL + out.ActionURL
	}

	var errs []error
	for _, sender := range s.senders {
		if err := sender.Send(ctx, &out); err != nil {
			metrics.RecordNotification(string(notification.DeliveryStatusFailed))
			errs = append(errs, fmt.Errorf("%s: %w", sender.Channel(), err))
			continue
		}
		metrics.RecordNotification(string(notification.DeliveryStatusSent))
		s.logger.WithFields(map[string]interface{}{
			"alert_id":  n.AlertID,
			"tenant_id": n.TenantID,
			"channel":   sender.Channel(),
		}).Debug("Notification delivered")
	}

	return errors.Join(errs...)
}
