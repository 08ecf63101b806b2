package notification

import "context"

// Service delivers notifications to every configured channel
type Service interface {
	Send(ctx context.Context, n *Notification) error
}

// Sender delivers notifications over a single channel
type Sender interface {
	Send(ctx context.Context, n *Notification) error
	Channel() Channel
}
