package notification

import "time"

// Notification is the outbound copy of a persisted alert
type Notification struct {
	AlertID     string    `json:"alertId"`
	TenantID    string    `json:"tenantId"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ActionURL   string    `json:"actionUrl,omitempty"`
	ActionLabel string    `json:"actionLabel,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Channel identifies a delivery transport
type Channel string

const (
	ChannelSlack   Channel = "slack"
	ChannelWebhook Channel = "webhook"
)

// DeliveryStatus is the outcome of one delivery
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// ColorForSeverity maps an alert severity to an attachment color
func ColorForSeverity(severity string) string {
	switch severity {
	case "critical":
		return "#ff0000"
	case "error":
		return "#ff8c00"
	case "warning":
		return "#ffcc00"
	default:
		return "#36a64f"
	}
}

// EmojiForSeverity maps an alert severity to a Slack emoji
func EmojiForSeverity(severity string) string {
	switch severity {
	case "critical":
		return ":rotating_light:"
	case "error":
		return ":x:"
	case "warning":
		return ":warning:"
	default:
		return ":bell:"
	}
}
