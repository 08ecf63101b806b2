package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"

	"github.com/clientflow/alertrunner/internal/domain/notification"
)

// SlackSender posts alerts to a Slack incoming webhook
type SlackSender struct {
	webhookURL string
	channel    string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// NewSlackSender creates a sender for the given incoming webhook
func NewSlackSender(webhookURL, channel string) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		channel:    channel,
		post:       slack.PostWebhookContext,
	}
}

// Channel implements notification.Sender
func (s *SlackSender) Channel() notification.Channel {
	return notification.ChannelSlack
}

// Send implements notification.Sender
func (s *SlackSender) Send(ctx context.Context, n *notification.Notification) error {
	if s.webhookURL == "" {
		return fmt.Errorf("no Slack webhook URL configured")
	}
	if err := s.post(ctx, s.webhookURL, buildSlackMessage(s.channel, n)); err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}
	return nil
}

func buildSlackMessage(channel string, n *notification.Notification) *slack.WebhookMessage {
	attachment := slack.Attachment{
		Color:     notification.ColorForSeverity(n.Severity),
		Title:     fmt.Sprintf("%s %s", notification.EmojiForSeverity(n.Severity), n.Title),
		TitleLink: n.ActionURL,
		Text:      n.Message,
		Footer:    "ClientFlow alerts",
		Fields: []slack.AttachmentField{
			{Title: "Tenant", Value: n.TenantID, Short: true},
			{Title: "Type", Value: n.Type, Short: true},
		},
		Ts: json.Number(strconv.FormatInt(n.CreatedAt.Unix(), 10)),
	}
	if n.ActionURL != "" && n.ActionLabel != "" {
		attachment.Actions = []slack.AttachmentAction{
			{Name: "open", Text: n.ActionLabel, Type: "button", URL: n.ActionURL},
		}
	}

	return &slack.WebhookMessage{
		Channel:     channel,
		Text:        n.Title,
		Attachments: []slack.Attachment{attachment},
	}
}
