package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clientflow/alertrunner/internal/domain/notification"
)

// WebhookSender posts signed alert payloads to the push gateway
type WebhookSender struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewWebhookSender creates a sender posting to url. Payloads are signed with
// HMAC-SHA256 when secret is set.
func NewWebhookSender(url, secret string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Channel implements notification.Sender
func (s *WebhookSender) Channel() notification.Channel {
	return notification.ChannelWebhook
}

// Send implements notification.Sender
func (s *WebhookSender) Send(ctx context.Context, n *notification.Notification) error {
	payload, err := json.Marshal(map[string]interface{}{
		"event":     "alert.created",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      n,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alert-Tenant", n.TenantID)
	if s.secret != "" {
		req.Header.Set("X-Webhook-Signature", signPayload(payload, s.secret))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned error status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func signPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
