package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Channel delivers a rendered message to a recipient. Implementations must
// not panic; any non-nil error is treated as a delivery failure by the
// dispatcher and never retried by it.
type Channel interface {
	Deliver(ctx context.Context, recipient Recipient, msg Message) error
}

// ErrChannelUnavailable is returned when a channel has no configured target.
var ErrChannelUnavailable = errors.New("delivery channel not configured")

// DefaultWebhookTimeout bounds a single webhook delivery attempt.
const DefaultWebhookTimeout = 5 * time.Second

// WebhookChannel delivers notifications as JSON POSTs to a configured URL,
// typically a push gateway in front of the mobile app.
type WebhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel creates a WebhookChannel for the given URL.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: DefaultWebhookTimeout},
	}
}

// webhookPayload is the wire body for webhook deliveries.
type webhookPayload struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Deliver posts the message to the webhook URL. Any HTTP status of 400 or
// above counts as a failure.
func (c *WebhookChannel) Deliver(ctx context.Context, recipient Recipient, msg Message) error {
	if c.url == "" {
		return ErrChannelUnavailable
	}

	data, err := json.Marshal(webhookPayload{
		Recipient: recipient.Address,
		Name:      recipient.Name,
		Subject:   msg.Subject,
		Body:      msg.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
