package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/haln/taskboard/internal/domain"
)

// WebhookNotifier posts export job events to an HTTP endpoint as JSON.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

// WebhookConfig holds settings for the webhook sink.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// webhookEvent is the JSON payload posted per transition.
type webhookEvent struct {
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Job       *domain.ExportJob      `json:"job"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// NewWebhookNotifier creates a WebhookNotifier.
// Parameters:
//   - cfg: webhook endpoint settings.
// Returns:
//   - *WebhookNotifier: initialized notifier.
func NewWebhookNotifier(cfg *WebhookConfig) *WebhookNotifier {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return &WebhookNotifier{
		client: client,
		url:    cfg.URL,
	}
}

// Notify posts the event. A non-2xx response is reported as an error; the
// caller decides whether to log or ignore it.
func (n *WebhookNotifier) Notify(ctx context.Context, status domain.ExportStatus, job *domain.ExportJob, extra map[string]interface{}) error {
	event := webhookEvent{
		Event:     "export." + string(status),
		Timestamp: time.Now().Format(time.RFC3339),
		Job:       job,
		Extra:     extra,
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post webhook event: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
