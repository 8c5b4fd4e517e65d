package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier posts events as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// WebhookPayload is the JSON document posted to the webhook.
type WebhookPayload struct {
	Type      string  `json:"type"`
	Project   string  `json:"project"`
	RunID     int     `json:"run_id,omitempty"`
	Duration  float64 `json:"duration_seconds,omitempty"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// Send posts the event. Server errors are retried twice.
func (w *WebhookNotifier) Send(ctx context.Context, event Event) error {
	payload := WebhookPayload{
		Type:      string(event.Type),
		Project:   event.Project,
		RunID:     event.RunID,
		Duration:  event.Duration,
		Message:   FormatMessage(event),
		Timestamp: event.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := retryableSend(ctx, w.client, req, 2)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
