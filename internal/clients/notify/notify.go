// Package notify sends chat notifications to an external webhook. It is
// a fire-and-forget sink: a failure here must never block or fail a job.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sink posts a message to a chat webhook.
type Sink struct {
	webhookURL string
	client     *http.Client
}

// New builds a Sink targeting webhookURL.
func New(webhookURL string) *Sink {
	return &Sink{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

type payload struct {
	Content string `json:"content"`
}

// Notify posts message to the configured webhook. Transport and non-2xx
// errors are returned to the caller (the worker logs and moves on; it
// never retries a notification).
func (s *Sink) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(payload{Content: message})
	if err != nil {
		return fmt.Errorf("marshal notify payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}
