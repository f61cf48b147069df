// Package recording controls an external recording service. Recording
// is best-effort: the live stream must never stall waiting on it, so
// every failure here is swallowed after being logged by the caller.
package recording

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Controller starts and stops recordings on the external recording
// service reached at host:port.
type Controller struct {
	baseURL string
	client  *http.Client
}

// New builds a Controller against the recording service at host:port.
func New(host string, port int) *Controller {
	return &Controller{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Start begins recording streamKey. djName is accepted for symmetry with
// Stop but is not sent to the recording service.
func (c *Controller) Start(ctx context.Context, streamKey, djName string) error {
	return c.control(ctx, streamKey, "start")
}

// Stop ends recording streamKey.
func (c *Controller) Stop(ctx context.Context, streamKey, djName string) error {
	return c.control(ctx, streamKey, "stop")
}

func (c *Controller) control(ctx context.Context, streamKey, action string) error {
	target := fmt.Sprintf("%s/control/record/%s?%s", c.baseURL, action, url.Values{
		"app":  {"live"},
		"name": {streamKey},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return fmt.Errorf("build recording request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Connect failures and timeouts are expected when the recording
		// service is down; recording is optional, the stream is not.
		return fmt.Errorf("recording control unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("recording control returned status %d", resp.StatusCode)
	}
	return nil
}
