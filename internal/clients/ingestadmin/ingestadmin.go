// Package ingestadmin calls the ingest RTMP server's administrative API
// to forcibly drop a publisher. The ingest server itself is out of
// scope; this is the one operation the orchestrator needs from it
// beyond the control-surface callbacks.
package ingestadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client kicks publishers off the ingest server.
type Client struct {
	baseURL string
	bearer  string
	client  *http.Client
}

// New builds a Client against the ingest admin API at host:port.
func New(host string, port int, bearer string) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		bearer:  bearer,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type kickRequest struct {
	Token string `json:"token"`
	Vhost string `json:"vhost"`
	App   string `json:"app"`
	Stream string `json:"stream"`
}

// KickPublisher drops the publisher currently holding streamKey, if any.
func (c *Client) KickPublisher(ctx context.Context, streamKey string) error {
	body, err := json.Marshal(kickRequest{
		Token:  "always12",
		Vhost:  "__defaultVhost__",
		App:    "live",
		Stream: streamKey,
	})
	if err != nil {
		return fmt.Errorf("marshal kick request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/streams/kickoff", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build kick request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", c.bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("kick publisher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kick publisher returned status %d", resp.StatusCode)
	}
	return nil
}
