package compositor

import (
	"context"
	"encoding/json"
	"time"
)

// ToggleSource hides key if visible, then unhides it again after a short
// settle pause unless onlyOff is set. Errors are returned to the caller;
// the worker logs them but does not crash.
func (c *Client) ToggleSource(ctx context.Context, key SceneSource, onlyOff bool) error {
	visible, err := c.IsVisible(ctx, key)
	if err != nil {
		return err
	}

	if visible {
		if _, err := c.call(ctx, "toggle_source", sceneItemEnabledParams{Scene: key.Scene, Source: key.Source, Enabled: false}); err != nil {
			return err
		}
		time.Sleep(time.Second)
	}

	if !onlyOff {
		if _, err := c.call(ctx, "toggle_source", sceneItemEnabledParams{Scene: key.Scene, Source: key.Source, Enabled: true}); err != nil {
			return err
		}
		time.Sleep(time.Second)
	}
	return nil
}

// RestartMedia triggers the named media input to reinitialize.
func (c *Client) RestartMedia(ctx context.Context, input string) error {
	_, err := c.call(ctx, "restart_media", mediaInputParams{Input: input})
	return err
}

// IsVisible returns key's current enabled flag, or false on error.
func (c *Client) IsVisible(ctx context.Context, key SceneSource) (bool, error) {
	raw, err := c.call(ctx, "is_visible", sceneItemParams{Scene: key.Scene, Source: key.Source})
	if err != nil {
		return false, err
	}
	var out struct {
		Visible bool `json:"visible"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, err
	}
	return out.Visible, nil
}

// MediaStatus returns input's media state, duration, and playhead time.
func (c *Client) MediaStatus(ctx context.Context, input string) (MediaStatus, error) {
	raw, err := c.call(ctx, "media_status", mediaInputParams{Input: input})
	if err != nil {
		return MediaStatus{}, err
	}
	var out MediaStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return MediaStatus{}, err
	}
	return out, nil
}

// Stats returns the compositor's current render/encode numbers.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	raw, err := c.call(ctx, "stats", struct{}{})
	if err != nil {
		return Stats{}, err
	}
	var out Stats
	if err := json.Unmarshal(raw, &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

// OutputStatus returns the compositor's current output/stream numbers.
// Exposed separately from Stats because the compositor reports encoder
// output health (bitrate, skipped frames) through a distinct call.
func (c *Client) OutputStatus(ctx context.Context) (Stats, error) {
	raw, err := c.call(ctx, "output_status", struct{}{})
	if err != nil {
		return Stats{}, err
	}
	var out Stats
	if err := json.Unmarshal(raw, &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

// SwitchToNewSource creates a fresh input bound to rtmpURL, buffers it
// hidden, and makes it visible once the compositor reports it playing,
// destroying the previous input. Reports success rather than failing the
// caller's job on a partial switch.
func (c *Client) SwitchToNewSource(ctx context.Context, rtmpURL, scene string) bool {
	_, err := c.call(ctx, "switch_to_new_source", switchSourceParams{RTMPURL: rtmpURL, Scene: scene})
	return err == nil
}
