package compositor

import "encoding/json"

// request is the JSON envelope sent to the compositor over the
// WebSocket connection. id correlates a response back to its caller.
type request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is the JSON envelope the compositor sends back.
type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return e.Message
}

// sceneItemParams, sceneItemEnabledParams, mediaInputParams and
// switchSourceParams are the request shapes of the few operations this
// orchestrator actually calls (§4.3).
type sceneItemParams struct {
	Scene  string `json:"scene"`
	Source string `json:"source"`
}

type sceneItemEnabledParams struct {
	Scene   string `json:"scene"`
	Source  string `json:"source"`
	Enabled bool   `json:"enabled"`
}

type mediaInputParams struct {
	Input string `json:"input"`
}

type switchSourceParams struct {
	RTMPURL string `json:"rtmp_url"`
	Scene   string `json:"scene"`
}

// MediaStatus is the compositor's view of a media input, returned by
// media_status.
type MediaStatus struct {
	MediaState    string  `json:"media_state"`
	MediaDuration float64 `json:"media_duration"`
	MediaTime     float64 `json:"media_time"`
}

// Stats is the compositor's global render/encode snapshot, returned by
// stats/output_status.
type Stats struct {
	FPS            float64 `json:"fps"`
	DroppedFrames  int64   `json:"dropped_frames"`
	RenderSkipped  int64   `json:"render_skipped_frames"`
	OutputSkipped  int64   `json:"output_skipped_frames"`
	CPUUsagePct    float64 `json:"cpu_usage_pct"`
	OutputBitrate  float64 `json:"output_bitrate_kbps"`
}
