package health

import "time"

// Snapshot is one sampled row: the compositor readings for a source at
// a point in time plus the score derived from them. Field names mirror
// the hourly CSV's column names (§6).
type Snapshot struct {
	Timestamp             time.Time
	Source                string
	RTMPURL               string
	Scene                 string
	MediaState            PipelineState
	MediaDuration         float64
	MediaTime             float64
	IsVisible             bool
	FPS                   float64
	DroppedFrames         int64
	BufferLevel           float64
	GStreamerState        string
	PipelineHealthy       bool
	Warnings              []string
	FrameDropRate         float64
	HealthScore           int
	HealthTrend           string
	Issues                []string
	PollCount             int
	VisibilityProblematic bool
	VisibilityIssueType   string
}
