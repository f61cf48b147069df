// Package health implements the per-source health sampler (C5): a
// state machine that, while a source is active, polls the compositor
// at a fixed period, derives a 0-100 health score and issue tags from
// the readings, and appends the result to a shared hourly CSV.
package health

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"motherstream/internal/core/compositor"
)

const (
	fpsDropThreshold = 24.0
	stallWindow      = 3
	jumpToleranceSec = 3.0
)

// Monitor samples one compositor source. It is IDLE until Activate is
// called (entering ACTIVE, resetting history and starting the sampler
// goroutine) and returns to IDLE on Deactivate (stopping the sampler).
// This lifecycle is event-driven by the stream manager's start/switch,
// not boot-driven, so Monitor manages its own goroutine rather than
// registering with the central supervisor.
type Monitor struct {
	name       string
	source     compositor.SceneSource
	input      string
	rtmpURL    string
	compositor *compositor.Client
	csv        *HourlyCSVWriter
	ring       *Ring
	pollPeriod time.Duration
	log        *logrus.Entry

	stop    chan struct{}
	active  bool
	started bool

	fpsHistory       []float64
	mediaTimeHistory []float64
	scoreHistory     []int
	pollCount        int
	stallCount       int
	lastDropped      int64
	lastSampleAt     time.Time
	lastCategory     string
}

// NewMonitor builds a Monitor for one source. pollPeriod is clamped to
// [100ms, 10s].
func NewMonitor(name string, source compositor.SceneSource, input, rtmpURL string, comp *compositor.Client, csv *HourlyCSVWriter, pollPeriod time.Duration, log *logrus.Entry) *Monitor {
	if pollPeriod < 100*time.Millisecond {
		pollPeriod = 100 * time.Millisecond
	}
	if pollPeriod > 10*time.Second {
		pollPeriod = 10 * time.Second
	}
	return &Monitor{
		name:       name,
		source:     source,
		input:      input,
		rtmpURL:    rtmpURL,
		compositor: comp,
		csv:        csv,
		ring:       NewRing(),
		pollPeriod: pollPeriod,
		log:        log.WithField("source", name),
	}
}

// Activate transitions IDLE -> ACTIVE, resetting per-stream history and
// starting the sampler goroutine. A no-op if already active.
func (m *Monitor) Activate() {
	if m.active {
		return
	}
	m.active = true
	m.fpsHistory = nil
	m.mediaTimeHistory = nil
	m.scoreHistory = nil
	m.pollCount = 0
	m.stallCount = 0
	m.lastDropped = 0
	m.lastSampleAt = time.Time{}
	m.lastCategory = ""
	m.stop = make(chan struct{})

	stop := m.stop
	m.started = true
	go m.run(stop)
	m.log.Info("health monitor activated")
}

// Deactivate transitions ACTIVE -> IDLE, stopping the sampler.
func (m *Monitor) Deactivate() {
	if !m.active {
		return
	}
	m.active = false
	close(m.stop)
	m.log.Info("health monitor deactivated")
}

// Active reports whether the sampler is currently running.
func (m *Monitor) Active() bool { return m.active }

// Snapshots returns the buffered recent history for dashboards.
func (m *Monitor) Snapshots() []Snapshot { return m.ring.Snapshots() }

// LatestScore returns the most recently computed health score, or -1
// if no sample has been taken yet.
func (m *Monitor) LatestScore() int {
	if len(m.scoreHistory) == 0 {
		return -1
	}
	return m.scoreHistory[len(m.scoreHistory)-1]
}

func (m *Monitor) run(stop chan struct{}) {
	ticker := time.NewTicker(m.pollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, statusErr := m.compositor.MediaStatus(ctx, m.input)
	if statusErr != nil {
		m.log.WithError(statusErr).Warn("media_status poll failed")
	}
	visible, visibleErr := m.compositor.IsVisible(ctx, m.source)
	if visibleErr != nil {
		m.log.WithError(visibleErr).Warn("is_visible poll failed")
	}
	stats, statsErr := m.compositor.Stats(ctx)
	if statsErr != nil {
		m.log.WithError(statsErr).Warn("stats poll failed")
	}

	now := time.Now()
	elapsed := m.pollPeriod
	if !m.lastSampleAt.IsZero() {
		elapsed = now.Sub(m.lastSampleAt)
	}

	frameDropRate := 0.0
	if !m.lastSampleAt.IsZero() && elapsed > 0 {
		delta := stats.DroppedFrames - m.lastDropped
		if delta < 0 {
			delta = 0
		}
		frameDropRate = float64(delta) / elapsed.Seconds()
	}
	m.lastDropped = stats.DroppedFrames
	m.lastSampleAt = now

	m.fpsHistory = appendBounded(m.fpsHistory, stats.FPS, 10)
	m.mediaTimeHistory = appendBounded(m.mediaTimeHistory, status.MediaTime, 10)

	fpsVariance := 0.0
	if len(m.fpsHistory) >= 5 {
		lo, hi := minMax(m.fpsHistory[len(m.fpsHistory)-5:])
		fpsVariance = hi - lo
	}
	fpsDropped := lastNBelow(m.fpsHistory, 3, fpsDropThreshold)

	playing := normalizeMediaState(status.MediaState) == Playing
	stalled := playing && lastNIdentical(m.mediaTimeHistory, stallWindow)
	if stalled {
		m.stallCount++
	}

	jumpMS := 0.0
	if len(m.mediaTimeHistory) >= 2 {
		n := len(m.mediaTimeHistory)
		deltaMediaTime := m.mediaTimeHistory[n-1] - m.mediaTimeHistory[n-2]
		drift := deltaMediaTime - elapsed.Seconds()
		if drift < 0 {
			drift = -drift
		}
		if drift > jumpToleranceSec {
			jumpMS = drift * 1000
		}
	}

	result := Score(Signals{
		MediaState:      status.MediaState,
		IsVisible:       visible,
		FPS:             stats.FPS,
		FrameDropRate:   frameDropRate,
		PipelineHealthy: statusErr == nil && statsErr == nil,
		FPSVariance:     fpsVariance,
		FPSDropped:      fpsDropped,
		PlaybackStalled: stalled,
		TimestampJumpMS: jumpMS,
	})

	trend := computeTrend(m.scoreHistory, result.HealthScore)
	m.scoreHistory = appendBounded(m.scoreHistory, result.HealthScore, 5)
	m.pollCount++

	snapshot := Snapshot{
		Timestamp:             now,
		Source:                m.name,
		RTMPURL:                m.rtmpURL,
		Scene:                 m.source.Scene,
		MediaState:            result.PipelineState,
		MediaDuration:         status.MediaDuration,
		MediaTime:             status.MediaTime,
		IsVisible:             visible,
		FPS:                   stats.FPS,
		DroppedFrames:         stats.DroppedFrames,
		BufferLevel:           0,
		GStreamerState:        status.MediaState,
		PipelineHealthy:       result.PipelineState == Playing || result.PipelineState == Buffering,
		Warnings:              result.Warnings,
		FrameDropRate:         frameDropRate,
		HealthScore:           result.HealthScore,
		HealthTrend:           trend,
		Issues:                result.Issues,
		PollCount:             m.pollCount,
		VisibilityProblematic: result.VisibilityProblematic,
		VisibilityIssueType:   result.VisibilityIssueType,
	}
	m.ring.Push(snapshot)

	if m.csv != nil {
		if err := m.csv.Append(snapshot); err != nil {
			m.log.WithError(err).Error("failed to append health csv row")
		}
	}

	cat := categorize(result.HealthScore)
	if cat != m.lastCategory {
		m.lastCategory = cat
		m.log.WithField("health_score", result.HealthScore).WithField("status", cat).Info("health status changed")
	}
}
