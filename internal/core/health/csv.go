package health

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var csvHeader = []string{
	"timestamp", "timestamp_str", "source_name", "rtmp_url", "media_state",
	"media_duration", "media_time", "is_visible", "scene_name", "obs_fps",
	"dropped_frames", "buffer_level", "gstreamer_state", "pipeline_healthy",
	"pipeline_warnings", "frame_drop_rate", "health_score", "health_trend",
	"issues", "poll_count", "visibility_problematic", "visibility_issue_type",
}

type sourceAgg struct {
	samples    int
	scoreSum   int
	issueCount map[string]int
}

// HourlyCSVWriter is the process-wide L-CSV resource: a single file
// handle, shared by every active Monitor, that rolls over once per
// wall-clock hour and is created lazily so an hour with no traffic
// never produces an empty file (P11).
type HourlyCSVWriter struct {
	mu  sync.Mutex
	dir string

	hour   time.Time
	path   string
	file   *os.File
	writer *csv.Writer
	agg    map[string]*sourceAgg
}

// NewHourlyCSVWriter builds a writer rooted at dir. No file is created
// until the first Append.
func NewHourlyCSVWriter(dir string) *HourlyCSVWriter {
	return &HourlyCSVWriter{dir: dir}
}

// Append writes one row for s, rolling over to a new hourly file (and
// emitting the previous hour's report) if s crosses an hour boundary.
func (h *HourlyCSVWriter) Append(s Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hour := s.Timestamp.Truncate(time.Hour)
	switch {
	case h.file == nil:
		if err := h.openLocked(hour); err != nil {
			return err
		}
	case !hour.Equal(h.hour):
		if err := h.rolloverLocked(hour); err != nil {
			return err
		}
	}

	h.recordAggLocked(s)
	return h.writeRowLocked(s)
}

// Close flushes the current file, if any, and writes its report.
func (h *HourlyCSVWriter) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeAndReportLocked()
}

func (h *HourlyCSVWriter) openLocked(hour time.Time) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("create health csv dir: %w", err)
	}
	path := filepath.Join(h.dir, fmt.Sprintf("stream-health-%s0000.csv", hour.Format("20060102-15")))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create health csv: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write health csv header: %w", err)
	}
	w.Flush()

	h.hour = hour
	h.path = path
	h.file = f
	h.writer = w
	h.agg = make(map[string]*sourceAgg)
	return nil
}

func (h *HourlyCSVWriter) rolloverLocked(hour time.Time) error {
	if err := h.closeAndReportLocked(); err != nil {
		return err
	}
	return h.openLocked(hour)
}

func (h *HourlyCSVWriter) closeAndReportLocked() error {
	if h.file == nil {
		return nil
	}
	h.writer.Flush()
	if err := h.file.Close(); err != nil {
		return fmt.Errorf("close health csv: %w", err)
	}
	reportPath := strings.TrimSuffix(h.path, ".csv") + "-report.txt"
	report := buildReport(h.hour, h.agg)
	if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write health report: %w", err)
	}
	h.file = nil
	h.writer = nil
	return nil
}

func (h *HourlyCSVWriter) recordAggLocked(s Snapshot) {
	agg, ok := h.agg[s.Source]
	if !ok {
		agg = &sourceAgg{issueCount: make(map[string]int)}
		h.agg[s.Source] = agg
	}
	agg.samples++
	agg.scoreSum += s.HealthScore
	for _, issue := range s.Issues {
		agg.issueCount[issue]++
	}
}

func (h *HourlyCSVWriter) writeRowLocked(s Snapshot) error {
	row := []string{
		strconv.FormatInt(s.Timestamp.Unix(), 10),
		s.Timestamp.UTC().Format(time.RFC3339),
		s.Source,
		s.RTMPURL,
		string(s.MediaState),
		strconv.FormatFloat(s.MediaDuration, 'f', 2, 64),
		strconv.FormatFloat(s.MediaTime, 'f', 2, 64),
		strconv.FormatBool(s.IsVisible),
		s.Scene,
		strconv.FormatFloat(s.FPS, 'f', 2, 64),
		strconv.FormatInt(s.DroppedFrames, 10),
		strconv.FormatFloat(s.BufferLevel, 'f', 2, 64),
		s.GStreamerState,
		strconv.FormatBool(s.PipelineHealthy),
		strings.Join(s.Warnings, "; "),
		strconv.FormatFloat(s.FrameDropRate, 'f', 2, 64),
		strconv.Itoa(s.HealthScore),
		s.HealthTrend,
		strings.Join(s.Issues, "; "),
		strconv.Itoa(s.PollCount),
		strconv.FormatBool(s.VisibilityProblematic),
		s.VisibilityIssueType,
	}
	if err := h.writer.Write(row); err != nil {
		return fmt.Errorf("write health csv row: %w", err)
	}
	h.writer.Flush()
	return nil
}

func buildReport(hour time.Time, agg map[string]*sourceAgg) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stream health report for %s\n", hour.Format("2006-01-02 15:00"))

	names := make([]string, 0, len(agg))
	for name := range agg {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		b.WriteString("(no samples recorded this hour)\n")
		return b.String()
	}

	for _, name := range names {
		a := agg[name]
		avg := 0.0
		if a.samples > 0 {
			avg = float64(a.scoreSum) / float64(a.samples)
		}
		fmt.Fprintf(&b, "\n%s: %d samples, avg health score %.1f\n", name, a.samples, avg)
		if len(a.issueCount) == 0 {
			b.WriteString("  no issues\n")
			continue
		}
		issues := make([]string, 0, len(a.issueCount))
		for issue := range a.issueCount {
			issues = append(issues, issue)
		}
		sort.Strings(issues)
		for _, issue := range issues {
			fmt.Fprintf(&b, "  %s: %d\n", issue, a.issueCount[issue])
		}
	}
	return b.String()
}
