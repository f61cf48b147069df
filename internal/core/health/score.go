package health

import (
	"fmt"
	"strings"
)

// PipelineState is the compositor's media state, normalized to a small
// enum so scoring and reporting never branch on raw vendor strings.
type PipelineState string

const (
	Playing    PipelineState = "PLAYING"
	Buffering  PipelineState = "BUFFERING"
	Paused     PipelineState = "PAUSED"
	Stopped    PipelineState = "STOPPED"
	ErrorState PipelineState = "ERROR"
	Unknown    PipelineState = "UNKNOWN"
)

func normalizeMediaState(raw string) PipelineState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "playing":
		return Playing
	case "buffering":
		return Buffering
	case "paused":
		return Paused
	case "stopped":
		return Stopped
	case "error":
		return ErrorState
	case "":
		return Unknown
	default:
		return Unknown
	}
}

// Signals is the set of derived, already-history-aware measurements a
// sample produces. Keeping this separate from Monitor's rolling state
// makes the scoring rules themselves pure and independently testable.
type Signals struct {
	MediaState      string
	IsVisible       bool
	FPS             float64
	FrameDropRate   float64
	PipelineHealthy bool
	FPSVariance     float64
	FPSDropped      bool
	PlaybackStalled bool
	TimestampJumpMS float64
}

// Result is one scored sample: the normalized pipeline state, the
// clamped 0-100 health score, and the issue/warning tags that produced
// it.
type Result struct {
	PipelineState         PipelineState
	HealthScore           int
	Issues                []string
	Warnings              []string
	VisibilityProblematic bool
	VisibilityIssueType   string
}

// Score applies the rule table grounded on the original scoring
// function: start at 100, subtract per condition, clamp to [0,100].
// Any CRITICAL_* issue forces the score to 50 or below regardless of
// how the individual penalties summed, satisfying the invariant that a
// critical condition is never reported alongside a passing score.
func Score(s Signals) Result {
	state := normalizeMediaState(s.MediaState)
	score := 100
	var issues, warnings []string
	critical := false

	switch state {
	case Stopped:
		score -= 50
		issues = append(issues, "CRITICAL_SOURCE_STOPPED")
		critical = true
	case Buffering:
		score -= 30
		warnings = append(warnings, "PIPELINE_BUFFERING")
	case Paused:
		score -= 20
		warnings = append(warnings, "PIPELINE_PAUSED")
	case ErrorState:
		score -= 80
		issues = append(issues, "CRITICAL_PIPELINE_ERROR")
		critical = true
	case Unknown:
		score -= 10
		warnings = append(warnings, "STATE_INFO_MISSING")
	}

	// Visible while not playing carries two independent penalties (§4.5):
	// a -25 for the plain condition, and a separate -40 "problematic
	// visibility" penalty layered on top rather than replacing it — the
	// ground truth applies both as two independent checks, not one.
	visibilityProblematic := s.IsVisible && state != Playing
	visibilityIssueType := ""
	if visibilityProblematic {
		visibilityIssueType = string(state)
		score -= 25
		issues = append(issues, "VISIBLE_NOT_PLAYING_"+string(state))
		score -= 40
		issues = append(issues, "CRITICAL_VISIBILITY_PROBLEMATIC_"+string(state))
		critical = true
	}

	if s.FPS > 0 {
		switch {
		case s.FPS < 15:
			score -= 30
			issues = append(issues, "LOW_FPS_SEVERE")
		case s.FPS < 24:
			score -= 15
			warnings = append(warnings, "LOW_FPS_MILD")
		}
	}

	if !s.PipelineHealthy {
		score -= 20
		warnings = append(warnings, "PIPELINE_UNHEALTHY")
	}

	switch {
	case s.FrameDropRate > 5:
		score -= 25
		issues = append(issues, "CRITICAL_FRAME_DROP_RATE")
		critical = true
	case s.FrameDropRate > 1:
		score -= 10
		warnings = append(warnings, "FRAME_DROP_RATE_ELEVATED")
	}

	if s.FPSVariance > 5 {
		score -= 15
		warnings = append(warnings, "FPS_VARIANCE")
	}
	if s.FPSDropped {
		score -= 20
		warnings = append(warnings, "FPS_DROP")
	}
	if s.PlaybackStalled {
		score -= 25
		issues = append(issues, "CRITICAL_PLAYBACK_STALLED")
		critical = true
	}
	if s.TimestampJumpMS > 0 {
		score -= 30
		issues = append(issues, fmt.Sprintf("TIMESTAMP_JUMP_%.0fms", s.TimestampJumpMS))
	}

	if critical && score > 50 {
		score = 50
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{
		PipelineState:         state,
		HealthScore:           score,
		Issues:                issues,
		Warnings:              warnings,
		VisibilityProblematic: visibilityProblematic,
		VisibilityIssueType:   visibilityIssueType,
	}
}

// categorize maps a health score to the coarse status used to decide
// whether a log line is worth emitting (§4.5 step 7).
func categorize(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 40:
		return "degraded"
	default:
		return "poor"
	}
}

// computeTrend compares the new score against a short history of
// prior scores: three consecutive rises is "improving", three
// consecutive falls is "degrading", anything else is "stable".
func computeTrend(history []int, current int) string {
	series := append(append([]int(nil), history...), current)
	if len(series) < 4 {
		return "stable"
	}
	recent := series[len(series)-4:]

	rising, falling := true, true
	for i := 1; i < len(recent); i++ {
		if recent[i] <= recent[i-1] {
			rising = false
		}
		if recent[i] >= recent[i-1] {
			falling = false
		}
	}
	switch {
	case rising:
		return "improving"
	case falling:
		return "degrading"
	default:
		return "stable"
	}
}
