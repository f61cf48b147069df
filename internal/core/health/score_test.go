package health

import "testing"

func TestScoreBoundsAndCriticalClamp(t *testing.T) {
	cases := []Signals{
		{MediaState: "playing", IsVisible: true, FPS: 60},
		{MediaState: "stopped", IsVisible: false},
		{MediaState: "error", IsVisible: true},
		{MediaState: "playing", IsVisible: true, FPS: 5, FrameDropRate: 12},
		{MediaState: "buffering", IsVisible: true, PlaybackStalled: true},
	}
	for _, c := range cases {
		r := Score(c)
		if r.HealthScore < 0 || r.HealthScore > 100 {
			t.Fatalf("score %d out of [0,100] for %+v", r.HealthScore, c)
		}
		hasCritical := false
		for _, issue := range r.Issues {
			if len(issue) >= 8 && issue[:8] == "CRITICAL" {
				hasCritical = true
			}
		}
		if hasCritical && r.HealthScore > 50 {
			t.Fatalf("expected score <= 50 when a CRITICAL issue is present, got %d for %+v", r.HealthScore, c)
		}
	}
}

func TestScoreVisibilityProblematic(t *testing.T) {
	r := Score(Signals{MediaState: "buffering", IsVisible: true})
	if !r.VisibilityProblematic {
		t.Fatal("expected visible+non-playing to be flagged visibility-problematic")
	}
	if r.VisibilityIssueType != string(Buffering) {
		t.Fatalf("expected visibility issue type %q, got %q", Buffering, r.VisibilityIssueType)
	}

	r = Score(Signals{MediaState: "playing", IsVisible: true})
	if r.VisibilityProblematic {
		t.Fatal("expected visible+playing not to be flagged visibility-problematic")
	}

	r = Score(Signals{MediaState: "buffering", IsVisible: false})
	if r.VisibilityProblematic {
		t.Fatal("expected a hidden, non-playing source not to be visibility-problematic")
	}
}

func TestScoreVisibilityPenaltiesStack(t *testing.T) {
	r := Score(Signals{MediaState: "buffering", IsVisible: true, PipelineHealthy: true})
	if r.HealthScore != 100-30-25-40 {
		t.Fatalf("expected the state penalty, the -25 visible-not-playing penalty, and the -40 visibility-problematic penalty all applied, got score %d from issues %v", r.HealthScore, r.Issues)
	}
	hasPlain, hasCritical := false, false
	for _, issue := range r.Issues {
		if issue == "VISIBLE_NOT_PLAYING_"+string(Buffering) {
			hasPlain = true
		}
		if issue == "CRITICAL_VISIBILITY_PROBLEMATIC_"+string(Buffering) {
			hasCritical = true
		}
	}
	if !hasPlain || !hasCritical {
		t.Fatalf("expected both the plain and the critical visibility issue tags, got %v", r.Issues)
	}
}

func TestScorePlayingHealthyIsExcellent(t *testing.T) {
	r := Score(Signals{MediaState: "playing", IsVisible: true, FPS: 60, PipelineHealthy: true})
	if r.HealthScore != 100 {
		t.Fatalf("expected a perfectly healthy sample to score 100, got %d", r.HealthScore)
	}
	if len(r.Issues) != 0 {
		t.Fatalf("expected no issues for a healthy sample, got %v", r.Issues)
	}
}

func TestComputeTrend(t *testing.T) {
	if got := computeTrend(nil, 80); got != "stable" {
		t.Fatalf("expected stable with no history, got %q", got)
	}
	if got := computeTrend([]int{60, 70, 80}, 90); got != "improving" {
		t.Fatalf("expected improving for a rising series, got %q", got)
	}
	if got := computeTrend([]int{90, 80, 70}, 60); got != "degrading" {
		t.Fatalf("expected degrading for a falling series, got %q", got)
	}
	if got := computeTrend([]int{70, 90, 70}, 90); got != "stable" {
		t.Fatalf("expected a non-monotonic series to be stable, got %q", got)
	}
}
