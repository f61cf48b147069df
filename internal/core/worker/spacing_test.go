package worker

import (
	"testing"
	"time"
)

func TestSpaceCompositorJobWaitsOutTheDelay(t *testing.T) {
	w := &Worker{obsJobDelay: 50 * time.Millisecond}

	start := time.Now()
	w.spaceCompositorJob()
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Fatalf("expected the first call to not wait, waited %s", elapsed)
	}

	start = time.Now()
	w.spaceCompositorJob()
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("expected the second call to wait out most of the delay, waited only %s", elapsed)
	}
}

func TestSpaceCompositorJobDoesNotWaitOnceDelayHasPassed(t *testing.T) {
	w := &Worker{obsJobDelay: 10 * time.Millisecond}
	w.lastCompositorJob = time.Now().Add(-time.Second)

	start := time.Now()
	w.spaceCompositorJob()
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Fatalf("expected no wait once the delay has already elapsed, waited %s", elapsed)
	}
}

func TestIsCompositorClassCoversSpacedJobTypes(t *testing.T) {
	spaced := []Type{ToggleSource, RestartMedia, FlashLoading, SwitchDynamicSource}
	for _, typ := range spaced {
		if !IsCompositorClass(typ) {
			t.Errorf("expected %s to be compositor-class", typ)
		}
	}
	unspaced := []Type{SendNotification, StartRecording, KickPublisher}
	for _, typ := range unspaced {
		if IsCompositorClass(typ) {
			t.Errorf("expected %s to not be compositor-class", typ)
		}
	}
}
