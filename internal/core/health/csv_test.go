package health

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHourlyCSVWriterNoFileWithoutData(t *testing.T) {
	dir := t.TempDir()
	w := NewHourlyCSVWriter(dir)
	_ = w

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files before any Append, got %v", entries)
	}
}

func TestHourlyCSVWriterCreatesOneFilePerHour(t *testing.T) {
	dir := t.TempDir()
	w := NewHourlyCSVWriter(dir)

	base := time.Date(2026, 3, 5, 3, 58, 0, 0, time.UTC)
	if err := w.Append(snapshotAt(base)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append(snapshotAt(base.Add(time.Minute))); err != nil {
		t.Fatalf("Append: %v", err)
	}

	next := base.Add(3 * time.Minute) // 04:01
	if err := w.Append(snapshotAt(next)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var csvCount, reportCount int
	for _, e := range entries {
		switch {
		case filepath.Ext(e.Name()) == ".csv":
			csvCount++
		case filepath.Ext(e.Name()) == ".txt":
			reportCount++
		}
	}
	if csvCount != 2 {
		t.Fatalf("expected 2 hourly csv files, got %d (%v)", csvCount, entries)
	}
	if reportCount != 2 {
		t.Fatalf("expected one report from the rollover and one from Close, got %d (%v)", reportCount, entries)
	}
}

func snapshotAt(ts time.Time) Snapshot {
	return Snapshot{
		Timestamp:   ts,
		Source:      "motherstream",
		MediaState:  Playing,
		HealthScore: 95,
		HealthTrend: "stable",
	}
}
