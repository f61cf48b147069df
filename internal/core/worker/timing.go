package worker

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"
)

// TimingWriter appends one row per completed job to a CSV file, writing
// the header only the first time the file is created.
type TimingWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
}

var timingHeader = []string{"timestamp", "job_id", "job_type", "wait_time_ms", "execution_time_ms", "total_time_ms"}

// NewTimingWriter opens (or creates) path for appending job timing rows.
func NewTimingWriter(path string) (*TimingWriter, error) {
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open job timing csv: %w", err)
	}

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(timingHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write job timing header: %w", err)
		}
		w.Flush()
	}

	return &TimingWriter{path: path, file: f, writer: w}, nil
}

// Record appends one timing row for job.
func (t *TimingWriter) Record(job Job, wait, exec time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := wait + exec
	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		job.ID,
		string(job.Type),
		fmt.Sprintf("%.1f", float64(wait.Microseconds())/1000.0),
		fmt.Sprintf("%.1f", float64(exec.Microseconds())/1000.0),
		fmt.Sprintf("%.1f", float64(total.Microseconds())/1000.0),
	}
	if err := t.writer.Write(row); err != nil {
		return
	}
	t.writer.Flush()
}

// Close flushes and closes the underlying file.
func (t *TimingWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writer.Flush()
	return t.file.Close()
}
