package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// readSnapshot loads the persisted list of queued user ids. A missing
// file is treated as an empty queue, matching first-boot behavior.
func readSnapshot(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode queue snapshot: %w", err)
	}
	return ids, nil
}

// writeSnapshot persists ids atomically: write to a temp file in the
// same directory, then rename over the target, so a crash mid-write
// never leaves a truncated QUEUE.json behind.
func writeSnapshot(path string, ids []int) error {
	if ids == nil {
		ids = []int{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode queue snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".queue-*.tmp")
	if err != nil {
		return fmt.Errorf("create queue snapshot temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write queue snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close queue snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename queue snapshot into place: %w", err)
	}
	return nil
}
