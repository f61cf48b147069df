package orchestrator

import (
	"context"
	"sync/atomic"
	"time"
)

// Ticker drives Manager.ProcessTick on a fixed period. It is the
// supervisor.Task that owns the swap-timer side of C6; C7 drives
// start_stream/switch_stream synchronously from HTTP requests, this is
// what notices an elapsed window with no on_unpublish to trigger it.
type Ticker struct {
	manager *Manager
	period  time.Duration
	stop    chan struct{}
	running atomic.Bool
}

// NewTicker builds a Ticker for manager, firing every period.
func NewTicker(manager *Manager, period time.Duration) *Ticker {
	return &Ticker{manager: manager, period: period, stop: make(chan struct{})}
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
func (t *Ticker) Start(ctx context.Context) error {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.stop:
			return nil
		case <-ticker.C:
			t.manager.ProcessTick()
		}
	}
}

// Stop ends the tick loop.
func (t *Ticker) Stop() error {
	close(t.stop)
	return nil
}

// IsRunning reports whether the tick loop is currently executing.
func (t *Ticker) IsRunning() bool {
	return t.running.Load()
}
