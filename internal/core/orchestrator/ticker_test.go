package orchestrator

import (
	"context"
	"testing"
	"time"

	"motherstream/internal/clients/users"
)

func TestTickerDrivesProcessTickUntilStopped(t *testing.T) {
	manager, enqueuer := testManager(t)
	alice := users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"}
	bob := users.User{ID: 2, StreamKey: "bob", DisplayName: "Bob"}
	manager.queue.AddIfAbsent(alice)
	manager.StartStream(alice)
	manager.queue.AddIfAbsent(bob)
	enqueuer.jobs = nil

	ticker := NewTicker(manager, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = ticker.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if key, ok := manager.LeadKey(); ok && key == "bob" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the ticker to advance the queue past the elapsed window")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := ticker.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	<-done
	if ticker.IsRunning() {
		t.Fatal("expected IsRunning to be false after Stop")
	}
}

func TestTickerStopsOnContextCancel(t *testing.T) {
	manager, _ := testManager(t)
	ticker := NewTicker(manager, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = ticker.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop after context cancellation")
	}
}
