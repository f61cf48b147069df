package orchestrator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"motherstream/internal/clients/users"
	"motherstream/internal/core/worker"
)

type fakeEnqueuer struct {
	jobs []worker.Job
}

func (f *fakeEnqueuer) Enqueue(job worker.Job) {
	f.jobs = append(f.jobs, job)
}

func (f *fakeEnqueuer) types() []worker.Type {
	types := make([]worker.Type, len(f.jobs))
	for i, j := range f.jobs {
		types[i] = j.Type
	}
	return types
}

func testManager(t *testing.T) (*Manager, *fakeEnqueuer) {
	t.Helper()
	log := logrus.NewEntry(logrus.New())
	provider := users.NewInMemoryProvider(
		users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"},
		users.User{ID: 2, StreamKey: "bob", DisplayName: "Bob"},
	)
	enqueuer := &fakeEnqueuer{}
	cfg := ManagerConfig{
		SwapInterval:    50 * time.Millisecond,
		PriorityTimeout: time.Second,
		Scene:           "Live",
		Source:          "GMOTHERSTREAM",
		TimerSource:     "Timer",
		TimerTextSource: "TimerText",
		LoadingSource:   "Loading",
	}
	m := NewManager(cfg, provider, filepath.Join(t.TempDir(), "QUEUE.json"), enqueuer, log)
	return m, enqueuer
}

func TestManagerStartStreamOpensWindow(t *testing.T) {
	m, enqueuer := testManager(t)
	alice := users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"}

	m.StartStream(alice)

	if !m.HasLead() {
		t.Fatal("expected a lead window to be open after StartStream")
	}
	if len(enqueuer.jobs) == 0 {
		t.Fatal("expected StartStream to enqueue jobs")
	}
}

func TestManagerSwitchStreamAdvancesQueue(t *testing.T) {
	m, enqueuer := testManager(t)
	alice := users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"}
	bob := users.User{ID: 2, StreamKey: "bob", DisplayName: "Bob"}

	m.Queue().AddIfAbsent(alice)
	m.StartStream(alice)
	m.Queue().AddIfAbsent(bob)

	m.SwitchStream()

	key, ok := m.LeadKey()
	if !ok || key != "bob" {
		t.Fatalf("expected bob to become lead, got %q ok=%v", key, ok)
	}
	if got := m.GetPriorityKey(); got != "bob" {
		t.Fatalf("expected bob to hold priority after being promoted, got %q", got)
	}
	if got := m.GetLastKicked(); got != "alice" {
		t.Fatalf("expected alice to be recorded as last kicked, got %q", got)
	}

	foundKick := false
	for _, typ := range enqueuer.types() {
		if typ == worker.KickPublisher {
			foundKick = true
		}
	}
	if !foundKick {
		t.Fatal("expected a kick-publisher job among the enqueued jobs")
	}
}

func TestManagerSwitchStreamEmptyQueueStepsDown(t *testing.T) {
	m, enqueuer := testManager(t)
	alice := users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"}

	m.Queue().AddIfAbsent(alice)
	m.StartStream(alice)
	enqueuer.jobs = nil

	m.SwitchStream()

	if m.HasLead() {
		t.Fatal("expected no active lead after stepping down with an empty queue")
	}
	if _, ok := m.LeadKey(); ok {
		t.Fatal("expected queue to be empty after stepping down")
	}

	toggledOff := false
	for _, job := range enqueuer.jobs {
		if job.Type == worker.ToggleSource {
			if onlyOff, _ := job.Payload["only_off"].(bool); onlyOff {
				toggledOff = true
			}
		}
	}
	if !toggledOff {
		t.Fatal("expected the lead source to be hidden when the queue drains")
	}
}

func TestManagerSwitchStreamNonBlockingWhenAlreadyInFlight(t *testing.T) {
	m, _ := testManager(t)
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	done := make(chan struct{})
	go func() {
		m.SwitchStream()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SwitchStream blocked instead of returning when L-SWITCH was held")
	}
}

func TestManagerProcessTickClearsExpiredPriority(t *testing.T) {
	m, _ := testManager(t)
	m.lock.Lock()
	m.priorityKey = "alice"
	m.priorityDeadline = time.Now().Add(-time.Millisecond)
	m.lock.Unlock()

	m.ProcessTick()

	if got := m.GetPriorityKey(); got != "" {
		t.Fatalf("expected expired priority to clear, got %q", got)
	}
}
