package control

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"motherstream/internal/clients/users"
	"motherstream/internal/core/orchestrator"
	"motherstream/internal/core/worker"
)

type noopEnqueuer struct{}

func (noopEnqueuer) Enqueue(worker.Job) {}

func testSurface(t *testing.T, provider users.Provider) (*Surface, *orchestrator.Manager) {
	t.Helper()
	log := logrus.NewEntry(logrus.New())
	cfg := orchestrator.ManagerConfig{
		SwapInterval:    time.Hour,
		PriorityTimeout: 30 * time.Second,
		Scene:           "Live",
		Source:          "GMOTHERSTREAM",
		TimerSource:     "Timer",
		TimerTextSource: "TimerText",
		LoadingSource:   "Loading",
	}
	manager := orchestrator.NewManager(cfg, provider, filepath.Join(t.TempDir(), "QUEUE.json"), noopEnqueuer{}, log)
	surface := New(manager, provider, Config{MotherstreamURL: "rtmp://ingest/motherstream"}, nil, log)
	return surface, manager
}

func publish(t *testing.T, s *Surface, streamKey string) responseBody {
	t.Helper()
	body, _ := json.Marshal(requestBody{Action: "on_publish", Stream: streamKey})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control", bytes.NewReader(body)))
	var resp responseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func unpublish(t *testing.T, s *Surface, streamKey string) {
	t.Helper()
	body, _ := json.Marshal(requestBody{Action: "on_unpublish", Stream: streamKey})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control", bytes.NewReader(body)))
}

func TestOnPublishFirstStreamerForwards(t *testing.T) {
	provider := users.NewInMemoryProvider(users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"})
	s, _ := testSurface(t, provider)

	resp := publish(t, s, "alice")
	if len(resp.Data.URLs) == 0 {
		t.Fatalf("expected the first streamer into an empty queue to forward, got %+v", resp)
	}
}

func TestOnPublishSecondStreamerQueues(t *testing.T) {
	provider := users.NewInMemoryProvider(
		users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"},
		users.User{ID: 2, StreamKey: "bob", DisplayName: "Bob"},
	)
	s, manager := testSurface(t, provider)

	publish(t, s, "alice")
	resp := publish(t, s, "bob")

	if len(resp.Data.URLs) != 0 {
		t.Fatalf("expected the second streamer to be queued, not forwarded, got %+v", resp)
	}
	if got := manager.Queue().Len(); got != 2 {
		t.Fatalf("expected 2 queued entries, got %d", got)
	}
}

func TestOnPublishUnknownStreamKeyRejected(t *testing.T) {
	provider := users.NewInMemoryProvider()
	s, _ := testSurface(t, provider)

	body, _ := json.Marshal(requestBody{Action: "on_publish", Stream: "ghost"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control", bytes.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an unknown stream-key, got %d", rec.Code)
	}
}

func TestOnPublishReconnectOfCurrentLeadIsIdempotent(t *testing.T) {
	provider := users.NewInMemoryProvider(users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"})
	s, manager := testSurface(t, provider)

	publish(t, s, "alice")
	resp := publish(t, s, "alice")

	if len(resp.Data.URLs) == 0 {
		t.Fatal("expected a reconnect of the current lead to still forward")
	}
	if got := manager.Queue().Len(); got != 1 {
		t.Fatalf("expected reconnecting the lead not to change queue contents, got len %d", got)
	}
}

func TestOnPublishConcurrentDuplicatePublishesExactlyOneForward(t *testing.T) {
	provider := users.NewInMemoryProvider(users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"})
	s, manager := testSurface(t, provider)

	const n = 10
	var wg sync.WaitGroup
	forwards := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := publish(t, s, "alice")
			forwards[i] = len(resp.Data.URLs) > 0
		}(i)
	}
	wg.Wait()

	count := 0
	for _, f := range forwards {
		if f {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one forward among %d concurrent publishes of the same unqueued key, got %d", n, count)
	}
	if got := manager.Queue().Len(); got != 1 {
		t.Fatalf("expected exactly one queue entry for repeated publishes of the same key, got %d", got)
	}
}

func TestOnUnpublishLeadTriggersSwitch(t *testing.T) {
	provider := users.NewInMemoryProvider(
		users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"},
		users.User{ID: 2, StreamKey: "bob", DisplayName: "Bob"},
	)
	s, manager := testSurface(t, provider)

	publish(t, s, "alice")
	publish(t, s, "bob")

	unpublish(t, s, "alice")

	leadKey, ok := manager.LeadKey()
	if !ok || leadKey != "bob" {
		t.Fatalf("expected bob to become lead after alice unpublishes, got %q ok=%v", leadKey, ok)
	}
}

func TestOnUnpublishPriorityKeyOnlyClearsGrant(t *testing.T) {
	provider := users.NewInMemoryProvider(
		users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"},
		users.User{ID: 2, StreamKey: "bob", DisplayName: "Bob"},
	)
	s, manager := testSurface(t, provider)

	publish(t, s, "alice")
	publish(t, s, "bob")
	manager.SwitchStream() // alice steps down, bob promoted with priority

	if got := manager.GetPriorityKey(); got != "bob" {
		t.Fatalf("expected bob to hold priority after promotion, got %q", got)
	}

	unpublish(t, s, "bob") // the expected kick-and-reconnect disconnect

	if got := manager.GetPriorityKey(); got != "" {
		t.Fatalf("expected priority to clear after bob's disconnect, got %q", got)
	}
	if leadKey, ok := manager.LeadKey(); !ok || leadKey != "bob" {
		t.Fatalf("expected bob to remain lead through its own forced-reconnect disconnect, got %q ok=%v", leadKey, ok)
	}

	resp := publish(t, s, "bob")
	if len(resp.Data.URLs) == 0 {
		t.Fatal("expected bob's reconnect to forward as the new lead")
	}
}

func TestOnPublishBlockingRejectsLastKicked(t *testing.T) {
	provider := users.NewInMemoryProvider(
		users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"},
		users.User{ID: 2, StreamKey: "bob", DisplayName: "Bob"},
	)
	s, manager := testSurface(t, provider)

	publish(t, s, "alice")
	manager.ToggleBlocking()
	manager.SwitchStream() // swap interval "expires" with nobody queued behind alice: alice kicked, queue empties

	if got := manager.GetLastKicked(); got != "alice" {
		t.Fatalf("expected alice to be recorded as last kicked, got %q", got)
	}

	body, _ := json.Marshal(requestBody{Action: "on_publish", Stream: "alice"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control", bytes.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected alice's republish to be rejected while blocking is on, got %d", rec.Code)
	}

	resp := publish(t, s, "bob")
	if len(resp.Data.URLs) == 0 {
		t.Fatal("expected a different streamer to be accepted despite blocking")
	}
}

func TestOnForwardReflectsCurrentLead(t *testing.T) {
	provider := users.NewInMemoryProvider(users.User{ID: 1, StreamKey: "alice", DisplayName: "Alice"})
	s, _ := testSurface(t, provider)
	publish(t, s, "alice")

	body, _ := json.Marshal(requestBody{Action: "on_forward", Stream: "alice"})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control", bytes.NewReader(body)))
	var resp responseBody
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Data.URLs) == 0 {
		t.Fatal("expected on_forward to report forward for the current lead")
	}

	body, _ = json.Marshal(requestBody{Action: "on_forward", Stream: "someone-else"})
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control", bytes.NewReader(body)))
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Data.URLs) != 0 {
		t.Fatal("expected on_forward to report do-not-forward for a non-lead key")
	}
}
