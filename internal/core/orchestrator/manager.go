package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"motherstream/internal/clients/users"
	"motherstream/internal/core/compositor"
	"motherstream/internal/core/worker"
)

// jobEnqueuer is the narrow slice of *worker.Worker the manager needs.
// Keeping it as an interface makes the switch_stream/start_stream path
// testable without a real compositor or HTTP clients behind it.
type jobEnqueuer interface {
	Enqueue(job worker.Job)
}

// ManagerConfig bundles the scene/source names and timings the manager needs
// to build jobs with, independent of how they were loaded (env, YAML).
type ManagerConfig struct {
	SwapInterval    time.Duration
	PriorityTimeout time.Duration
	Scene           string
	Source          string
	TimerSource     string
	TimerTextSource string
	LoadingSource   string
}

// Manager is the stream manager (C6): it owns the lead/priority/kick
// bookkeeping and is the only thing allowed to call start_stream or
// switch_stream. It shares its lock with Queue (L-QUEUE) because
// switch_stream must dequeue/peek while already holding it — see the
// package doc and the *Locked methods below.
type Manager struct {
	lock *sync.Mutex
	cfg  ManagerConfig
	log  *logrus.Entry

	queue  *Queue
	worker jobEnqueuer

	switchMu sync.Mutex // L-SWITCH: non-reentrant, try-lock only, always acquired before lock

	timeManager *TimeManager
	obsOff      bool // true once the lead source has been hidden for an empty queue

	priorityKey      string
	priorityDeadline time.Time
	lastKickedKey    string
	blockingLast     bool
}

// NewManager builds a Manager with its own Queue, sharing one lock.
func NewManager(cfg ManagerConfig, provider users.Provider, snapshotPath string, w jobEnqueuer, log *logrus.Entry) *Manager {
	lock := &sync.Mutex{}
	return &Manager{
		lock:   lock,
		cfg:    cfg,
		log:    log,
		queue:  newQueue(lock, provider, snapshotPath, log),
		worker: w,
	}
}

// Queue returns the manager's Queue, for callers (the ingest control
// surface) that need direct FIFO access.
func (m *Manager) Queue() *Queue { return m.queue }

// LeadKey returns the current lead's stream-key, if any.
func (m *Manager) LeadKey() (string, bool) {
	return m.queue.LeadKey()
}

// HasLead reports whether a swap window is currently open, i.e.
// whether start_stream has run for the current lead.
func (m *Manager) HasLead() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.timeManager != nil
}

// RemainingWindow returns how long is left before the lead is swapped,
// or zero if there is no active lead.
func (m *Manager) RemainingWindow() time.Duration {
	m.lock.Lock()
	tm := m.timeManager
	m.lock.Unlock()
	if tm == nil {
		return 0
	}
	return tm.Remaining()
}

// GetPriorityKey returns the stream-key, if any, of the newly promoted
// lead that switch_stream kicked so it reconnects; its next on_unpublish
// only clears this grant. An expired grant reads as empty.
func (m *Manager) GetPriorityKey() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.priorityKey != "" && !m.priorityDeadline.IsZero() && time.Now().After(m.priorityDeadline) {
		return ""
	}
	return m.priorityKey
}

// ClearPriorityKey clears the priority slot, e.g. once the priority
// streamer has successfully republished.
func (m *Manager) ClearPriorityKey() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.priorityKey = ""
	m.priorityDeadline = time.Time{}
}

// GetLastKicked returns the stream-key most recently kicked off the
// ingest by switch_stream, used with the blocking_last latch to reject
// that streamer's republish into an empty queue.
func (m *Manager) GetLastKicked() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.lastKickedKey
}

// ClearLastKicked clears the last-kicked marker.
func (m *Manager) ClearLastKicked() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastKickedKey = ""
}

// ToggleBlocking flips and returns the blocking_last latch. While it is
// set, the ingest control surface rejects an on_publish from the
// last-kicked stream-key when no one holds the lead.
func (m *Manager) ToggleBlocking() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.blockingLast = !m.blockingLast
	return m.blockingLast
}

// GetBlocking reads the blocking_last latch without flipping it.
func (m *Manager) GetBlocking() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.blockingLast
}

// StartStream makes user the lead: opens a fresh swap window and
// enqueues the jobs that bring its feed on air.
func (m *Manager) StartStream(user users.User) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.startStreamLocked(user)
}

func (m *Manager) startStreamLocked(user users.User) {
	m.timeManager = NewTimeManager(m.cfg.SwapInterval)
	m.obsOff = false

	m.worker.Enqueue(worker.New(worker.SendNotification, map[string]any{
		"message": fmt.Sprintf("%s is now live!", user.DisplayName),
	}))
	m.worker.Enqueue(worker.New(worker.StartRecording, map[string]any{
		"stream_key": user.StreamKey,
		"dj_name":    user.DisplayName,
	}))
	for _, source := range []string{m.cfg.Source, m.cfg.TimerSource, m.cfg.TimerTextSource} {
		m.worker.Enqueue(worker.New(worker.ToggleSource, map[string]any{
			"scene_source": compositor.NewSceneSource(m.cfg.Scene, source),
			"only_off":     false,
		}))
	}
	m.worker.Enqueue(worker.New(worker.ToggleSource, map[string]any{
		"scene_source": compositor.NewSceneSource(m.cfg.Scene, m.cfg.LoadingSource),
		"only_off":     true,
	}))
	m.worker.Enqueue(worker.New(worker.RestartMedia, map[string]any{
		"input": m.cfg.Source,
	}))

	m.log.WithField("stream_key", user.StreamKey).Info("stream started")
}

// SwitchStream advances the lead to the next queued entry, if any.
// Non-blocking: if another swap is already in flight it returns
// immediately rather than queueing up behind it (L-SWITCH is a
// try-lock, never a blocking acquire).
func (m *Manager) SwitchStream() {
	if !m.switchMu.TryLock() {
		m.log.Debug("swap already in flight, skipping tick")
		return
	}
	defer m.switchMu.Unlock()

	m.lock.Lock()
	defer m.lock.Unlock()
	m.switchStreamLocked()
}

// switchStreamLocked assumes lock is already held (by SwitchStream,
// above) and reaches directly into Queue's *Locked methods — calling
// the exported Queue methods here would deadlock on the same mutex.
func (m *Manager) switchStreamLocked() {
	old, ok := m.queue.dequeueHeadLocked()
	if !ok {
		m.timeManager = nil
		return
	}

	m.worker.Enqueue(worker.New(worker.StopRecording, map[string]any{
		"stream_key": old.StreamKey,
		"dj_name":    old.DisplayName,
	}))
	m.worker.Enqueue(worker.New(worker.SendNotification, map[string]any{
		"message": fmt.Sprintf("%s has stopped streaming.", old.DisplayName),
	}))
	m.worker.Enqueue(worker.New(worker.KickPublisher, map[string]any{
		"stream_key": old.StreamKey,
	}))

	m.timeManager = nil
	m.lastKickedKey = old.StreamKey

	next, ok := m.queue.peekHeadLocked()
	if !ok {
		m.priorityKey = ""
		m.priorityDeadline = time.Time{}
		if !m.obsOff {
			m.worker.Enqueue(worker.New(worker.ToggleSource, map[string]any{
				"scene_source": compositor.NewSceneSource(m.cfg.Scene, m.cfg.Source),
				"only_off":     true,
			}))
			m.obsOff = true
		}
		m.log.WithField("stream_key", old.StreamKey).Info("lead stepped down, queue empty")
		return
	}

	m.startStreamLocked(next)
	m.priorityKey = next.StreamKey
	m.priorityDeadline = time.Now().Add(m.cfg.PriorityTimeout)
	m.worker.Enqueue(worker.New(worker.KickPublisher, map[string]any{
		"stream_key": next.StreamKey,
	}))

	m.log.WithField("from", old.StreamKey).WithField("to", next.StreamKey).Info("lead swapped")
}

// ProcessTick is called once per tick by the supervisor's periodic
// task; it clears an expired priority grant and, if the swap window
// has elapsed, triggers a swap.
func (m *Manager) ProcessTick() {
	m.lock.Lock()
	tm := m.timeManager
	expired := tm != nil && tm.HasElapsed()
	if m.priorityKey != "" && !m.priorityDeadline.IsZero() && time.Now().After(m.priorityDeadline) {
		m.log.WithField("stream_key", m.priorityKey).Debug("priority window expired")
		m.priorityKey = ""
		m.priorityDeadline = time.Time{}
	}
	m.lock.Unlock()

	if expired {
		m.SwitchStream()
	}
}
