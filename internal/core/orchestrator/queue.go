// Package orchestrator is the state-machine authority: the FIFO
// rotation queue (C1) and the stream manager (C6) that owns lead,
// priority, and blocking state. Both share one mutex because
// switch_stream interleaves Queue mutations with its own state changes
// (§5, L-QUEUE) — they live in the same package so that sharing can be
// expressed with unexported "already locked" methods instead of a
// leaked lock.
package orchestrator

import (
	"sync"

	"github.com/sirupsen/logrus"

	"motherstream/internal/clients/users"
)

// Queue is the thread-safe FIFO of queued DJs. The head is the current
// lead (the one being forwarded); invariant Q-UNIQ holds no two entries
// share a stream-key.
type Queue struct {
	lock *sync.Mutex // shared with the owning Manager; see package doc

	entries      []users.User
	provider     users.Provider
	snapshotPath string
	log          *logrus.Entry
}

func newQueue(lock *sync.Mutex, provider users.Provider, snapshotPath string, log *logrus.Entry) *Queue {
	return &Queue{
		lock:         lock,
		provider:     provider,
		snapshotPath: snapshotPath,
		log:          log,
	}
}

// LoadSnapshot reloads the persisted id list and resolves each id back
// to a full user record. Unresolvable ids are dropped with a log entry
// rather than failing startup (§4.1).
func (q *Queue) LoadSnapshot() error {
	ids, err := readSnapshot(q.snapshotPath)
	if err != nil {
		return err
	}

	q.lock.Lock()
	defer q.lock.Unlock()

	entries := make([]users.User, 0, len(ids))
	for _, id := range ids {
		u, ok := q.provider.ByID(id)
		if !ok {
			q.log.WithField("user_id", id).Warn("dropping unresolvable user id from persisted queue")
			continue
		}
		entries = append(entries, u)
	}
	q.entries = entries
	return nil
}

// AddIfAbsent appends user unless its stream-key is already queued.
// Returns whether the insert happened.
func (q *Queue) AddIfAbsent(u users.User) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.addIfAbsentLocked(u)
}

func (q *Queue) addIfAbsentLocked(u users.User) bool {
	for _, e := range q.entries {
		if e.StreamKey == u.StreamKey {
			return false
		}
	}
	q.entries = append(q.entries, u)
	q.persistLocked()
	return true
}

// RemoveByKey removes the (at most one, by Q-UNIQ) entry matching key.
// A no-op if absent.
func (q *Queue) RemoveByKey(key string) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.removeByKeyLocked(key)
}

func (q *Queue) removeByKeyLocked(key string) {
	for i, e := range q.entries {
		if e.StreamKey == key {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.persistLocked()
			return
		}
	}
}

// DequeueHead pops and returns the head entry, if any.
func (q *Queue) DequeueHead() (users.User, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.dequeueHeadLocked()
}

func (q *Queue) dequeueHeadLocked() (users.User, bool) {
	if len(q.entries) == 0 {
		return users.User{}, false
	}
	head := q.entries[0]
	q.entries = q.entries[1:]
	q.persistLocked()
	return head, true
}

// PeekHead returns the head entry without removing it.
func (q *Queue) PeekHead() (users.User, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.peekHeadLocked()
}

func (q *Queue) peekHeadLocked() (users.User, bool) {
	if len(q.entries) == 0 {
		return users.User{}, false
	}
	return q.entries[0], true
}

// LeadKey returns the head's stream-key, if any.
func (q *Queue) LeadKey() (string, bool) {
	u, ok := q.PeekHead()
	if !ok {
		return "", false
	}
	return u.StreamKey, true
}

// SnapshotKeys returns the current stream-keys in order.
func (q *Queue) SnapshotKeys() []string {
	q.lock.Lock()
	defer q.lock.Unlock()
	keys := make([]string, len(q.entries))
	for i, e := range q.entries {
		keys[i] = e.StreamKey
	}
	return keys
}

// SnapshotNames returns the current display names in order.
func (q *Queue) SnapshotNames() []string {
	q.lock.Lock()
	defer q.lock.Unlock()
	names := make([]string, len(q.entries))
	for i, e := range q.entries {
		names[i] = e.DisplayName
	}
	return names
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.entries)
}

// GetLeadInfo returns the lead's stream-key, user record, and queue
// length as one atomic triple, avoiding the torn read a sequence of
// separate calls could produce.
func (q *Queue) GetLeadInfo() (key string, lead users.User, leadOK bool, length int) {
	q.lock.Lock()
	defer q.lock.Unlock()
	length = len(q.entries)
	if length == 0 {
		return "", users.User{}, false, 0
	}
	return q.entries[0].StreamKey, q.entries[0], true, length
}

func (q *Queue) persistLocked() {
	ids := make([]int, len(q.entries))
	for i, e := range q.entries {
		ids[i] = e.ID
	}
	if err := writeSnapshot(q.snapshotPath, ids); err != nil {
		q.log.WithError(err).Error("failed to persist queue snapshot")
	}
}
