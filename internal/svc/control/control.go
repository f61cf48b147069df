// Package control implements the ingest control surface (C7): the
// synchronous HTTP RPC an RTMP ingest server calls once per publisher
// event, mirroring the on_publish/on_unpublish/on_forward convention
// of SRS-family servers.
package control

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"motherstream/internal/clients/users"
	"motherstream/internal/core/orchestrator"
)

// Config names the URLs returned on a forward decision.
type Config struct {
	MotherstreamURL string
	RecordingURL    string
	AlsoRecord      bool
}

// ForwardRecorder is the narrow metrics hook the surface reports
// through, kept as an interface so this package never imports the
// Prometheus client.
type ForwardRecorder interface {
	ForwardDecision(decision string)
}

type requestBody struct {
	Action string `json:"action"`
	Stream string `json:"stream"`
	App    string `json:"app"`
	Addr   string `json:"addr"`
	Param  string `json:"param"`
}

type responseBody struct {
	Code int          `json:"code"`
	Data responseData `json:"data"`
}

type responseData struct {
	URLs []string `json:"urls"`
}

// Surface is the http.Handler the ingest server calls.
type Surface struct {
	manager  *orchestrator.Manager
	provider users.Provider
	cfg      Config
	metrics  ForwardRecorder
	log      *logrus.Entry
}

// New builds a Surface. metrics may be nil to disable forward-decision
// counting, e.g. in tests.
func New(manager *orchestrator.Manager, provider users.Provider, cfg Config, metrics ForwardRecorder, log *logrus.Entry) *Surface {
	return &Surface{manager: manager, provider: provider, cfg: cfg, metrics: metrics, log: log}
}

// ServeHTTP implements the ingest control RPC. A panic in the decision
// procedure never escapes: it is recovered and answered with a safe
// do-not-forward response (§7, Panic / unhandled).
func (s *Surface) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer s.recoverPanic(w)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req requestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeAllowNoForward(w)
		return
	}

	switch req.Action {
	case "on_publish":
		s.onPublish(w, req.Stream)
	case "on_unpublish":
		s.onUnpublish(w, req.Stream)
	case "on_forward":
		s.onForward(w, req.Stream)
	case "on_record_begin", "on_record_end":
		s.writeAllowNoForward(w)
	default:
		s.writeAllowNoForward(w)
	}
}

func (s *Surface) onPublish(w http.ResponseWriter, streamKey string) {
	if !users.ValidStreamKey(streamKey) {
		s.writeReject(w)
		s.recordDecision("rejected")
		return
	}
	user, ok := s.provider.Lookup(streamKey)
	if !ok {
		s.writeReject(w)
		s.recordDecision("rejected")
		return
	}

	leadKey, leadOK := s.manager.LeadKey()

	switch {
	case !leadOK:
		if s.manager.GetLastKicked() == user.StreamKey && s.manager.GetBlocking() {
			s.writeReject(w)
			s.recordDecision("rejected")
			return
		}
		s.manager.ClearLastKicked()

		if inserted := s.manager.Queue().AddIfAbsent(user); inserted {
			if newLead, ok := s.manager.LeadKey(); ok && newLead == user.StreamKey {
				s.manager.StartStream(user)
				s.writeForward(w)
				s.recordDecision("forward")
				return
			}
		}
		s.writeAllowNoForward(w)
		s.recordDecision("queued")

	case leadKey == user.StreamKey:
		s.writeForward(w)
		s.recordDecision("forward")

	default:
		s.manager.Queue().AddIfAbsent(user)
		s.writeAllowNoForward(w)
		s.recordDecision("queued")
	}
}

func (s *Surface) onUnpublish(w http.ResponseWriter, streamKey string) {
	if streamKey != "" && s.manager.GetPriorityKey() == streamKey {
		// Expected kick-and-reconnect during a switch (§9 design note b):
		// the outgoing on_unpublish for the promoted streamer only clears
		// the grant, it never triggers a second switch.
		s.manager.ClearPriorityKey()
		s.writeAllowNoForward(w)
		return
	}

	if leadKey, ok := s.manager.LeadKey(); ok && leadKey == streamKey {
		s.manager.SwitchStream()
		s.writeAllowNoForward(w)
		return
	}

	// Neither lead nor priority: either a queued streamer left early, or
	// this key already left the queue during a switch and this is a
	// correct no-op.
	s.manager.Queue().RemoveByKey(streamKey)
	s.writeAllowNoForward(w)
}

func (s *Surface) onForward(w http.ResponseWriter, streamKey string) {
	if leadKey, ok := s.manager.LeadKey(); ok && leadKey == streamKey {
		s.writeForward(w)
		s.recordDecision("forward")
		return
	}
	s.writeAllowNoForward(w)
	s.recordDecision("not-forward")
}

func (s *Surface) urls() []string {
	urls := []string{s.cfg.MotherstreamURL}
	if s.cfg.AlsoRecord && s.cfg.RecordingURL != "" {
		urls = append(urls, s.cfg.RecordingURL)
	}
	return urls
}

func (s *Surface) writeForward(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, responseBody{Code: 0, Data: responseData{URLs: s.urls()}})
}

func (s *Surface) writeAllowNoForward(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, responseBody{Code: 0, Data: responseData{URLs: []string{}}})
}

func (s *Surface) writeReject(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusUnauthorized, responseBody{Code: 1, Data: responseData{URLs: []string{}}})
}

func (s *Surface) writeJSON(w http.ResponseWriter, status int, body responseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Surface) recordDecision(decision string) {
	if s.metrics != nil {
		s.metrics.ForwardDecision(decision)
	}
}

func (s *Surface) recoverPanic(w http.ResponseWriter) {
	if r := recover(); r != nil {
		s.log.WithField("panic", r).Error("ingest control handler panicked")
		s.writeAllowNoForward(w)
	}
}
