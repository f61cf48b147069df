package health

import "sync"

// Registry holds one Monitor per named source, created on first
// reference. Adapted from the pack's stream registry (GetOrCreate over
// a map behind one mutex); this one never removes entries since the
// set of monitored sources is fixed at startup, not dynamic per
// publisher.
type Registry struct {
	mu       sync.RWMutex
	monitors map[string]*Monitor
	factory  func(name string) *Monitor
}

// NewRegistry builds a Registry that lazily constructs monitors via
// factory.
func NewRegistry(factory func(name string) *Monitor) *Registry {
	return &Registry{monitors: make(map[string]*Monitor), factory: factory}
}

// GetOrCreate returns the Monitor for name, building it on first use.
func (r *Registry) GetOrCreate(name string) *Monitor {
	r.mu.RLock()
	m, ok := r.monitors[name]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.monitors[name]; ok {
		return m
	}
	m = r.factory(name)
	r.monitors[name] = m
	return m
}

// Get returns the Monitor for name, if one has been created.
func (r *Registry) Get(name string) (*Monitor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.monitors[name]
	return m, ok
}

// List returns the names of every monitor created so far.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.monitors))
	for name := range r.monitors {
		names = append(names, name)
	}
	return names
}

// Scores returns the latest health score per source, for the metrics
// surface's gauge export.
func (r *Registry) Scores() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.monitors))
	for name, m := range r.monitors {
		out[name] = m.LatestScore()
	}
	return out
}
