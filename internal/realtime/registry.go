package realtime

import (
	"sync"

	"ai-interview-engine/internal/observability/metrics"
)

// Handle is the control surface of one registered connection.
type Handle struct {
	// Cancel asks the connection to shut down.
	Cancel func()
	// Done is closed when the connection has fully torn down.
	Done <-chan struct{}
}

// Registry enforces at most one active realtime connection per
// interview. Process-local; a multi-instance deployment needs an
// external coordination point.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	metrics *metrics.Metrics
}

type registryEntry struct {
	handle Handle
	once   sync.Once
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		metrics: metrics.DefaultMetrics,
	}
}

// Acquire registers a connection for the interview. If a prior
// connection holds the slot it is cancelled and its teardown awaited
// before Acquire returns, so the new connection never races the old one
// on the session. Returns a release func for the new registration.
func (r *Registry) Acquire(interviewID string, h Handle) (release func()) {
	entry := &registryEntry{handle: h}

	r.mu.Lock()
	old := r.entries[interviewID]
	r.entries[interviewID] = entry
	r.mu.Unlock()

	if old != nil {
		r.metrics.RealtimeEvictions.Inc()
		if old.handle.Cancel != nil {
			old.handle.Cancel()
		}
		if old.handle.Done != nil {
			<-old.handle.Done
		}
	}

	return func() { r.release(interviewID, entry) }
}

// release removes the entry if it still holds the slot. Idempotent.
func (r *Registry) release(interviewID string, entry *registryEntry) {
	entry.once.Do(func() {
		r.mu.Lock()
		if r.entries[interviewID] == entry {
			delete(r.entries, interviewID)
		}
		r.mu.Unlock()
	})
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// CancelAll cancels every registered connection. Used on shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.entries))
	for _, e := range r.entries {
		handles = append(handles, e.handle)
	}
	r.mu.Unlock()

	for _, h := range handles {
		if h.Cancel != nil {
			h.Cancel()
		}
	}
	for _, h := range handles {
		if h.Done != nil {
			<-h.Done
		}
	}
}
