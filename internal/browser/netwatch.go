package browser

import (
	"context"
	"sync"
	"time"
)

// NetworkWatcher tracks in-flight requests from CDP network events so
// navigation can wait for network quiescence. Event delivery is
// asynchronous relative to step execution; all state is mutex-guarded.
type NetworkWatcher struct {
	mu             sync.Mutex
	activeRequests int
	lastActivity   time.Time
}

// NewNetworkWatcher returns a watcher with activity stamped at creation, so
// WaitIdle called before any traffic still honors the quiet period.
func NewNetworkWatcher() *NetworkWatcher {
	return &NetworkWatcher{lastActivity: time.Now()}
}

// RequestStarted records a request going in flight.
func (w *NetworkWatcher) RequestStarted() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activeRequests++
	w.lastActivity = time.Now()
}

// RequestFinished records a request completing or failing.
func (w *NetworkWatcher) RequestFinished() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activeRequests--
	if w.activeRequests < 0 {
		w.activeRequests = 0
	}
	w.lastActivity = time.Now()
}

// InFlight returns the number of currently active requests.
func (w *NetworkWatcher) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeRequests
}

// WaitIdle blocks until no requests are active and a quiet period has
// passed, or the context is done.
func (w *NetworkWatcher) WaitIdle(ctx context.Context, quietPeriod time.Duration) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.mu.Lock()
			active := w.activeRequests
			sinceLastActivity := time.Since(w.lastActivity)
			w.mu.Unlock()

			if active == 0 && sinceLastActivity >= quietPeriod {
				return nil
			}
		}
	}
}
