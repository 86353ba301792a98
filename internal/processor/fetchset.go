package processor

import (
	"sync"

	"github.com/ocx/backend/internal/cassfetch"
)

// fetchSet tracks the Cassandra fetches one processor owns and wakes the
// event loop when any of them makes progress, implementing spec.md
// §4.5's peek discipline: a fetch's own goroutine is the only thing
// that blocks, never the event-loop thread.
type fetchSet struct {
	mu      sync.Mutex
	tasks   []cassfetch.Fetch
	ready   chan struct{}
	onReady func()
}

func newFetchSet() *fetchSet {
	fs := &fetchSet{ready: make(chan struct{}, 1)}
	fs.onReady = fs.notify
	return fs
}

func (fs *fetchSet) notify() {
	select {
	case fs.ready <- struct{}{}:
	default:
	}
}

// add registers f for tracking. Call before f.Start().
func (fs *fetchSet) add(f cassfetch.Fetch) {
	fs.mu.Lock()
	fs.tasks = append(fs.tasks, f)
	fs.mu.Unlock()
}

// Ready is the channel the owning processor's event loop selects on.
func (fs *fetchSet) Ready() <-chan struct{} {
	return fs.ready
}

// allSettled reports whether every tracked fetch has reached done or error.
func (fs *fetchSet) allSettled() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, t := range fs.tasks {
		st := t.State()
		if st != cassfetch.StateDone && st != cassfetch.StateError {
			return false
		}
	}
	return true
}

// cancelAll best-effort cancels every tracked fetch.
func (fs *fetchSet) cancelAll() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, t := range fs.tasks {
		t.Cancel()
	}
}
