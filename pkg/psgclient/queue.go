package psgclient

import "sync"

// Queue tracks in-flight submissions by request id, preventing the same
// request from being resubmitted to the same session while it is still
// outstanding (spec.md §4.8: "an async queue of pending requests keyed
// by submitter id").
type Queue struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

// NewQueue builds an empty Queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[string]struct{})}
}

// TryAdmit marks id as in-flight. Returns false if id is already
// pending.
func (q *Queue) TryAdmit(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.pending[id]; exists {
		return false
	}
	q.pending[id] = struct{}{}
	return true
}

// Remove clears id from the pending set, called once the request
// reaches a terminal state (completed, failed, or cancelled).
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, id)
}

// Len returns the number of currently in-flight requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
