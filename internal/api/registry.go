package api

import (
	"context"
	"sync"
)

// requestRegistry tracks the cancel function of every in-flight request by
// its call ID, so any single request can be aborted in O(1) and shutdown can
// abort them all.
type requestRegistry struct {
	cancels map[string]context.CancelFunc
	mu      sync.Mutex
}

func newRequestRegistry() *requestRegistry {
	return &requestRegistry{cancels: make(map[string]context.CancelFunc)}
}

func (r *requestRegistry) add(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[id] = cancel
}

func (r *requestRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, id)
}

// cancel aborts the request with the given ID. Unknown or already-completed
// IDs are a safe no-op.
func (r *requestRegistry) cancel(id string) bool {
	r.mu.Lock()
	cancelFn, ok := r.cancels[id]
	if ok {
		delete(r.cancels, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	cancelFn()
	return true
}

// cancelAll aborts every in-flight request and returns how many were
// cancelled.
func (r *requestRegistry) cancelAll() int {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.cancels))
	for id, cancelFn := range r.cancels {
		cancels = append(cancels, cancelFn)
		delete(r.cancels, id)
	}
	r.mu.Unlock()

	for _, cancelFn := range cancels {
		cancelFn()
	}
	return len(cancels)
}

func (r *requestRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}
