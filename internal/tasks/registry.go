package tasks

import (
	"context"
	"sync"
)

type job struct {
	sessionID string
	claim     int
	cancel    context.CancelCauseFunc
}

// JobRegistry tracks in-flight workers by item id so they can be cancelled.
//
// It is bookkeeping only; the queue store stays the source of truth for item state.
type JobRegistry struct {
	mu   sync.Mutex
	jobs map[string]job
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]job)}
}

// Add registers the worker started for claim of itemID, replacing any older registration.
func (r *JobRegistry) Add(itemID, sessionID string, claim int, cancel context.CancelCauseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[itemID] = job{sessionID: sessionID, claim: claim, cancel: cancel}
}

// Remove forgets itemID if it is still registered for claim.
func (r *JobRegistry) Remove(itemID string, claim int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[itemID]; ok && j.claim == claim {
		delete(r.jobs, itemID)
	}
}

// Has reports whether a worker is registered for itemID.
func (r *JobRegistry) Has(itemID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[itemID]
	return ok
}

// Len returns the number of registered workers.
func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// CancelSession signals every worker of sessionID with cause and returns how many were signalled.
func (r *JobRegistry) CancelSession(sessionID string, cause error) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, j := range r.jobs {
		if j.sessionID == sessionID {
			j.cancel(cause)
			n++
		}
	}
	return n
}

// CancelItem signals the worker of itemID, if any.
func (r *JobRegistry) CancelItem(itemID string, cause error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[itemID]
	if ok {
		j.cancel(cause)
	}
	return ok
}

// CancelAll signals every registered worker.
func (r *JobRegistry) CancelAll(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		j.cancel(cause)
	}
}
