// Copyright 2025 Certen Protocol
//
// Sessions map (session-id -> ExecutionSession): a reader-writer lock
// guarding writes only at start, status transitions, and end, per the
// concurrency model's discipline for this resource.

package session

import (
	"sync"

	"github.com/certen/offchain-channel/pkg/corerr"
)

type sessionRegistry struct {
	mu   sync.RWMutex
	byId map[string]*ExecutionSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byId: make(map[string]*ExecutionSession)}
}

func (r *sessionRegistry) put(s *ExecutionSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byId[s.SessionId] = s
}

func (r *sessionRegistry) get(id string) (*ExecutionSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byId[id]
	return s, ok
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byId, id)
}

// transition moves the session identified by id to status to, enforcing
// the forward-only state machine. Called under the registry's own lock so
// the read-modify-write is atomic with respect to other transitions.
func (r *sessionRegistry) transition(id string, to Status, failureReason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byId[id]
	if !ok {
		return corerr.New(corerr.InternalError, "session.transition", "unknown session: "+id)
	}
	if !canTransition(s.Status, to) {
		return corerr.New(corerr.InternalError, "session.transition",
			"illegal transition "+string(s.Status)+" -> "+string(to))
	}
	s.Status = to
	if to == StatusFailed {
		s.FailureReason = failureReason
	}
	return nil
}

func (r *sessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byId)
}
