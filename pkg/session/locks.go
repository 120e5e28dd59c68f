// Copyright 2025 Certen Protocol
//
// Process-wide object lock registry. One reader-writer lock guards the
// whole map; critical sections are bounded to O(objects in the request)
// per the concurrency model's discipline for this resource.

package session

import (
	"fmt"
	"sync"

	"github.com/certen/offchain-channel/pkg/coreid"
)

// lockRegistry is the locks map (object-id -> LockedObject) shared by all
// sessions. The Manager is its sole mutator; readers never see a partial
// acquisition because acquireAll holds the write lock for the whole batch.
type lockRegistry struct {
	mu    sync.RWMutex
	byId  map[coreid.ObjectId]LockedObject
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{byId: make(map[coreid.ObjectId]LockedObject)}
}

// acquireAll attempts to lock every id in ids atomically: either all
// succeed, or none remain locked. make builds the LockedObject for an id
// that is about to be inserted (it may perform chain lookups before the
// lock is taken; the registry only guards the map itself).
func (r *lockRegistry) acquireAll(ids []coreid.ObjectId, make_ func(coreid.ObjectId) (LockedObject, error)) ([]LockedObject, error) {
	built := make([]LockedObject, 0, len(ids))
	for _, id := range ids {
		lo, err := make_(id)
		if err != nil {
			return nil, err
		}
		built = append(built, lo)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, lo := range built {
		if _, exists := r.byId[lo.ObjectId]; exists {
			return nil, fmt.Errorf("object already locked: %s", lo.ObjectId)
		}
	}
	for _, lo := range built {
		r.byId[lo.ObjectId] = lo
	}
	return built, nil
}

// release removes every id in ids from the registry, ignoring ids that
// are already absent (idempotent, so the finalizer can call it safely on
// any failure path regardless of how far step 1 got).
func (r *lockRegistry) release(ids []coreid.ObjectId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.byId, id)
	}
}

// locked reports whether id currently has an active lock.
func (r *lockRegistry) locked(id coreid.ObjectId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byId[id]
	return ok
}

// count returns the number of currently locked objects, used by tests to
// assert the "no residual locks" invariant.
func (r *lockRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byId)
}
