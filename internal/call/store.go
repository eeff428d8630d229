package call

import (
	"errors"
	"sync"
)

// ErrAlreadyExists is returned by [Store.Create] when a session for the call
// ID is already registered.
var ErrAlreadyExists = errors.New("call: session already exists")

// Store is the process-wide registry of live call sessions, keyed by call ID.
//
// The registry map is guarded by its own lock; each session additionally has
// a per-call lock so that Update callbacks for the same call are mutually
// exclusive while different calls never block one another. All methods are
// safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry)}
}

// Create registers a new session for callID seeded with the caller number.
// Returns [ErrAlreadyExists] if a live session for callID is present.
func (st *Store) Create(callID, callerNumber string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[callID]; ok {
		return ErrAlreadyExists
	}
	st.sessions[callID] = &entry{sess: newSession(callID, callerNumber)}
	return nil
}

// Get returns a snapshot of the session for callID. Absence is reported via
// the boolean, never as an error. The snapshot is a deep copy: mutating it
// has no effect on the stored session.
func (st *Store) Get(callID string) (Session, bool) {
	st.mu.RLock()
	e, ok := st.sessions[callID]
	st.mu.RUnlock()
	if !ok {
		return Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.snapshot(), true
}

// Update applies fn to the session for callID as an atomic read-modify-write
// under the call's lock. It reports whether the session existed. If the
// session was deleted concurrently, fn is not invoked.
func (st *Store) Update(callID string, fn func(*Session)) bool {
	st.mu.RLock()
	e, ok := st.sessions[callID]
	st.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return false
	}
	fn(e.sess)
	return true
}

// Delete removes the session for callID. Idempotent: deleting an absent
// session is a no-op.
func (st *Store) Delete(callID string) {
	st.mu.Lock()
	e, ok := st.sessions[callID]
	delete(st.sessions, callID)
	st.mu.Unlock()
	if !ok {
		return
	}

	// Mark the entry dead so a racing Update that already holds the entry
	// pointer observes the deletion.
	e.mu.Lock()
	e.sess = nil
	e.mu.Unlock()
}

// CallIDs returns the IDs of all live sessions. Used for shutdown sweeps.
func (st *Store) CallIDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
