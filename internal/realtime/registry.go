package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps authenticated user identities to their live connection.
// One active connection per user is the steady state: registering a new
// connection for a user replaces the previous one.
//
// Mutated concurrently from every connection's lifecycle callbacks.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]Session),
	}
}

// Register records the live connection for a user. Returns the session
// it replaced, if any, so the caller can tear the old one down.
func (r *Registry) Register(s Session) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[s.UserID()]
	r.sessions[s.UserID()] = s
	return prev
}

// Lookup returns the user's live connection, if registered
func (r *Registry) Lookup(userID uuid.UUID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// Unregister removes the user's connection. Idempotent: unregistering
// an absent user is harmless. The sessionID guard keeps the delayed
// teardown of a replaced connection from evicting its replacement.
func (r *Registry) Unregister(userID uuid.UUID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok || s.ID() != sessionID {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Len returns the number of registered connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
