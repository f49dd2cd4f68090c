package call

import (
	"sync"

	"github.com/google/uuid"
)

// keyedLocks serializes mutations per call id. Operations on different
// calls proceed fully in parallel; two operations on the same call
// queue behind one mutex. Entries are reference-counted so the map
// does not grow with every call ever seen.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{
		entries: make(map[uuid.UUID]*lockEntry),
	}
}

// Lock acquires the mutex for the given key and returns its release
// function
func (l *keyedLocks) Lock(key uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
