package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
)

// Rooms tracks which connections belong to which rooms. Membership is
// keyed by the session ID, decoupled from the transport object, so the
// core stays unit-testable without a network stack.
type Rooms struct {
	mu sync.RWMutex
	// members[room][sessionID]
	members map[domain.Room]map[string]Session
	// joined[sessionID][room], the reverse index used on teardown
	joined map[string]map[domain.Room]struct{}

	log *zap.Logger
}

// NewRooms creates an empty membership table
func NewRooms(log *zap.Logger) *Rooms {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rooms{
		members: make(map[domain.Room]map[string]Session),
		joined:  make(map[string]map[domain.Room]struct{}),
		log:     log,
	}
}

// Join adds a connection to a room. Joining a room the connection is
// already in is a no-op. Returns true when this is the room's first
// local member, which is the hub's cue to subscribe to the room's
// notification channel.
func (r *Rooms) Join(s Session, room domain.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[room]
	if !ok {
		set = make(map[string]Session)
		r.members[room] = set
	}
	if _, exists := set[s.ID()]; exists {
		return false
	}
	set[s.ID()] = s

	rooms, ok := r.joined[s.ID()]
	if !ok {
		rooms = make(map[domain.Room]struct{})
		r.joined[s.ID()] = rooms
	}
	rooms[room] = struct{}{}

	return len(set) == 1
}

// Leave removes a connection from a room. Leaving a room the connection
// is not in is a no-op. Reports whether the membership existed and
// whether the room became empty.
func (r *Rooms) Leave(s Session, room domain.Room) (removed, emptied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.leaveLocked(s.ID(), room)
}

func (r *Rooms) leaveLocked(sessionID string, room domain.Room) (removed, emptied bool) {
	set, ok := r.members[room]
	if !ok {
		return false, false
	}
	if _, exists := set[sessionID]; !exists {
		return false, false
	}
	delete(set, sessionID)

	if rooms, ok := r.joined[sessionID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, sessionID)
		}
	}

	if len(set) == 0 {
		delete(r.members, room)
		return true, true
	}
	return true, false
}

// LeaveAll clears every membership of a connection, called on
// disconnect. Returns the rooms left and the subset that became empty.
func (r *Rooms) LeaveAll(sessionID string) (left, emptied []domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.joined[sessionID]
	if !ok {
		return nil, nil
	}

	for room := range rooms {
		left = append(left, room)
		if _, empty := r.leaveLocked(sessionID, room); empty {
			emptied = append(emptied, room)
		}
	}
	return left, emptied
}

// Members returns a snapshot of the room's current members
func (r *Rooms) Members(room domain.Room) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.members[room]
	members := make([]Session, 0, len(set))
	for _, s := range set {
		members = append(members, s)
	}
	return members
}

// Count returns the room's current member count
func (r *Rooms) Count(room domain.Room) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}

// Broadcast delivers an event to every member of a room except the
// excluded user (the originator never receives its own echo). Delivery
// is fire-and-forget per member: one gone connection does not abort
// delivery to the rest. Returns the number of successful deliveries.
func (r *Rooms) Broadcast(room domain.Room, event string, data any, exclude uuid.UUID) int {
	// Snapshot under the read lock, deliver outside it: Send must not
	// hold up membership changes on other rooms.
	members := r.Members(room)

	delivered := 0
	for _, s := range members {
		if s.UserID() == exclude {
			continue
		}
		if err := s.Send(event, data); err != nil {
			r.log.Debug("dropped delivery",
				zap.String("room", string(room)),
				zap.String("event", event),
				zap.String("user_id", s.UserID().String()),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}
