package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"teamwire-backend/internal/domain"
)

func TestRoomsJoinReportsFirstMember(t *testing.T) {
	rooms := NewRooms(nil)
	room := domain.ChannelRoom(uuid.New())
	alice := newFakeSession(uuid.New(), "alice")
	bob := newFakeSession(uuid.New(), "bob")

	assert.True(t, rooms.Join(alice, room), "first member triggers subscribe")
	assert.False(t, rooms.Join(bob, room))
	assert.Equal(t, 2, rooms.Count(room))
}

func TestRoomsJoinIsIdempotent(t *testing.T) {
	rooms := NewRooms(nil)
	room := domain.ChannelRoom(uuid.New())
	alice := newFakeSession(uuid.New(), "alice")

	rooms.Join(alice, room)
	assert.False(t, rooms.Join(alice, room))
	assert.Equal(t, 1, rooms.Count(room))
}

func TestRoomsLeave(t *testing.T) {
	rooms := NewRooms(nil)
	room := domain.ChannelRoom(uuid.New())
	alice := newFakeSession(uuid.New(), "alice")
	bob := newFakeSession(uuid.New(), "bob")

	rooms.Join(alice, room)
	rooms.Join(bob, room)

	removed, emptied := rooms.Leave(alice, room)
	assert.True(t, removed)
	assert.False(t, emptied)

	removed, emptied = rooms.Leave(bob, room)
	assert.True(t, removed)
	assert.True(t, emptied)

	// Leaving a room the session is not in is a no-op
	removed, emptied = rooms.Leave(alice, room)
	assert.False(t, removed)
	assert.False(t, emptied)
}

func TestRoomsLeaveAll(t *testing.T) {
	rooms := NewRooms(nil)
	channel := domain.ChannelRoom(uuid.New())
	dm := domain.DMRoom("dm-a-b")
	alice := newFakeSession(uuid.New(), "alice")
	bob := newFakeSession(uuid.New(), "bob")

	rooms.Join(alice, channel)
	rooms.Join(alice, dm)
	rooms.Join(bob, channel)

	left, emptied := rooms.LeaveAll(alice.ID())
	assert.ElementsMatch(t, []domain.Room{channel, dm}, left)
	assert.ElementsMatch(t, []domain.Room{dm}, emptied, "channel still has bob")

	assert.Equal(t, 1, rooms.Count(channel))
	assert.Equal(t, 0, rooms.Count(dm))

	left, emptied = rooms.LeaveAll(alice.ID())
	assert.Empty(t, left)
	assert.Empty(t, emptied)
}

func TestBroadcastExcludesOriginator(t *testing.T) {
	rooms := NewRooms(nil)
	room := domain.ChannelRoom(uuid.New())
	alice := newFakeSession(uuid.New(), "alice")
	bob := newFakeSession(uuid.New(), "bob")
	carol := newFakeSession(uuid.New(), "carol")

	rooms.Join(alice, room)
	rooms.Join(bob, room)
	rooms.Join(carol, room)

	delivered := rooms.Broadcast(room, "message:new", "hi", alice.UserID())

	assert.Equal(t, 2, delivered)
	assert.Empty(t, alice.received(), "originator never receives its own echo")
	assert.Len(t, bob.received(), 1)
	assert.Len(t, carol.received(), 1)
}

func TestBroadcastSurvivesFailedDelivery(t *testing.T) {
	rooms := NewRooms(nil)
	room := domain.ChannelRoom(uuid.New())
	alice := newFakeSession(uuid.New(), "alice")
	bob := newFakeSession(uuid.New(), "bob")
	bob.fail = true
	carol := newFakeSession(uuid.New(), "carol")

	rooms.Join(alice, room)
	rooms.Join(bob, room)
	rooms.Join(carol, room)

	delivered := rooms.Broadcast(room, "typing:start", nil, alice.UserID())

	assert.Equal(t, 1, delivered, "bob's failure must not block carol")
	assert.Len(t, carol.received(), 1)
}

func TestBroadcastEmptyRoom(t *testing.T) {
	rooms := NewRooms(nil)
	room := domain.ChannelRoom(uuid.New())

	assert.Equal(t, 0, rooms.Broadcast(room, "message:new", "hi", uuid.Nil))
}
