package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"teamwire-backend/internal/domain"
)

func TestRelayTargeted(t *testing.T) {
	registry := NewRegistry()
	rooms := NewRooms(nil)
	relay := NewRelay(registry, rooms, nil)

	alice := newFakeSession(uuid.New(), "alice")
	bob := newFakeSession(uuid.New(), "bob")
	registry.Register(alice)
	registry.Register(bob)

	room := domain.CallRoomFor(domain.CallKindDM, "dm-a-b")
	signal := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)

	result := relay.Relay(alice.User(), room, bob.UserID(), signal)

	assert.Equal(t, RelayTargeted, result)
	events := bob.received()
	assert.Len(t, events, 1)
	assert.Equal(t, EventCallSignal, events[0].Event)

	payload := events[0].Data.(*SignalPayload)
	assert.Equal(t, alice.UserID(), payload.FromUserID)
	assert.Equal(t, "alice", payload.FromName)
	assert.JSONEq(t, string(signal), string(payload.SignalData), "signal passes through untouched")
}

func TestRelayMissingTargetDropsSilently(t *testing.T) {
	registry := NewRegistry()
	rooms := NewRooms(nil)
	relay := NewRelay(registry, rooms, nil)

	alice := newFakeSession(uuid.New(), "alice")
	registry.Register(alice)

	room := domain.CallRoomFor(domain.CallKindDM, "dm-a-b")
	result := relay.Relay(alice.User(), room, uuid.New(), json.RawMessage(`{}`))

	assert.Equal(t, RelayDropped, result)
}

func TestRelayBroadcastWithoutTarget(t *testing.T) {
	registry := NewRegistry()
	rooms := NewRooms(nil)
	relay := NewRelay(registry, rooms, nil)

	room := domain.CallRoomFor(domain.CallKindChannel, uuid.NewString())
	alice := newFakeSession(uuid.New(), "alice")
	bob := newFakeSession(uuid.New(), "bob")
	carol := newFakeSession(uuid.New(), "carol")
	for _, s := range []*fakeSession{alice, bob, carol} {
		registry.Register(s)
		rooms.Join(s, room)
	}

	result := relay.Relay(alice.User(), room, uuid.Nil, json.RawMessage(`{"candidate":"x"}`))

	assert.Equal(t, RelayBroadcast, result)
	assert.Empty(t, alice.received(), "sender excluded from its own broadcast")
	assert.Len(t, bob.received(), 1)
	assert.Len(t, carol.received(), 1)
}
