package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/realtime"
)

type notification struct {
	room    domain.Room
	event   string
	data    any
	exclude uuid.UUID
}

// recordingNotifier captures fan-out calls instead of publishing them
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, room domain.Room, event string, data any, exclude uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{room: room, event: event, data: data, exclude: exclude})
}

func (n *recordingNotifier) notifications() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

func newTestHub(notifier realtime.Notifier) *Hub {
	registry := realtime.NewRegistry()
	rooms := realtime.NewRooms(zap.NewNop())
	relay := realtime.NewRelay(registry, rooms, zap.NewNop())
	// Subscription readers connect lazily; an unreachable address keeps
	// them idle without failing the join path.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	return NewHub(registry, rooms, relay, notifier, nil, nil, client, nil, zap.NewNop())
}

func newTestClient(hub *Hub, name string) *Client {
	return &Client{
		id: uuid.NewString(),
		profile: &realtime.UserProfile{
			UserID:      uuid.New(),
			DisplayName: name,
		},
		hub:    hub,
		send:   make(chan []byte, 16),
		closed: make(chan struct{}),
		log:    zap.NewNop(),
	}
}

func inbound(event, payload string) *realtime.Frame {
	return &realtime.Frame{Event: event, Data: json.RawMessage(payload)}
}

func receiveFrame(t *testing.T, c *Client) *realtime.Frame {
	t.Helper()
	select {
	case raw := <-c.send:
		frame := &realtime.Frame{}
		assert.NoError(t, json.Unmarshal(raw, frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return nil
	}
}

func TestDispatchCallJoinDerivesChannelRoom(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	c := newTestClient(hub, "Alice")

	channelID := uuid.New()
	hub.dispatch(c, inbound(realtime.EventCallJoin,
		`{"roomId":"`+channelID.String()+`","roomType":"channel"}`))

	room := domain.CallRoomFor(domain.CallKindChannel, channelID.String())
	assert.Equal(t, 1, hub.rooms.Count(room))

	sent := notifier.notifications()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, room, sent[0].room)
		assert.Equal(t, realtime.EventCallUserJoined, sent[0].event)
		assert.Equal(t, c.UserID(), sent[0].exclude)
		payload := sent[0].data.(*realtime.UserJoinedPayload)
		assert.Equal(t, c.UserID(), payload.UserID)
		assert.Equal(t, "Alice", payload.UserName)
	}
}

func TestDispatchCallJoinDerivesDMRoom(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	c := newTestClient(hub, "Alice")

	key := domain.DMRoomKey(uuid.New(), uuid.New())
	hub.dispatch(c, inbound(realtime.EventCallJoin,
		`{"roomId":"`+key+`","roomType":"dm"}`))

	assert.Equal(t, 1, hub.rooms.Count(domain.CallRoomFor(domain.CallKindDM, key)))
}

func TestDispatchCallJoinRejectsUnknownRoomType(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	c := newTestClient(hub, "Alice")

	hub.dispatch(c, inbound(realtime.EventCallJoin,
		`{"roomId":"`+uuid.NewString()+`","roomType":"group"}`))

	assert.Empty(t, notifier.notifications())
}

func TestDispatchCallLeaveAnnouncesThenLeaves(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	c := newTestClient(hub, "Alice")

	channelID := uuid.New()
	payload := `{"roomId":"` + channelID.String() + `","roomType":"channel"}`
	room := domain.CallRoomFor(domain.CallKindChannel, channelID.String())

	hub.dispatch(c, inbound(realtime.EventCallJoin, payload))
	hub.dispatch(c, inbound(realtime.EventCallLeave, payload))

	assert.Equal(t, 0, hub.rooms.Count(room))

	sent := notifier.notifications()
	if assert.Len(t, sent, 2) {
		assert.Equal(t, realtime.EventCallUserLeft, sent[1].event)
		assert.Equal(t, room, sent[1].room)
	}
}

func TestDispatchSignalTargeted(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	sender := newTestClient(hub, "Alice")
	target := newTestClient(hub, "Bob")
	hub.registry.Register(target)

	channelID := uuid.New()
	hub.dispatch(sender, inbound(realtime.EventCallSignal,
		`{"roomId":"`+channelID.String()+`","roomType":"channel",`+
			`"signalData":{"type":"offer"},"targetUserId":"`+target.UserID().String()+`"}`))

	frame := receiveFrame(t, target)
	assert.Equal(t, realtime.EventCallSignal, frame.Event)

	var relayed realtime.SignalPayload
	assert.NoError(t, json.Unmarshal(frame.Data, &relayed))
	assert.Equal(t, sender.UserID(), relayed.FromUserID)
	assert.Equal(t, "Alice", relayed.FromName)
	assert.JSONEq(t, `{"type":"offer"}`, string(relayed.SignalData))
}

func TestDispatchSignalBroadcastWithoutTarget(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	sender := newTestClient(hub, "Alice")
	peer := newTestClient(hub, "Bob")

	channelID := uuid.New()
	payload := `{"roomId":"` + channelID.String() + `","roomType":"channel"}`
	hub.dispatch(sender, inbound(realtime.EventCallJoin, payload))
	hub.dispatch(peer, inbound(realtime.EventCallJoin, payload))

	hub.dispatch(sender, inbound(realtime.EventCallSignal,
		`{"roomId":"`+channelID.String()+`","roomType":"channel","signalData":{"type":"offer"}}`))

	frame := receiveFrame(t, peer)
	assert.Equal(t, realtime.EventCallSignal, frame.Event)
	assert.Empty(t, sender.send)
}

func TestDispatchToggleMute(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	c := newTestClient(hub, "Alice")

	key := domain.DMRoomKey(uuid.New(), uuid.New())
	hub.dispatch(c, inbound(realtime.EventToggleMute,
		`{"roomId":"`+key+`","roomType":"dm","isMuted":true}`))

	sent := notifier.notifications()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, domain.CallRoomFor(domain.CallKindDM, key), sent[0].room)
		assert.Equal(t, realtime.EventCallUserMuted, sent[0].event)
		payload := sent[0].data.(*realtime.UserMutedPayload)
		assert.True(t, payload.IsMuted)
	}
}

func TestDispatchTypingChannel(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	c := newTestClient(hub, "Alice")

	channelID := uuid.New()
	hub.dispatch(c, inbound(realtime.EventTypingStart,
		`{"channelId":"`+channelID.String()+`","isDm":false}`))

	sent := notifier.notifications()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, domain.ChannelRoom(channelID), sent[0].room)
		assert.Equal(t, realtime.EventTypingStart, sent[0].event)
		assert.Equal(t, c.UserID(), sent[0].exclude)
	}
}

func TestDispatchTypingDM(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	c := newTestClient(hub, "Alice")

	key := domain.DMRoomKey(uuid.New(), uuid.New())
	hub.dispatch(c, inbound(realtime.EventTypingStop,
		`{"dmRoomId":"`+key+`","isDm":true}`))

	sent := notifier.notifications()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, domain.DMRoom(key), sent[0].room)
		assert.Equal(t, realtime.EventTypingStop, sent[0].event)
	}
}

func TestDispatchTypingMissingReference(t *testing.T) {
	notifier := &recordingNotifier{}
	hub := newTestHub(notifier)
	c := newTestClient(hub, "Alice")

	hub.dispatch(c, inbound(realtime.EventTypingStart, `{"isDm":true}`))

	assert.Empty(t, notifier.notifications())
}
