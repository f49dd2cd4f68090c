package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/realtime"
	"teamwire-backend/pkg/metrics"
)

// CallService is the slice of the call lifecycle the transport needs
// for disconnect teardown
type CallService interface {
	LeaveActiveByRoom(ctx context.Context, kind domain.CallKind, roomRef string, userID uuid.UUID) error
}

// PresenceStore tracks online/offline status
type PresenceStore interface {
	SetUserOnline(ctx context.Context, userID uuid.UUID) error
	SetUserOffline(ctx context.Context, userID uuid.UUID) error
	RefreshPresence(ctx context.Context, userID uuid.UUID) error
}

// Hub owns the live connections of one service instance. It wires the
// transport to the core: connections register here, room joins manage
// the instance's Redis subscriptions, and published notifications are
// fanned back out to local members.
type Hub struct {
	registry *realtime.Registry
	rooms    *realtime.Rooms
	relay    *realtime.Relay

	notifier realtime.Notifier
	calls    CallService
	presence PresenceStore

	redisClient *redis.Client
	metrics     *metrics.Metrics
	log         *zap.Logger

	// subscriptions[room] cancels the room's pub/sub reader. Held only
	// while this instance has local members in the room.
	subMu         sync.Mutex
	subscriptions map[domain.Room]context.CancelFunc
}

// NewHub creates a hub over the shared core state
func NewHub(
	registry *realtime.Registry,
	rooms *realtime.Rooms,
	relay *realtime.Relay,
	notifier realtime.Notifier,
	calls CallService,
	presence PresenceStore,
	redisClient *redis.Client,
	m *metrics.Metrics,
	log *zap.Logger,
) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		registry:      registry,
		rooms:         rooms,
		relay:         relay,
		notifier:      notifier,
		calls:         calls,
		presence:      presence,
		redisClient:   redisClient,
		metrics:       m,
		log:           log,
		subscriptions: make(map[domain.Room]context.CancelFunc),
	}
}

// connect registers a new connection, replacing and tearing down any
// previous connection of the same user
func (h *Hub) connect(c *Client) {
	if prev := h.registry.Register(c); prev != nil {
		h.log.Info("replacing existing connection",
			zap.String("user_id", c.UserID().String()),
			zap.String("old_session_id", prev.ID()))
		if old, ok := prev.(*Client); ok {
			old.Close()
		}
	}

	if err := h.presence.SetUserOnline(context.Background(), c.UserID()); err != nil {
		h.log.Warn("failed to set presence online",
			zap.String("user_id", c.UserID().String()),
			zap.Error(err))
	}

	if h.metrics != nil {
		h.metrics.ConnectionOpened()
	}
}

// disconnect runs the full teardown for a gone connection: leave every
// active call whose room the connection was in, clear room memberships,
// release the registry slot, and mark the user offline. Called exactly
// once per connection, from its readPump exit.
func (h *Hub) disconnect(c *Client) {
	ctx := context.Background()

	left, _ := h.rooms.LeaveAll(c.ID())
	for _, room := range left {
		if h.metrics != nil {
			h.metrics.RoomLeft(room.Kind())
		}
		if kind, ref, ok := domain.ParseCallRoom(room); ok {
			if err := h.calls.LeaveActiveByRoom(ctx, kind, ref, c.UserID()); err != nil {
				h.log.Warn("call teardown failed on disconnect",
					zap.String("room", string(room)),
					zap.String("user_id", c.UserID().String()),
					zap.Error(err))
			}
		}
		h.maybeUnsubscribe(room)
	}

	// The sessionID guard keeps a replaced connection's delayed teardown
	// from evicting its replacement; presence follows the same rule.
	if h.registry.Unregister(c.UserID(), c.ID()) {
		if err := h.presence.SetUserOffline(ctx, c.UserID()); err != nil {
			h.log.Warn("failed to set presence offline",
				zap.String("user_id", c.UserID().String()),
				zap.Error(err))
		}
	}

	if h.metrics != nil {
		h.metrics.ConnectionClosed()
	}
}

// heartbeat refreshes the user's presence TTL, driven by pong frames
func (h *Hub) heartbeat(c *Client) {
	if err := h.presence.RefreshPresence(context.Background(), c.UserID()); err != nil {
		h.log.Debug("presence refresh failed",
			zap.String("user_id", c.UserID().String()),
			zap.Error(err))
	}
}

// joinRoom adds the connection to a room and, on the room's first local
// member, subscribes this instance to the room's notification channel
func (h *Hub) joinRoom(c *Client, room domain.Room) {
	first := h.rooms.Join(c, room)
	if h.metrics != nil {
		h.metrics.RoomJoined(room.Kind())
	}
	if first {
		h.subscribe(room)
	}
}

// leaveRoom removes the connection from a room and drops the room's
// subscription when no local members remain
func (h *Hub) leaveRoom(c *Client, room domain.Room) {
	removed, emptied := h.rooms.Leave(c, room)
	if !removed {
		return
	}
	if h.metrics != nil {
		h.metrics.RoomLeft(room.Kind())
	}
	if emptied {
		h.maybeUnsubscribe(room)
	}
}

func (h *Hub) subscribe(room domain.Room) {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	if _, ok := h.subscriptions[room]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.subscriptions[room] = cancel

	go h.readSubscription(ctx, room)
}

// maybeUnsubscribe drops the room's subscription if it has no local
// members left
func (h *Hub) maybeUnsubscribe(room domain.Room) {
	if h.rooms.Count(room) > 0 {
		return
	}

	h.subMu.Lock()
	defer h.subMu.Unlock()

	if cancel, ok := h.subscriptions[room]; ok {
		cancel()
		delete(h.subscriptions, room)
	}
}

// readSubscription pumps the room's published notifications to local
// members until the subscription is cancelled
func (h *Hub) readSubscription(ctx context.Context, room domain.Room) {
	pubsub := h.redisClient.Subscribe(ctx, realtime.NotifyChannel(room))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope realtime.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				h.log.Error("invalid notification envelope",
					zap.String("room", string(room)),
					zap.Error(err))
				continue
			}

			delivered := h.rooms.Broadcast(envelope.Room, envelope.Event, envelope.Data, envelope.Exclude)
			if h.metrics != nil {
				h.metrics.RecordFanOut(envelope.Event, delivered)
			}
		}
	}
}

func (h *Hub) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordWebSocketError(kind)
	}
}
