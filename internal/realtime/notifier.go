package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
)

// Notifier delivers an event to every current member of a room except
// the originator. At-most-once and best-effort: implementations never
// surface delivery failures to the caller, and callers only notify
// after the durable write (if any) has succeeded.
type Notifier interface {
	Notify(ctx context.Context, room domain.Room, event string, data any, exclude uuid.UUID)
}

// Envelope is the pub/sub wire format for a fan-out notification
type Envelope struct {
	Room    domain.Room     `json:"room"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Exclude uuid.UUID       `json:"exclude,omitempty"`
}

// NotifyChannel returns the Redis Pub/Sub channel carrying a room's
// notifications
func NotifyChannel(room domain.Room) string {
	return "room:" + string(room)
}

// RedisNotifier publishes notifications to Redis Pub/Sub. Every hub
// instance with local members in the room is subscribed to the room's
// channel and fans the event out to its connections, so notifications
// reach members regardless of which instance they are connected to.
type RedisNotifier struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisNotifier creates a Redis-backed notifier
func NewRedisNotifier(client *redis.Client, log *zap.Logger) *RedisNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisNotifier{
		client: client,
		log:    log,
	}
}

// Notify publishes the event to the room's channel. Failures are logged
// and absorbed: the durable write already happened and clients recover
// missed events by reconciling over the request/response API.
func (n *RedisNotifier) Notify(ctx context.Context, room domain.Room, event string, data any, exclude uuid.UUID) {
	raw, err := json.Marshal(data)
	if err != nil {
		n.log.Error("failed to marshal notification",
			zap.String("room", string(room)),
			zap.String("event", event),
			zap.Error(err))
		return
	}

	envelope, err := json.Marshal(&Envelope{
		Room:    room,
		Event:   event,
		Data:    raw,
		Exclude: exclude,
	})
	if err != nil {
		n.log.Error("failed to marshal notification envelope",
			zap.String("room", string(room)),
			zap.String("event", event),
			zap.Error(err))
		return
	}

	if err := n.client.Publish(ctx, NotifyChannel(room), envelope).Err(); err != nil {
		n.log.Warn("failed to publish notification",
			zap.String("room", string(room)),
			zap.String("event", event),
			zap.Error(err))
	}
}
