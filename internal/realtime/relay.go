package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
)

// Relay routes WebRTC signaling payloads between call participants.
// The payload is opaque; the relay attaches sender metadata outside it
// and otherwise passes it through untouched.
type Relay struct {
	registry *Registry
	rooms    *Rooms
	log      *zap.Logger
}

// NewRelay creates a signal relay over the given registry and rooms
func NewRelay(registry *Registry, rooms *Rooms, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		registry: registry,
		rooms:    rooms,
		log:      log,
	}
}

// RelayResult reports how a signal was routed, for metrics
type RelayResult string

const (
	RelayTargeted  RelayResult = "targeted"
	RelayBroadcast RelayResult = "broadcast"
	RelayDropped   RelayResult = "dropped"
)

// Relay delivers a signaling payload. With a target it goes point-to-
// point via the registry; a missing target is dropped silently, since
// the peer may simply have disconnected mid-negotiation and signaling
// is lossy by contract. Without a target it is broadcast to every other
// member of the call room.
func (r *Relay) Relay(sender *UserProfile, room domain.Room, targetID uuid.UUID, signalData json.RawMessage) RelayResult {
	payload := &SignalPayload{
		SignalData: signalData,
		FromUserID: sender.UserID,
		FromName:   sender.DisplayName,
	}

	if targetID != uuid.Nil {
		target, ok := r.registry.Lookup(targetID)
		if !ok {
			r.log.Debug("signal target not connected",
				zap.String("room", string(room)),
				zap.String("target_id", targetID.String()))
			return RelayDropped
		}
		if err := target.Send(EventCallSignal, payload); err != nil {
			r.log.Debug("signal delivery failed",
				zap.String("room", string(room)),
				zap.String("target_id", targetID.String()),
				zap.Error(err))
			return RelayDropped
		}
		return RelayTargeted
	}

	r.rooms.Broadcast(room, EventCallSignal, payload, sender.UserID)
	return RelayBroadcast
}
