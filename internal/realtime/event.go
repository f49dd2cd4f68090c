package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Inbound event names (client → server)
const (
	EventJoinChannel  = "join:channel"
	EventLeaveChannel = "leave:channel"
	EventJoinDM       = "join:dm"
	EventLeaveDM      = "leave:dm"
	EventCallJoin     = "call:join"
	EventCallLeave    = "call:leave"
	EventCallSignal   = "call:signal"
	EventToggleMute   = "call:toggle-mute"
	EventTypingStart  = "typing:start"
	EventTypingStop   = "typing:stop"
)

// Outbound event names (server → clients)
const (
	EventCallStarted    = "call:started"
	EventCallUserJoined = "call:user-joined"
	EventCallUserLeft   = "call:user-left"
	EventCallEnded      = "call:ended"
	EventCallUserMuted  = "call:user-muted"
	EventMessageNew     = "message:new"
)

// Frame is the wire envelope for every WebSocket message in both
// directions: an event name plus a JSON payload
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SignalPayload wraps a relayed WebRTC signaling blob with sender
// metadata. SignalData is opaque and passed through byte-for-byte;
// offer/answer/ICE semantics live entirely client-side.
type SignalPayload struct {
	SignalData json.RawMessage `json:"signalData"`
	FromUserID uuid.UUID       `json:"fromUserId"`
	FromName   string          `json:"fromUserName"`
}

// CallStartedPayload announces a newly started call to its backing
// room. Exactly one of ChannelID/DMRoomID is set, matching Kind.
type CallStartedPayload struct {
	CallID       uuid.UUID   `json:"callId"`
	Kind         string      `json:"kind"`
	ChannelID    *uuid.UUID  `json:"channelId,omitempty"`
	DMRoomID     *string     `json:"dmRoomId,omitempty"`
	StartedBy    uuid.UUID   `json:"startedBy"`
	Participants []uuid.UUID `json:"participants"`
	StartedAt    time.Time   `json:"startedAt"`
}

// UserJoinedPayload announces a user joining a call
type UserJoinedPayload struct {
	CallID    *uuid.UUID `json:"callId,omitempty"`
	UserID    uuid.UUID  `json:"userId"`
	UserName  string     `json:"userName"`
	AvatarURL *string    `json:"avatarUrl,omitempty"`
}

// UserLeftPayload announces a user leaving a call
type UserLeftPayload struct {
	CallID *uuid.UUID `json:"callId,omitempty"`
	UserID uuid.UUID  `json:"userId"`
}

// CallEndedPayload announces a call reaching its terminal state
type CallEndedPayload struct {
	CallID uuid.UUID `json:"callId"`
}

// UserMutedPayload announces a mute state change
type UserMutedPayload struct {
	UserID  uuid.UUID `json:"userId"`
	IsMuted bool      `json:"isMuted"`
}

// TypingPayload announces typing start/stop in a room
type TypingPayload struct {
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName,omitempty"`
}
