package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teamwire-backend/internal/domain"
	"teamwire-backend/internal/realtime"
)

// Inbound payloads. Field names follow the client wire protocol
// (camelCase), unlike the snake_case REST bodies.

type channelPayload struct {
	ChannelID uuid.UUID `json:"channelId"`
}

type dmPayload struct {
	DMRoomID string `json:"dmRoomId"`
}

// Call payloads reference the backing entity (a channel id or DM room
// key) plus its type; the server derives the call room from the pair.
type callRoomPayload struct {
	RoomID   string `json:"roomId"`
	RoomType string `json:"roomType"`
}

func (p *callRoomPayload) room() (domain.Room, bool) {
	return deriveCallRoom(p.RoomType, p.RoomID)
}

type signalInPayload struct {
	RoomID       string          `json:"roomId"`
	RoomType     string          `json:"roomType"`
	SignalData   json.RawMessage `json:"signalData"`
	TargetUserID *uuid.UUID      `json:"targetUserId,omitempty"`
}

func (p *signalInPayload) room() (domain.Room, bool) {
	return deriveCallRoom(p.RoomType, p.RoomID)
}

type mutePayload struct {
	RoomID   string `json:"roomId"`
	RoomType string `json:"roomType"`
	IsMuted  bool   `json:"isMuted"`
}

func (p *mutePayload) room() (domain.Room, bool) {
	return deriveCallRoom(p.RoomType, p.RoomID)
}

// Typing events carry either a channel id or a DM room key, selected
// by the isDm flag.
type typingInPayload struct {
	ChannelID uuid.UUID `json:"channelId"`
	DMRoomID  string    `json:"dmRoomId"`
	IsDM      bool      `json:"isDm"`
}

func (p *typingInPayload) room() (domain.Room, bool) {
	if p.IsDM {
		if p.DMRoomID == "" {
			return "", false
		}
		return domain.DMRoom(p.DMRoomID), true
	}
	if p.ChannelID == uuid.Nil {
		return "", false
	}
	return domain.ChannelRoom(p.ChannelID), true
}

func deriveCallRoom(roomType, roomID string) (domain.Room, bool) {
	if roomID == "" {
		return "", false
	}
	kind := domain.CallKind(roomType)
	switch kind {
	case domain.CallKindChannel, domain.CallKindDM:
		return domain.CallRoomFor(kind, roomID), true
	}
	return "", false
}

// dispatch routes one inbound frame. Malformed payloads are logged and
// dropped; they never terminate the connection.
func (h *Hub) dispatch(c *Client, frame *realtime.Frame) {
	if h.metrics != nil {
		h.metrics.RecordInboundEvent(frame.Event)
	}

	switch frame.Event {
	case realtime.EventJoinChannel:
		var p channelPayload
		if !h.decode(c, frame, &p) || p.ChannelID == uuid.Nil {
			return
		}
		h.joinRoom(c, domain.ChannelRoom(p.ChannelID))

	case realtime.EventLeaveChannel:
		var p channelPayload
		if !h.decode(c, frame, &p) || p.ChannelID == uuid.Nil {
			return
		}
		h.leaveRoom(c, domain.ChannelRoom(p.ChannelID))

	case realtime.EventJoinDM:
		var p dmPayload
		if !h.decode(c, frame, &p) || p.DMRoomID == "" {
			return
		}
		h.joinRoom(c, domain.DMRoom(p.DMRoomID))

	case realtime.EventLeaveDM:
		var p dmPayload
		if !h.decode(c, frame, &p) || p.DMRoomID == "" {
			return
		}
		h.leaveRoom(c, domain.DMRoom(p.DMRoomID))

	case realtime.EventCallJoin:
		var p callRoomPayload
		if !h.decode(c, frame, &p) {
			return
		}
		room, ok := p.room()
		if !ok {
			h.recordError("invalid_room")
			return
		}
		h.joinRoom(c, room)
		h.notifier.Notify(context.Background(), room, realtime.EventCallUserJoined, &realtime.UserJoinedPayload{
			UserID:    c.UserID(),
			UserName:  c.User().DisplayName,
			AvatarURL: c.User().AvatarURL,
		}, c.UserID())

	case realtime.EventCallLeave:
		var p callRoomPayload
		if !h.decode(c, frame, &p) {
			return
		}
		room, ok := p.room()
		if !ok {
			h.recordError("invalid_room")
			return
		}
		h.notifier.Notify(context.Background(), room, realtime.EventCallUserLeft, &realtime.UserLeftPayload{
			UserID: c.UserID(),
		}, c.UserID())
		h.leaveRoom(c, room)

	case realtime.EventCallSignal:
		var p signalInPayload
		if !h.decode(c, frame, &p) || len(p.SignalData) == 0 {
			return
		}
		room, ok := p.room()
		if !ok {
			h.recordError("invalid_room")
			return
		}
		target := uuid.Nil
		if p.TargetUserID != nil {
			target = *p.TargetUserID
		}
		result := h.relay.Relay(c.User(), room, target, p.SignalData)
		if h.metrics != nil {
			h.metrics.RecordSignalRelayed(string(result))
			if result == realtime.RelayDropped {
				h.metrics.RecordDroppedDelivery()
			}
		}

	case realtime.EventToggleMute:
		var p mutePayload
		if !h.decode(c, frame, &p) {
			return
		}
		room, ok := p.room()
		if !ok {
			h.recordError("invalid_room")
			return
		}
		h.notifier.Notify(context.Background(), room, realtime.EventCallUserMuted, &realtime.UserMutedPayload{
			UserID:  c.UserID(),
			IsMuted: p.IsMuted,
		}, c.UserID())

	case realtime.EventTypingStart, realtime.EventTypingStop:
		var p typingInPayload
		if !h.decode(c, frame, &p) {
			return
		}
		room, ok := p.room()
		if !ok {
			h.recordError("invalid_room")
			return
		}
		h.notifier.Notify(context.Background(), room, frame.Event, &realtime.TypingPayload{
			UserID:   c.UserID(),
			UserName: c.User().DisplayName,
		}, c.UserID())

	default:
		c.log.Debug("unknown event", zap.String("event", frame.Event))
		h.recordError("unknown_event")
	}
}

func (h *Hub) decode(c *Client, frame *realtime.Frame, dst any) bool {
	if err := json.Unmarshal(frame.Data, dst); err != nil {
		c.log.Debug("invalid payload",
			zap.String("event", frame.Event),
			zap.Error(err))
		h.recordError("invalid_payload")
		return false
	}
	return true
}
