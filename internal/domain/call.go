package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallKind distinguishes channel calls from DM calls
type CallKind string

const (
	CallKindChannel CallKind = "channel"
	CallKindDM      CallKind = "dm"
)

// Call represents a call record.
// Exactly one of ChannelID / DMRoomKey is set, matching Kind.
// Maps to the calls + call_participants tables.
type Call struct {
	CallID       uuid.UUID   `json:"call_id"`
	Kind         CallKind    `json:"kind"`
	ChannelID    *uuid.UUID  `json:"channel_id,omitempty"`
	DMRoomKey    *string     `json:"dm_room_key,omitempty"`
	StartedBy    uuid.UUID   `json:"started_by"`
	Participants []uuid.UUID `json:"participants"`
	IsActive     bool        `json:"is_active"`
	StartedAt    time.Time   `json:"started_at"`
	EndedAt      *time.Time  `json:"ended_at,omitempty"`
	Duration     int         `json:"duration"` // seconds, computed once on end
}

// RoomRef returns the backing room reference: the channel ID for channel
// calls, the DM room key for DM calls
func (c *Call) RoomRef() string {
	if c.Kind == CallKindChannel && c.ChannelID != nil {
		return c.ChannelID.String()
	}
	if c.DMRoomKey != nil {
		return *c.DMRoomKey
	}
	return ""
}

// Room returns the backing chat room the call belongs to
func (c *Call) Room() Room {
	if c.Kind == CallKindChannel {
		return Room("channel:" + c.RoomRef())
	}
	return DMRoom(c.RoomRef())
}

// CallRoom returns the signaling room for the call
func (c *Call) CallRoom() Room {
	return CallRoomFor(c.Kind, c.RoomRef())
}

// HasParticipant reports whether the user is in the participant set
func (c *Call) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
