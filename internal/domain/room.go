package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Room identifies a logical fan-out group. Rooms are derived from the
// entities they serve and are never stored.
//
// Forms: "channel:<channelId>", "dm:<dmRoomKey>",
// "call:channel:<channelId>", "call:dm:<dmRoomKey>".
type Room string

// ChannelRoom returns the room for a channel
func ChannelRoom(channelID uuid.UUID) Room {
	return Room("channel:" + channelID.String())
}

// DMRoom returns the room for a direct-message pair
func DMRoom(dmRoomKey string) Room {
	return Room("dm:" + dmRoomKey)
}

// CallRoomFor returns the call room backing a channel or DM room
func CallRoomFor(kind CallKind, roomRef string) Room {
	return Room("call:" + string(kind) + ":" + roomRef)
}

// DMRoomKey derives the shared DM room key for a pair of users.
// The two user IDs are sorted lexicographically so both participants
// compute the same key regardless of who initiates.
func DMRoomKey(a, b uuid.UUID) string {
	first, second := a.String(), b.String()
	if second < first {
		first, second = second, first
	}
	return "dm-" + first + "-" + second
}

// IsCall reports whether the room is a call room
func (r Room) IsCall() bool {
	return strings.HasPrefix(string(r), "call:")
}

// Kind returns the room's leading segment ("channel", "dm", "call"),
// used as a metrics label
func (r Room) Kind() string {
	s := string(r)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// ParseCallRoom splits a call room into its call kind and backing room
// reference. Returns false for anything that is not a call room.
func ParseCallRoom(r Room) (CallKind, string, bool) {
	rest, ok := strings.CutPrefix(string(r), "call:")
	if !ok {
		return "", "", false
	}
	kind, ref, ok := strings.Cut(rest, ":")
	if !ok || ref == "" {
		return "", "", false
	}
	switch CallKind(kind) {
	case CallKindChannel, CallKindDM:
		return CallKind(kind), ref, true
	}
	return "", "", false
}
