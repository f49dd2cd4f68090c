package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDMRoomKeySymmetry(t *testing.T) {
	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")

	keyAB := DMRoomKey(a, b)
	keyBA := DMRoomKey(b, a)

	assert.Equal(t, keyAB, keyBA, "both participants must derive the same key")
	assert.Equal(t, "dm-"+a.String()+"-"+b.String(), keyAB)
}

func TestRoomForms(t *testing.T) {
	channelID := uuid.New()

	assert.Equal(t, Room("channel:"+channelID.String()), ChannelRoom(channelID))
	assert.Equal(t, Room("dm:dm-x-y"), DMRoom("dm-x-y"))
	assert.Equal(t, Room("call:channel:"+channelID.String()), CallRoomFor(CallKindChannel, channelID.String()))
	assert.Equal(t, Room("call:dm:dm-x-y"), CallRoomFor(CallKindDM, "dm-x-y"))
}

func TestRoomKind(t *testing.T) {
	channelID := uuid.New()

	assert.Equal(t, "channel", ChannelRoom(channelID).Kind())
	assert.Equal(t, "dm", DMRoom("dm-x-y").Kind())
	assert.Equal(t, "call", CallRoomFor(CallKindChannel, channelID.String()).Kind())

	assert.False(t, ChannelRoom(channelID).IsCall())
	assert.True(t, CallRoomFor(CallKindDM, "dm-x-y").IsCall())
}

func TestParseCallRoom(t *testing.T) {
	channelID := uuid.New()

	kind, ref, ok := ParseCallRoom(CallRoomFor(CallKindChannel, channelID.String()))
	assert.True(t, ok)
	assert.Equal(t, CallKindChannel, kind)
	assert.Equal(t, channelID.String(), ref)

	kind, ref, ok = ParseCallRoom(CallRoomFor(CallKindDM, "dm-a-b"))
	assert.True(t, ok)
	assert.Equal(t, CallKindDM, kind)
	assert.Equal(t, "dm-a-b", ref)

	_, _, ok = ParseCallRoom(ChannelRoom(channelID))
	assert.False(t, ok)

	_, _, ok = ParseCallRoom(Room("call:group:x"))
	assert.False(t, ok, "unknown call kinds are rejected")

	_, _, ok = ParseCallRoom(Room("call:channel:"))
	assert.False(t, ok, "empty reference is rejected")
}

func TestCalculateBucket(t *testing.T) {
	ts := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 202603, CalculateBucket(ts))
}
