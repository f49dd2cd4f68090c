// Package realtime holds the transport-agnostic core of the relay: the
// connection registry, room membership, signal relay, and fan-out
// contracts. Nothing in here touches the network; the ws handler plugs
// live connections in through the Session interface.
package realtime

import (
	"github.com/google/uuid"
)

// Session is a live authenticated connection. Implementations must make
// Send safe for concurrent use and non-blocking: a send to a gone or
// stalled connection returns an error instead of waiting.
type Session interface {
	// ID identifies this particular connection, stable for its lifetime
	ID() string
	// UserID is the authenticated owner of the connection
	UserID() uuid.UUID
	// User returns the owner's public profile
	User() *UserProfile
	// Send queues an event for delivery. Best-effort: an error means the
	// event was not queued, never that the connection must be retried.
	Send(event string, data any) error
}

// UserProfile carries the public profile fields attached to fan-out
// events (identity, display name, avatar)
type UserProfile struct {
	UserID      uuid.UUID
	DisplayName string
	AvatarURL   *string
}
