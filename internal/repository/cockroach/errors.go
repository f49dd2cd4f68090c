package cockroach

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrActiveCallExists is returned when creating a call for a room
	// that already has an active one. The one-active-call-per-room rule
	// is enforced here, at the storage layer, so two racing start
	// requests cannot both succeed.
	ErrActiveCallExists = errors.New("active call already exists for room")
)
