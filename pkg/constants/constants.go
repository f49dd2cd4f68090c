// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// WebSocket constants
const (
	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteWait is the deadline for a single outbound frame write
	WebSocketWriteWait = 10 * time.Second

	// WebSocketMaxMessageSize caps inbound frame size; signaling payloads
	// (SDP offers with many ICE candidates) can run a few KB
	WebSocketMaxMessageSize = 64 * 1024

	// WebSocketSendBufferSize is the per-connection outbound queue length;
	// a full queue means the client has stopped reading and gets dropped
	WebSocketSendBufferSize = 256
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute

	// RefreshTokenExpiry is the default refresh token lifetime
	RefreshTokenExpiry = 30 * 24 * time.Hour
)

// Presence constants
const (
	// PresenceTTL is how long a presence key lives without a heartbeat refresh
	PresenceTTL = 5 * time.Minute
)

// Database connection constants
const (
	// MaxConnLifetime is the maximum lifetime of a database connection
	MaxConnLifetime = 1 * time.Hour

	// MaxConnIdleTime is the maximum idle time for a database connection
	MaxConnIdleTime = 30 * time.Minute

	// HealthCheckPeriod is the interval between database health checks
	HealthCheckPeriod = 1 * time.Minute
)
