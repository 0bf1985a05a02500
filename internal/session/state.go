package session

import "time"

// Status is the session lifecycle state. Transitions are strictly
// sequential per connection attempt:
//
//	idle -> negotiating -> waiting_for_peer -> open -> {degraded -> open | closed}
//
// Any state may move to failed on unrecoverable error; failed and closed
// return to idle only through explicit user action.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusNegotiating    Status = "negotiating"
	StatusWaitingForPeer Status = "waiting_for_peer"
	StatusOpen           Status = "open"
	StatusDegraded       Status = "degraded"
	StatusClosed         Status = "closed"
	StatusFailed         Status = "failed"
)

// Config bounds the connection attempt. Tests shrink the durations.
type Config struct {
	// SetupTimeout bounds link opening while negotiating.
	SetupTimeout time.Duration

	// ChannelOpenTimeout bounds the data-channel open once the remote
	// party has begun the handshake.
	ChannelOpenTimeout time.Duration

	// RetryBackoff is the fixed delay between automatic client retries.
	RetryBackoff time.Duration

	// MaxRetries caps automatic client retries after the initial attempt.
	MaxRetries int
}

// DefaultConfig returns the recommended production bounds.
func DefaultConfig() Config {
	return Config{
		SetupTimeout:       10 * time.Second,
		ChannelOpenTimeout: 15 * time.Second,
		RetryBackoff:       2 * time.Second,
		MaxRetries:         3,
	}
}
