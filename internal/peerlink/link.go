package peerlink

import "context"

// EventKind identifies a transport notification.
type EventKind int

const (
	// EventTokenReady carries a locally-generated addressing token that the
	// user must relay to the other party out of band.
	EventTokenReady EventKind = iota

	// EventHandshaking fires when the remote party has begun the handshake;
	// from here the data-channel open is bounded by the connection timeout.
	EventHandshaking

	// EventOpened fires when the data channel is established. It also fires
	// again if a degraded transport self-heals.
	EventOpened

	// EventDegraded fires when underlying connectivity is reported lost
	// while the channel object still exists.
	EventDegraded

	// EventClosed fires when the channel closes, cleanly or not.
	EventClosed

	// EventFailed carries an unrecoverable link error.
	EventFailed

	// EventMessage carries an inbound data-channel payload.
	EventMessage
)

// Event is a single transport notification. Exactly one of Token, Err, or
// Data is populated depending on Kind.
type Event struct {
	Kind   EventKind
	Token  string
	Reason string
	Err    *LinkError
	Data   []byte

	// PeerType is the remote client type advertised through the rendezvous
	// exchange, populated on EventHandshaking when known. It drives wire
	// codec negotiation.
	PeerType string
}

// Link is the uniform interface over a two-party real-time transport with
// an ordered reliable message channel. A Link is owned exclusively by one
// session and never reused after Close.
type Link interface {
	// Send writes one message to the data channel. Returns ErrNotOpen if
	// the channel is not established.
	Send(data []byte) error

	// AcceptRemoteToken completes a two-phase manual handshake with the
	// token produced by the other party. Transports that negotiate through
	// a rendezvous service reject it.
	AcceptRemoteToken(token string) error

	// Events returns the transport notification stream. No events are
	// delivered after Close returns.
	Events() <-chan Event

	// Close tears the transport down. Idempotent.
	Close() error
}

// Dialer creates links. The host role dials with an empty addressing input
// and receives a token to relay; the client role dials with the token or
// room id obtained from the host.
type Dialer interface {
	Dial(ctx context.Context, role Role, addressingInput string) (Link, error)
}

// Role selects which side of the handshake a link performs.
type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)
