package peerlink

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a link failure. The session state machine keys its
// retry policy and the UI its status strings off this closed set.
type ErrorKind string

const (
	KindSetupTimeout          ErrorKind = "setup_timeout"
	KindDataConnectionTimeout ErrorKind = "data_connection_timeout"
	KindInvalidToken          ErrorKind = "invalid_addressing_token"
	KindPeerUnreachable       ErrorKind = "peer_unreachable"
	KindNetworkError          ErrorKind = "network_error"
	KindServiceError          ErrorKind = "service_error"
	KindIDUnavailable         ErrorKind = "id_unavailable"
	KindChannelClosed         ErrorKind = "channel_closed_unexpectedly"
)

var (
	ErrSetupTimeout   = errors.New("link did not open within the setup window")
	ErrChannelTimeout = errors.New("data channel did not open")
	ErrInvalidToken   = errors.New("invalid addressing token")
	ErrPeerNotFound   = errors.New("peer not found")
	ErrNetwork        = errors.New("network error")
	ErrService        = errors.New("signaling service error")
	ErrIDUnavailable  = errors.New("peer id unavailable")
	ErrChannelClosed  = errors.New("channel closed unexpectedly")
	ErrNotOpen        = errors.New("channel not open")
)

// LinkError wraps a transport failure with the operation that produced it
// and its classification.
type LinkError struct {
	Op      string
	Kind    ErrorKind
	Err     error
	Details string
}

func (e *LinkError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// NewError builds a LinkError from an operation, classification, and cause.
func NewError(op string, kind ErrorKind, err error) *LinkError {
	return &LinkError{Op: op, Kind: kind, Err: err}
}

// WrapError builds a LinkError carrying extra human-readable context.
func WrapError(op string, kind ErrorKind, err error, details string) *LinkError {
	return &LinkError{Op: op, Kind: kind, Err: err, Details: details}
}

// Retryable reports whether the client role may automatically retry after
// a failure of this kind. Bad tokens and missing peers need new user input.
func Retryable(kind ErrorKind) bool {
	switch kind {
	case KindSetupTimeout, KindDataConnectionTimeout, KindNetworkError,
		KindServiceError, KindIDUnavailable:
		return true
	default:
		return false
	}
}
