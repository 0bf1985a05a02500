package peerlink

import (
	"context"
	"errors"

	"watchwire/internal/config"
)

// ManualDialer establishes links through copy/paste offer/answer tokens.
// The host dials with no addressing input and receives an offer token to
// relay; the client dials with the host's token and receives an answer
// token to relay back. The host completes the handshake by feeding the
// pasted answer to AcceptRemoteToken.
type ManualDialer struct {
	Cfg *config.Config
}

// Dial creates a link and begins the manual handshake. Token generation
// happens asynchronously; the result is surfaced on the link's event
// stream so the caller's state machine stays in charge of timeouts.
func (d *ManualDialer) Dial(ctx context.Context, role Role, addressingInput string) (Link, error) {
	l, err := newLink(d.Cfg, role)
	if err != nil {
		return nil, err
	}

	switch role {
	case RoleHost:
		go func() {
			token, err := l.createOfferToken(ctx)
			if err != nil {
				l.emit(Event{Kind: EventFailed, Err: asLinkError(err)})
				return
			}
			l.emit(Event{Kind: EventTokenReady, Token: token})
		}()

	case RoleClient:
		go func() {
			token, err := l.acceptOfferToken(ctx, addressingInput)
			if err != nil {
				l.emit(Event{Kind: EventFailed, Err: asLinkError(err)})
				return
			}
			l.emit(Event{Kind: EventTokenReady, Token: token})
			l.emit(Event{Kind: EventHandshaking})
		}()
	}

	return l, nil
}

func asLinkError(err error) *LinkError {
	var le *LinkError
	if errors.As(err, &le) {
		return le
	}
	return NewError("link", KindNetworkError, err)
}
