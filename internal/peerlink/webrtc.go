package peerlink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"watchwire/internal/config"
)

const dataChannelLabel = "sync"

// WebRTCLink is a Link over a pion peer connection with a single ordered
// reliable data channel. Addressing is handled by the dialer that created
// the link: manual offer/answer tokens or a rendezvous room.
type WebRTCLink struct {
	role Role

	pc *webrtc.PeerConnection

	mu sync.Mutex
	dc *webrtc.DataChannel

	events chan Event
	done   chan struct{}

	chanOpen  bool
	everOpen  bool
	closeOnce sync.Once
}

func newPeerConnection(cfg *config.Config) (*webrtc.PeerConnection, error) {
	iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if cfg.ForceRelay && cfg.GetTURNServers() != nil {
		policy = webrtc.ICETransportPolicyRelay
	}

	return webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
}

// newLink creates the peer connection and, for the host role, the sync
// data channel. The host owns channel creation; the client receives it
// through OnDataChannel.
func newLink(cfg *config.Config, role Role) (*WebRTCLink, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, NewError("create peer connection", KindNetworkError, err)
	}

	l := &WebRTCLink{
		role:   role,
		pc:     pc,
		events: make(chan Event, 32),
		done:   make(chan struct{}),
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state changed", "state", state.String(), "role", role)
		switch state {
		case webrtc.PeerConnectionStateConnected:
			// A degraded transport that self-heals re-reports open; the
			// session treats the duplicate as a no-op.
			l.mu.Lock()
			open := l.chanOpen
			l.mu.Unlock()
			if open {
				l.emit(Event{Kind: EventOpened})
			}
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
			l.emit(Event{Kind: EventDegraded, Reason: state.String()})
		case webrtc.PeerConnectionStateClosed:
			l.emit(Event{Kind: EventClosed, Reason: "connection closed"})
		}
	})

	if role == RoleHost {
		ordered := true
		dc, err := pc.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{
			Ordered: &ordered,
		})
		if err != nil {
			pc.Close()
			return nil, NewError("create data channel", KindNetworkError, err)
		}
		l.wireDataChannel(dc)
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			l.wireDataChannel(dc)
		})
	}

	return l, nil
}

func (l *WebRTCLink) wireDataChannel(dc *webrtc.DataChannel) {
	l.mu.Lock()
	l.dc = dc
	l.mu.Unlock()

	dc.OnOpen(func() {
		l.mu.Lock()
		l.chanOpen = true
		l.everOpen = true
		l.mu.Unlock()
		l.emit(Event{Kind: EventOpened})
	})

	dc.OnClose(func() {
		l.mu.Lock()
		wasOpen := l.chanOpen
		l.chanOpen = false
		l.mu.Unlock()
		if wasOpen {
			l.emit(Event{Kind: EventClosed, Reason: "data channel closed"})
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		l.emit(Event{Kind: EventMessage, Data: msg.Data})
	})
}

// Send writes one message to the data channel.
func (l *WebRTCLink) Send(data []byte) error {
	l.mu.Lock()
	dc, open := l.dc, l.chanOpen
	l.mu.Unlock()

	if dc == nil || !open {
		return NewError("send", KindChannelClosed, ErrNotOpen)
	}
	return dc.Send(data)
}

// AcceptRemoteToken completes the manual handshake with the answer token
// relayed back from the client. Only valid for a host-role link.
func (l *WebRTCLink) AcceptRemoteToken(token string) error {
	desc, err := DecodeToken(token)
	if err != nil {
		return err
	}
	if desc.Type != webrtc.SDPTypeAnswer {
		return WrapError("accept token", KindInvalidToken, ErrInvalidToken, "expected answer")
	}
	if err := l.pc.SetRemoteDescription(*desc); err != nil {
		return WrapError("accept token", KindInvalidToken, ErrInvalidToken, err.Error())
	}
	l.emit(Event{Kind: EventHandshaking})
	return nil
}

// Events returns the transport notification stream.
func (l *WebRTCLink) Events() <-chan Event {
	return l.events
}

// Close tears down the data channel and peer connection. Idempotent; no
// events are delivered afterwards.
func (l *WebRTCLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		l.mu.Lock()
		dc := l.dc
		l.chanOpen = false
		l.mu.Unlock()
		if dc != nil {
			dc.Close()
		}
		err = l.pc.Close()
	})
	return err
}

// emit delivers an event unless the link has been closed. Message events
// are dropped rather than blocking the transport callback when the
// consumer has fallen behind.
func (l *WebRTCLink) emit(ev Event) {
	if ev.Kind == EventMessage {
		select {
		case l.events <- ev:
		case <-l.done:
		default:
			slog.Debug("dropping inbound message, consumer behind")
		}
		return
	}

	select {
	case l.events <- ev:
	case <-l.done:
	}
}

// createOfferToken produces the host's addressing token in manual mode.
// ICE gathering completes before encoding so a single blob carries every
// local network-discovery artifact.
func (l *WebRTCLink) createOfferToken(ctx context.Context) (string, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return "", NewError("create offer", KindNetworkError, err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return "", NewError("set local description", KindNetworkError, err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", NewError("gather candidates", KindSetupTimeout, ErrSetupTimeout)
	case <-l.done:
		return "", NewError("gather candidates", KindChannelClosed, ErrChannelClosed)
	}

	return EncodeToken(l.pc.LocalDescription())
}

// acceptOfferToken consumes the host's offer and produces the client's
// answer token in manual mode.
func (l *WebRTCLink) acceptOfferToken(ctx context.Context, token string) (string, error) {
	desc, err := DecodeToken(token)
	if err != nil {
		return "", err
	}
	if desc.Type != webrtc.SDPTypeOffer {
		return "", WrapError("accept offer", KindInvalidToken, ErrInvalidToken, "expected offer")
	}

	if err := l.pc.SetRemoteDescription(*desc); err != nil {
		return "", WrapError("accept offer", KindInvalidToken, ErrInvalidToken, err.Error())
	}

	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return "", NewError("create answer", KindNetworkError, err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return "", NewError("set local description", KindNetworkError, err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", NewError("gather candidates", KindSetupTimeout, ErrSetupTimeout)
	case <-l.done:
		return "", NewError("gather candidates", KindChannelClosed, ErrChannelClosed)
	}

	return EncodeToken(l.pc.LocalDescription())
}

// createOffer produces a trickle-ICE offer for rendezvous signaling.
func (l *WebRTCLink) createOffer() (*webrtc.SessionDescription, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", KindNetworkError, err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", KindNetworkError, err)
	}
	return l.pc.LocalDescription(), nil
}

// acceptOffer consumes a trickle-ICE offer and produces the answer.
func (l *WebRTCLink) acceptOffer(desc webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		return nil, WrapError("set remote description", KindInvalidToken, ErrInvalidToken, err.Error())
	}
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", KindNetworkError, err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", KindNetworkError, err)
	}
	return l.pc.LocalDescription(), nil
}

// acceptAnswer consumes the remote answer in rendezvous mode.
func (l *WebRTCLink) acceptAnswer(desc webrtc.SessionDescription) error {
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		return WrapError("set remote description", KindInvalidToken, ErrInvalidToken, err.Error())
	}
	return nil
}

// addRemoteCandidate feeds a trickled ICE candidate into the connection.
func (l *WebRTCLink) addRemoteCandidate(candidate webrtc.ICECandidateInit) error {
	if err := l.pc.AddICECandidate(candidate); err != nil {
		return NewError("add ICE candidate", KindNetworkError, err)
	}
	return nil
}

// onLocalCandidate registers the trickle-ICE relay callback.
func (l *WebRTCLink) onLocalCandidate(f func(webrtc.ICECandidateInit)) {
	l.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		f(c.ToJSON())
	})
}
