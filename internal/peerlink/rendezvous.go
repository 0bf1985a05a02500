package peerlink

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"

	"watchwire/internal/config"
	"watchwire/internal/signaling"
)

// clientType is what this endpoint advertises to the rendezvous server;
// two CLI endpoints negotiate the compact wire codec.
const clientType = "cli"

// RendezvousDialer establishes links through a rendezvous signaling
// server. The host's addressing token is the room id assigned by the
// server; the client supplies that id when dialing. SDP and ICE
// candidates are relayed over the websocket.
type RendezvousDialer struct {
	Cfg *config.Config
}

// rendezvousLink pairs a WebRTC link with the signaling connection that
// negotiated it, so teardown covers both.
type rendezvousLink struct {
	*WebRTCLink
	sig     *signaling.Client
	handler *signaling.Handler
	once    sync.Once
}

func (l *rendezvousLink) Close() error {
	err := l.WebRTCLink.Close()
	l.once.Do(func() {
		l.handler.Close()
		l.sig.Close()
	})
	return err
}

// Dial connects to the rendezvous server and begins negotiation. Room
// creation, peer arrival, and the SDP exchange happen asynchronously and
// surface on the link's event stream.
func (d *RendezvousDialer) Dial(ctx context.Context, role Role, addressingInput string) (Link, error) {
	sig := signaling.NewClient(d.Cfg.WebSocketURL)
	if err := sig.Connect(); err != nil {
		return nil, NewError("connect to rendezvous server", KindNetworkError, err)
	}

	handler := signaling.NewHandler(sig)
	go handler.Start()

	inner, err := newLink(d.Cfg, role)
	if err != nil {
		handler.Close()
		sig.Close()
		return nil, err
	}

	l := &rendezvousLink{WebRTCLink: inner, sig: sig, handler: handler}

	inner.onLocalCandidate(func(c webrtc.ICECandidateInit) {
		sig.SendMessage(&signaling.Message{
			Type:    signaling.MessageTypeSignal,
			Payload: signaling.SignalPayload{ICECandidate: c},
		})
	})

	switch role {
	case RoleHost:
		sig.SendMessage(&signaling.Message{
			Type:       signaling.MessageTypeCreateRoom,
			ClientType: clientType,
		})
		go l.runHost()

	case RoleClient:
		sig.SendMessage(&signaling.Message{
			Type:       signaling.MessageTypeJoinRoom,
			RoomID:     addressingInput,
			ClientType: clientType,
		})
		go l.runClient()
	}

	return l, nil
}

// runHost drives the host side of the rendezvous exchange: wait for the
// room id, wait for the peer, send the offer, absorb the answer and
// trickled candidates.
func (l *rendezvousLink) runHost() {
	var answered bool
	var pending []webrtc.ICECandidateInit

	for {
		select {
		case roomID, ok := <-l.handler.RoomCreated:
			if !ok {
				return
			}
			l.emit(Event{Kind: EventTokenReady, Token: roomID})

		case peerInfo, ok := <-l.handler.PeerJoined:
			if !ok {
				return
			}
			l.emit(Event{Kind: EventHandshaking, PeerType: peerInfo.ClientType})

			offer, err := l.createOffer()
			if err != nil {
				l.emit(Event{Kind: EventFailed, Err: asLinkError(err)})
				return
			}
			l.sig.SendMessage(&signaling.Message{
				Type: signaling.MessageTypeSignal,
				Payload: signaling.SignalPayload{
					Type: offer.Type.String(),
					SDP:  offer.SDP,
				},
			})

		case sig, ok := <-l.handler.Signal:
			if !ok {
				return
			}
			if sig.SDP != "" && sig.Type == "answer" {
				if err := l.acceptAnswer(webrtc.SessionDescription{
					Type: webrtc.SDPTypeAnswer,
					SDP:  sig.SDP,
				}); err != nil {
					l.emit(Event{Kind: EventFailed, Err: asLinkError(err)})
					return
				}
				answered = true
				for _, c := range pending {
					l.addRemoteCandidate(c)
				}
				pending = nil
			}
			if c, ok := decodeCandidate(sig); ok {
				if answered {
					l.addRemoteCandidate(c)
				} else {
					pending = append(pending, c)
				}
			}

		case _, ok := <-l.handler.PeerLeft:
			if !ok {
				return
			}
			l.emit(Event{Kind: EventClosed, Reason: "peer left"})
			return

		case errMsg, ok := <-l.handler.Error:
			if !ok {
				return
			}
			l.emit(Event{Kind: EventFailed, Err: classifyServerError(errMsg)})
			return

		case <-l.done:
			return
		}
	}
}

// runClient drives the client side: join confirmation, absorb the offer,
// reply with the answer, exchange trickled candidates.
func (l *rendezvousLink) runClient() {
	var offered bool
	var pending []webrtc.ICECandidateInit

	for {
		select {
		case peerInfo, ok := <-l.handler.JoinSuccess:
			if !ok {
				return
			}
			l.emit(Event{Kind: EventHandshaking, PeerType: peerInfo.ClientType})

		case sig, ok := <-l.handler.Signal:
			if !ok {
				return
			}
			if sig.SDP != "" && sig.Type == "offer" {
				answer, err := l.acceptOffer(webrtc.SessionDescription{
					Type: webrtc.SDPTypeOffer,
					SDP:  sig.SDP,
				})
				if err != nil {
					l.emit(Event{Kind: EventFailed, Err: asLinkError(err)})
					return
				}
				offered = true
				for _, c := range pending {
					l.addRemoteCandidate(c)
				}
				pending = nil
				l.sig.SendMessage(&signaling.Message{
					Type: signaling.MessageTypeSignal,
					Payload: signaling.SignalPayload{
						Type: answer.Type.String(),
						SDP:  answer.SDP,
					},
				})
			}
			if c, ok := decodeCandidate(sig); ok {
				if offered {
					l.addRemoteCandidate(c)
				} else {
					pending = append(pending, c)
				}
			}

		case _, ok := <-l.handler.PeerLeft:
			if !ok {
				return
			}
			l.emit(Event{Kind: EventClosed, Reason: "peer left"})
			return

		case errMsg, ok := <-l.handler.Error:
			if !ok {
				return
			}
			l.emit(Event{Kind: EventFailed, Err: classifyServerError(errMsg)})
			return

		case <-l.done:
			return
		}
	}
}

func decodeCandidate(sig *signaling.SignalPayload) (webrtc.ICECandidateInit, bool) {
	if sig.ICECandidate == nil {
		return webrtc.ICECandidateInit{}, false
	}

	candidateBytes, err := json.Marshal(sig.ICECandidate)
	if err != nil {
		return webrtc.ICECandidateInit{}, false
	}
	var ice webrtc.ICECandidateInit
	if err := json.Unmarshal(candidateBytes, &ice); err != nil {
		return webrtc.ICECandidateInit{}, false
	}
	return ice, true
}

// classifyServerError maps the rendezvous server's error strings onto the
// link error taxonomy.
func classifyServerError(msg string) *LinkError {
	switch msg {
	case "Room not found":
		return WrapError("rendezvous", KindPeerUnreachable, ErrPeerNotFound, msg)
	case "Room is full":
		return WrapError("rendezvous", KindIDUnavailable, ErrIDUnavailable, msg)
	default:
		return WrapError("rendezvous", KindServiceError, ErrService, msg)
	}
}
