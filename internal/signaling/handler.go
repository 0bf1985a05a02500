package signaling

import "encoding/json"

// Handler routes incoming signaling messages to typed channels.
type Handler struct {
	client      *Client
	RoomCreated chan string
	PeerJoined  chan *PeerInfo
	JoinSuccess chan *PeerInfo
	PeerLeft    chan struct{}
	Signal      chan *SignalPayload
	Error       chan string
	closed      bool
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:      client,
		RoomCreated: make(chan string, 1),
		PeerJoined:  make(chan *PeerInfo, 1),
		JoinSuccess: make(chan *PeerInfo, 1),
		PeerLeft:    make(chan struct{}, 1),
		Signal:      make(chan *SignalPayload, 32),
		Error:       make(chan string, 1),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the client's incoming channel closes.
func (h *Handler) Start() {
	for msg := range h.client.Incoming() {
		switch msg.Type {

		case MessageTypeRoomCreated:
			h.RoomCreated <- msg.RoomID

		case MessageTypeJoinSuccess:
			h.JoinSuccess <- decodePeerInfo(msg)

		case MessageTypePeerJoined:
			h.PeerJoined <- decodePeerInfo(msg)

		case MessageTypePeerLeft:
			h.PeerLeft <- struct{}{}

		case MessageTypeSignal:
			h.handleSignal(msg)

		case MessageTypeError:
			h.handleError(msg)

		default:
		}
	}
}

func decodePeerInfo(msg *Message) *PeerInfo {
	var peerInfo PeerInfo
	if msg.Payload != nil {
		payloadBytes, err := json.Marshal(msg.Payload)
		if err == nil {
			json.Unmarshal(payloadBytes, &peerInfo)
		}
	}
	return &peerInfo
}

func (h *Handler) handleSignal(msg *Message) {
	var payload SignalPayload

	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		h.Error <- "Failed to parse signal payload"
		return
	}

	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		h.Error <- "Failed to parse signal payload"
		return
	}

	h.Signal <- &payload
}

func (h *Handler) handleError(msg *Message) {
	var errPayload ErrorPayload

	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		h.Error <- "Unknown error from server"
		return
	}

	if err := json.Unmarshal(payloadBytes, &errPayload); err != nil {
		h.Error <- "Unknown error from server"
		return
	}

	h.Error <- errPayload.Error
}

// Close closes all handler channels.
func (h *Handler) Close() {
	if h.closed {
		return
	}
	h.closed = true

	close(h.RoomCreated)
	close(h.PeerJoined)
	close(h.JoinSuccess)
	close(h.PeerLeft)
	close(h.Signal)
	close(h.Error)
}
