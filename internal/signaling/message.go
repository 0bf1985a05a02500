package signaling

// Message represents all websocket messages between a peer and the
// rendezvous server.
type Message struct {
	Type       string `json:"type"`
	Payload    any    `json:"payload,omitempty"`
	RoomID     string `json:"room_id,omitempty"`
	ClientType string `json:"client_type,omitempty"`
}

// Message type constants.
const (
	MessageTypeCreateRoom = "create_room"
	MessageTypeJoinRoom   = "join_room"
	MessageTypeSignal     = "signal"

	MessageTypeRoomCreated = "room_created"
	MessageTypeJoinSuccess = "join_success"
	MessageTypePeerJoined  = "peer_joined"
	MessageTypePeerLeft    = "peer_left"
	MessageTypeError       = "error"
)

// SignalPayload carries the WebRTC negotiation data relayed between the
// two peers: an SDP offer/answer or a trickled ICE candidate.
type SignalPayload struct {
	Type         string `json:"type,omitempty"`
	SDP          string `json:"sdp,omitempty"`
	ICECandidate any    `json:"ice_candidate,omitempty"`
}

// ErrorPayload represents error messages from the server.
type ErrorPayload struct {
	Error string `json:"error"`
}

// PeerInfo describes the peer on the other side of a room, used for wire
// codec negotiation.
type PeerInfo struct {
	ClientType string `json:"client_type"`
}
