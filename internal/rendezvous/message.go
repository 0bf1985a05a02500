package rendezvous

import "encoding/json"

// Message defines the structure for all websocket messages between a
// peer and the rendezvous server, in both directions.
type Message struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RoomID     string          `json:"room_id,omitempty"`
	ClientType string          `json:"client_type,omitempty"`

	// client is the connection that sent the message. Used internally by
	// the hub and never sent over the wire.
	client *Client
}

// PeerInfo is relayed to each side of a room so the peers can negotiate
// their wire codec.
type PeerInfo struct {
	ClientType string `json:"client_type"`
}
