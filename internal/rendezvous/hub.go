package rendezvous

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
)

// Hub manages all active rooms and clients. All room state is owned by
// the single goroutine running Run, so no locking is needed.
type Hub struct {
	// Rooms maps room IDs to Room instances.
	Rooms map[string]*Room

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Inbound carries client messages into the hub for processing.
	Inbound chan *Message
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
	}
}

// generateRoomID creates a random, memorable room ID from word
// combinations, e.g. "mellow-otter-stardust".
func (h *Hub) generateRoomID() string {
	for {
		id := fmt.Sprintf("%s-%s-%s",
			adjectives[randomIndex(len(adjectives))],
			animals[randomIndex(len(animals))],
			scenery[randomIndex(len(scenery))],
		)
		if _, ok := h.Rooms[id]; !ok {
			return id
		}
	}
}

// randomIndex returns a cryptographically secure random index for a
// slice of the given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("generate random index: %v", err))
	}
	return int(n.Int64())
}

// Run starts the hub's main processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// Not in a room yet; they must send create_room or join_room.
			slog.Info("client registered", "addr", client.Conn.RemoteAddr())

		case client := <-h.Unregister:
			h.handleUnregister(client)

		case message := <-h.Inbound:
			h.handleMessage(message)
		}
	}
}

func (h *Hub) handleUnregister(client *Client) {
	slog.Info("client unregistered", "addr", client.Conn.RemoteAddr())

	if client.RoomID != "" {
		if room, ok := h.Rooms[client.RoomID]; ok {
			var otherPeer *Client

			if room.Host == client {
				room.Host = nil
				otherPeer = room.Guest
			} else if room.Guest == client {
				room.Guest = nil
				otherPeer = room.Host
			}

			if room.Host == nil && room.Guest == nil {
				delete(h.Rooms, room.ID)
				slog.Info("room deleted", "room", room.ID)
			} else if otherPeer != nil {
				slog.Info("peer left room", "room", room.ID)
				otherPeer.Send <- &Message{Type: "peer_left"}
			}
		}
	}

	close(client.Send)
}

func (h *Hub) handleMessage(message *Message) {
	slog.Debug("message received", "type", message.Type, "addr", message.client.Conn.RemoteAddr())

	switch message.Type {
	case "create_room":
		h.handleCreateRoom(message)
	case "join_room":
		h.handleJoinRoom(message)
	case "signal":
		h.handleSignal(message)
	default:
		slog.Warn("unknown message type", "type", message.Type)
	}
}

func (h *Hub) handleCreateRoom(message *Message) {
	message.client.ClientType = message.ClientType

	roomID := h.generateRoomID()
	h.Rooms[roomID] = &Room{
		ID:   roomID,
		Host: message.client,
	}
	message.client.RoomID = roomID

	slog.Info("room created", "room", roomID, "client_type", message.client.ClientType)

	message.client.Send <- &Message{
		Type:   "room_created",
		RoomID: roomID,
	}
}

func (h *Hub) handleJoinRoom(message *Message) {
	message.client.ClientType = message.ClientType

	roomID := message.RoomID
	room, ok := h.Rooms[roomID]

	if !ok {
		slog.Info("room join failed, not found", "room", roomID)
		message.client.Send <- errorMessage("Room not found")
		return
	}

	if room.Guest != nil {
		slog.Info("room join failed, full", "room", roomID)
		message.client.Send <- errorMessage("Room is full")
		return
	}

	room.Guest = message.client
	message.client.RoomID = roomID

	slog.Info("client joined room", "room", roomID, "client_type", message.client.ClientType)

	// Tell the host who arrived, and the guest who is hosting, so both
	// sides can negotiate the wire codec.
	if room.Host != nil {
		room.Host.Send <- &Message{
			Type:    "peer_joined",
			Payload: peerInfoPayload(message.client.ClientType),
		}

		message.client.Send <- &Message{
			Type:    "join_success",
			RoomID:  roomID,
			Payload: peerInfoPayload(room.Host.ClientType),
		}
	}
}

func (h *Hub) handleSignal(message *Message) {
	roomID := message.client.RoomID

	if roomID == "" {
		message.client.Send <- errorMessage("You must join a room first")
		return
	}

	room, ok := h.Rooms[roomID]
	if !ok {
		message.client.Send <- errorMessage("Room not found")
		return
	}

	// Relay to the other peer, never back to the sender.
	var target *Client
	if message.client == room.Host {
		target = room.Guest
	} else {
		target = room.Host
	}

	if target != nil {
		slog.Debug("relaying signal", "room", roomID)
		target.Send <- message
	} else {
		slog.Debug("signal dropped, no other peer", "room", roomID)
	}
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(map[string]string{"error": text})
	return &Message{Type: "error", Payload: payload}
}

func peerInfoPayload(clientType string) json.RawMessage {
	payload, _ := json.Marshal(PeerInfo{ClientType: clientType})
	return payload
}
