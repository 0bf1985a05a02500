package protocol

import (
	"fmt"
	"math"
	"time"
)

// MessageType identifies a sync control message on the wire.
type MessageType string

const (
	MessageTypePlay        MessageType = "play"
	MessageTypePause       MessageType = "pause"
	MessageTypeSeek        MessageType = "seek"
	MessageTypeReset       MessageType = "reset"
	MessageTypeVideoLoaded MessageType = "video-loaded"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
)

// SyncMessage is the wire unit exchanged over the data channel.
// CurrentTime is carried for play/pause/seek; VideoURL for video-loaded.
// An absent CurrentTime on play/pause means "resume from the local position".
type SyncMessage struct {
	Type        MessageType `json:"type" msgpack:"type"`
	Timestamp   int64       `json:"timestamp" msgpack:"timestamp"`
	CurrentTime *float64    `json:"currentTime,omitempty" msgpack:"currentTime,omitempty"`
	VideoURL    string      `json:"videoUrl,omitempty" msgpack:"videoUrl,omitempty"`
}

// NewMessage builds a message of the given type stamped with the sender clock.
func NewMessage(t MessageType) SyncMessage {
	return SyncMessage{Type: t, Timestamp: time.Now().UnixMilli()}
}

// NewPositionMessage builds a play/pause/seek message carrying the playback position.
func NewPositionMessage(t MessageType, currentTime float64) SyncMessage {
	msg := NewMessage(t)
	msg.CurrentTime = &currentTime
	return msg
}

// NewVideoLoadedMessage builds a video-loaded message referencing a local resource.
// The URL is a local reference only; the bytes are never transmitted.
func NewVideoLoadedMessage(videoURL string) SyncMessage {
	msg := NewMessage(MessageTypeVideoLoaded)
	msg.VideoURL = videoURL
	return msg
}

// IsHeartbeat reports whether the message is a liveness probe rather than
// a playback command.
func (m SyncMessage) IsHeartbeat() bool {
	return m.Type == MessageTypePing || m.Type == MessageTypePong
}

// Validate rejects messages that must never be applied to media state.
func (m SyncMessage) Validate() error {
	switch m.Type {
	case MessageTypePlay, MessageTypePause, MessageTypeSeek, MessageTypeReset,
		MessageTypeVideoLoaded, MessageTypePing, MessageTypePong:
	default:
		return fmt.Errorf("unknown message type: %q", m.Type)
	}

	if m.CurrentTime != nil {
		t := *m.CurrentTime
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return fmt.Errorf("invalid currentTime: %v", t)
		}
	}

	return nil
}
