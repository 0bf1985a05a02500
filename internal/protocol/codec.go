package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// CodecName identifies the wire encoding negotiated for the data channel.
type CodecName string

const (
	// JSONCodec is the default encoding, compatible with web peers.
	JSONCodec CodecName = "json"

	// MsgpackCodec is the compact encoding used between two CLI peers.
	MsgpackCodec CodecName = "msgpack"
)

// Codec encodes and decodes SyncMessages for the data channel.
type Codec interface {
	Name() CodecName
	Marshal(msg SyncMessage) ([]byte, error)
	Unmarshal(data []byte) (SyncMessage, error)
}

type jsonCodec struct{}

func (jsonCodec) Name() CodecName { return JSONCodec }

func (jsonCodec) Marshal(msg SyncMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte) (SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SyncMessage{}, fmt.Errorf("decode sync message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return SyncMessage{}, err
	}
	return msg, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() CodecName { return MsgpackCodec }

func (msgpackCodec) Marshal(msg SyncMessage) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (msgpackCodec) Unmarshal(data []byte) (SyncMessage, error) {
	var msg SyncMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return SyncMessage{}, fmt.Errorf("decode sync message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return SyncMessage{}, err
	}
	return msg, nil
}

// NewCodec returns the codec for a negotiated name, defaulting to JSON
// for anything unrecognized.
func NewCodec(name CodecName) Codec {
	if name == MsgpackCodec {
		return msgpackCodec{}
	}
	return jsonCodec{}
}

// SelectCodec picks the wire encoding from the peer's advertised client
// type. Two CLI endpoints use msgpack; anything else stays on JSON so
// web and desktop peers can participate.
func SelectCodec(localClientType, peerClientType string) Codec {
	if localClientType == "cli" && peerClientType == "cli" {
		return msgpackCodec{}
	}
	return jsonCodec{}
}
