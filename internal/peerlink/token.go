package peerlink

import (
	"encoding/json"
	"strings"

	"github.com/pion/webrtc/v4"
)

// AddressingToken is the serialized session description one party relays
// to the other by copy/paste in manual mode.
type AddressingToken struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// EncodeToken serializes a session description for out-of-band relay.
func EncodeToken(desc *webrtc.SessionDescription) (string, error) {
	data, err := json.Marshal(AddressingToken{
		Type: desc.Type.String(),
		SDP:  desc.SDP,
	})
	if err != nil {
		return "", NewError("encode token", KindServiceError, err)
	}
	return string(data), nil
}

// DecodeToken parses a pasted addressing token. Anything that does not
// carry a well-formed offer or answer is classified as an invalid token,
// never a crash.
func DecodeToken(token string) (*webrtc.SessionDescription, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewError("decode token", KindInvalidToken, ErrInvalidToken)
	}

	var parsed AddressingToken
	if err := json.Unmarshal([]byte(token), &parsed); err != nil {
		return nil, WrapError("decode token", KindInvalidToken, ErrInvalidToken, err.Error())
	}
	if parsed.SDP == "" {
		return nil, WrapError("decode token", KindInvalidToken, ErrInvalidToken, "missing sdp")
	}

	var sdpType webrtc.SDPType
	switch parsed.Type {
	case "offer":
		sdpType = webrtc.SDPTypeOffer
	case "answer":
		sdpType = webrtc.SDPTypeAnswer
	default:
		return nil, WrapError("decode token", KindInvalidToken, ErrInvalidToken, "unexpected type "+parsed.Type)
	}

	return &webrtc.SessionDescription{Type: sdpType, SDP: parsed.SDP}, nil
}
