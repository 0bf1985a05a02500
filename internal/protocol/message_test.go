package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPositionMessageCarriesPosition(t *testing.T) {
	msg := NewPositionMessage(MessageTypePlay, 42.5)

	require.NotNil(t, msg.CurrentTime)
	assert.Equal(t, 42.5, *msg.CurrentTime)
	assert.Equal(t, MessageTypePlay, msg.Type)
	assert.NotZero(t, msg.Timestamp)
}

func TestIsHeartbeat(t *testing.T) {
	assert.True(t, NewMessage(MessageTypePing).IsHeartbeat())
	assert.True(t, NewMessage(MessageTypePong).IsHeartbeat())
	assert.False(t, NewMessage(MessageTypePlay).IsHeartbeat())
	assert.False(t, NewMessage(MessageTypeReset).IsHeartbeat())
}

func TestValidateRejectsUnknownType(t *testing.T) {
	msg := SyncMessage{Type: "explode", Timestamp: 1}
	assert.Error(t, msg.Validate())
}

func TestValidateRejectsBadPositions(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5} {
		pos := bad
		msg := SyncMessage{Type: MessageTypeSeek, Timestamp: 1, CurrentTime: &pos}
		assert.Error(t, msg.Validate(), "position %v should be rejected", bad)
	}
}

func TestValidateAcceptsMessageWithoutPosition(t *testing.T) {
	msg := NewMessage(MessageTypePause)
	assert.NoError(t, msg.Validate())
}
