package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchwire/internal/media"
	"watchwire/internal/protocol"
)

// scriptPlayer records every call in order so tests can assert exactly
// how an inbound command touched media state.
type scriptPlayer struct {
	mu     sync.Mutex
	calls  []string
	seeks  []float64
	loads  []string
	paused bool
	pos    float64
	events chan media.Event
}

func newScriptPlayer() *scriptPlayer {
	return &scriptPlayer{paused: true, events: make(chan media.Event, 16)}
}

func (p *scriptPlayer) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *scriptPlayer) Load(url string) {
	p.record("load")
	p.mu.Lock()
	p.loads = append(p.loads, url)
	p.mu.Unlock()
}

func (p *scriptPlayer) Play() {
	p.record("play")
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

func (p *scriptPlayer) Pause() {
	p.record("pause")
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *scriptPlayer) Seek(t float64) {
	p.record("seek")
	p.mu.Lock()
	p.seeks = append(p.seeks, t)
	p.pos = t
	p.mu.Unlock()
}

func (p *scriptPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *scriptPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *scriptPlayer) Source() string { return "" }

func (p *scriptPlayer) Events() <-chan media.Event { return p.events }

func (p *scriptPlayer) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// wireTap captures everything the engine sends.
type wireTap struct {
	mu   sync.Mutex
	sent [][]byte
	open bool
}

func (w *wireTap) send(data []byte) error {
	w.mu.Lock()
	w.sent = append(w.sent, data)
	w.mu.Unlock()
	return nil
}

func (w *wireTap) isOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

func (w *wireTap) messages(t *testing.T, c protocol.Codec) []protocol.SyncMessage {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()

	msgs := make([]protocol.SyncMessage, 0, len(w.sent))
	for _, data := range w.sent {
		msg, err := c.Unmarshal(data)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	return msgs
}

func newTestEngine(host bool) (*Engine, *scriptPlayer, *wireTap) {
	player := newScriptPlayer()
	tap := &wireTap{open: true}
	eng := New(host, player, tap.send, tap.isOpen)
	return eng, player, tap
}

func TestHostBroadcastsLocalEvents(t *testing.T) {
	eng, _, tap := newTestEngine(true)

	eng.HandleLocalEvent(media.Event{Type: media.EventPlay, CurrentTime: 12})
	eng.HandleLocalEvent(media.Event{Type: media.EventPause, CurrentTime: 15})
	eng.HandleLocalEvent(media.Event{Type: media.EventSeeked, CurrentTime: 90})
	eng.HandleLocalEvent(media.Event{Type: media.EventLoaded, URL: "movie.mp4"})

	msgs := tap.messages(t, eng.Codec())
	require.Len(t, msgs, 4)

	assert.Equal(t, protocol.MessageTypePlay, msgs[0].Type)
	require.NotNil(t, msgs[0].CurrentTime)
	assert.Equal(t, 12.0, *msgs[0].CurrentTime)

	assert.Equal(t, protocol.MessageTypePause, msgs[1].Type)
	assert.Equal(t, protocol.MessageTypeSeek, msgs[2].Type)

	assert.Equal(t, protocol.MessageTypeVideoLoaded, msgs[3].Type)
	assert.Equal(t, "movie.mp4", msgs[3].VideoURL)
}

func TestClientNeverBroadcasts(t *testing.T) {
	eng, _, tap := newTestEngine(false)

	eng.HandleLocalEvent(media.Event{Type: media.EventPlay, CurrentTime: 12})
	eng.Reset()

	assert.Empty(t, tap.messages(t, eng.Codec()))
}

func TestClosedChannelDropsOutbound(t *testing.T) {
	eng, _, tap := newTestEngine(true)
	tap.mu.Lock()
	tap.open = false
	tap.mu.Unlock()

	eng.HandleLocalEvent(media.Event{Type: media.EventPlay, CurrentTime: 5})

	// Dropped, not queued: nothing may arrive later.
	assert.Empty(t, tap.messages(t, eng.Codec()))
}

func TestIncomingPlaySeeksBeforePlaying(t *testing.T) {
	eng, player, _ := newTestEngine(false)

	data, err := eng.Codec().Marshal(protocol.NewPositionMessage(protocol.MessageTypePlay, 42))
	require.NoError(t, err)
	eng.HandleIncoming(data)

	assert.Equal(t, []string{"seek", "play"}, player.callLog())
	assert.Equal(t, []float64{42}, player.seeks)
	assert.False(t, player.Paused())
}

func TestIncomingPlayWithoutPositionResumesInPlace(t *testing.T) {
	eng, player, _ := newTestEngine(false)

	data, err := eng.Codec().Marshal(protocol.NewMessage(protocol.MessageTypePlay))
	require.NoError(t, err)
	eng.HandleIncoming(data)

	assert.Equal(t, []string{"play"}, player.callLog())
}

func TestIncomingResetRewindsAndPauses(t *testing.T) {
	eng, player, _ := newTestEngine(false)
	player.Play()
	player.Seek(120)
	player.calls = nil

	data, err := eng.Codec().Marshal(protocol.NewMessage(protocol.MessageTypeReset))
	require.NoError(t, err)
	eng.HandleIncoming(data)

	assert.Equal(t, []string{"seek", "pause"}, player.callLog())
	assert.Zero(t, player.CurrentTime())
	assert.True(t, player.Paused())
}

func TestIncomingVideoLoaded(t *testing.T) {
	eng, player, _ := newTestEngine(false)

	data, err := eng.Codec().Marshal(protocol.NewVideoLoadedMessage("movie.mp4"))
	require.NoError(t, err)
	eng.HandleIncoming(data)

	assert.Equal(t, []string{"load"}, player.callLog())
	assert.Equal(t, []string{"movie.mp4"}, player.loads)
}

func TestPingAnswersWithPongAndLeavesMediaAlone(t *testing.T) {
	eng, player, tap := newTestEngine(false)

	data, err := eng.Codec().Marshal(protocol.NewMessage(protocol.MessageTypePing))
	require.NoError(t, err)
	eng.HandleIncoming(data)

	msgs := tap.messages(t, eng.Codec())
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.MessageTypePong, msgs[0].Type)
	assert.NotZero(t, msgs[0].Timestamp)

	assert.Empty(t, player.callLog())
}

func TestPongFeedsObserver(t *testing.T) {
	eng, player, tap := newTestEngine(true)

	var observed []int64
	eng.SetPongObserver(func(ts int64) { observed = append(observed, ts) })

	msg := protocol.NewMessage(protocol.MessageTypePong)
	data, err := eng.Codec().Marshal(msg)
	require.NoError(t, err)
	eng.HandleIncoming(data)

	assert.Equal(t, []int64{msg.Timestamp}, observed)
	assert.Empty(t, player.callLog())
	assert.Empty(t, tap.messages(t, eng.Codec()))
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	eng, player, tap := newTestEngine(false)

	eng.HandleIncoming([]byte("))) not a message ((("))
	eng.HandleIncoming([]byte(`{"type":"unknown-command","timestamp":1}`))
	eng.HandleIncoming([]byte(`{"type":"seek","timestamp":1,"currentTime":-4}`))

	assert.Empty(t, player.callLog())
	assert.Empty(t, tap.messages(t, eng.Codec()))
}

func TestHostResetBroadcastsWithoutPosition(t *testing.T) {
	eng, player, tap := newTestEngine(true)

	eng.Reset()

	assert.Equal(t, []string{"seek", "pause"}, player.callLog())

	msgs := tap.messages(t, eng.Codec())
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.MessageTypeReset, msgs[0].Type)
	assert.Nil(t, msgs[0].CurrentTime)
}

func TestNegotiatedCodecAppliesBothDirections(t *testing.T) {
	eng, player, tap := newTestEngine(true)
	eng.UseCodec(protocol.SelectCodec("cli", "cli"))
	require.Equal(t, protocol.MsgpackCodec, eng.Codec().Name())

	eng.HandleLocalEvent(media.Event{Type: media.EventPlay, CurrentTime: 7})

	msgs := tap.messages(t, eng.Codec())
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.MessageTypePlay, msgs[0].Type)

	data, err := eng.Codec().Marshal(protocol.NewPositionMessage(protocol.MessageTypeSeek, 3))
	require.NoError(t, err)
	eng.HandleIncoming(data)

	assert.Contains(t, player.callLog(), "seek")
}

func TestPumpForwardsPlayerEvents(t *testing.T) {
	eng, player, tap := newTestEngine(true)

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		eng.Pump(done)
		close(finished)
	}()

	player.events <- media.Event{Type: media.EventPlay, CurrentTime: 1}
	player.events <- media.Event{Type: media.EventSeeked, CurrentTime: 30}
	close(player.events)
	<-finished

	msgs := tap.messages(t, eng.Codec())
	require.Len(t, msgs, 2)
	assert.Equal(t, protocol.MessageTypePlay, msgs[0].Type)
	assert.Equal(t, protocol.MessageTypeSeek, msgs[1].Type)
	close(done)
}
