package engine

import (
	"log/slog"
	"sync"

	"watchwire/internal/media"
	"watchwire/internal/protocol"
)

// Engine translates local playback events into outbound sync messages and
// inbound sync messages into player calls. Only the host emits
// playback-affecting messages; whichever side receives one applies it.
type Engine struct {
	host   bool
	player media.Player

	send   func(data []byte) error
	isOpen func() bool

	// onPong is notified with the sender timestamp of every pong; nil when
	// nothing tracks liveness.
	onPong func(timestamp int64)

	mu    sync.Mutex
	codec protocol.Codec
}

// New creates an engine bound to a player and a channel. send and isOpen
// come from the owning session; the engine never queues — an event with
// no open channel is dropped.
func New(host bool, player media.Player, send func([]byte) error, isOpen func() bool) *Engine {
	return &Engine{
		host:   host,
		player: player,
		send:   send,
		isOpen: isOpen,
		codec:  protocol.NewCodec(protocol.JSONCodec),
	}
}

// SetPongObserver registers the liveness tracker fed by pong receipts.
func (e *Engine) SetPongObserver(f func(timestamp int64)) {
	e.onPong = f
}

// UseCodec switches the wire encoding after negotiation.
func (e *Engine) UseCodec(c protocol.Codec) {
	e.mu.Lock()
	e.codec = c
	e.mu.Unlock()
	slog.Debug("wire codec selected", "codec", c.Name())
}

// Codec returns the active wire encoding.
func (e *Engine) Codec() protocol.Codec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.codec
}

// Pump consumes the player's event stream until it is closed or done is
// closed, forwarding each event to the peer when hosting.
func (e *Engine) Pump(done <-chan struct{}) {
	events := e.player.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.HandleLocalEvent(ev)
		case <-done:
			return
		}
	}
}

// HandleLocalEvent maps one local playback event to an outbound message.
// Non-host roles never broadcast; a closed channel silently drops the
// event — a stale command delivered late is worse than a dropped one.
func (e *Engine) HandleLocalEvent(ev media.Event) {
	if !e.host {
		return
	}

	var msg protocol.SyncMessage
	switch ev.Type {
	case media.EventLoaded:
		msg = protocol.NewVideoLoadedMessage(ev.URL)
	case media.EventPlay:
		msg = protocol.NewPositionMessage(protocol.MessageTypePlay, ev.CurrentTime)
	case media.EventPause:
		msg = protocol.NewPositionMessage(protocol.MessageTypePause, ev.CurrentTime)
	case media.EventSeeked:
		msg = protocol.NewPositionMessage(protocol.MessageTypeSeek, ev.CurrentTime)
	default:
		return
	}

	e.sendMessage(msg)
}

// Reset rewinds and pauses the local player and, when hosting, broadcasts
// the reset. The message carries no position.
func (e *Engine) Reset() {
	e.player.Seek(0)
	e.player.Pause()

	if e.host {
		e.sendMessage(protocol.NewMessage(protocol.MessageTypeReset))
	}
}

// SendPing emits one liveness probe. Used by the heartbeat monitor.
func (e *Engine) SendPing() error {
	if !e.isOpen() {
		return nil
	}
	return e.encodeAndSend(protocol.NewMessage(protocol.MessageTypePing))
}

// HandleIncoming decodes one inbound payload. Heartbeat probes are
// intercepted before the playback mapping; malformed payloads are dropped
// with a diagnostic and never touch media state or the session.
func (e *Engine) HandleIncoming(data []byte) {
	msg, err := e.Codec().Unmarshal(data)
	if err != nil {
		slog.Debug("dropping malformed sync message", "err", err)
		return
	}

	switch msg.Type {
	case protocol.MessageTypePing:
		// Reply with our own timestamp, not an echo.
		e.sendMessage(protocol.NewMessage(protocol.MessageTypePong))
	case protocol.MessageTypePong:
		if e.onPong != nil {
			e.onPong(msg.Timestamp)
		}
	default:
		e.Apply(msg)
	}
}

// Apply executes one playback command against the local player.
func (e *Engine) Apply(msg protocol.SyncMessage) {
	switch msg.Type {
	case protocol.MessageTypePlay:
		if msg.CurrentTime != nil {
			e.player.Seek(*msg.CurrentTime)
		}
		e.player.Play()

	case protocol.MessageTypePause:
		if msg.CurrentTime != nil {
			e.player.Seek(*msg.CurrentTime)
		}
		e.player.Pause()

	case protocol.MessageTypeSeek:
		if msg.CurrentTime != nil {
			e.player.Seek(*msg.CurrentTime)
		}

	case protocol.MessageTypeReset:
		e.player.Seek(0)
		e.player.Pause()

	case protocol.MessageTypeVideoLoaded:
		// The URL is a local reference; it only resolves when both sides
		// point at the same resource by convention.
		if msg.VideoURL != "" {
			e.player.Load(msg.VideoURL)
		}
	}
}

func (e *Engine) sendMessage(msg protocol.SyncMessage) {
	if !e.isOpen() {
		slog.Debug("dropping outbound message, channel not open", "type", msg.Type)
		return
	}
	if err := e.encodeAndSend(msg); err != nil {
		slog.Debug("send failed", "type", msg.Type, "err", err)
	}
}

func (e *Engine) encodeAndSend(msg protocol.SyncMessage) error {
	data, err := e.Codec().Marshal(msg)
	if err != nil {
		return err
	}
	return e.send(data)
}
