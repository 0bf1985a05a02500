package media

import (
	"sync"
	"time"
)

// EventType identifies a playback event emitted by a Player.
type EventType string

const (
	EventLoaded EventType = "loadedmetadata"
	EventPlay   EventType = "play"
	EventPause  EventType = "pause"
	EventSeeked EventType = "seeked"
)

// Event is a playback notification carrying the position at emit time.
type Event struct {
	Type        EventType
	CurrentTime float64
	URL         string
}

// Player is the local media capability: load a source, control playback,
// observe position and events. The sync engine consumes this interface;
// tests substitute their own implementation.
type Player interface {
	Load(url string)
	Play()
	Pause()
	Seek(t float64)
	CurrentTime() float64
	Paused() bool
	Source() string
	Events() <-chan Event
}

// ClockPlayer simulates playback against the wall clock: while playing,
// the position advances in real time. It stands in for a media element
// so the CLI can drive and mirror playback without a rendering stack.
type ClockPlayer struct {
	mu sync.Mutex

	source   string
	paused   bool
	position float64
	playedAt time.Time

	events chan Event
}

// NewClockPlayer creates a paused player with no source.
func NewClockPlayer() *ClockPlayer {
	return &ClockPlayer{
		paused: true,
		events: make(chan Event, 16),
	}
}

// Load sets the media source, rewinds to zero, and emits loadedmetadata.
func (p *ClockPlayer) Load(url string) {
	p.mu.Lock()
	p.source = url
	p.position = 0
	p.paused = true
	p.mu.Unlock()

	p.emit(Event{Type: EventLoaded, CurrentTime: 0, URL: url})
}

// Play starts advancing the position. Playing twice is a no-op.
func (p *ClockPlayer) Play() {
	p.mu.Lock()
	if !p.paused {
		p.mu.Unlock()
		return
	}
	p.paused = false
	p.playedAt = time.Now()
	pos := p.position
	p.mu.Unlock()

	p.emit(Event{Type: EventPlay, CurrentTime: pos})
}

// Pause freezes the position. Pausing twice is a no-op.
func (p *ClockPlayer) Pause() {
	p.mu.Lock()
	if p.paused {
		p.mu.Unlock()
		return
	}
	p.position += time.Since(p.playedAt).Seconds()
	p.paused = true
	pos := p.position
	p.mu.Unlock()

	p.emit(Event{Type: EventPause, CurrentTime: pos})
}

// Seek moves the position and emits seeked. Negative targets clamp to zero;
// play/pause state is unchanged.
func (p *ClockPlayer) Seek(t float64) {
	if t < 0 {
		t = 0
	}

	p.mu.Lock()
	p.position = t
	if !p.paused {
		p.playedAt = time.Now()
	}
	p.mu.Unlock()

	p.emit(Event{Type: EventSeeked, CurrentTime: t})
}

// CurrentTime returns the playback position in seconds.
func (p *ClockPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		return p.position
	}
	return p.position + time.Since(p.playedAt).Seconds()
}

// Paused reports whether playback is stopped.
func (p *ClockPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Source returns the currently loaded media URL, if any.
func (p *ClockPlayer) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// Events returns the playback event stream.
func (p *ClockPlayer) Events() <-chan Event {
	return p.events
}

// emit drops the event if no one is draining the stream; a stale playback
// notification delivered late is worse than a missing one.
func (p *ClockPlayer) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
	}
}
