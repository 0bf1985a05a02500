package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(p *ClockPlayer) []Event {
	var events []Event
	for {
		select {
		case ev := <-p.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestNewClockPlayerStartsPausedAtZero(t *testing.T) {
	p := NewClockPlayer()

	assert.True(t, p.Paused())
	assert.Zero(t, p.CurrentTime())
	assert.Empty(t, p.Source())
}

func TestLoadRewindsAndEmits(t *testing.T) {
	p := NewClockPlayer()
	p.Seek(30)
	p.Play()
	drain(p)

	p.Load("movie.mp4")

	assert.Equal(t, "movie.mp4", p.Source())
	assert.True(t, p.Paused())
	assert.Zero(t, p.CurrentTime())

	events := drain(p)
	require.Len(t, events, 1)
	assert.Equal(t, EventLoaded, events[0].Type)
	assert.Equal(t, "movie.mp4", events[0].URL)
}

func TestPositionAdvancesWhilePlaying(t *testing.T) {
	p := NewClockPlayer()
	p.Play()

	time.Sleep(50 * time.Millisecond)
	mid := p.CurrentTime()
	assert.Greater(t, mid, 0.0)

	p.Pause()
	frozen := p.CurrentTime()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, p.CurrentTime())
}

func TestPlayAndPauseAreIdempotent(t *testing.T) {
	p := NewClockPlayer()

	p.Pause() // already paused
	assert.Empty(t, drain(p))

	p.Play()
	p.Play() // already playing
	events := drain(p)
	require.Len(t, events, 1)
	assert.Equal(t, EventPlay, events[0].Type)
}

func TestSeekClampsNegativeToZero(t *testing.T) {
	p := NewClockPlayer()
	p.Seek(-12)

	assert.Zero(t, p.CurrentTime())

	events := drain(p)
	require.Len(t, events, 1)
	assert.Equal(t, EventSeeked, events[0].Type)
	assert.Zero(t, events[0].CurrentTime)
}

func TestSeekKeepsPlayState(t *testing.T) {
	p := NewClockPlayer()
	p.Play()
	p.Seek(90)

	assert.False(t, p.Paused())
	assert.GreaterOrEqual(t, p.CurrentTime(), 90.0)
}
