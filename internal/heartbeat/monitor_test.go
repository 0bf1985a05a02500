package heartbeat

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartIsIdempotent(t *testing.T) {
	var pings atomic.Int32
	open := atomic.Bool{}
	open.Store(true)

	m := New(10*time.Millisecond,
		func() error { pings.Add(1); return nil },
		func() bool { return open.Load() },
		nil,
	)
	defer m.Stop()

	// Overlapping open signals from the transport must start one loop.
	m.Start()
	m.Start()
	m.Start()
	assert.True(t, m.Running())

	time.Sleep(55 * time.Millisecond)
	count := pings.Load()

	// One loop pings roughly once per interval; three loops would triple it.
	assert.GreaterOrEqual(t, count, int32(3))
	assert.LessOrEqual(t, count, int32(8))
}

func TestLoopStopsWhenChannelCloses(t *testing.T) {
	open := atomic.Bool{}
	open.Store(true)

	m := New(5*time.Millisecond,
		func() error { return nil },
		func() bool { return open.Load() },
		nil,
	)

	m.Start()
	assert.True(t, m.Running())

	open.Store(false)

	deadline := time.After(time.Second)
	for m.Running() {
		select {
		case <-deadline:
			t.Fatal("monitor kept running after the channel closed")
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestStaleFiresOncePerSilenceWindow(t *testing.T) {
	var staleCalls atomic.Int32
	open := atomic.Bool{}
	open.Store(true)

	m := New(10*time.Millisecond,
		func() error { return nil },
		func() bool { return open.Load() },
		func() { staleCalls.Add(1) },
	)
	defer m.Stop()

	m.Start()

	// No pong ever arrives; after twice the interval the silence is
	// reported, once.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), staleCalls.Load())
}

func TestPongResetsLivenessWindow(t *testing.T) {
	var staleCalls atomic.Int32
	open := atomic.Bool{}
	open.Store(true)

	m := New(15*time.Millisecond,
		func() error { return nil },
		func() bool { return open.Load() },
		func() { staleCalls.Add(1) },
	)
	defer m.Stop()

	m.Start()

	// Keep feeding pongs faster than the liveness window.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-time.After(10 * time.Millisecond):
				m.ObservePong(time.Now().UnixMilli())
			}
		}
	}()

	time.Sleep(100 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Zero(t, staleCalls.Load())
}

func TestStopBeforeStartIsSafe(t *testing.T) {
	m := New(DefaultInterval, func() error { return nil }, func() bool { return true }, nil)

	m.Stop()
	assert.False(t, m.Running())
}
