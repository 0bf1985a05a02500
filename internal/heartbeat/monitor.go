package heartbeat

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the ping period while the channel is open.
const DefaultInterval = 5 * time.Second

// Monitor sends periodic liveness probes over an open channel and
// detects silent death the transport never reports as a close event.
// One monitor serves one channel; Start is idempotent, and the loop
// terminates on its own the moment the channel is no longer open.
type Monitor struct {
	interval time.Duration

	sendPing func() error
	isOpen   func() bool

	// onStale fires once per silence window when no pong has been seen
	// for twice the interval.
	onStale func()

	mu       sync.Mutex
	running  bool
	lastPong time.Time
	stop     chan struct{}
}

// New creates a monitor. sendPing emits one probe; isOpen reports channel
// health; onStale may be nil, in which case missed pongs are only logged.
func New(interval time.Duration, sendPing func() error, isOpen func() bool, onStale func()) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		interval: interval,
		sendPing: sendPing,
		isOpen:   isOpen,
		onStale:  onStale,
	}
}

// Start launches the probe loop. Redundant open signals from overlapping
// transport callbacks start at most one loop.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.lastPong = time.Now()
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	go m.loop(stop)
}

// Stop halts the probe loop if it is running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stop)
}

// Running reports whether the probe loop is live.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// ObservePong records a pong receipt, resetting the liveness deadline.
func (m *Monitor) ObservePong(timestamp int64) {
	m.mu.Lock()
	m.lastPong = time.Now()
	m.mu.Unlock()
	slog.Debug("pong received", "peer_timestamp", timestamp)
}

func (m *Monitor) loop(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	staleReported := false

	for {
		select {
		case <-stop:
			return

		case <-ticker.C:
			if !m.isOpen() {
				m.Stop()
				return
			}

			if err := m.sendPing(); err != nil {
				slog.Debug("heartbeat send failed", "err", err)
			}

			m.mu.Lock()
			silence := time.Since(m.lastPong)
			m.mu.Unlock()

			if silence > 2*m.interval {
				if !staleReported {
					staleReported = true
					slog.Warn("no pong within liveness window", "silence", silence)
					if m.onStale != nil {
						m.onStale()
					}
				}
			} else {
				staleReported = false
			}
		}
	}
}
