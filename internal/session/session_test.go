package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchwire/internal/peerlink"
)

type fakeLink struct {
	events chan peerlink.Event

	mu       sync.Mutex
	closes   int
	sent     [][]byte
	accepted []string
}

func newFakeLink() *fakeLink {
	return &fakeLink{events: make(chan peerlink.Event, 16)}
}

func (l *fakeLink) Send(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, data)
	return nil
}

func (l *fakeLink) AcceptRemoteToken(token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accepted = append(l.accepted, token)
	return nil
}

func (l *fakeLink) Events() <-chan peerlink.Event {
	return l.events
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	return nil
}

func (l *fakeLink) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

func (l *fakeLink) emit(ev peerlink.Event) {
	l.events <- ev
}

// fakeDialer hands out a scripted link per attempt.
type fakeDialer struct {
	mu     sync.Mutex
	links  []*fakeLink
	script func(attempt int, l *fakeLink)
}

func (d *fakeDialer) Dial(ctx context.Context, role peerlink.Role, addressingInput string) (peerlink.Link, error) {
	d.mu.Lock()
	l := newFakeLink()
	d.links = append(d.links, l)
	attempt := len(d.links)
	d.mu.Unlock()

	if d.script != nil {
		d.script(attempt, l)
	}
	return l, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.links)
}

func (d *fakeDialer) link(i int) *fakeLink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.links[i]
}

// statusRecorder collects every transition and lets tests wait for one.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
	changed  chan struct{}
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{changed: make(chan struct{}, 64)}
}

func (r *statusRecorder) callback(status Status, lastErr *peerlink.LinkError) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *statusRecorder) all() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func waitForStatus(t *testing.T, s *Session, want Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if s.Status() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s, at %s", want, s.Status())
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func testConfig() Config {
	return Config{
		SetupTimeout:       200 * time.Millisecond,
		ChannelOpenTimeout: 200 * time.Millisecond,
		RetryBackoff:       5 * time.Millisecond,
		MaxRetries:         3,
	}
}

func TestHostFlowTokenThenOpen(t *testing.T) {
	dialer := &fakeDialer{}
	rec := newStatusRecorder()

	var tokenMu sync.Mutex
	var tokens []string

	s := New(testConfig(), peerlink.RoleHost, dialer, Callbacks{
		OnStatusChange: rec.callback,
		OnToken: func(token string) {
			tokenMu.Lock()
			tokens = append(tokens, token)
			tokenMu.Unlock()
		},
	})
	defer s.Shutdown()

	s.Connect("")
	waitForStatus(t, s, StatusNegotiating)

	dialer.link(0).emit(peerlink.Event{Kind: peerlink.EventTokenReady, Token: "offer-token"})
	waitForStatus(t, s, StatusWaitingForPeer)

	tokenMu.Lock()
	require.Equal(t, []string{"offer-token"}, tokens)
	tokenMu.Unlock()

	dialer.link(0).emit(peerlink.Event{Kind: peerlink.EventHandshaking})
	dialer.link(0).emit(peerlink.Event{Kind: peerlink.EventOpened})
	waitForStatus(t, s, StatusOpen)

	assert.True(t, s.IsOpen())
	assert.Equal(t, 1, dialer.dialCount())
}

func TestConnectIgnoredWhileBusy(t *testing.T) {
	dialer := &fakeDialer{}
	s := New(testConfig(), peerlink.RoleHost, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("")
	waitForStatus(t, s, StatusNegotiating)

	// A second connect while an attempt is in flight must not spawn a
	// second link.
	s.Connect("")
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, dialer.dialCount())
}

func TestClientRetriesThenParksInFailed(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			l.emit(peerlink.Event{
				Kind: peerlink.EventFailed,
				Err:  peerlink.NewError("dial", peerlink.KindNetworkError, peerlink.ErrNetwork),
			})
		},
	}

	cfg := testConfig()
	s := New(cfg, peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusFailed)

	// One user-initiated attempt plus the full retry budget.
	assert.Equal(t, 1+cfg.MaxRetries, dialer.dialCount())

	le := s.LastError()
	require.NotNil(t, le)
	assert.Equal(t, peerlink.KindNetworkError, le.Kind)
}

func TestInvalidTokenFailsWithoutRetry(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			l.emit(peerlink.Event{
				Kind: peerlink.EventFailed,
				Err:  peerlink.NewError("decode token", peerlink.KindInvalidToken, peerlink.ErrInvalidToken),
			})
		},
	}

	s := New(testConfig(), peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("garbage")
	waitForStatus(t, s, StatusFailed)

	assert.Equal(t, 1, dialer.dialCount())

	le := s.LastError()
	require.NotNil(t, le)
	assert.Equal(t, peerlink.KindInvalidToken, le.Kind)
}

func TestHostNeverRetries(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			l.emit(peerlink.Event{
				Kind: peerlink.EventFailed,
				Err:  peerlink.NewError("dial", peerlink.KindNetworkError, peerlink.ErrNetwork),
			})
		},
	}

	s := New(testConfig(), peerlink.RoleHost, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("")
	waitForStatus(t, s, StatusFailed)

	assert.Equal(t, 1, dialer.dialCount())
}

func TestConnectAfterFailureResetsRetryBudget(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			l.emit(peerlink.Event{
				Kind: peerlink.EventFailed,
				Err:  peerlink.NewError("dial", peerlink.KindServiceError, peerlink.ErrService),
			})
		},
	}

	cfg := testConfig()
	s := New(cfg, peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusFailed)
	require.Equal(t, 1+cfg.MaxRetries, dialer.dialCount())

	s.Connect("room-id")

	want := 2 * (1 + cfg.MaxRetries)
	deadline := time.After(2 * time.Second)
	for dialer.dialCount() < want {
		select {
		case <-deadline:
			t.Fatalf("expected %d dials, saw %d", want, dialer.dialCount())
		case <-time.After(2 * time.Millisecond):
		}
	}
	waitForStatus(t, s, StatusFailed)

	assert.Equal(t, want, dialer.dialCount())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			l.emit(peerlink.Event{Kind: peerlink.EventHandshaking})
			l.emit(peerlink.Event{Kind: peerlink.EventOpened})
		},
	}

	s := New(testConfig(), peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusOpen)

	s.Disconnect()
	assert.Equal(t, StatusClosed, s.Status())

	s.Disconnect()
	assert.Equal(t, StatusClosed, s.Status())

	assert.Equal(t, 1, dialer.link(0).closeCount())
}

func TestUnexpectedCloseAfterOpenDoesNotRetry(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			l.emit(peerlink.Event{Kind: peerlink.EventHandshaking})
			l.emit(peerlink.Event{Kind: peerlink.EventOpened})
		},
	}

	s := New(testConfig(), peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusOpen)

	dialer.link(0).emit(peerlink.Event{Kind: peerlink.EventClosed, Reason: "peer left"})
	waitForStatus(t, s, StatusClosed)

	// A close after the channel was established is a disconnect, not a
	// setup failure to retry.
	assert.Equal(t, 1, dialer.dialCount())
}

func TestCloseDuringSetupIsRetried(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			if attempt == 1 {
				l.emit(peerlink.Event{Kind: peerlink.EventClosed, Reason: "abrupt"})
				return
			}
			l.emit(peerlink.Event{Kind: peerlink.EventHandshaking})
			l.emit(peerlink.Event{Kind: peerlink.EventOpened})
		},
	}

	s := New(testConfig(), peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusOpen)

	assert.Equal(t, 2, dialer.dialCount())
}

func TestDegradedTransportRecovers(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			l.emit(peerlink.Event{Kind: peerlink.EventHandshaking})
			l.emit(peerlink.Event{Kind: peerlink.EventOpened})
		},
	}

	s := New(testConfig(), peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusOpen)

	dialer.link(0).emit(peerlink.Event{Kind: peerlink.EventDegraded, Reason: "disconnected"})
	waitForStatus(t, s, StatusDegraded)

	dialer.link(0).emit(peerlink.Event{Kind: peerlink.EventOpened})
	waitForStatus(t, s, StatusOpen)

	assert.Equal(t, 1, dialer.dialCount())
}

func TestSetupTimeoutFailsAttempt(t *testing.T) {
	dialer := &fakeDialer{} // link never emits anything

	cfg := testConfig()
	cfg.SetupTimeout = 20 * time.Millisecond
	cfg.MaxRetries = 0

	s := New(cfg, peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusFailed)

	le := s.LastError()
	require.NotNil(t, le)
	assert.Equal(t, peerlink.KindSetupTimeout, le.Kind)
}

func TestChannelOpenTimeoutFailsAttempt(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			// Handshake starts but the channel never opens.
			l.emit(peerlink.Event{Kind: peerlink.EventHandshaking})
		},
	}

	cfg := testConfig()
	cfg.ChannelOpenTimeout = 20 * time.Millisecond
	cfg.MaxRetries = 0

	s := New(cfg, peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusFailed)

	le := s.LastError()
	require.NotNil(t, le)
	assert.Equal(t, peerlink.KindDataConnectionTimeout, le.Kind)
}

func TestSendRequiresOpenChannel(t *testing.T) {
	dialer := &fakeDialer{}
	s := New(testConfig(), peerlink.RoleClient, dialer, Callbacks{})
	defer s.Shutdown()

	err := s.Send([]byte("hello"))
	require.Error(t, err)

	var le *peerlink.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, peerlink.KindChannelClosed, le.Kind)
}

func TestMessagesReachCallback(t *testing.T) {
	dialer := &fakeDialer{
		script: func(attempt int, l *fakeLink) {
			l.emit(peerlink.Event{Kind: peerlink.EventHandshaking})
			l.emit(peerlink.Event{Kind: peerlink.EventOpened})
		},
	}

	received := make(chan []byte, 1)
	s := New(testConfig(), peerlink.RoleClient, dialer, Callbacks{
		OnMessage: func(data []byte) { received <- data },
	})
	defer s.Shutdown()

	s.Connect("room-id")
	waitForStatus(t, s, StatusOpen)

	dialer.link(0).emit(peerlink.Event{Kind: peerlink.EventMessage, Data: []byte(`{"type":"play"}`)})

	select {
	case data := <-received:
		assert.JSONEq(t, `{"type":"play"}`, string(data))
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}
