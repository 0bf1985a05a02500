package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"watchwire/internal/peerlink"
)

// Callbacks notify the owner of session activity. They are invoked from
// the session's event loop; implementations must not call back into
// blocking session methods.
type Callbacks struct {
	// OnStatusChange fires on every status transition with the new status
	// and the last error, if any.
	OnStatusChange func(status Status, lastErr *peerlink.LinkError)

	// OnToken fires when a locally-generated addressing token is ready to
	// be relayed out of band.
	OnToken func(token string)

	// OnPeerType fires when the remote client type becomes known.
	OnPeerType func(peerType string)

	// OnMessage fires for every inbound data-channel payload.
	OnMessage func(data []byte)
}

// Session owns one side of the peer link lifecycle for a single role:
// it drives setup, bounded retry, and teardown, and holds exclusive
// ownership of at most one link at a time.
//
// All state lives in a single event loop; public methods post commands
// into it, so no transition ever races another.
type Session struct {
	cfg    Config
	role   peerlink.Role
	dialer peerlink.Dialer
	cb     Callbacks

	commands chan func()
	stopped  chan struct{}
	stopOnce sync.Once

	// Snapshot fields, readable outside the loop.
	mu      sync.Mutex
	status  Status
	lastErr *peerlink.LinkError
	link    peerlink.Link

	// Loop-owned state.
	peerID     string
	retryCount int
	attempt    int
	openedOnce bool

	setupTimer *attemptTimer
	openTimer  *attemptTimer
	retryTimer *attemptTimer
	timerFired chan timerFire

	cancelDial context.CancelFunc
}

type timerKind int

const (
	timerSetup timerKind = iota
	timerOpen
	timerRetry
)

type attemptTimer struct {
	t       *time.Timer
	attempt int
}

type timerFire struct {
	kind    timerKind
	attempt int
}

// New creates an idle session for the given role.
func New(cfg Config, role peerlink.Role, dialer peerlink.Dialer, cb Callbacks) *Session {
	s := &Session{
		cfg:        cfg,
		role:       role,
		dialer:     dialer,
		cb:         cb,
		status:     StatusIdle,
		commands:   make(chan func(), 16),
		stopped:    make(chan struct{}),
		timerFired: make(chan timerFire, 8),
	}
	go s.run()
	return s
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError returns the most recent link error, if any.
func (s *Session) LastError() *peerlink.LinkError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// IsOpen reports whether the data channel is established.
func (s *Session) IsOpen() bool {
	return s.Status() == StatusOpen
}

// Send writes one payload to the open channel. Callers that want
// drop-when-closed semantics check IsOpen first; Send itself returns
// ErrNotOpen rather than queueing.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	link, status := s.link, s.status
	s.mu.Unlock()

	if link == nil || status != StatusOpen {
		return peerlink.NewError("send", peerlink.KindChannelClosed, peerlink.ErrNotOpen)
	}
	return link.Send(data)
}

// Connect starts a user-initiated connection attempt with the given
// addressing input (empty for the host role). It resets the retry budget;
// automatic retries never do.
func (s *Session) Connect(addressingInput string) {
	s.post(func() {
		switch s.statusLocked() {
		case StatusIdle, StatusClosed, StatusFailed:
		default:
			slog.Warn("connect ignored, session busy", "status", s.statusLocked())
			return
		}
		s.peerID = addressingInput
		s.retryCount = 0
		s.beginAttempt()
	})
}

// SupplyRemoteToken completes a manual two-phase handshake with the token
// relayed back from the other party.
func (s *Session) SupplyRemoteToken(token string) {
	s.post(func() {
		s.mu.Lock()
		link := s.link
		s.mu.Unlock()
		if link == nil {
			return
		}
		if err := link.AcceptRemoteToken(token); err != nil {
			s.failAttempt(asLinkError(err))
		}
	})
}

// Disconnect tears the session down synchronously. Idempotent: calling it
// twice, or with no link, is a no-op that leaves status closed.
func (s *Session) Disconnect() {
	done := make(chan struct{})
	posted := s.post(func() {
		defer close(done)
		s.teardown(StatusClosed)
	})
	if posted {
		<-done
	}
}

// Shutdown tears the session down and stops its event loop. The session
// is unusable afterwards.
func (s *Session) Shutdown() {
	s.Disconnect()
	s.stopOnce.Do(func() { close(s.stopped) })
}

// post schedules fn on the event loop; reports false if the loop stopped.
func (s *Session) post(fn func()) bool {
	select {
	case s.commands <- fn:
		return true
	case <-s.stopped:
		return false
	}
}

func (s *Session) run() {
	for {
		var events <-chan peerlink.Event
		s.mu.Lock()
		if s.link != nil {
			events = s.link.Events()
		}
		s.mu.Unlock()

		select {
		case fn := <-s.commands:
			fn()

		case ev := <-events:
			s.handleLinkEvent(ev)

		case fire := <-s.timerFired:
			s.handleTimer(fire)

		case <-s.stopped:
			return
		}
	}
}

func (s *Session) statusLocked() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(status Status, lastErr *peerlink.LinkError) {
	s.mu.Lock()
	s.status = status
	if lastErr != nil {
		s.lastErr = lastErr
	}
	s.mu.Unlock()

	slog.Info("session status changed", "role", s.role, "status", status)
	if s.cb.OnStatusChange != nil {
		s.cb.OnStatusChange(status, lastErr)
	}
}

// beginAttempt opens a fresh link. The previous link, if any, must
// already be discarded: exactly one link exists per session.
func (s *Session) beginAttempt() {
	s.attempt++
	s.openedOnce = false
	s.setStatus(StatusNegotiating, nil)

	// The context bounds token gathering inside the dialer; it is released
	// whenever this attempt resolves.
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SetupTimeout)
	s.cancelDial = cancel

	link, err := s.dialer.Dial(ctx, s.role, s.peerID)
	if err != nil {
		s.failAttempt(asLinkError(err))
		return
	}

	s.mu.Lock()
	s.link = link
	s.mu.Unlock()

	s.armTimer(&s.setupTimer, timerSetup, s.cfg.SetupTimeout)
}

func (s *Session) armTimer(slot **attemptTimer, kind timerKind, d time.Duration) {
	s.clearTimer(slot)
	attempt := s.attempt
	*slot = &attemptTimer{
		attempt: attempt,
		t: time.AfterFunc(d, func() {
			select {
			case s.timerFired <- timerFire{kind: kind, attempt: attempt}:
			case <-s.stopped:
			}
		}),
	}
}

func (s *Session) clearTimer(slot **attemptTimer) {
	if *slot != nil {
		(*slot).t.Stop()
		*slot = nil
	}
}

func (s *Session) clearAllTimers() {
	s.clearTimer(&s.setupTimer)
	s.clearTimer(&s.openTimer)
	s.clearTimer(&s.retryTimer)
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
}

func (s *Session) handleTimer(fire timerFire) {
	// A timer that lost the race against another resolution path for its
	// attempt must be a no-op.
	if fire.attempt != s.attempt {
		return
	}

	switch fire.kind {
	case timerSetup:
		if s.statusLocked() == StatusNegotiating {
			s.failAttempt(peerlink.NewError("setup", peerlink.KindSetupTimeout, peerlink.ErrSetupTimeout))
		}

	case timerOpen:
		switch s.statusLocked() {
		case StatusNegotiating, StatusWaitingForPeer:
			s.failAttempt(peerlink.NewError("channel open", peerlink.KindDataConnectionTimeout, peerlink.ErrChannelTimeout))
		}

	case timerRetry:
		s.beginAttempt()
	}
}

func (s *Session) handleLinkEvent(ev peerlink.Event) {
	switch ev.Kind {
	case peerlink.EventTokenReady:
		if s.role == peerlink.RoleHost {
			// The host waits indefinitely for a human to relay the token.
			s.clearTimer(&s.setupTimer)
			s.setStatus(StatusWaitingForPeer, nil)
		}
		if s.cb.OnToken != nil {
			s.cb.OnToken(ev.Token)
		}

	case peerlink.EventHandshaking:
		s.clearTimer(&s.setupTimer)
		s.armTimer(&s.openTimer, timerOpen, s.cfg.ChannelOpenTimeout)
		if ev.PeerType != "" && s.cb.OnPeerType != nil {
			s.cb.OnPeerType(ev.PeerType)
		}

	case peerlink.EventOpened:
		switch s.statusLocked() {
		case StatusOpen:
			// Duplicate open signal; ignore.
		case StatusDegraded:
			s.setStatus(StatusOpen, nil)
		default:
			s.clearAllTimers()
			s.openedOnce = true
			s.setStatus(StatusOpen, nil)
		}

	case peerlink.EventDegraded:
		if s.statusLocked() == StatusOpen {
			s.setStatus(StatusDegraded, nil)
		}

	case peerlink.EventClosed:
		switch s.statusLocked() {
		case StatusOpen, StatusDegraded:
			// Disconnect, not failure: the user may reconnect manually.
			s.teardown(StatusClosed)
		case StatusNegotiating, StatusWaitingForPeer:
			s.failAttempt(peerlink.WrapError("link", peerlink.KindChannelClosed, peerlink.ErrChannelClosed, ev.Reason))
		}

	case peerlink.EventFailed:
		s.failAttempt(ev.Err)

	case peerlink.EventMessage:
		if s.cb.OnMessage != nil {
			s.cb.OnMessage(ev.Data)
		}
	}
}

// failAttempt discards the current link and either schedules an automatic
// retry (client role, retryable error, budget left) or parks the session
// in failed.
func (s *Session) failAttempt(le *peerlink.LinkError) {
	s.discardLink()
	s.clearAllTimers()
	s.attempt++ // anything still in flight for the old attempt is stale

	if s.shouldRetry(le) {
		s.retryCount++
		slog.Info("retrying connection",
			"retry", s.retryCount, "max", s.cfg.MaxRetries, "kind", le.Kind)
		s.mu.Lock()
		s.lastErr = le
		s.mu.Unlock()
		s.armTimer(&s.retryTimer, timerRetry, s.cfg.RetryBackoff)
		return
	}

	s.setStatus(StatusFailed, le)
}

func (s *Session) shouldRetry(le *peerlink.LinkError) bool {
	if s.role != peerlink.RoleClient || s.retryCount >= s.cfg.MaxRetries {
		return false
	}
	if peerlink.Retryable(le.Kind) {
		return true
	}
	// An unexpected channel close is retryable only during initial setup,
	// never after the channel was once open.
	return le.Kind == peerlink.KindChannelClosed && !s.openedOnce
}

// teardown closes and discards the link and all timers. Safe to call at
// any time, from any state, any number of times.
func (s *Session) teardown(toStatus Status) {
	s.clearAllTimers()
	s.attempt++
	hadLink := s.discardLink()

	if s.statusLocked() != toStatus || hadLink {
		s.setStatus(toStatus, nil)
	}
}

func (s *Session) discardLink() bool {
	s.mu.Lock()
	link := s.link
	s.link = nil
	s.mu.Unlock()

	if link == nil {
		return false
	}
	if err := link.Close(); err != nil {
		slog.Debug("link close", "err", err)
	}
	return true
}

func asLinkError(err error) *peerlink.LinkError {
	if le, ok := err.(*peerlink.LinkError); ok {
		return le
	}
	return peerlink.NewError("session", peerlink.KindNetworkError, err)
}
