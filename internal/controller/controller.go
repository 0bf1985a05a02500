package controller

import (
	"sync"

	"watchwire/internal/peerlink"
	"watchwire/internal/session"
)

// ConnectionStatus is the read-only projection the UI renders. It is
// recomputed on every session transition, never mutated independently.
type ConnectionStatus struct {
	Connected bool
	Message   string
}

// SessionFactory builds a session for a role. Injected so tests can wire
// fake dialers.
type SessionFactory func(role peerlink.Role, cb session.Callbacks) *session.Session

// Options configure a controller. All callbacks are optional and are
// invoked from session goroutines.
type Options struct {
	Role    peerlink.Role
	Factory SessionFactory

	// OnStatus is notified with every recomputed projection.
	OnStatus func(ConnectionStatus)

	// OnToken is notified when an addressing token is ready for relay.
	OnToken func(string)

	// OnMessage receives every inbound data-channel payload.
	OnMessage func([]byte)

	// OnPeerType is notified when the remote client type becomes known.
	OnPeerType func(string)
}

// Controller holds the active role, owns the session for it, and derives
// the ConnectionStatus the UI consumes. A role switch tears the current
// session down before the new role may connect.
type Controller struct {
	opts Options

	mu         sync.Mutex
	role       peerlink.Role
	sess       *session.Session
	status     ConnectionStatus
	localClose bool
}

// New creates a controller with the given initial role.
func New(opts Options) *Controller {
	return &Controller{
		opts:   opts,
		role:   opts.Role,
		status: ConnectionStatus{Connected: false, Message: "Disconnected"},
	}
}

// Role returns the active role.
func (c *Controller) Role() peerlink.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Status returns the current UI projection.
func (c *Controller) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Session returns the active session, creating it on first use.
func (c *Controller) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureSessionLocked()
}

func (c *Controller) ensureSessionLocked() *session.Session {
	if c.sess == nil {
		role := c.role
		c.sess = c.opts.Factory(role, session.Callbacks{
			OnStatusChange: func(st session.Status, lastErr *peerlink.LinkError) {
				c.project(role, st, lastErr)
			},
			OnToken:    c.opts.OnToken,
			OnMessage:  c.opts.OnMessage,
			OnPeerType: c.opts.OnPeerType,
		})
	}
	return c.sess
}

// Connect starts a connection attempt in the active role.
func (c *Controller) Connect(addressingInput string) {
	c.mu.Lock()
	c.localClose = false
	sess := c.ensureSessionLocked()
	c.mu.Unlock()

	sess.Connect(addressingInput)
}

// SupplyRemoteToken forwards a pasted answer token to the session.
func (c *Controller) SupplyRemoteToken(token string) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess != nil {
		sess.SupplyRemoteToken(token)
	}
}

// Disconnect tears the active session down. Idempotent.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	sess := c.sess
	c.localClose = true
	c.mu.Unlock()

	if sess != nil {
		sess.Disconnect()
	}

	c.mu.Lock()
	c.status = ConnectionStatus{Connected: false, Message: "Disconnected"}
	status := c.status
	c.mu.Unlock()

	c.notify(status)
}

// SetRole switches the active role. The current session is fully torn
// down, synchronously, before the new role is adopted; the status reads
// disconnected before any new connection attempt may start.
func (c *Controller) SetRole(role peerlink.Role) {
	c.mu.Lock()
	if role == c.role {
		c.mu.Unlock()
		return
	}
	sess := c.sess
	c.sess = nil
	c.localClose = true
	c.mu.Unlock()

	if sess != nil {
		sess.Shutdown()
	}

	c.mu.Lock()
	c.role = role
	c.status = ConnectionStatus{Connected: false, Message: "Disconnected"}
	status := c.status
	c.mu.Unlock()

	c.notify(status)
}

// Shutdown tears everything down, for process exit.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess != nil {
		sess.Shutdown()
	}
}

// project recomputes the UI status as a pure function of the session
// state, the role, and the last error.
func (c *Controller) project(role peerlink.Role, st session.Status, lastErr *peerlink.LinkError) {
	c.mu.Lock()
	local := c.localClose
	c.status = statusProjection(role, st, lastErr, local)
	status := c.status
	c.mu.Unlock()

	c.notify(status)
}

func (c *Controller) notify(status ConnectionStatus) {
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(status)
	}
}

// statusProjection maps session state to the short human string the UI
// shows. Messages come from a closed table; raw error text never leaks.
func statusProjection(role peerlink.Role, st session.Status, lastErr *peerlink.LinkError, localClose bool) ConnectionStatus {
	host := role == peerlink.RoleHost

	switch st {
	case session.StatusIdle:
		return ConnectionStatus{false, "Disconnected"}

	case session.StatusNegotiating:
		if host {
			return ConnectionStatus{false, "Setting up host..."}
		}
		return ConnectionStatus{false, "Connecting to host..."}

	case session.StatusWaitingForPeer:
		return ConnectionStatus{false, "Waiting for peer to connect..."}

	case session.StatusOpen:
		if host {
			return ConnectionStatus{true, "Client connected"}
		}
		return ConnectionStatus{true, "Connected to host"}

	case session.StatusDegraded:
		return ConnectionStatus{false, "Connection lost"}

	case session.StatusClosed:
		if localClose {
			return ConnectionStatus{false, "Disconnected"}
		}
		if host {
			return ConnectionStatus{false, "Client disconnected"}
		}
		return ConnectionStatus{false, "Disconnected from host"}

	case session.StatusFailed:
		return ConnectionStatus{false, failureMessage(host, lastErr)}
	}

	return ConnectionStatus{false, "Disconnected"}
}

func failureMessage(host bool, lastErr *peerlink.LinkError) string {
	if lastErr == nil {
		if host {
			return "Error setting up host"
		}
		return "Error connecting to host"
	}

	switch lastErr.Kind {
	case peerlink.KindInvalidToken:
		return "Invalid connection code"
	case peerlink.KindPeerUnreachable:
		return "Host not found"
	case peerlink.KindNetworkError:
		return "Network error"
	case peerlink.KindServiceError:
		return "Server error"
	case peerlink.KindIDUnavailable:
		return "Room unavailable"
	case peerlink.KindChannelClosed:
		return "Connection lost"
	default:
		if host {
			return "Error setting up host"
		}
		return "Error connecting to host"
	}
}
