// Package lifecycle implements the MCP peer state machine (spec.md §4.4):
// Created -> Initializing -> Ready -> ShuttingDown, one-directional, and
// the per-method/per-role gating that decides whether an inbound request
// is allowed in the current state.
package lifecycle

import "sync/atomic"

// State is one phase of a peer's lifecycle.
type State int32

const (
	// Created is the initial state: a server has received nothing yet; a
	// client has not yet sent initialize.
	Created State = iota
	// Initializing is the window between a server receiving `initialize`
	// and observing `notifications/initialized`, or a client sending
	// `initialize` and receiving its response.
	Initializing
	// Ready is the steady state: all method handlers are enabled subject
	// to capability checks.
	Ready
	// ShuttingDown rejects new requests and cancels outstanding awaiters.
	ShuttingDown
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case ShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Machine is an atomic, one-directional state cell. Transitions use
// compare-and-swap so a racing shutdown always wins over a late
// initialize-path transition (spec.md §5 "CAS transitions are used on
// mutation").
type Machine struct {
	state atomic.Int32
}

// New creates a Machine in the Created state.
func New() *Machine {
	return &Machine{}
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	return State(m.state.Load())
}

// TransitionTo attempts to move from "from" to "to". Returns false if the
// machine was not in "from" when called (another goroutine already moved
// it, most commonly to ShuttingDown).
func (m *Machine) TransitionTo(from, to State) bool {
	return m.state.CompareAndSwap(int32(from), int32(to))
}

// ForceShutdown unconditionally moves the machine to ShuttingDown,
// regardless of current state. Used on transport close.
func (m *Machine) ForceShutdown() {
	m.state.Store(int32(ShuttingDown))
}

// Direction distinguishes which peer role is asking whether a method is
// currently allowed, since the gating table differs for server-inbound
// vs. client-inbound requests (spec.md §4.4, §4.6).
type Direction int

const (
	// DirectionServerInbound is a request arriving at the server.
	DirectionServerInbound Direction = iota
	// DirectionClientInbound is a request arriving at the client
	// (currently only sampling/createMessage).
	DirectionClientInbound
)

// AllowRequest reports whether an inbound request for the given method is
// permitted in the current state, per the table in spec.md §4.4:
//
//   - Created: only `initialize`, and only for DirectionServerInbound.
//   - Initializing: no request is allowed; the peer that sent initialize
//     has not yet observed notifications/initialized.
//   - Ready: everything is allowed (capability gating happens elsewhere).
//   - ShuttingDown: nothing is allowed.
func (m *Machine) AllowRequest(dir Direction, method string) bool {
	switch m.Current() {
	case Created:
		return dir == DirectionServerInbound && method == "initialize"
	case Initializing:
		return false
	case Ready:
		return true
	case ShuttingDown:
		return false
	default:
		return false
	}
}
