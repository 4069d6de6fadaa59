// Package netstatus tracks network reachability as a three-valued signal and
// publishes connectivity transitions.
package netstatus

import "sync"

type State int

const (
	// Unknown means reachability has not been determined yet.
	Unknown State = iota
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Status is the current connectivity signal plus the connection type when the
// underlying platform reports one (e.g. "wifi", "cellular").
type Status struct {
	State State
	Type  string
}

// TransitionFunc observes a connectivity change.
type TransitionFunc func(from, to Status)

// Monitor holds the current reachability status and notifies subscribers on
// transitions. Reconnect subscribers fire only for disconnected → connected,
// never for unknown → connected, so nothing drains before the real state is
// known.
type Monitor struct {
	mu          sync.Mutex
	status      Status
	transitions []TransitionFunc
	reconnects  []func()
}

func NewMonitor() *Monitor {
	return &Monitor{status: Status{State: Unknown}}
}

// Current returns the last observed status.
func (m *Monitor) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnTransition subscribes to every status change.
func (m *Monitor) OnTransition(cb TransitionFunc) {
	m.mu.Lock()
	m.transitions = append(m.transitions, cb)
	m.mu.Unlock()
}

// OnReconnect subscribes to disconnected → connected transitions only.
func (m *Monitor) OnReconnect(cb func()) {
	m.mu.Lock()
	m.reconnects = append(m.reconnects, cb)
	m.mu.Unlock()
}

// SetStatus records a new status and notifies subscribers when it differs
// from the previous one. Callbacks run outside the lock.
func (m *Monitor) SetStatus(status Status) {
	m.mu.Lock()
	prev := m.status
	if prev == status {
		m.mu.Unlock()
		return
	}
	m.status = status
	transitions := append([]TransitionFunc(nil), m.transitions...)
	var reconnects []func()
	if prev.State == Disconnected && status.State == Connected {
		reconnects = append([]func(){}, m.reconnects...)
	}
	m.mu.Unlock()

	for _, cb := range transitions {
		cb(prev, status)
	}
	for _, cb := range reconnects {
		cb()
	}
}
