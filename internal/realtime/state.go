package realtime

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// State represents the lifecycle state of one realtime connection.
type State int

const (
	// StateConnecting - sockets open, upstream session not yet configured.
	StateConnecting State = iota
	// StateActive - both relay loops running.
	StateActive
	// StateClosing - one loop finished, teardown in progress.
	StateClosing
	// StateClosed - torn down, all resources released.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is CLOSED.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// ErrNotConnecting is returned when activation is attempted out of order.
var ErrNotConnecting = errors.New("connection is not in connecting state")

// Lifecycle manages the state machine for a single realtime connection.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	CONNECTING → ACTIVE → CLOSING → CLOSED
//	     │                   ▲
//	     └── BeginClose() ───┘  (init failure skips ACTIVE)
//
// Rules:
//   - Activate is valid only once, from CONNECTING.
//   - BeginClose is valid from CONNECTING or ACTIVE; repeated calls
//     report false so teardown runs exactly once.
//   - Finish is idempotent and valid from any state.
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a lifecycle in CONNECTING state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateConnecting}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Activate transitions CONNECTING → ACTIVE.
func (l *Lifecycle) Activate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateConnecting {
		return ErrNotConnecting
	}
	l.state = StateActive
	return nil
}

// BeginClose transitions to CLOSING. Returns true if this call won the
// transition, false if teardown already started or finished.
func (l *Lifecycle) BeginClose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosing || l.state == StateClosed {
		return false
	}
	l.state = StateClosing
	return true
}

// Finish transitions to CLOSED. Idempotent.
func (l *Lifecycle) Finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}
