package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bkuner/opcUaUnifiedAutomation/logger"
)

// ConnState represents the connection state of a session.
type ConnState uint32

const (
	// DisconnectedState is the initial state.
	DisconnectedState ConnState = iota
	// ConnectingState indicates a connect call is in progress.
	ConnectingState
	// ConnectedState indicates the session is established.
	ConnectedState
	// WatchdogWarningState indicates the server missed a liveness check.
	WatchdogWarningState
	// ReconnectingState indicates a reconnect attempt is scheduled.
	ReconnectingState
	// ShuttingDownState is terminal.
	ShuttingDownState
)

// String returns string representation of the state.
func (cs ConnState) String() string {
	switch cs {
	case DisconnectedState:
		return "disconnected"
	case ConnectingState:
		return "connecting"
	case ConnectedState:
		return "connected"
	case WatchdogWarningState:
		return "watchdog-warning"
	case ReconnectingState:
		return "reconnecting"
	case ShuttingDownState:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// IsConnected returns if the state is ConnectedState.
func (cs ConnState) IsConnected() bool { return cs == ConnectedState }

// IsBad returns if item values must be flagged as bad quality in this state.
func (cs ConnState) IsBad() bool {
	return cs != ConnectedState && cs != ConnectingState
}

var validTransitions = map[ConnState][]ConnState{
	DisconnectedState:    {ConnectingState, ShuttingDownState},
	ConnectingState:      {ConnectedState, ReconnectingState, DisconnectedState, ShuttingDownState},
	ConnectedState:       {WatchdogWarningState, ReconnectingState, DisconnectedState, ShuttingDownState},
	WatchdogWarningState: {ConnectedState, ReconnectingState, DisconnectedState, ShuttingDownState},
	ReconnectingState:    {ConnectingState, ConnectedState, DisconnectedState, ShuttingDownState},
}

// CanTransition reports whether next is reachable from cs.
func (cs ConnState) CanTransition(next ConnState) bool {
	for _, s := range validTransitions[cs] {
		if s == next {
			return true
		}
	}

	return false
}

// ConnStateChangeHandler is invoked on every state change.
//
// Note: the handler is invoked in a blocking mode while the state manager lock is held.
// It must not start transitions itself and should not perform network calls.
type ConnStateChangeHandler func(prevState ConnState, newState ConnState)

// ConnStateMgr manages the connection state of a session.
//
// It validates transitions, notifies handlers and lets callers wait for a state.
// The state transitions are safe for concurrent use.
type ConnStateMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	logger   logger.Logger
	handlers []ConnStateChangeHandler
}

// NewConnStateMgr creates a new ConnStateMgr in DisconnectedState.
func NewConnStateMgr(l logger.Logger, handlers ...ConnStateChangeHandler) *ConnStateMgr {
	if l == nil {
		l = logger.GetLogger()
	}

	cs := &ConnStateMgr{
		logger:   l,
		handlers: make([]ConnStateChangeHandler, 0, len(handlers)),
	}
	cs.AddHandler(handlers...)
	cs.state.Store(uint32(DisconnectedState))
	cs.cond = sync.NewCond(&cs.mu)

	return cs
}

// State returns the current connection state.
func (cs *ConnStateMgr) State() ConnState {
	return ConnState(cs.state.Load())
}

// AddHandler adds one or more ConnStateChangeHandler functions to be invoked on state changes.
func (cs *ConnStateMgr) AddHandler(handlers ...ConnStateChangeHandler) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.handlers = append(cs.handlers, handlers...)
}

// To transitions to next. A transition to the current state is a no-op.
//
// Returns ErrInvalidTransition if next is not reachable from the current state.
func (cs *ConnStateMgr) To(next ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cur := cs.State()
	if cur == next {
		return nil
	}
	if !cur.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, next)
	}

	// change state BEFORE handlers run so that they observe the new state
	cs.state.Store(uint32(next))
	cs.logger.Debug("connection state changed", "prev_state", cur, "state", next)
	for _, handler := range cs.handlers {
		if handler != nil {
			handler(cur, next)
		}
	}
	cs.cond.Broadcast()

	return nil
}

// WaitState waits for the connection state to reach the specified state or until the context is done.
// It returns nil if the desired state is reached, or an error if the context is canceled or times out.
func (cs *ConnStateMgr) WaitState(ctx context.Context, state ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		cs.cond.Broadcast()
	})
	defer stopFunc()

	for cs.State() != state {
		if err := ctx.Err(); err != nil {
			return err
		}
		cs.cond.Wait()
	}

	return nil
}
