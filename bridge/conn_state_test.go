package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnStateTransitions(t *testing.T) {
	require := require.New(t)

	t.Run("Initial State", func(t *testing.T) {
		cs := NewConnStateMgr(nil)
		require.Equal(DisconnectedState, cs.State())
	})

	t.Run("Connect Cycle", func(t *testing.T) {
		var changes [][2]ConnState
		cs := NewConnStateMgr(nil, func(prev, next ConnState) {
			changes = append(changes, [2]ConnState{prev, next})
		})

		require.NoError(cs.To(ConnectingState))
		require.NoError(cs.To(ReconnectingState))
		require.NoError(cs.To(ConnectingState))
		require.NoError(cs.To(ConnectedState))
		require.NoError(cs.To(WatchdogWarningState))
		require.NoError(cs.To(ConnectedState))
		require.NoError(cs.To(ReconnectingState))
		require.NoError(cs.To(ConnectedState))

		require.Len(changes, 8)
		require.Equal([2]ConnState{DisconnectedState, ConnectingState}, changes[0])
		require.Equal([2]ConnState{ReconnectingState, ConnectedState}, changes[7])

		// same state is a no-op
		require.NoError(cs.To(ConnectedState))
		require.Len(changes, 8)
	})

	t.Run("Invalid Transitions", func(t *testing.T) {
		cs := NewConnStateMgr(nil)

		require.ErrorIs(cs.To(ConnectedState), ErrInvalidTransition)
		require.ErrorIs(cs.To(WatchdogWarningState), ErrInvalidTransition)
		require.NoError(cs.To(ShuttingDownState))
		require.ErrorIs(cs.To(ConnectingState), ErrInvalidTransition)
		require.ErrorIs(cs.To(DisconnectedState), ErrInvalidTransition)
	})

	t.Run("Handler Sees New State", func(t *testing.T) {
		var seen ConnState
		var cs *ConnStateMgr
		cs = NewConnStateMgr(nil, func(_, _ ConnState) { seen = cs.State() })

		require.NoError(cs.To(ConnectingState))
		require.Equal(ConnectingState, seen)
	})
}

func TestConnState_IsBad(t *testing.T) {
	require := require.New(t)

	require.False(ConnectedState.IsBad())
	require.False(ConnectingState.IsBad())
	require.True(WatchdogWarningState.IsBad())
	require.True(ReconnectingState.IsBad())
	require.True(DisconnectedState.IsBad())
	require.True(ShuttingDownState.IsBad())
	require.Equal("watchdog-warning", WatchdogWarningState.String())
}

func TestConnStateMgr_WaitState(t *testing.T) {
	require := require.New(t)

	cs := NewConnStateMgr(nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = cs.To(ConnectingState)
		_ = cs.To(ConnectedState)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(cs.WaitState(ctx, ConnectedState))

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	require.ErrorIs(cs.WaitState(ctx2, ShuttingDownState), context.DeadlineExceeded)
}
