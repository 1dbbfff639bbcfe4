package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/coerce"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatest"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

func TestItem_WriteBeforeConnect(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	s := newTestSession(t, srv)

	speed, err := s.AddItem("2,Speed", uatype.Slot{Type: uatype.LocalInt32}, nil, WithDirection(uatype.Out))
	require.NoError(err)

	require.ErrorIs(speed.Write(int32(10)), ErrNotConnected)
	require.Zero(srv.Counters().Write.Load())
	require.False(speed.WritePending())
}

func TestItem_WriteCompletes(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	s := newTestSession(t, srv)

	rec := newRecorder()
	speed, err := s.AddItem("2,Speed", uatype.Slot{Type: uatype.LocalInt32}, nil,
		WithDirection(uatype.Out), WithConsumer(rec))
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))

	require.NoError(speed.Write(int32(1750)))

	ev := rec.next(t, EventWriteDone)
	require.Same(speed, ev.Item)
	require.Equal(uatype.StatusGood, ev.Status)
	require.Equal(uatype.StatusGood, speed.Status())
	require.False(speed.WritePending())

	node, ok := srv.Node(speedNode)
	require.True(ok)
	require.True(uatype.Scalar(int32(1750)).Equal(node.Value))
	require.EqualValues(1, s.Metrics().WriteCount.Load())
	require.Zero(s.Metrics().WriteInflightCount.Load())
}

func TestItem_WriteConversionError(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	srv.AddNode(levelNode, uatype.Scalar(uint16(7)), uatype.AccessCurrentRead|uatype.AccessCurrentWrite)
	s := newTestSession(t, srv)

	level, err := s.AddItem("2,1042", uatype.Slot{Type: uatype.LocalInt32}, nil, WithDirection(uatype.Out))
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))
	require.Equal(uatype.StatusGood, level.Status())

	err = level.Write(int32(-1))
	require.ErrorIs(err, coerce.ErrOutOfRange)
	require.Equal(uatype.StatusGood, level.Status())
	require.False(level.WritePending())
	require.Zero(srv.Counters().Write.Load())
}

func TestItem_SecondWriteRejected(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	srv.HoldWrites(true)
	s := newTestSession(t, srv)

	rec := newRecorder()
	speed, err := s.AddItem("2,Speed", uatype.Slot{Type: uatype.LocalInt32}, nil,
		WithDirection(uatype.Out), WithConsumer(rec))
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))

	require.NoError(speed.Write(int32(1)))
	require.True(speed.WritePending())

	require.ErrorIs(speed.Write(int32(2)), ErrWritePending)
	require.Len(srv.Writes(), 1)

	require.NoError(srv.CompleteWrite(speed.Index(), uatype.StatusGood))
	rec.next(t, EventWriteDone)
	require.False(speed.WritePending())

	require.NoError(speed.Write(int32(3)))
	require.Len(srv.Writes(), 2)
}

func TestItem_WriteCompletionMatching(t *testing.T) {
	require := require.New(t)

	const n = 6

	srv := uatest.NewServer()
	srv.HoldWrites(true)
	s := newTestSession(t, srv)

	rec := newRecorder()
	items := make([]*Item, n)
	for i := range n {
		node := address.NewNumericNodeID(2, uint32(100+i))
		srv.AddNode(node, uatype.Scalar(int32(0)), uatype.AccessCurrentRead|uatype.AccessCurrentWrite)

		it, err := s.AddItem(fmt.Sprintf("2,%d", 100+i), uatype.Slot{Type: uatype.LocalInt32}, nil,
			WithDirection(uatype.Out), WithConsumer(rec))
		require.NoError(err)
		items[i] = it
	}
	require.NoError(s.Connect(context.Background()))

	for i, it := range items {
		require.NoError(it.Write(int32(i * 10)))
	}

	pending := srv.PendingWrites()
	require.Len(pending, n)

	expected := func(txID uint32) uatype.StatusCode {
		if txID%2 == 1 {
			return uatype.StatusBadOutOfRange
		}
		return uatype.StatusGood
	}

	for i := len(pending) - 1; i >= 0; i-- {
		require.NoError(srv.CompleteWrite(pending[i].TxID, expected(pending[i].TxID)))
	}

	seen := make(map[uint32]uatype.StatusCode, n)
	for range n {
		ev := rec.next(t, EventWriteDone)
		_, dup := seen[ev.Item.Index()]
		require.False(dup, "item %d woken twice", ev.Item.Index())
		seen[ev.Item.Index()] = ev.Status
	}

	for _, it := range items {
		require.Equal(expected(it.Index()), seen[it.Index()])
		require.Equal(expected(it.Index()), it.Status())
		require.False(it.WritePending())

		node, _ := it.Node()
		stored, ok := srv.Node(node)
		require.True(ok)
		if expected(it.Index()).IsGood() {
			require.True(uatype.Scalar(int32(it.Index() * 10)).Equal(stored.Value))
		} else {
			require.True(uatype.Scalar(int32(0)).Equal(stored.Value))
		}
	}

	select {
	case ev := <-rec.ch:
		require.NotEqual(EventWriteDone, ev.Kind, "unexpected extra completion for item %d", ev.Item.Index())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestItem_UnmatchedCompletionIgnored(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	s := newTestSession(t, srv)

	rec := newRecorder()
	speed, err := s.AddItem("2,Speed", uatype.Slot{Type: uatype.LocalInt32}, nil,
		WithDirection(uatype.Out), WithConsumer(rec))
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))
	rec.drain()

	h := &clientEvents{s: s}
	h.WriteComplete(speed.Index(), uatype.StatusBadInternalError, nil)
	h.WriteComplete(99, uatype.StatusGood, nil)

	require.Equal(uatype.StatusGood, speed.Status())
	select {
	case ev := <-rec.ch:
		require.FailNow("unexpected event", "%v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestItem_WriteResultsFirstBadWins(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	srv.HoldWrites(true)
	s := newTestSession(t, srv)

	speed, err := s.AddItem("2,Speed", uatype.Slot{Type: uatype.LocalInt32}, nil, WithDirection(uatype.Out))
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))
	require.NoError(speed.Write(int32(5)))

	h := &clientEvents{s: s}
	h.WriteComplete(speed.Index(), uatype.StatusGood,
		[]uatype.StatusCode{uatype.StatusGood, uatype.StatusBadTypeMismatch, uatype.StatusBadOutOfRange})
	require.Equal(uatype.StatusBadTypeMismatch, speed.Status())
}

func TestItem_Advisories(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	l := logger.NewMockLogger().Allow()
	s := newTestSession(t, srv, WithLogger(l))
	sub, err := s.NewSubscription("fast")
	require.NoError(err)

	_, err = s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalInt32}, sub)
	require.NoError(err)
	_, err = s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalFloat64}, sub, WithDirection(uatype.Out))
	require.NoError(err)
	speed, err := s.AddItem("2:Speed", uatype.Slot{Type: uatype.LocalInt32}, sub)
	require.NoError(err)

	require.NoError(s.Connect(context.Background()))

	warnings := l.Messages("Warn")
	require.Contains(warnings, "possible data loss")
	require.Contains(warnings, "item not writable")
	require.NotContains(warnings, "unsupported type conversion")
	require.Equal(uatype.StatusGood, speed.Status())
}
