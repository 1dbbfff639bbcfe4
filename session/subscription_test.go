package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

func TestSubscription_CreateIsIdempotent(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	srv := newTestServer(t)
	s := newTestSession(t, srv)

	sub, err := s.NewSubscription("fast", WithPublishingInterval(50*time.Millisecond), WithPriority(3))
	require.NoError(err)
	_, err = s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalFloat64}, sub)
	require.NoError(err)

	require.NoError(s.Connect(ctx))
	require.True(sub.Active())

	require.NoError(sub.Create(ctx))
	require.NoError(sub.Create(ctx))
	require.EqualValues(1, srv.Counters().CreateSubscription.Load())
	require.Equal(1, srv.ActiveSubscriptions())

	require.NoError(sub.Delete(ctx))
	require.NoError(sub.Delete(ctx))
	require.False(sub.Active())
	require.EqualValues(1, srv.Counters().DeleteSubscription.Load())
	require.Zero(srv.ActiveSubscriptions())

	require.NoError(sub.Create(ctx))
	require.Equal(1, srv.ActiveSubscriptions())
}

func TestSubscription_MembershipFixedWhileActive(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	srv := newTestServer(t)
	s := newTestSession(t, srv)

	sub, err := s.NewSubscription("fast")
	require.NoError(err)
	_, err = s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalFloat64}, sub)
	require.NoError(err)
	require.NoError(s.Connect(ctx))

	_, err = s.AddItem("2:Speed", uatype.Slot{Type: uatype.LocalInt32}, sub)
	require.ErrorIs(err, ErrSubscriptionActive)
	require.Len(sub.Items(), 1)
	require.Len(s.Items(), 1)
}

func TestSubscription_MonitoringPolicy(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	s := newTestSession(t, srv)

	sub, err := s.NewSubscription("fast")
	require.NoError(err)

	_, err = s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalFloat64}, sub,
		WithSamplingInterval(250*time.Millisecond), WithQueueSize(5), WithDiscardOldest(false))
	require.NoError(err)
	_, err = s.AddItem("2:Speed", uatype.Slot{Type: uatype.LocalInt32}, sub,
		WithDirection(uatype.Out), WithReadback(false))
	require.NoError(err)
	_, err = s.AddItem("2:Missing", uatype.Slot{Type: uatype.LocalInt32}, sub)
	require.NoError(err)

	require.NoError(s.Connect(context.Background()))

	monitored := srv.MonitoredItems()
	require.Len(monitored, 1)
	require.Equal(tempNode, monitored[0].Node)
	require.EqualValues(0, monitored[0].Handle)
	require.InDelta(250.0, monitored[0].SamplingInterval, 0.001)
	require.EqualValues(5, monitored[0].QueueSize)
	require.False(monitored[0].DiscardOldest)
}

func TestSubscription_DefaultSampling(t *testing.T) {
	require := require.New(t)

	cfg, err := newItemConfig()
	require.NoError(err)
	require.InDelta(-1.0, samplingMillis(cfg), 0)
	require.EqualValues(1, cfg.queueSize)
	require.True(cfg.discardOldest)
	require.True(cfg.readback)
	require.Equal(uatype.In, cfg.direction)
}

func TestSubscription_DispatchUnknownHandle(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	s := newTestSession(t, srv)

	sub, err := s.NewSubscription("fast")
	require.NoError(err)
	temp, err := s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalFloat64}, sub)
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))

	sub.dispatch(7, bridge.DataValue{Value: uatype.Scalar(99.0)})
	reading, err := temp.Read()
	require.NoError(err)
	require.Equal(21.5, reading.Value)

	sub.dispatch(0, bridge.DataValue{Status: uatype.StatusBadDataLost})
	require.Equal(uatype.StatusBadDataLost, temp.Status())
}

func TestSubscription_PushedShapeMismatch(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	s := newTestSession(t, srv)
	sub, err := s.NewSubscription("fast")
	require.NoError(err)

	rec := newRecorder()
	temp, err := s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalFloat64}, sub, WithConsumer(rec))
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))
	rec.drain()

	srv.Publish(tempNode, uatype.Array([]float64{1, 2}))

	ev := rec.next(t, EventData)
	require.Same(temp, ev.Item)
	require.Equal(uatype.StatusBadTypeMismatch, ev.Status)
	require.Equal(uatype.StatusBadTypeMismatch, temp.Status())

	srv.Publish(tempNode, uatype.Scalar(23.5))
	ev = rec.next(t, EventData)
	require.Equal(uatype.StatusGood, ev.Status)
	require.Equal(uatype.StatusGood, temp.Status())
}

func TestSubscription_PushDuringWatchdogWarning(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	s := newTestSession(t, srv)
	sub, err := s.NewSubscription("fast")
	require.NoError(err)

	rec := newRecorder()
	temp, err := s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalFloat64}, sub, WithConsumer(rec))
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))

	srv.EmitStatus(bridge.ServerWatchdogTimeout)
	waitState(t, s, bridge.WatchdogWarningState)
	rec.drain()

	srv.Publish(tempNode, uatype.Scalar(30.0))
	ev := rec.next(t, EventData)
	require.Equal(uatype.StatusBadTimeout, ev.Status)
	require.Equal(uatype.StatusBadTimeout, temp.Status())

	srv.EmitStatus(bridge.ServerConnected)
	waitState(t, s, bridge.ConnectedState)
	require.Equal(uatype.StatusGood, temp.Status())

	reading, err := temp.Read()
	require.NoError(err)
	require.Equal(30.0, reading.Value)
}

func TestSubscription_OutReadbackFromSubscription(t *testing.T) {
	require := require.New(t)

	srv := newTestServer(t)
	s := newTestSession(t, srv)
	sub, err := s.NewSubscription("fast")
	require.NoError(err)

	rec := newRecorder()
	speed, err := s.AddItem("2:Speed", uatype.Slot{Type: uatype.LocalInt32}, sub,
		WithDirection(uatype.Out), WithConsumer(rec))
	require.NoError(err)
	temp, err := s.AddItem("2:Temperature", uatype.Slot{Type: uatype.LocalFloat64}, sub, WithConsumer(rec))
	require.NoError(err)
	require.NoError(s.Connect(context.Background()))

	// the connect read wakes the In item only
	ev := rec.next(t, EventData)
	require.Same(temp, ev.Item)
	require.Equal(uatype.StatusGood, speed.Status())

	srv.Publish(speedNode, uatype.Scalar(int32(1600)))
	ev = rec.next(t, EventData)
	require.Same(speed, ev.Item)
	require.Equal(uatype.StatusGood, ev.Status)

	reading, err := speed.Read()
	require.NoError(err)
	require.Equal(int32(1600), reading.Value)
}
