package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

func TestNewConfig(t *testing.T) {
	require := require.New(t)

	t.Run("Defaults", func(t *testing.T) {
		cfg, err := NewConfig()
		require.NoError(err)
		require.Equal(10*time.Second, cfg.ReconnectInterval())
		require.Zero(cfg.ReconnectMaxDelay())
		require.Equal(10*time.Second, cfg.ConnectTimeout())
		require.Zero(cfg.PollInterval())
		require.NotNil(cfg.Logger())
	})

	t.Run("Valid Configuration", func(t *testing.T) {
		l := logger.NewMockLogger()
		cfg, err := NewConfig(
			WithReconnectInterval(2*time.Second),
			WithReconnectBackoff(time.Minute),
			WithConnectTimeout(0),
			WithPollInterval(time.Second),
			WithLogger(l),
		)
		require.NoError(err)
		require.Equal(2*time.Second, cfg.ReconnectInterval())
		require.Equal(time.Minute, cfg.ReconnectMaxDelay())
		require.Zero(cfg.ConnectTimeout())
		require.Equal(time.Second, cfg.PollInterval())
		require.Same(l, cfg.Logger())
	})

	t.Run("Invalid Reconnect Interval", func(t *testing.T) {
		_, err := NewConfig(WithReconnectInterval(0))
		require.EqualError(err, "reconnect interval out of range [1ms, 1h]")

		_, err = NewConfig(WithReconnectInterval(2 * time.Hour))
		require.EqualError(err, "reconnect interval out of range [1ms, 1h]")

		err = WithReconnectInterval(time.Second).apply(nil)
		require.ErrorIs(err, ErrConfigNil)
	})

	t.Run("Invalid Backoff", func(t *testing.T) {
		_, err := NewConfig(WithReconnectBackoff(-time.Second))
		require.EqualError(err, "reconnect backoff cap out of range [0, 24h]")
	})

	t.Run("Invalid Connect Timeout", func(t *testing.T) {
		_, err := NewConfig(WithConnectTimeout(10 * time.Minute))
		require.EqualError(err, "connect timeout out of range [0, 5m]")
	})

	t.Run("Invalid Poll Interval", func(t *testing.T) {
		_, err := NewConfig(WithPollInterval(time.Millisecond))
		require.EqualError(err, "poll interval out of range [10ms, 1h]")
	})

	t.Run("Nil Logger", func(t *testing.T) {
		_, err := NewConfig(WithLogger(nil))
		require.EqualError(err, "logger is nil")
	})
}

func TestSubscriptionConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := newSubscriptionConfig()
	require.NoError(err)
	require.Equal(100*time.Millisecond, cfg.PublishingInterval())
	require.EqualValues(10000, cfg.lifetimeCount)
	require.EqualValues(3000, cfg.maxKeepAliveCount)
	require.Zero(cfg.priority)

	cfg, err = newSubscriptionConfig(
		WithPublishingInterval(time.Second),
		WithLifetimeCount(60),
		WithMaxKeepAliveCount(20),
		WithPriority(9),
	)
	require.NoError(err)
	require.Equal(time.Second, cfg.PublishingInterval())
	require.EqualValues(60, cfg.lifetimeCount)
	require.EqualValues(20, cfg.maxKeepAliveCount)
	require.EqualValues(9, cfg.priority)

	_, err = newSubscriptionConfig(WithPublishingInterval(0))
	require.EqualError(err, "publishing interval out of range [1ms, 1h]")
	_, err = newSubscriptionConfig(WithLifetimeCount(0))
	require.Error(err)
	_, err = newSubscriptionConfig(WithMaxKeepAliveCount(0))
	require.Error(err)
}

func TestItemConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := newItemConfig(
		WithName("pump:speed"),
		WithDirection(uatype.Out),
		WithSamplingInterval(-5*time.Second),
		WithQueueSize(10),
		WithDiscardOldest(false),
		WithReadback(false),
	)
	require.NoError(err)
	require.Equal("pump:speed", cfg.name)
	require.Equal(uatype.Out, cfg.direction)
	require.Equal(time.Duration(-1), cfg.samplingInterval)
	require.EqualValues(10, cfg.queueSize)
	require.False(cfg.discardOldest)
	require.False(cfg.readback)

	_, err = newItemConfig(WithQueueSize(0))
	require.EqualError(err, "queue size must be positive")
	_, err = newItemConfig(WithDirection(uatype.Direction(7)))
	require.EqualError(err, "invalid direction")
}
