package session

import (
	"errors"
	"sync"
	"time"

	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// Config represents the configuration parameters of a Session.
type Config struct {
	mu sync.RWMutex

	// reconnectInterval is the delay between two connect attempts after the connection was lost
	// or a connect failed. It should be between 1 millisecond and 1 hour.
	// Defaults to 10 seconds.
	reconnectInterval time.Duration

	// reconnectMaxDelay enables exponential backoff of the reconnect delay when it is greater
	// than zero. The delay starts at reconnectInterval, doubles after every failed attempt and
	// never exceeds reconnectMaxDelay.
	// Defaults to 0 (fixed interval).
	reconnectMaxDelay time.Duration

	// connectTimeout bounds a single connect call, 0 leaves the timeout to the client.
	// It should not exceed 5 minutes.
	// Defaults to 10 seconds.
	connectTimeout time.Duration

	// pollInterval enables a periodic Poll of the unsubscribed items when greater than zero.
	// Defaults to 0 (disabled).
	pollInterval time.Duration

	// logger is the parent logger of the session.
	// Defaults to the package level logger.
	logger logger.Logger
}

// Option applies a setting to a session Config.
type Option interface {
	apply(cfg *Config) error
}

// NewConfig creates a Config with default values and applies opts to it.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		reconnectInterval: 10 * time.Second,
		connectTimeout:    10 * time.Second,
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ReconnectInterval returns the reconnect delay.
func (cfg *Config) ReconnectInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.reconnectInterval
}

// ReconnectMaxDelay returns the backoff cap, 0 when the delay is fixed.
func (cfg *Config) ReconnectMaxDelay() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.reconnectMaxDelay
}

// ConnectTimeout returns the timeout of a single connect call.
func (cfg *Config) ConnectTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.connectTimeout
}

// PollInterval returns the period of the poll task, 0 when disabled.
func (cfg *Config) PollInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.pollInterval
}

// Logger returns the parent logger of the session.
func (cfg *Config) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

type optFunc[C any] struct {
	name      string
	applyFunc func(*C) error
}

func (o *optFunc[C]) apply(cfg *C) error { return o.applyFunc(cfg) }

func newOptFunc[C any](name string, f func(*C) error) *optFunc[C] {
	return &optFunc[C]{name: name, applyFunc: f}
}

// WithReconnectInterval sets the delay between connect attempts.
//
// The interval should be between 1 millisecond and 1 hour.
func WithReconnectInterval(val time.Duration) Option {
	return newOptFunc("WithReconnectInterval", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val < time.Millisecond || val > time.Hour {
			return errors.New("reconnect interval out of range [1ms, 1h]")
		}

		cfg.mu.Lock()
		cfg.reconnectInterval = val
		cfg.mu.Unlock()

		return nil
	})
}

// WithReconnectBackoff switches the reconnect delay to exponential backoff capped at maxDelay.
// A zero maxDelay restores the fixed interval.
func WithReconnectBackoff(maxDelay time.Duration) Option {
	return newOptFunc("WithReconnectBackoff", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if maxDelay < 0 || maxDelay > 24*time.Hour {
			return errors.New("reconnect backoff cap out of range [0, 24h]")
		}

		cfg.mu.Lock()
		cfg.reconnectMaxDelay = maxDelay
		cfg.mu.Unlock()

		return nil
	})
}

// WithConnectTimeout sets the timeout of a single connect call. 0 disables it.
func WithConnectTimeout(val time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val < 0 || val > 5*time.Minute {
			return errors.New("connect timeout out of range [0, 5m]")
		}

		cfg.mu.Lock()
		cfg.connectTimeout = val
		cfg.mu.Unlock()

		return nil
	})
}

// WithPollInterval enables periodic polling of the unsubscribed items. 0 disables it.
func WithPollInterval(val time.Duration) Option {
	return newOptFunc("WithPollInterval", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val != 0 && (val < 10*time.Millisecond || val > time.Hour) {
			return errors.New("poll interval out of range [10ms, 1h]")
		}

		cfg.mu.Lock()
		cfg.pollInterval = val
		cfg.mu.Unlock()

		return nil
	})
}

// WithLogger sets the parent logger of the session.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if l == nil {
			return errors.New("logger is nil")
		}

		cfg.mu.Lock()
		cfg.logger = l
		cfg.mu.Unlock()

		return nil
	})
}

// SubscriptionConfig represents the server-side parameters of a Subscription.
type SubscriptionConfig struct {
	// publishingInterval is the publishing interval requested from the server. Items with
	// a negative sampling interval are sampled at this rate.
	// Defaults to 100 milliseconds.
	publishingInterval time.Duration
	// lifetimeCount defaults to 10000.
	lifetimeCount uint32
	// maxKeepAliveCount defaults to 3000.
	maxKeepAliveCount uint32
	// priority defaults to 0.
	priority uint8
}

// SubscriptionOption applies a setting to a SubscriptionConfig.
type SubscriptionOption interface {
	apply(cfg *SubscriptionConfig) error
}

func newSubscriptionConfig(opts ...SubscriptionOption) (*SubscriptionConfig, error) {
	cfg := &SubscriptionConfig{
		publishingInterval: 100 * time.Millisecond,
		lifetimeCount:      10000,
		maxKeepAliveCount:  3000,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// PublishingInterval returns the requested publishing interval.
func (cfg *SubscriptionConfig) PublishingInterval() time.Duration { return cfg.publishingInterval }

// WithPublishingInterval sets the publishing interval, between 1 millisecond and 1 hour.
func WithPublishingInterval(val time.Duration) SubscriptionOption {
	return newOptFunc("WithPublishingInterval", func(cfg *SubscriptionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val < time.Millisecond || val > time.Hour {
			return errors.New("publishing interval out of range [1ms, 1h]")
		}
		cfg.publishingInterval = val

		return nil
	})
}

// WithLifetimeCount sets the subscription lifetime count.
func WithLifetimeCount(val uint32) SubscriptionOption {
	return newOptFunc("WithLifetimeCount", func(cfg *SubscriptionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val == 0 {
			return errors.New("lifetime count must be positive")
		}
		cfg.lifetimeCount = val

		return nil
	})
}

// WithMaxKeepAliveCount sets the maximum keep-alive count.
func WithMaxKeepAliveCount(val uint32) SubscriptionOption {
	return newOptFunc("WithMaxKeepAliveCount", func(cfg *SubscriptionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val == 0 {
			return errors.New("max keep-alive count must be positive")
		}
		cfg.maxKeepAliveCount = val

		return nil
	})
}

// WithPriority sets the relative priority of the subscription.
func WithPriority(val uint8) SubscriptionOption {
	return newOptFunc("WithPriority", func(cfg *SubscriptionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		cfg.priority = val

		return nil
	})
}

// ItemConfig represents the binding policy of an Item.
type ItemConfig struct {
	// name is the consumer side name shown by Dump.
	// Defaults to the address.
	name string
	// direction selects the loss table and the monitoring rule.
	// Defaults to uatype.In.
	direction uatype.Direction
	// samplingInterval requested for the monitored item, negative selects the publishing interval.
	// Defaults to -1.
	samplingInterval time.Duration
	// queueSize of the monitored item.
	// Defaults to 1.
	queueSize uint32
	// discardOldest selects the overflow policy of the monitored item queue.
	// Defaults to true.
	discardOldest bool
	// readback monitors Out items so that the server value is reflected back.
	// Defaults to true.
	readback bool
	// consumer is woken after every completed operation.
	consumer Consumer
}

// ItemOption applies a setting to an ItemConfig.
type ItemOption interface {
	apply(cfg *ItemConfig) error
}

func newItemConfig(opts ...ItemOption) (*ItemConfig, error) {
	cfg := &ItemConfig{
		direction:        uatype.In,
		samplingInterval: -1,
		queueSize:        1,
		discardOldest:    true,
		readback:         true,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// WithName sets the name shown for the item by Dump.
func WithName(name string) ItemOption {
	return newOptFunc("WithName", func(cfg *ItemConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		cfg.name = name

		return nil
	})
}

// WithDirection sets whether the item is read-bound (In) or write-bound (Out).
func WithDirection(dir uatype.Direction) ItemOption {
	return newOptFunc("WithDirection", func(cfg *ItemConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if dir != uatype.In && dir != uatype.Out {
			return errors.New("invalid direction")
		}
		cfg.direction = dir

		return nil
	})
}

// WithSamplingInterval sets the sampling interval of the monitored item. A negative value
// selects the publishing interval of the subscription.
func WithSamplingInterval(val time.Duration) ItemOption {
	return newOptFunc("WithSamplingInterval", func(cfg *ItemConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val < 0 {
			val = -1
		}
		cfg.samplingInterval = val

		return nil
	})
}

// WithQueueSize sets the queue size of the monitored item.
func WithQueueSize(val uint32) ItemOption {
	return newOptFunc("WithQueueSize", func(cfg *ItemConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val == 0 {
			return errors.New("queue size must be positive")
		}
		cfg.queueSize = val

		return nil
	})
}

// WithDiscardOldest sets the overflow policy of the monitored item queue. false discards the
// newest value.
func WithDiscardOldest(val bool) ItemOption {
	return newOptFunc("WithDiscardOldest", func(cfg *ItemConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		cfg.discardOldest = val

		return nil
	})
}

// WithReadback enables or disables monitoring of Out items.
func WithReadback(val bool) ItemOption {
	return newOptFunc("WithReadback", func(cfg *ItemConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		cfg.readback = val

		return nil
	})
}

// WithConsumer sets the consumer woken after every completed operation of the item.
func WithConsumer(c Consumer) ItemOption {
	return newOptFunc("WithConsumer", func(cfg *ItemConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		cfg.consumer = c

		return nil
	})
}
