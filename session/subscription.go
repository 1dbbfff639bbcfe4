package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// Subscription is a named group of items receiving data change notifications from the server.
//
// Membership is fixed while the server-side subscription exists. The position of an item in
// the membership is the client handle of its monitored item.
type Subscription struct {
	tag    string
	sess   *Session
	cfg    *SubscriptionConfig
	logger logger.Logger

	opMu   sync.Mutex // serializes Create and Delete
	mu     sync.RWMutex
	items  []*Item
	handle bridge.SubscriptionHandle
	active atomic.Bool
}

// Tag returns the tag of the subscription.
func (sub *Subscription) Tag() string { return sub.tag }

// Session returns the owning session.
func (sub *Subscription) Session() *Session { return sub.sess }

// Config returns the server-side parameters of the subscription.
func (sub *Subscription) Config() *SubscriptionConfig { return sub.cfg }

// Active reports whether the server-side subscription exists.
func (sub *Subscription) Active() bool { return sub.active.Load() }

// Items returns the members of the subscription in handle order.
func (sub *Subscription) Items() []*Item {
	sub.mu.RLock()
	defer sub.mu.RUnlock()

	items := make([]*Item, len(sub.items))
	copy(items, sub.items)

	return items
}

func (sub *Subscription) addItem(it *Item) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.active.Load() {
		return fmt.Errorf("%w: %s", ErrSubscriptionActive, sub.tag)
	}
	it.subIndex = uint32(len(sub.items)) //nolint:gosec
	sub.items = append(sub.items, it)

	return nil
}

// Create creates the server-side subscription and monitors every resolved In item and every
// resolved Out item with readback enabled.
//
// Create is idempotent: it returns nil without a request when the subscription already exists.
func (sub *Subscription) Create(ctx context.Context) error {
	sub.opMu.Lock()
	defer sub.opMu.Unlock()

	if sub.active.Load() {
		return nil
	}
	if sub.sess.closed.Load() {
		return ErrSessionClosed
	}

	sub.mu.RLock()
	monitored := make([]bridge.MonitoredItem, 0, len(sub.items))
	for _, it := range sub.items {
		if it.cfg.direction == uatype.Out && !it.cfg.readback {
			continue
		}
		node, ok := it.Node()
		if !ok {
			continue
		}
		monitored = append(monitored, bridge.MonitoredItem{
			Handle:           it.subIndex,
			Node:             node,
			SamplingInterval: samplingMillis(it.cfg),
			QueueSize:        it.cfg.queueSize,
			DiscardOldest:    it.cfg.discardOldest,
		})
	}
	sub.mu.RUnlock()

	if len(monitored) == 0 {
		sub.logger.Debug("no item to monitor")
		return nil
	}

	params := bridge.SubscriptionParams{
		PublishingInterval: sub.cfg.publishingInterval,
		LifetimeCount:      sub.cfg.lifetimeCount,
		MaxKeepAliveCount:  sub.cfg.maxKeepAliveCount,
		Priority:           sub.cfg.priority,
	}
	handle, err := sub.sess.client.CreateSubscription(ctx, params, monitored, sub.dispatch)
	if err != nil {
		return fmt.Errorf("create subscription %s: %w", sub.tag, err)
	}

	sub.mu.Lock()
	sub.handle = handle
	sub.mu.Unlock()
	sub.active.Store(true)
	sub.logger.Info("subscription created", "handle", handle, "monitored", len(monitored))

	return nil
}

// Delete removes the server-side subscription. It is a no-op when none exists. The
// subscription is inactive afterwards even when the request fails.
func (sub *Subscription) Delete(ctx context.Context) error {
	sub.opMu.Lock()
	defer sub.opMu.Unlock()

	if !sub.active.Load() {
		return nil
	}

	sub.mu.RLock()
	handle := sub.handle
	sub.mu.RUnlock()

	sub.active.Store(false)
	if err := sub.sess.client.DeleteSubscription(ctx, handle); err != nil {
		return fmt.Errorf("delete subscription %s: %w", sub.tag, err)
	}
	sub.logger.Info("subscription deleted", "handle", handle)

	return nil
}

// dispatch is the data change callback. It runs in the protocol callback context: the item
// cache is updated under the item guard and the consumer wake-up is queued.
func (sub *Subscription) dispatch(handle uint32, value bridge.DataValue) {
	sub.mu.RLock()
	var it *Item
	if int(handle) < len(sub.items) {
		it = sub.items[handle]
	}
	sub.mu.RUnlock()

	if it == nil {
		sub.logger.Warn("data change for unknown handle", "handle", handle)
		return
	}

	sub.sess.metrics.incDataChangeCount()
	status := it.apply(value)
	sub.sess.notify(it, EventData, status)
}

func samplingMillis(cfg *ItemConfig) float64 {
	if cfg.samplingInterval < 0 {
		return -1
	}

	return float64(cfg.samplingInterval.Microseconds()) / 1000
}
