package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/internal/queue"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// Session is one managed connection to a server endpoint.
//
// A session owns an append-only item table, its subscriptions and the goroutines that serve
// it: the event worker consuming connection status events, the notifier waking item
// consumers, the reconnect loop and the optional poll task.
//
// Connection status events and write completions arrive in the protocol callback context.
// Status events are queued and handled by the event worker, so every network call of the
// session is made from a worker or caller goroutine.
type Session struct {
	id       string
	tag      string
	endpoint string
	client   bridge.Client
	cfg      *Config
	logger   logger.Logger
	metrics  Metrics

	stateMgr *bridge.ConnStateMgr
	taskMgr  *bridge.TaskManager
	events   *queue.Mailbox[bridge.ServerStatus]
	notices  *queue.Mailbox[Event]

	itemsMu sync.RWMutex
	items   []*Item
	guard   address.ModeGuard

	subsMu sync.RWMutex
	subs   []*Subscription

	// connMu serializes connect, resync, disconnect and status event handling.
	connMu sync.Mutex

	reconnectMu     sync.Mutex
	reconnectCancel context.CancelFunc
	reconnectSeq    uint64

	closed  atomic.Bool
	onClose func(*Session)

	// reconnectedHook runs in the reconnect goroutine after a successful attempt. Tests only.
	reconnectedHook func()
}

// New creates a session for endpoint using client. The session starts disconnected; call
// Connect to establish the connection.
func New(tag, endpoint string, client bridge.Client, opts ...Option) (*Session, error) {
	if client == nil {
		return nil, ErrClientNil
	}
	if tag == "" {
		return nil, errors.New("empty session tag")
	}

	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:       uuid.NewString(),
		tag:      tag,
		endpoint: endpoint,
		client:   client,
		cfg:      cfg,
		events:   queue.NewMailbox[bridge.ServerStatus](),
		notices:  queue.NewMailbox[Event](),
	}
	s.logger = cfg.Logger().With("session", tag, "session_id", s.id)
	s.stateMgr = bridge.NewConnStateMgr(s.logger, s.onStateChange)
	s.taskMgr = bridge.NewTaskManager(context.Background(), s.logger)

	client.SetEventHandler(&clientEvents{s: s})

	if err := s.startTasks(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Session) startTasks() error {
	if err := s.taskMgr.Go("events", func(ctx context.Context) {
		s.events.Serve(ctx, s.handleStatus)
	}); err != nil {
		return err
	}

	if err := s.taskMgr.Go("notifier", func(ctx context.Context) {
		s.notices.Serve(ctx, s.deliver)
	}); err != nil {
		return err
	}

	if interval := s.cfg.PollInterval(); interval > 0 {
		_, err := s.taskMgr.StartInterval("poll", func() bool {
			if s.State().IsConnected() {
				if err := s.Poll(s.taskMgr.Context()); err != nil {
					s.logger.Debug("poll failed", "error", err)
				}
			}
			return true
		}, interval, false)
		if err != nil {
			return err
		}
	}

	return nil
}

// ID returns the unique instance id of the session.
func (s *Session) ID() string { return s.id }

// Tag returns the tag of the session.
func (s *Session) Tag() string { return s.tag }

// Endpoint returns the server endpoint of the session.
func (s *Session) Endpoint() string { return s.endpoint }

// Config returns the configuration of the session.
func (s *Session) Config() *Config { return s.cfg }

// Metrics returns the metrics of the session.
func (s *Session) Metrics() *Metrics { return &s.metrics }

// State returns the current connection state.
func (s *Session) State() bridge.ConnState { return s.stateMgr.State() }

// WaitState waits until the session reaches state or ctx is done.
func (s *Session) WaitState(ctx context.Context, state bridge.ConnState) error {
	return s.stateMgr.WaitState(ctx, state)
}

// SetDebug sets the log level of this session only.
func (s *Session) SetDebug(level logger.Level) { s.logger.SetLevel(level) }

// Items returns the item table in index order.
func (s *Session) Items() []*Item {
	s.itemsMu.RLock()
	defer s.itemsMu.RUnlock()

	items := make([]*Item, len(s.items))
	copy(items, s.items)

	return items
}

// Item returns the item with the given index, nil if there is none.
func (s *Session) Item(index uint32) *Item {
	s.itemsMu.RLock()
	defer s.itemsMu.RUnlock()

	if int(index) >= len(s.items) {
		return nil
	}

	return s.items[index]
}

// Subscriptions returns the subscriptions in creation order.
func (s *Session) Subscriptions() []*Subscription {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)

	return subs
}

// NewSubscription creates a subscription owned by the session. The server-side subscription is
// created on the next (re)connect or by Subscription.Create.
func (s *Session) NewSubscription(tag string, opts ...SubscriptionOption) (*Subscription, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if tag == "" {
		return nil, errors.New("empty subscription tag")
	}

	cfg, err := newSubscriptionConfig(opts...)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		tag:    tag,
		sess:   s,
		cfg:    cfg,
		logger: s.logger.With("subscription", tag),
	}

	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()

	return sub, nil
}

// AddItem binds the address raw to a local slot and appends the item to the item table.
// sub is the subscription of the item, nil for a poll-only item.
//
// A malformed address, an address whose mode differs from the items already bound to the
// session, or an active subscription reject the item; it is not added and the table is left
// unchanged. Items are resolved on the next (re)connect.
func (s *Session) AddItem(raw string, slot uatype.Slot, sub *Subscription, opts ...ItemOption) (*Item, error) {
	addr, err := address.Parse(raw)
	if err != nil {
		s.logger.Warn("item rejected", "address", raw, "error", err)
		return nil, err
	}

	return s.bind(addr, slot, sub, opts...)
}

func (s *Session) bind(addr address.Address, slot uatype.Slot, sub *Subscription, opts ...ItemOption) (*Item, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if sub != nil && sub.sess != s {
		return nil, fmt.Errorf("subscription %s is owned by session %s", sub.tag, sub.sess.tag)
	}
	if sub != nil && sub.Active() {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionActive, sub.tag)
	}
	if slot.Array && slot.Capacity <= 0 {
		return nil, fmt.Errorf("item %q: array slot needs a positive capacity", addr.Raw())
	}

	cfg, err := newItemConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("item %q: %w", addr.Raw(), err)
	}

	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()

	if err := s.guard.Admit(addr); err != nil {
		s.logger.Warn("item rejected", "address", addr.Raw(), "error", err)
		return nil, err
	}

	it := newItem(s, sub, uint32(len(s.items)), addr, slot, cfg) //nolint:gosec
	if sub != nil {
		if err := sub.addItem(it); err != nil {
			return nil, err
		}
	}
	s.items = append(s.items, it)
	it.logger.Debug("item bound", "tag", it.Tag(), "slot", slot, "direction", cfg.direction)

	return it, nil
}

// Connect connects the session. After a successful connect all items are resolved, their
// values and access rights are read and the subscriptions are created, in that order.
//
// A failed connect leaves the session in ReconnectingState with the reconnect loop running.
// Connect cancels a running reconnect loop before it tries itself.
func (s *Session) Connect(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.cancelReconnect()
	if err := s.connectOnce(ctx, nil); err != nil {
		if !errors.Is(err, ErrSessionClosed) {
			s.scheduleReconnect()
		}
		return err
	}

	return nil
}

// connectOnce performs one connect attempt. onConnected runs after a successful connect while
// connMu is still held, before any status event can be handled.
func (s *Session) connectOnce(ctx context.Context, onConnected func()) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch s.State() {
	case bridge.ConnectedState, bridge.WatchdogWarningState:
		if onConnected != nil {
			onConnected()
		}
		return nil
	}

	if err := s.stateMgr.To(bridge.ConnectingState); err != nil {
		return err
	}

	cctx := ctx
	if timeout := s.cfg.ConnectTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.logger.Info("connecting", "endpoint", s.endpoint)
	if err := s.client.Connect(cctx); err != nil {
		s.metrics.incConnectErrCount()
		_ = s.stateMgr.To(bridge.ReconnectingState)

		return fmt.Errorf("connect %s: %w", s.endpoint, err)
	}

	s.metrics.incConnectCount()
	s.metrics.resetConnRetryGauge()
	s.resync(ctx)

	if err := s.stateMgr.To(bridge.ConnectedState); err != nil {
		return err
	}
	if onConnected != nil {
		onConnected()
	}
	s.logger.Info("connected", "endpoint", s.endpoint)

	return nil
}

// Disconnect deletes the subscriptions and closes the connection. The session can be
// connected again.
func (s *Session) Disconnect(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.cancelReconnect()

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.State() == bridge.DisconnectedState {
		return nil
	}

	s.teardown(ctx)
	err := s.client.Disconnect(ctx)
	_ = s.stateMgr.To(bridge.DisconnectedState)
	s.logger.Info("disconnected", "endpoint", s.endpoint)

	if err != nil {
		return fmt.Errorf("disconnect %s: %w", s.endpoint, err)
	}

	return nil
}

// Shutdown terminates the session: it cancels the reconnect loop, deletes the subscriptions,
// closes the connection, stops the session goroutines and releases the session from its
// registry. Shutdown is idempotent.
func (s *Session) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.cancelReconnect()

	s.connMu.Lock()
	prev := s.State()
	_ = s.stateMgr.To(bridge.ShuttingDownState)
	s.teardown(ctx)
	var err error
	if prev != bridge.DisconnectedState {
		err = s.client.Disconnect(ctx)
	}
	s.connMu.Unlock()

	s.taskMgr.Stop()
	s.taskMgr.Wait()
	s.notices.Drain(s.deliver)

	if s.onClose != nil {
		s.onClose(s)
	}
	s.logger.Info("session shut down")

	if err != nil {
		return fmt.Errorf("disconnect %s: %w", s.endpoint, err)
	}

	return nil
}

// onStateChange runs under the state manager lock. Entering a bad state flags every item
// and queues a wake-up for the items whose status changed.
func (s *Session) onStateChange(prev, next bridge.ConnState) {
	if !next.IsBad() {
		return
	}

	status := badStatus(next)
	for _, it := range s.Items() {
		if it.setStatus(status) {
			s.notify(it, EventStatus, status)
		}
	}
	s.logger.Debug("items flagged", "prev_state", prev, "state", next, "status", status)
}

func badStatus(state bridge.ConnState) uatype.StatusCode {
	switch state {
	case bridge.WatchdogWarningState:
		return uatype.StatusBadTimeout
	case bridge.ShuttingDownState:
		return uatype.StatusBadShutdown
	default:
		return uatype.StatusBadNotConnected
	}
}
