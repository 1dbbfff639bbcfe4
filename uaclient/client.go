package uaclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// ErrNotConnected is returned by requests sent before Connect or after Disconnect.
var ErrNotConnected = errors.New("uaclient: not connected")

type subscription struct {
	sub    *opcua.Subscription
	cancel context.CancelFunc
}

// Client is a bridge.Client talking to a server through gopcua.
type Client struct {
	cfg    Config
	logger logger.Logger

	mu        sync.RWMutex
	client    *opcua.Client
	handler   bridge.EventHandler
	taskMgr   *bridge.TaskManager
	lastState opcua.ConnState
	subs      map[bridge.SubscriptionHandle]*subscription
}

var _ bridge.Client = (*Client)(nil)

// New creates a disconnected client for cfg.Endpoint.
func New(cfg Config, l logger.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if l == nil {
		l = logger.GetLogger()
	}
	l = l.With("endpoint", cfg.Endpoint)

	return &Client{
		cfg:     cfg,
		logger:  l,
		taskMgr: bridge.NewTaskManager(context.Background(), l),
		subs:    make(map[bridge.SubscriptionHandle]*subscription),
	}, nil
}

func (c *Client) SetEventHandler(h bridge.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *Client) eventHandler() bridge.EventHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.handler
}

func (c *Client) conn() (*opcua.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return nil, ErrNotConnected
	}

	return c.client, nil
}

// Connect creates a new library client, opens the secure channel and activates a session.
func (c *Client) Connect(ctx context.Context) error {
	cl, err := opcua.NewClient(c.cfg.Endpoint, c.cfg.options()...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if err := cl.Connect(ctx); err != nil {
		_ = cl.Close(context.Background())
		return err
	}

	c.mu.Lock()
	old := c.client
	c.client = cl
	c.lastState = opcua.Connected
	c.mu.Unlock()

	if old != nil {
		_ = old.Close(ctx)
	}

	// watcher of the previous connection, if any
	_ = c.taskMgr.StopInterval("state")
	if _, err := c.taskMgr.StartInterval("state", c.watchState, c.cfg.StatePollInterval, false); err != nil {
		c.logger.Warn("state watcher not started", "error", err)
	}
	c.logger.Info("session activated")

	return nil
}

// watchState samples the library connection state and reports transitions.
func (c *Client) watchState() bool {
	c.mu.Lock()
	cl := c.client
	if cl == nil {
		c.mu.Unlock()
		return false
	}
	state := cl.State()
	prev := c.lastState
	c.lastState = state
	c.mu.Unlock()

	if state == prev {
		return true
	}
	c.logger.Debug("client state changed", "prev_state", prev, "state", state)

	h := c.eventHandler()
	if h == nil {
		return true
	}

	switch state {
	case opcua.Connected:
		h.ConnectionStatusChanged(bridge.ServerConnected)
	case opcua.Disconnected, opcua.Reconnecting:
		h.ConnectionStatusChanged(bridge.ServerConnectionErrorAPIReconnect)
	case opcua.Closed:
		h.ConnectionStatusChanged(bridge.ServerDisconnected)
		return false
	}

	return true
}

// Disconnect cancels the subscriptions, closes the session and waits for pending writes.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	subs := c.subs
	c.subs = make(map[bridge.SubscriptionHandle]*subscription)
	c.mu.Unlock()

	for _, s := range subs {
		s.cancel()
	}

	c.taskMgr.Stop()
	c.taskMgr.Wait()

	if cl == nil {
		return nil
	}

	return cl.Close(ctx)
}

func (c *Client) TranslateBrowsePaths(ctx context.Context, paths []address.BrowsePath) ([]address.PathResult, error) {
	cl, err := c.conn()
	if err != nil {
		return nil, err
	}

	req := &ua.TranslateBrowsePathsToNodeIDsRequest{BrowsePaths: make([]*ua.BrowsePath, len(paths))}
	for i, p := range paths {
		req.BrowsePaths[i] = toUABrowsePath(p)
	}

	var results []address.PathResult
	err = cl.Send(ctx, req, func(v any) error {
		var err error
		results, err = c.translateResults(v, paths)
		return err
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// translateResults decodes a TranslateBrowsePathsToNodeIDs response. Targets with node id
// types the bridge does not address are skipped.
func (c *Client) translateResults(v any, paths []address.BrowsePath) ([]address.PathResult, error) {
	resp, ok := v.(*ua.TranslateBrowsePathsToNodeIDsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response %T", v)
	}

	results := make([]address.PathResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i].Status = uatype.StatusCode(r.StatusCode)
		for _, target := range r.Targets {
			if target.TargetID == nil {
				continue
			}
			node, err := fromUANodeID(target.TargetID.NodeID)
			if err != nil {
				if i < len(paths) {
					c.logger.Warn("unsupported translate target", "path", paths[i], "error", err)
				}
				continue
			}
			results[i].Targets = append(results[i].Targets, node)
		}
	}

	return results, nil
}

func (c *Client) Read(ctx context.Context, nodes []address.NodeID, attr bridge.AttributeID) ([]bridge.DataValue, error) {
	cl, err := c.conn()
	if err != nil {
		return nil, err
	}

	req := &ua.ReadRequest{
		TimestampsToReturn: ua.TimestampsToReturnBoth,
		NodesToRead:        make([]*ua.ReadValueID, len(nodes)),
	}
	for i, n := range nodes {
		req.NodesToRead[i] = &ua.ReadValueID{NodeID: toUANodeID(n), AttributeID: toUAAttribute(attr)}
	}

	resp, err := cl.Read(ctx, req)
	if err != nil {
		return nil, err
	}

	values := make([]bridge.DataValue, len(resp.Results))
	for i, dv := range resp.Results {
		values[i] = fromUADataValue(dv)
	}

	return values, nil
}

// WriteAsync sends the write on its own goroutine and reports the outcome to the event
// handler.
func (c *Client) WriteAsync(node address.NodeID, value uatype.Variant, txID uint32) error {
	cl, err := c.conn()
	if err != nil {
		return err
	}

	v, err := toUAVariant(value)
	if err != nil {
		return err
	}

	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{{
			NodeID:      toUANodeID(node),
			AttributeID: ua.AttributeIDValue,
			Value:       &ua.DataValue{EncodingMask: ua.DataValueValue, Value: v},
		}},
	}

	return c.taskMgr.Go("write", func(ctx context.Context) {
		result := uatype.StatusGood
		var results []uatype.StatusCode

		resp, err := cl.Write(ctx, req)
		switch {
		case err != nil:
			c.logger.Error("write failed", "node", node, "tx_id", txID, "error", err)
			result = uatype.StatusBadCommunicationError
			var sc ua.StatusCode
			if errors.As(err, &sc) {
				result = uatype.StatusCode(sc)
			}
		default:
			if resp.ResponseHeader != nil {
				result = uatype.StatusCode(resp.ResponseHeader.ServiceResult)
			}
			results = make([]uatype.StatusCode, len(resp.Results))
			for i, r := range resp.Results {
				results[i] = uatype.StatusCode(r)
			}
		}

		if h := c.eventHandler(); h != nil {
			h.WriteComplete(txID, result, results)
		}
	})
}

func (c *Client) CreateSubscription(ctx context.Context, params bridge.SubscriptionParams, items []bridge.MonitoredItem, onChange bridge.DataChangeFunc) (bridge.SubscriptionHandle, error) {
	cl, err := c.conn()
	if err != nil {
		return 0, err
	}

	notifyCh := make(chan *opcua.PublishNotificationData, 64)
	sub, err := cl.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval:          params.PublishingInterval,
		LifetimeCount:     params.LifetimeCount,
		MaxKeepAliveCount: params.MaxKeepAliveCount,
		Priority:          params.Priority,
	}, notifyCh)
	if err != nil {
		return 0, err
	}

	reqs := make([]*ua.MonitoredItemCreateRequest, len(items))
	for i, it := range items {
		req := opcua.NewMonitoredItemCreateRequestWithDefaults(toUANodeID(it.Node), ua.AttributeIDValue, it.Handle)
		req.RequestedParameters.SamplingInterval = it.SamplingInterval
		req.RequestedParameters.QueueSize = it.QueueSize
		req.RequestedParameters.DiscardOldest = it.DiscardOldest
		reqs[i] = req
	}

	resp, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, reqs...)
	if err != nil {
		_ = sub.Cancel(ctx)
		return 0, err
	}
	for i, r := range resp.Results {
		if r.StatusCode != ua.StatusOK && i < len(items) {
			c.logger.Warn("monitored item rejected", "node", items[i].Node, "status", uatype.StatusCode(r.StatusCode))
		}
	}

	handle := bridge.SubscriptionHandle(sub.SubscriptionID)
	subCtx, cancel := context.WithCancel(c.taskMgr.Context())

	c.mu.Lock()
	c.subs[handle] = &subscription{sub: sub, cancel: cancel}
	c.mu.Unlock()

	err = c.taskMgr.Go("publish", func(context.Context) {
		c.serveNotifications(subCtx, notifyCh, onChange)
	})
	if err != nil {
		cancel()
		return 0, err
	}

	return handle, nil
}

func (c *Client) serveNotifications(ctx context.Context, ch <-chan *opcua.PublishNotificationData, onChange bridge.DataChangeFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if msg == nil {
				continue
			}
			if msg.Error != nil {
				c.logger.Warn("publish error", "subscription", msg.SubscriptionID, "error", msg.Error)
				continue
			}
			if dc, ok := msg.Value.(*ua.DataChangeNotification); ok {
				for _, item := range dc.MonitoredItems {
					onChange(item.ClientHandle, fromUADataValue(item.Value))
				}
			}
		}
	}
}

func (c *Client) DeleteSubscription(ctx context.Context, handle bridge.SubscriptionHandle) error {
	c.mu.Lock()
	s, ok := c.subs[handle]
	delete(c.subs, handle)
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown subscription %d", handle)
	}
	s.cancel()

	return s.sub.Cancel(ctx)
}
