// Package uatest provides an in-memory protocol client for tests.
//
// Server implements bridge.Client against an address space held in memory. Tests seed
// nodes and browse paths, script connect failures, push data changes and status events, and
// hold write completions to deliver them in any order.
package uatest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// ErrNotConnected is returned by every request sent while the server is not connected.
var ErrNotConnected = errors.New("uatest: not connected")

// Node is a variable of the in-memory address space.
type Node struct {
	ID     address.NodeID
	Value  uatype.Variant
	Access uatype.AccessLevel
}

// Write is a write request received by the server.
type Write struct {
	TxID  uint32
	Node  address.NodeID
	Value uatype.Variant
}

// Counters counts the requests received by the server.
type Counters struct {
	Connect            atomic.Int64
	Disconnect         atomic.Int64
	Translate          atomic.Int64
	Read               atomic.Int64
	Write              atomic.Int64
	CreateSubscription atomic.Int64
	DeleteSubscription atomic.Int64
}

type subscription struct {
	params   bridge.SubscriptionParams
	items    []bridge.MonitoredItem
	onChange bridge.DataChangeFunc
}

// Server is an in-memory bridge.Client.
type Server struct {
	nodes *xsync.MapOf[address.NodeID, *Node]
	paths *xsync.MapOf[string, address.NodeID]

	counters  Counters
	connected atomic.Bool

	mu           sync.Mutex
	handler      bridge.EventHandler
	connectErrs  []error
	readErr      error
	translateErr error
	subs         map[bridge.SubscriptionHandle]*subscription
	nextSub      bridge.SubscriptionHandle
	holdWrites   bool
	pending      []Write
	writes       []Write
}

var _ bridge.Client = (*Server)(nil)

// NewServer creates an empty, disconnected server.
func NewServer() *Server {
	return &Server{
		nodes: xsync.NewMapOf[address.NodeID, *Node](),
		paths: xsync.NewMapOf[string, address.NodeID](),
		subs:  make(map[bridge.SubscriptionHandle]*subscription),
	}
}

// AddNode adds or replaces a variable.
func (s *Server) AddNode(id address.NodeID, value uatype.Variant, access uatype.AccessLevel) {
	s.nodes.Store(id, &Node{ID: id, Value: value, Access: access})
}

// AddPath makes the browse path address raw (e.g. "2:Line1.Temperature") translate to id.
func (s *Server) AddPath(raw string, id address.NodeID) error {
	addr, err := address.Parse(raw)
	if err != nil {
		return err
	}
	if addr.Mode() != address.ModeBrowsePath {
		return fmt.Errorf("uatest: %q is not a browse path", raw)
	}
	s.paths.Store(addr.BrowsePath().String(), id)

	return nil
}

// Node returns a copy of a variable.
func (s *Server) Node(id address.NodeID) (Node, bool) {
	n, ok := s.nodes.Load(id)
	if !ok {
		return Node{}, false
	}

	return *n, true
}

// Counters returns the request counters.
func (s *Server) Counters() *Counters { return &s.counters }

// Connected reports whether a session is established.
func (s *Server) Connected() bool { return s.connected.Load() }

// FailConnect makes the next n connect calls fail with err.
func (s *Server) FailConnect(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range n {
		s.connectErrs = append(s.connectErrs, err)
	}
}

// FailRead makes read requests fail with err until called with nil.
func (s *Server) FailRead(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailTranslate makes translate requests fail with err until called with nil.
func (s *Server) FailTranslate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translateErr = err
}

// HoldWrites keeps write completions pending until CompleteWrite is called.
func (s *Server) HoldWrites(hold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdWrites = hold
}

// PendingWrites returns the writes waiting for completion in arrival order.
func (s *Server) PendingWrites() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.pending)
}

// Writes returns every write received in arrival order.
func (s *Server) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.writes)
}

// CompleteWrite delivers the completion of the pending write txID. A good result stores the
// written value.
func (s *Server) CompleteWrite(txID uint32, result uatype.StatusCode) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.pending, func(w Write) bool { return w.TxID == txID })
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("uatest: no pending write %d", txID)
	}
	w := s.pending[idx]
	s.pending = slices.Delete(s.pending, idx, idx+1)
	s.mu.Unlock()

	s.finishWrite(w, result)

	return nil
}

// ActiveSubscriptions returns the number of subscriptions existing on the server.
func (s *Server) ActiveSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs)
}

// MonitoredItems returns the monitored items of every subscription.
func (s *Server) MonitoredItems() []bridge.MonitoredItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []bridge.MonitoredItem
	for _, sub := range s.subs {
		items = append(items, sub.items...)
	}

	return items
}

// Publish stores value in the node and delivers a data change to every subscription
// monitoring it.
func (s *Server) Publish(id address.NodeID, value uatype.Variant) {
	if n, ok := s.nodes.Load(id); ok {
		s.nodes.Store(id, &Node{ID: id, Value: value, Access: n.Access})
	}

	type delivery struct {
		fn     bridge.DataChangeFunc
		handle uint32
	}
	s.mu.Lock()
	var out []delivery
	for _, sub := range s.subs {
		for _, it := range sub.items {
			if it.Node == id {
				out = append(out, delivery{fn: sub.onChange, handle: it.Handle})
			}
		}
	}
	s.mu.Unlock()

	dv := bridge.DataValue{Value: value, Status: uatype.StatusGood, SourceTimestamp: time.Now()}
	for _, d := range out {
		d.fn(d.handle, dv)
	}
}

// EmitStatus reports a connection status change to the event handler.
func (s *Server) EmitStatus(status bridge.ServerStatus) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h.ConnectionStatusChanged(status)
	}
}

// Drop simulates a lost connection: the server session and its subscriptions are gone and
// ServerConnectionErrorAPIReconnect is reported.
func (s *Server) Drop() {
	s.connected.Store(false)
	s.mu.Lock()
	clear(s.subs)
	s.mu.Unlock()

	s.EmitStatus(bridge.ServerConnectionErrorAPIReconnect)
}

func (s *Server) SetEventHandler(h bridge.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Server) Connect(ctx context.Context) error {
	s.counters.Connect.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if len(s.connectErrs) > 0 {
		err := s.connectErrs[0]
		s.connectErrs = s.connectErrs[1:]
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.connected.Store(true)

	return nil
}

func (s *Server) Disconnect(_ context.Context) error {
	s.counters.Disconnect.Add(1)
	s.connected.Store(false)

	s.mu.Lock()
	clear(s.subs)
	s.mu.Unlock()

	return nil
}

func (s *Server) TranslateBrowsePaths(_ context.Context, paths []address.BrowsePath) ([]address.PathResult, error) {
	s.counters.Translate.Add(1)
	if !s.connected.Load() {
		return nil, ErrNotConnected
	}
	s.mu.Lock()
	err := s.translateErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	results := make([]address.PathResult, len(paths))
	for i, p := range paths {
		if id, ok := s.paths.Load(p.String()); ok {
			results[i] = address.PathResult{Status: uatype.StatusGood, Targets: []address.NodeID{id}}
		} else {
			results[i] = address.PathResult{Status: uatype.StatusBadNoMatch}
		}
	}

	return results, nil
}

func (s *Server) Read(_ context.Context, nodes []address.NodeID, attr bridge.AttributeID) ([]bridge.DataValue, error) {
	s.counters.Read.Add(1)
	if !s.connected.Load() {
		return nil, ErrNotConnected
	}
	s.mu.Lock()
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	values := make([]bridge.DataValue, len(nodes))
	for i, id := range nodes {
		n, ok := s.nodes.Load(id)
		if !ok {
			values[i] = bridge.DataValue{Status: uatype.StatusBadNodeIDUnknown}
			continue
		}
		switch attr {
		case bridge.AttributeValue:
			values[i] = bridge.DataValue{Value: n.Value, SourceTimestamp: now, ServerTimestamp: now}
		case bridge.AttributeUserAccessLevel:
			values[i] = bridge.DataValue{Value: uatype.Scalar(uint8(n.Access)), ServerTimestamp: now}
		default:
			values[i] = bridge.DataValue{Status: uatype.StatusBadInvalidArgument}
		}
	}

	return values, nil
}

func (s *Server) WriteAsync(node address.NodeID, value uatype.Variant, txID uint32) error {
	s.counters.Write.Add(1)
	if !s.connected.Load() {
		return ErrNotConnected
	}

	w := Write{TxID: txID, Node: node, Value: value}
	s.mu.Lock()
	s.writes = append(s.writes, w)
	if s.holdWrites {
		s.pending = append(s.pending, w)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	go s.finishWrite(w, uatype.StatusGood)

	return nil
}

func (s *Server) finishWrite(w Write, result uatype.StatusCode) {
	nodeResult := uatype.StatusGood
	if result.IsGood() {
		n, ok := s.nodes.Load(w.Node)
		switch {
		case !ok:
			nodeResult = uatype.StatusBadNodeIDUnknown
		case !n.Access.CanWrite():
			nodeResult = uatype.StatusBadNotWritable
		default:
			s.nodes.Store(w.Node, &Node{ID: w.Node, Value: w.Value, Access: n.Access})
		}
	}

	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h.WriteComplete(w.TxID, result, []uatype.StatusCode{nodeResult})
	}
}

func (s *Server) CreateSubscription(_ context.Context, params bridge.SubscriptionParams, items []bridge.MonitoredItem, onChange bridge.DataChangeFunc) (bridge.SubscriptionHandle, error) {
	s.counters.CreateSubscription.Add(1)
	if !s.connected.Load() {
		return 0, ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	s.subs[s.nextSub] = &subscription{params: params, items: slices.Clone(items), onChange: onChange}

	return s.nextSub, nil
}

func (s *Server) DeleteSubscription(_ context.Context, handle bridge.SubscriptionHandle) error {
	s.counters.DeleteSubscription.Add(1)
	if !s.connected.Load() {
		return ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[handle]; !ok {
		return fmt.Errorf("uatest: unknown subscription %d", handle)
	}
	delete(s.subs, handle)

	return nil
}
