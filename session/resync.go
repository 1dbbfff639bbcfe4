package session

import (
	"context"
	"fmt"

	"github.com/bkuner/opcUaUnifiedAutomation/address"
	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// resync resolves every item, reads values and access rights and recreates the
// subscriptions. Called with connMu held. Failures are logged and leave the affected items
// with a bad status.
func (s *Session) resync(ctx context.Context) {
	s.resolveAll(ctx)
	s.bulkRead(ctx)

	for _, sub := range s.Subscriptions() {
		if err := sub.Create(ctx); err != nil {
			s.logger.Error("create subscription failed", "subscription", sub.tag, "error", err)
		}
	}
	s.metrics.incResyncCount()
}

// resolveAll resolves the addresses of all items. Browse paths go to the server in a single
// request.
func (s *Session) resolveAll(ctx context.Context) {
	items := s.Items()
	if len(items) == 0 {
		return
	}

	addrs := make([]address.Address, len(items))
	for i, it := range items {
		addrs[i] = it.addr
	}

	res, err := address.Resolve(ctx, s.client, addrs)
	if err != nil {
		s.logger.Error("resolve addresses failed", "error", err)
	}

	unresolved := 0
	for i, it := range items {
		it.setResolution(res[i])
		if !res[i].Status.IsGood() {
			unresolved++
			it.logger.Warn("address not resolved", "status", res[i].Status)
		} else {
			it.logger.Debug("address resolved", "node", res[i].Node)
		}
	}
	s.logger.Info("addresses resolved", "items", len(items), "unresolved", unresolved)
}

// bulkRead reads the value and the access rights of every resolved item in two requests.
//
// In items are woken with the value read. Out items are woken only when the read leaves them
// bad; the first readback value of a monitored Out item comes from its subscription.
func (s *Session) bulkRead(ctx context.Context) {
	items, nodes := s.resolvedItems(func(*Item) bool { return true })
	if len(items) == 0 {
		return
	}

	s.metrics.incReadCount()
	values, err := s.client.Read(ctx, nodes, bridge.AttributeValue)
	if err != nil {
		s.metrics.incReadErrCount()
		s.logger.Error("read values failed", "items", len(items), "error", err)
		values = nil
	}

	s.metrics.incReadCount()
	access, err := s.client.Read(ctx, nodes, bridge.AttributeUserAccessLevel)
	if err != nil {
		s.metrics.incReadErrCount()
		s.logger.Error("read access levels failed", "items", len(items), "error", err)
		access = nil
	}

	for i, it := range items {
		status := it.applyCapabilities(valueAt(values, i), valueAt(access, i))
		if it.cfg.direction == uatype.In || !status.IsGood() {
			s.notify(it, EventData, status)
		}
	}
}

// Poll reads the values of all resolved poll-only items in one request and wakes each
// consumer once.
func (s *Session) Poll(ctx context.Context) error {
	if st := s.State(); !st.IsConnected() {
		return fmt.Errorf("%w: %s", ErrNotConnected, st)
	}

	items, nodes := s.resolvedItems(func(it *Item) bool { return it.sub == nil })
	if len(items) == 0 {
		return nil
	}

	s.metrics.incReadCount()
	values, err := s.client.Read(ctx, nodes, bridge.AttributeValue)
	if err != nil {
		s.metrics.incReadErrCount()
		for _, it := range items {
			it.setStatus(uatype.StatusBadCommunicationError)
			s.notify(it, EventData, uatype.StatusBadCommunicationError)
		}

		return fmt.Errorf("poll %d items: %w", len(items), err)
	}

	for i, it := range items {
		status := it.apply(valueAt(values, i))
		s.notify(it, EventData, status)
	}

	return nil
}

func (s *Session) resolvedItems(filter func(*Item) bool) ([]*Item, []address.NodeID) {
	all := s.Items()
	items := make([]*Item, 0, len(all))
	nodes := make([]address.NodeID, 0, len(all))
	for _, it := range all {
		if !filter(it) {
			continue
		}
		if node, ok := it.Node(); ok {
			items = append(items, it)
			nodes = append(nodes, node)
		}
	}

	return items, nodes
}

// valueAt returns the i-th result, or a bad value when the server sent too few results or
// the request failed.
func valueAt(values []bridge.DataValue, i int) bridge.DataValue {
	if values == nil {
		return bridge.DataValue{Status: uatype.StatusBadCommunicationError}
	}
	if i >= len(values) {
		return bridge.DataValue{Status: uatype.StatusBadUnexpectedError}
	}

	return values[i]
}
