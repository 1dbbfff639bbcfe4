package session

import (
	"context"

	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// clientEvents receives the callbacks of the protocol client. Both methods return without
// blocking.
type clientEvents struct {
	s *Session
}

var _ bridge.EventHandler = (*clientEvents)(nil)

func (h *clientEvents) ConnectionStatusChanged(status bridge.ServerStatus) {
	h.s.metrics.incStatusEventCount()
	h.s.events.Post(status)
}

func (h *clientEvents) WriteComplete(txID uint32, result uatype.StatusCode, results []uatype.StatusCode) {
	it := h.s.Item(txID)
	if it == nil {
		h.s.logger.Warn("write completion for unknown item", "tx_id", txID, "result", result)
		return
	}
	if !it.completeWrite(result, results) {
		it.logger.Warn("write completion without pending write", "tx_id", txID, "result", result)
	}
}

// handleStatus runs on the event worker.
func (s *Session) handleStatus(status bridge.ServerStatus) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed.Load() {
		return
	}

	ctx := s.taskMgr.Context()
	state := s.State()
	s.logger.Debug("server status", "status", status, "state", state)

	switch status {
	case bridge.ServerWatchdogTimeout:
		if state == bridge.ConnectedState {
			s.logger.Warn("server watchdog timeout")
			_ = s.stateMgr.To(bridge.WatchdogWarningState)
		}

	case bridge.ServerConnectionErrorAPIReconnect, bridge.ServerShutdown, bridge.ServerDisconnected:
		if state == bridge.ConnectedState || state == bridge.WatchdogWarningState {
			s.logger.Warn("connection lost", "status", status)
			_ = s.stateMgr.To(bridge.ReconnectingState)
			s.teardown(ctx)
			s.scheduleReconnect()
		}

	case bridge.ServerConnected, bridge.ServerNewSessionCreated:
		switch state {
		case bridge.WatchdogWarningState:
			s.bulkRead(ctx)
			_ = s.stateMgr.To(bridge.ConnectedState)
			s.logger.Info("server alive again")
		case bridge.ReconnectingState:
			s.cancelReconnect()
			s.resync(ctx)
			_ = s.stateMgr.To(bridge.ConnectedState)
			s.metrics.resetConnRetryGauge()
			s.logger.Info("reconnected by client", "status", status)
		case bridge.ConnectedState:
			if status == bridge.ServerNewSessionCreated {
				s.logger.Info("server session recreated")
				s.teardown(ctx)
				s.resync(ctx)
			}
		}
	}
}

// teardown deletes every server-side subscription, best effort.
func (s *Session) teardown(ctx context.Context) {
	for _, sub := range s.Subscriptions() {
		if err := sub.Delete(ctx); err != nil {
			s.logger.Debug("delete subscription failed", "subscription", sub.tag, "error", err)
		}
	}
}
