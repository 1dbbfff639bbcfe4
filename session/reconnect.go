package session

import (
	"context"
	"errors"

	"github.com/avast/retry-go/v4"

	"github.com/bkuner/opcUaUnifiedAutomation/internal/pool"
)

// scheduleReconnect starts the reconnect loop unless one is already running.
func (s *Session) scheduleReconnect() {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	if s.closed.Load() || s.reconnectCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(s.taskMgr.Context())
	s.reconnectSeq++
	seq := s.reconnectSeq
	s.reconnectCancel = cancel

	err := s.taskMgr.Go("reconnect", func(context.Context) {
		defer s.endReconnect(seq, cancel)
		s.reconnect(ctx, seq)
	})
	if err != nil {
		cancel()
		s.reconnectCancel = nil
		s.logger.Debug("reconnect not scheduled", "error", err)
	}
}

// cancelReconnect stops the running reconnect loop.
func (s *Session) cancelReconnect() {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	if s.reconnectCancel != nil {
		s.reconnectCancel()
		s.reconnectCancel = nil
	}
}

func (s *Session) endReconnect(seq uint64, cancel context.CancelFunc) {
	cancel()
	s.releaseReconnect(seq)
}

// releaseReconnect unregisters the loop seq so that scheduleReconnect starts a new one.
func (s *Session) releaseReconnect(seq uint64) {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	if s.reconnectSeq == seq {
		s.reconnectCancel = nil
	}
}

// reconnect waits one interval, then retries connectOnce until it succeeds, the session is
// closed or ctx is canceled. The delay is fixed unless a backoff cap is configured.
//
// The loop unregisters itself under connMu on success: a connection loss handled right after
// the attempt must find no loop registered and schedule a new one.
func (s *Session) reconnect(ctx context.Context, seq uint64) {
	interval := s.cfg.ReconnectInterval()
	s.logger.Info("reconnect scheduled", "interval", interval)

	if !pool.Sleep(ctx, interval) {
		return
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(interval),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.metrics.incConnRetryGauge()
			s.logger.Warn("reconnect attempt failed", "attempt", n+1, "error", err)
		}),
	}
	if maxDelay := s.cfg.ReconnectMaxDelay(); maxDelay > 0 {
		opts = append(opts, retry.DelayType(retry.BackOffDelay), retry.MaxDelay(maxDelay))
	} else {
		opts = append(opts, retry.DelayType(retry.FixedDelay))
	}

	err := retry.Do(func() error {
		err := s.connectOnce(ctx, func() { s.releaseReconnect(seq) })
		if errors.Is(err, ErrSessionClosed) {
			return retry.Unrecoverable(err)
		}
		return err
	}, opts...)
	if err != nil {
		s.logger.Debug("reconnect loop ended", "error", err)
		return
	}

	if s.reconnectedHook != nil {
		s.reconnectedHook()
	}
}
