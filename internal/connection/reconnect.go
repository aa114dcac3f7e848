package connection

import (
	"context"
)

// reconnectLoop retries the connection until it succeeds, the attempt budget
// is spent or ctx is cancelled. One loop runs at a time.
func (m *Manager) reconnectLoop(ctx context.Context) {
	for {
		m.mu.Lock()
		if ctx.Err() != nil {
			m.mu.Unlock()
			return
		}
		if m.cfg.Backoff.Exhausted(m.failed) {
			m.logger.Error("reconnect attempts exhausted",
				"attempts", m.failed,
				"topics", len(m.registry.Topics()),
			)
			m.reconnectCancel = nil
			m.setStateLocked(Failed)
			m.mu.Unlock()
			return
		}
		attempt := m.failed + 1
		m.mu.Unlock()

		delay := m.cfg.Backoff.Delay(attempt)
		m.logger.Info("scheduling reconnect", "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(delay):
		}

		ch := m.connects.DoChan("connect", func() (any, error) {
			return nil, m.connectOnce()
		})

		var err error
		select {
		case <-ctx.Done():
			return
		case res := <-ch:
			err = res.Err
		}

		if err == nil {
			return
		}

		m.mu.Lock()
		if ctx.Err() == nil {
			m.failed++
		}
		m.mu.Unlock()
		m.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
	}
}
