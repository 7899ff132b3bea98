package hub

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultHeartbeatInterval is the probe period for each connection.
const DefaultHeartbeatInterval = 30 * time.Second

// HeartbeatMonitor probes each connection on a fixed interval. A connection
// that shows no liveness signal for one full interval after a probe is
// handed to onDead.
type HeartbeatMonitor struct {
	interval time.Duration
	onDead   func(*session)
	logger   *slog.Logger
}

// NewHeartbeatMonitor creates a monitor. onDead must be safe to call from
// a timer goroutine.
func NewHeartbeatMonitor(interval time.Duration, onDead func(*session), logger *slog.Logger) *HeartbeatMonitor {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &HeartbeatMonitor{interval: interval, onDead: onDead, logger: orDiscard(logger)}
}

// Watch starts the timer for s. The returned stop func is idempotent.
func (m *HeartbeatMonitor) Watch(s *session) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	stop = func() { once.Do(func() { close(done) }) }

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !m.Tick(s) {
					stop()
					return
				}
			}
		}
	}()
	return stop
}

// Tick runs one heartbeat step and reports whether the connection survives.
func (m *HeartbeatMonitor) Tick(s *session) bool {
	if !s.alive.Swap(false) {
		m.logger.Info("heartbeat missed, terminating connection", "client_id", clientIDOf(s))
		m.onDead(s)
		return false
	}
	if err := s.conn.Ping(); err != nil {
		m.logger.Debug("heartbeat ping failed", "client_id", clientIDOf(s), "error", err)
	}
	return true
}

// MarkAlive records a liveness signal for s.
func (m *HeartbeatMonitor) MarkAlive(s *session) {
	s.alive.Store(true)
}

func clientIDOf(s *session) string {
	if c := s.bound(); c != nil {
		return c.ID
	}
	return ""
}
