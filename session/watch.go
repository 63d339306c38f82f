package session

import (
	"time"

	"github.com/rs/zerolog/log"
)

// StartLivenessWatch begins the periodic expiry check. There is no server
// push for invalidation, so the client polls its own clock: each tick
// re-evaluates the session's expiry and, on detecting it has passed, calls
// Logout exactly once. Safe to call when already watching.
func (m *Manager) StartLivenessWatch() {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	if m.watchStop != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	m.watchStop = stop
	m.watchDone = done

	ticker := time.NewTicker(m.interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkLiveness()
			case <-stop:
				return
			}
		}
	}()
}

// Close cancels the liveness watch and waits for its goroutine to exit.
// Idempotent; a Manager without a running watch closes trivially.
func (m *Manager) Close() {
	m.watchMu.Lock()
	stop, done := m.watchStop, m.watchDone
	m.watchStop = nil
	m.watchDone = nil
	m.watchMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// checkLiveness performs one expiry evaluation. Logout itself is idempotent,
// so a tick racing an explicit logout still produces at most one transition.
func (m *Manager) checkLiveness() {
	m.mu.RLock()
	identity := m.identity
	m.mu.RUnlock()

	if identity == nil || identity.Valid(m.nowTime()) {
		return
	}

	log.Info().Time("expired_at", identity.ExpiresAt).Msg("session expired")
	if err := m.Logout(); err != nil {
		log.Err(err).Msg("failed to clear expired session")
	}
}
