package agent

import (
	"context"
	"log/slog"
	"time"
)

const idleSweepInterval = 5 * time.Minute

// CleanupCallback is called for each session removed by the idle sweeper.
type CleanupCallback func(userID, sessionID string)

// EvictIdle drops sessions that have been idle longer than ttl. Sessions with
// a turn in flight are kept. A user's historian is dropped with their last
// session; it is reloaded from the store on next use.
func (m *SessionManager) EvictIdle(ttl time.Duration, onCleanup CleanupCallback) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	type evicted struct{ userID, sessionID string }
	var removed []evicted
	for userID, sessions := range m.sessions {
		for sid, s := range sessions {
			if s.Busy() || s.LastActive().After(cutoff) {
				continue
			}
			delete(sessions, sid)
			removed = append(removed, evicted{userID, sid})
		}
		if len(sessions) == 0 {
			delete(m.sessions, userID)
			delete(m.historians, userID)
		}
	}
	m.mu.Unlock()

	for _, e := range removed {
		m.logger.Info("Idle dialogue session evicted", "user_id", e.userID, "session_id", e.sessionID)
		if onCleanup != nil {
			onCleanup(e.userID, e.sessionID)
		}
	}
	return len(removed)
}

// StartIdleSweeper periodically evicts idle sessions until ctx is done.
func StartIdleSweeper(ctx context.Context, m *SessionManager, ttl time.Duration, onCleanup CleanupCallback) {
	interval := idleSweepInterval
	if ttl < interval {
		interval = ttl
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Idle session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := m.EvictIdle(ttl, onCleanup); n > 0 {
					slog.Info("Idle session sweep completed", "evicted", n)
				}
			case <-ctx.Done():
				slog.Info("Idle session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sessions returns the session manager, for background workers.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}
