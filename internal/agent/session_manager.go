package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/socratic-labs/internal/profile"
	"github.com/ashureev/socratic-labs/internal/store"
)

// SessionManager owns the live dialogue sessions, keyed by user then session.
// Every session of a user shares one Historian so profile writes stay serialized.
type SessionManager struct {
	mu         sync.RWMutex
	sessions   map[string]map[string]*Session
	historians map[string]*profile.Historian

	profiles store.ProfileStore
	opts     profile.Options
	critic   *Critic
	socratic *Socratic
	convLog  ConversationLogger
	logger   *slog.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(profiles store.ProfileStore, opts profile.Options, critic *Critic, socratic *Socratic, convLog ConversationLogger, logger *slog.Logger) *SessionManager {
	if convLog == nil {
		convLog = noopConversationLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:   make(map[string]map[string]*Session),
		historians: make(map[string]*profile.Historian),
		profiles:   profiles,
		opts:       opts,
		critic:     critic,
		socratic:   socratic,
		convLog:    convLog,
		logger:     logger,
	}
}

// Historian returns the user's historian, loading the profile on first use.
func (m *SessionManager) Historian(ctx context.Context, userID string) (*profile.Historian, error) {
	m.mu.RLock()
	h, ok := m.historians[userID]
	m.mu.RUnlock()
	if ok {
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.historians[userID]; ok {
		return h, nil
	}

	h, err := profile.Load(ctx, m.profiles, userID, m.opts, m.logger)
	if err != nil {
		return nil, fmt.Errorf("load profile for %s: %w", userID, err)
	}
	m.historians[userID] = h
	return h, nil
}

// Acquire returns the session for userID/sessionID, creating it if needed.
func (m *SessionManager) Acquire(ctx context.Context, userID, sessionID string) (*Session, error) {
	if s := m.Get(userID, sessionID); s != nil {
		return s, nil
	}

	h, err := m.Historian(ctx, userID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[userID]; !exists {
		m.sessions[userID] = make(map[string]*Session)
	}
	if s, exists := m.sessions[userID][sessionID]; exists {
		return s, nil
	}

	s := NewSession(userID, sessionID, h, m.critic, m.socratic, m.convLog, m.logger)
	m.sessions[userID][sessionID] = s
	m.logger.Info("Dialogue session registered", "user_id", userID, "session_id", sessionID)
	return s, nil
}

// Get returns an existing session or nil.
func (m *SessionManager) Get(userID, sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.sessions[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Reset clears a session's transcript. Unknown sessions are a no-op.
func (m *SessionManager) Reset(userID, sessionID string) error {
	s := m.Get(userID, sessionID)
	if s == nil {
		return nil
	}
	if err := s.Reset(); err != nil {
		return err
	}
	m.logger.Info("Dialogue session reset", "user_id", userID, "session_id", sessionID)
	return nil
}

// CloseUser drops every session of a user along with the cached historian.
func (m *SessionManager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sid := range m.sessions[userID] {
		m.logger.Info("Dialogue session closed", "user_id", userID, "session_id", sid)
	}
	delete(m.sessions, userID)
	delete(m.historians, userID)
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.sessions {
		n += len(sessions)
	}
	return n
}
