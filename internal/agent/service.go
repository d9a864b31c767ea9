package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/socratic-labs/internal/domain"
	"github.com/ashureev/socratic-labs/internal/profile"
	"github.com/ashureev/socratic-labs/internal/store"
)

// Service provides the dialogue pipeline to the HTTP and CLI front ends.
type Service struct {
	model    Model
	sessions *SessionManager
	convLog  ConversationLogger
	logger   *slog.Logger
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Model           Model
	Profiles        store.ProfileStore
	ProfileOptions  profile.Options
	ConversationLog ConversationLogger
	Logger          *slog.Logger
}

// NewService creates the dialogue service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	convLog := cfg.ConversationLog
	if convLog == nil {
		convLog = noopConversationLogger{}
	}

	critic, err := NewCritic(cfg.Model, logger)
	if err != nil {
		return nil, fmt.Errorf("create critic: %w", err)
	}
	socratic := NewSocratic(cfg.Model)

	return &Service{
		model:    cfg.Model,
		sessions: NewSessionManager(cfg.Profiles, cfg.ProfileOptions, critic, socratic, convLog, logger),
		convLog:  convLog,
		logger:   logger,
	}, nil
}

// Turn runs one dialogue turn for the given session.
func (s *Service) Turn(ctx context.Context, userID, sessionID, input string, display Display) (*TurnResult, error) {
	session, err := s.sessions.Acquire(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Turn(ctx, input, display)
}

// Transcript returns the turns of a session. Unknown sessions are empty.
func (s *Service) Transcript(userID, sessionID string) []domain.Turn {
	session := s.sessions.Get(userID, sessionID)
	if session == nil {
		return []domain.Turn{}
	}
	return session.Transcript()
}

// Reset clears a session's transcript.
func (s *Service) Reset(userID, sessionID string) error {
	return s.sessions.Reset(userID, sessionID)
}

// Profile returns a snapshot of the user's cognitive profile and its top fallacies.
func (s *Service) Profile(ctx context.Context, userID string) (*domain.CognitiveProfile, []domain.FallacyCount, string, error) {
	h, err := s.sessions.Historian(ctx, userID)
	if err != nil {
		return nil, nil, "", err
	}
	return h.Snapshot(), h.TopFallacies(), h.Summarize(), nil
}

// Stats contains service statistics.
type Stats struct {
	ActiveSessions int    `json:"active_sessions"`
	Model          string `json:"model"`
}

// GetStats returns service statistics.
func (s *Service) GetStats() Stats {
	return Stats{ActiveSessions: s.sessions.Count(), Model: s.model.Name()}
}

// Close releases resources.
func (s *Service) Close() {
	if err := s.convLog.Close(); err != nil {
		s.logger.Warn("Failed to close conversation log", "error", err)
	}
}
