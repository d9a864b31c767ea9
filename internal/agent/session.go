package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ashureev/socratic-labs/internal/domain"
	"github.com/ashureev/socratic-labs/internal/profile"
)

// persistTimeout bounds the profile write that closes every turn. It runs
// detached from the request so a client hanging up after the reply was shown
// does not lose the interaction.
const persistTimeout = 10 * time.Second

// Session is one dialogue: a transcript plus the user's shared historian.
// It accepts one turn at a time.
type Session struct {
	UserID string
	ID     string

	turnMu     sync.Mutex // held for the whole critic -> socratic -> persist pipeline
	mu         sync.RWMutex
	transcript domain.Transcript
	historian  *profile.Historian
	critic     *Critic
	socratic   *Socratic
	log        ConversationLogger
	logger     *slog.Logger
	newTurnID  func() string
	lastActive atomic.Int64
}

// NewSession creates a dialogue session. log may be nil.
func NewSession(userID, sessionID string, historian *profile.Historian, critic *Critic, socratic *Socratic, log ConversationLogger, logger *slog.Logger) *Session {
	if log == nil {
		log = noopConversationLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		UserID:    userID,
		ID:        sessionID,
		historian: historian,
		critic:    critic,
		socratic:  socratic,
		log:       log,
		logger:    logger,
		newTurnID: func() string { return ulid.Make().String() },
	}
	s.touch()
	return s
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns when the session last started or finished a turn.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Transcript returns a copy of the turns so far.
func (s *Session) Transcript() []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript.Turns()
}

// Historian returns the profile historian shared by the user's sessions.
func (s *Session) Historian() *profile.Historian {
	return s.historian
}

// Busy reports whether a turn is currently running.
func (s *Session) Busy() bool {
	if s.turnMu.TryLock() {
		s.turnMu.Unlock()
		return false
	}
	return true
}

// Turn runs one full pipeline for input. Effects happen in a fixed order:
// append the user turn, run the critic, show the verdict, run the Socratic
// stage, show the reply, append the assistant turn, record the interaction.
// A critic failure still runs every step with the fallback verdict. A Socratic
// failure rolls the user turn back and returns a retryable *TurnError.
func (s *Session) Turn(ctx context.Context, input string, display Display) (*TurnResult, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	if !s.turnMu.TryLock() {
		return nil, ErrTurnInProgress
	}
	defer s.turnMu.Unlock()
	s.touch()
	defer s.touch()

	turnID := s.newTurnID()
	logger := s.logger.With("user_id", s.UserID, "session_id", s.ID, "turn_id", turnID)

	s.mu.Lock()
	mark := s.transcript.Len()
	s.transcript.Append(domain.RoleUser, input)
	prior := s.transcript.Before(mark)
	s.mu.Unlock()

	display.ShowUser(turnID, input)
	s.logEvent(turnID, "outbound", "user_statement", input, nil)

	verdict := s.critic.Analyze(ctx, input, s.historian.Summarize())
	display.ShowVerdict(turnID, verdict)
	s.logEvent(turnID, "inbound", "critic_verdict", verdict.Reasoning, map[string]any{
		"identified_fallacy":      verdict.IdentifiedFallacy,
		"adversarial_strategy":    verdict.AdversarialStrategy,
		"thought_experiment_idea": verdict.ThoughtExperimentIdea,
	})

	reply, err := s.socratic.Respond(ctx, input, verdict, prior)
	if err != nil {
		s.mu.Lock()
		s.transcript.Truncate(mark)
		s.mu.Unlock()

		logger.Error("Socratic stage failed, turn rolled back", "error", err)
		s.logEvent(turnID, "inbound", "turn_error", err.Error(), map[string]any{"stage": StageSocratic})
		return nil, &TurnError{TurnID: turnID, Stage: StageSocratic, Retryable: true, Err: err}
	}

	display.ShowReply(turnID, reply)
	s.logEvent(turnID, "inbound", "socratic_reply", reply, nil)

	s.mu.Lock()
	s.transcript.Append(domain.RoleAssistant, reply)
	s.mu.Unlock()

	result := &TurnResult{TurnID: turnID, Verdict: verdict, Reply: reply}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.historian.RecordInteraction(persistCtx, input, verdict); err != nil {
		logger.Error("Failed to record interaction", "error", err)
		s.logEvent(turnID, "inbound", "turn_error", err.Error(), map[string]any{"stage": StagePersist})
		return result, &TurnError{TurnID: turnID, Stage: StagePersist, Err: err}
	}

	logger.Info("Turn completed",
		"fallacy", verdict.IdentifiedFallacy,
		"critic_fallback", verdict.IsError(),
		"reply_len", len(reply),
	)
	return result, nil
}

// Reset clears the transcript. The profile is untouched.
func (s *Session) Reset() error {
	if !s.turnMu.TryLock() {
		return ErrTurnInProgress
	}
	defer s.turnMu.Unlock()

	s.mu.Lock()
	s.transcript.Truncate(0)
	s.mu.Unlock()
	return nil
}

func (s *Session) logEvent(turnID, direction, eventType, content string, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["turn_id"] = turnID
	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     s.UserID,
		SessionID:  s.ID,
		Channel:    "dialogue",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    cleanForReadability(content),
		Meta:       meta,
	})
}
