// Package profile tracks a user's recurring reasoning weaknesses across sessions.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/socratic-labs/internal/domain"
	"github.com/ashureev/socratic-labs/internal/store"
)

// Options tune how the profile is summarized and recorded.
type Options struct {
	// TopFallacies is how many recurring fallacies the summary names.
	TopFallacies int
	// TopicLength is how many characters of a statement are kept in history.
	TopicLength int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// DefaultOptions returns the defaults used by the dialogue.
func DefaultOptions() Options {
	return Options{
		TopFallacies: 3,
		TopicLength:  50,
	}
}

// Historian owns one user's cognitive profile for the life of the process.
// Every mutation is written back to the store in full.
type Historian struct {
	mu      sync.Mutex
	store   store.ProfileStore
	userID  string
	profile *domain.CognitiveProfile
	opts    Options
	logger  *slog.Logger
}

// Load reads the user's profile. A missing profile starts empty. A malformed
// one is replaced with an empty profile and a warning; the bad document is
// overwritten on the next recorded interaction.
func Load(ctx context.Context, ps store.ProfileStore, userID string, opts Options, logger *slog.Logger) (*Historian, error) {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultOptions()
	if opts.TopFallacies <= 0 {
		opts.TopFallacies = defaults.TopFallacies
	}
	if opts.TopicLength <= 0 {
		opts.TopicLength = defaults.TopicLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p, err := ps.LoadProfile(ctx, userID)
	switch {
	case errors.Is(err, store.ErrMalformedProfile):
		logger.Warn("Cognitive profile is malformed, starting from an empty profile", "user_id", userID, "error", err)
		p = nil
	case err != nil:
		return nil, fmt.Errorf("load cognitive profile: %w", err)
	}
	if p == nil {
		p = domain.NewCognitiveProfile()
	}

	return &Historian{
		store:   ps,
		userID:  userID,
		profile: p,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Summarize names the user's most frequent fallacies for the critic prompt.
func (h *Historian) Summarize() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.profile.Summary(h.opts.TopFallacies)
}

// TopFallacies returns the ranked fallacies used by Summarize.
func (h *Historian) TopFallacies() []domain.FallacyCount {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.profile.TopFallacies(h.opts.TopFallacies)
}

// Snapshot returns a copy of the current profile.
func (h *Historian) Snapshot() *domain.CognitiveProfile {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.profile.Clone()
}

// RecordInteraction applies a verdict to the profile and persists it.
// The in-memory profile is only updated once the write succeeds.
func (h *Historian) RecordInteraction(ctx context.Context, userInput string, verdict domain.Verdict) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.profile.Clone()
	next.Record(userInput, verdict, h.opts.Now(), h.opts.TopicLength)

	if err := h.store.SaveProfile(ctx, h.userID, next); err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	h.profile = next

	h.logger.Debug("Recorded interaction",
		"user_id", h.userID,
		"fallacy", verdict.IdentifiedFallacy,
		"history_len", len(next.StruggleHistory),
	)
	return nil
}
