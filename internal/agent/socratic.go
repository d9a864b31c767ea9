package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/socratic-labs/internal/domain"
)

const socraticInstructionTemplate = `You are 'The Generative Socratic Dialogue Partner'.

CRITIC'S STRATEGY: %s
THOUGHT EXPERIMENT: %s
REASONING: %s

TONE:
- Do NOT lecture.
- Ask probing questions.
- Your goal is 'Aporia' (puzzlement) in the user.`

// BuildSocraticInstruction embeds the critic's verdict in the persona instruction.
func BuildSocraticInstruction(v domain.Verdict) string {
	return fmt.Sprintf(socraticInstructionTemplate, v.AdversarialStrategy, v.ThoughtExperimentIdea, v.Reasoning)
}

// Socratic produces the persona's reply for a turn.
type Socratic struct {
	model Model
}

// NewSocratic creates a Socratic stage.
func NewSocratic(model Model) *Socratic {
	return &Socratic{model: model}
}

// Respond sends the statement as the next turn of a chat seeded with the prior
// transcript. The reply is returned verbatim; only an empty reply is rejected.
func (s *Socratic) Respond(ctx context.Context, userInput string, verdict domain.Verdict, prior []domain.Turn) (string, error) {
	reply, err := s.model.Chat(ctx, BuildSocraticInstruction(verdict), FormatHistory(prior), userInput)
	if err != nil {
		return "", fmt.Errorf("socratic reply: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
