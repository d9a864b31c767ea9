package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/socratic-labs/internal/domain"
)

const criticSystemInstruction = "You are 'The Critic'. You analyze arguments for logical flaws. You output ONLY JSON."

const criticPromptTemplate = `CONTEXT ON USER:
%s

USER INPUT:
"%s"

TASK:
1. Identify logical fallacies or cognitive biases.
2. Determine the 'Intellectual Struggle' strategy.
3. Propose a thought experiment that tests the user's consistency.
4. Output PURE JSON.

Output Schema:
{
    "identified_fallacy": "Name of fallacy or 'None'",
    "reasoning": "Brief explanation of flaws.",
    "adversarial_strategy": "Specific instruction for Socrates.",
    "thought_experiment_idea": "A hypothetical scenario to test consistency."
}`

// BuildCriticPrompt renders the critic prompt for a statement and profile summary.
func BuildCriticPrompt(userInput, profileSummary string) string {
	return fmt.Sprintf(criticPromptTemplate, profileSummary, userInput)
}

// Critic analyzes a statement and returns a structured verdict.
type Critic struct {
	model     Model
	validator *VerdictValidator
	logger    *slog.Logger
}

// NewCritic creates a critic stage.
func NewCritic(model Model, logger *slog.Logger) (*Critic, error) {
	if logger == nil {
		logger = slog.Default()
	}
	validator, err := NewVerdictValidator()
	if err != nil {
		return nil, err
	}
	return &Critic{model: model, validator: validator, logger: logger}, nil
}

// Analyze never fails: a failed call or unusable output degrades to
// domain.ErrorVerdict so the turn continues with a clarification request.
// No retry is attempted.
func (c *Critic) Analyze(ctx context.Context, userInput, profileSummary string) domain.Verdict {
	raw, err := c.model.GenerateJSON(ctx, criticSystemInstruction, BuildCriticPrompt(userInput, profileSummary))
	if err != nil {
		c.logger.Warn("Critic call failed, using fallback verdict", "model", c.model.Name(), "error", err)
		return domain.ErrorVerdict(err)
	}

	verdict, err := c.validator.Parse(raw)
	if err != nil {
		c.logger.Warn("Critic returned unusable output, using fallback verdict",
			"model", c.model.Name(),
			"response_len", len(raw),
			"error", err,
		)
		return domain.ErrorVerdict(err)
	}
	return verdict
}
