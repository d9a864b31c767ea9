package domain

import "fmt"

const (
	// NoFallacy is the value the critic uses when the argument holds up.
	NoFallacy = "None"
	// ErrorFallacy marks a verdict produced because the critic output was unusable.
	ErrorFallacy = "Error"

	clarificationStrategy = "Ask for clarification"
)

// Verdict is the critic's structured analysis of a single user statement.
type Verdict struct {
	IdentifiedFallacy     string `json:"identified_fallacy"`
	Reasoning             string `json:"reasoning"`
	AdversarialStrategy   string `json:"adversarial_strategy"`
	ThoughtExperimentIdea string `json:"thought_experiment_idea"`
}

// HasFallacy reports whether the verdict names a fallacy that should be counted.
func (v Verdict) HasFallacy() bool {
	return v.IdentifiedFallacy != "" && v.IdentifiedFallacy != NoFallacy
}

// IsError reports whether this is the fallback verdict.
func (v Verdict) IsError() bool {
	return v.IdentifiedFallacy == ErrorFallacy
}

// ErrorVerdict returns the fallback verdict used when the critic output cannot
// be trusted. The dialogue continues with a clarification-seeking turn.
func ErrorVerdict(err error) Verdict {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return Verdict{
		IdentifiedFallacy:     ErrorFallacy,
		Reasoning:             fmt.Sprintf("Failed to parse JSON: %s", detail),
		AdversarialStrategy:   clarificationStrategy,
		ThoughtExperimentIdea: NoFallacy,
	}
}
