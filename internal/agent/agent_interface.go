package agent

import (
	"context"
)

// Model is the remote language model the dialogue depends on.
// This interface is implemented by the Gemini client.
type Model interface {
	// GenerateJSON runs a single-shot generation and asks for a JSON-typed response.
	GenerateJSON(ctx context.Context, systemInstruction, prompt string) (string, error)

	// Chat continues a conversation seeded with history and returns the reply text.
	Chat(ctx context.Context, systemInstruction string, history []HistoryEntry, message string) (string, error)

	// Name identifies the backing model.
	Name() string
}

// Ensure GeminiClient implements Model.
var _ Model = (*GeminiClient)(nil)
