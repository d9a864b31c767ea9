// Package agent implements the Socratic dialogue pipeline.
package agent

import (
	"github.com/ashureev/socratic-labs/internal/domain"
)

// Roles understood by the remote chat API.
const (
	ModelRoleUser  = "user"
	ModelRoleModel = "model"
)

// HistoryEntry is one prior turn in the shape the remote chat API expects.
type HistoryEntry struct {
	Role  string   `json:"role"`
	Parts []string `json:"parts"`
}

// TurnRequest is the body of a dialogue turn request.
type TurnRequest struct {
	Message string `json:"message"`
}

// EventType categorizes events emitted while a turn runs.
type EventType string

const (
	// EventUser echoes the accepted user statement.
	EventUser EventType = "user"
	// EventVerdict carries the critic verdict for the side panel.
	EventVerdict EventType = "verdict"
	// EventReply carries the Socratic reply.
	EventReply EventType = "reply"
	// EventError reports a turn-scoped failure.
	EventError EventType = "error"
	// EventDone marks the end of a turn.
	EventDone EventType = "done"
)

// TurnEvent is the payload delivered to a display for each step of a turn.
type TurnEvent struct {
	Type      EventType       `json:"type"`
	TurnID    string          `json:"turn_id"`
	Content   string          `json:"content,omitempty"`
	Verdict   *domain.Verdict `json:"verdict,omitempty"`
	Stage     string          `json:"stage,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
}

// Display receives turn output in the order the session produces it.
type Display interface {
	ShowUser(turnID, text string)
	ShowVerdict(turnID string, verdict domain.Verdict)
	ShowReply(turnID, text string)
}

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	TurnID  string         `json:"turn_id"`
	Verdict domain.Verdict `json:"verdict"`
	Reply   string         `json:"reply"`
}
