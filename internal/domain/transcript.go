package domain

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single chat message in a dialogue transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript holds the ordered turns of one dialogue session. It is never persisted.
type Transcript struct {
	turns []Turn
}

// Append adds a turn to the end of the transcript.
func (t *Transcript) Append(role Role, content string) {
	t.turns = append(t.turns, Turn{Role: role, Content: content})
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of all turns.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Before returns a copy of the first n turns.
func (t *Transcript) Before(n int) []Turn {
	if n > len(t.turns) {
		n = len(t.turns)
	}
	if n < 0 {
		n = 0
	}
	out := make([]Turn, n)
	copy(out, t.turns[:n])
	return out
}

// Truncate drops every turn from index n onwards. Used to roll back a failed turn.
func (t *Transcript) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(t.turns) {
		t.turns = t.turns[:n]
	}
}
