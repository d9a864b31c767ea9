package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrModelTimeout is returned when a model call exceeds its deadline.
	ErrModelTimeout = errors.New("model call timed out")
	// ErrEmptyReply is returned when the model answers with no text.
	ErrEmptyReply = errors.New("model returned an empty reply")
	// ErrTurnInProgress is returned when a session receives input mid-turn.
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
	// ErrEmptyInput is returned for blank user statements.
	ErrEmptyInput = errors.New("message is required")
)

// Pipeline stages that can fail a turn.
const (
	StageSocratic = "socratic"
	StagePersist  = "persist"
)

// TurnError is a turn-scoped failure. The session stays usable; when
// Retryable is set the transcript was rolled back and the same statement can
// be sent again.
type TurnError struct {
	TurnID    string
	Stage     string
	Retryable bool
	Err       error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn %s failed at %s stage: %v", e.TurnID, e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// VerdictParseError describes critic output that could not be turned into a verdict.
type VerdictParseError struct {
	Raw string
	Err error
}

func (e *VerdictParseError) Error() string {
	return e.Err.Error()
}

func (e *VerdictParseError) Unwrap() error {
	return e.Err
}
