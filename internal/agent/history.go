package agent

import (
	"github.com/ashureev/socratic-labs/internal/domain"
)

// FormatHistory converts a transcript into the chat API's history shape.
// "user" stays "user"; every other role becomes "model". Order, length and
// content are preserved.
func FormatHistory(turns []domain.Turn) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(turns))
	for _, turn := range turns {
		role := ModelRoleModel
		if turn.Role == domain.RoleUser {
			role = ModelRoleUser
		}
		history = append(history, HistoryEntry{
			Role:  role,
			Parts: []string{turn.Content},
		})
	}
	return history
}
