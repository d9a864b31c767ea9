package agent

import (
	"testing"

	"github.com/ashureev/socratic-labs/internal/domain"
)

func TestFormatHistoryMapsRoles(t *testing.T) {
	t.Parallel()

	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "Free will is an illusion."},
		{Role: domain.RoleAssistant, Content: "What would count as evidence otherwise?"},
		{Role: "system", Content: "odd role"},
		{Role: domain.RoleUser, Content: ""},
	}

	got := FormatHistory(turns)
	if len(got) != len(turns) {
		t.Fatalf("expected %d entries, got %d", len(turns), len(got))
	}

	wantRoles := []string{"user", "model", "model", "user"}
	for i, entry := range got {
		if entry.Role != wantRoles[i] {
			t.Fatalf("entry %d: role %q, want %q", i, entry.Role, wantRoles[i])
		}
		if len(entry.Parts) != 1 || entry.Parts[0] != turns[i].Content {
			t.Fatalf("entry %d: parts %v, want [%q]", i, entry.Parts, turns[i].Content)
		}
	}
}

func TestFormatHistoryEmpty(t *testing.T) {
	t.Parallel()

	got := FormatHistory(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", got)
	}
}
