package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/socratic-labs/internal/domain"
	"github.com/ashureev/socratic-labs/internal/store"
)

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.CognitiveProfile
	loadErr  error
	saveErr  error
	saves    int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*domain.CognitiveProfile)}
}

func (f *fakeProfileStore) LoadProfile(_ context.Context, userID string) (*domain.CognitiveProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (f *fakeProfileStore) SaveProfile(_ context.Context, userID string, p *domain.CognitiveProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.profiles[userID] = p.Clone()
	return nil
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
}

func TestLoadMissingProfileStartsEmpty(t *testing.T) {
	t.Parallel()

	h, err := Load(context.Background(), newFakeProfileStore(), "anon_1", Options{}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := "User's top recurring cognitive weaknesses: []. Challenge these specifically."
	if got := h.Summarize(); got != want {
		t.Fatalf("Summarize() = %q, want %q", got, want)
	}
}

func TestLoadMalformedProfileFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cognitive_profile.json")
	if err := os.WriteFile(path, []byte("definitely not json"), 0o600); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	h, err := Load(context.Background(), store.NewSingleFileProfileStore(path), "", Options{Now: fixedClock}, nil)
	if err != nil {
		t.Fatalf("expected malformed profile to be recovered, got %v", err)
	}
	if len(h.Snapshot().RecurringFallacies) != 0 {
		t.Fatal("expected empty profile after malformed load")
	}

	if err := h.RecordInteraction(context.Background(), "x", domain.Verdict{IdentifiedFallacy: "Strawman"}); err != nil {
		t.Fatalf("RecordInteraction failed: %v", err)
	}
	reloaded, err := store.NewSingleFileProfileStore(path).LoadProfile(context.Background(), "")
	if err != nil {
		t.Fatalf("expected profile to be rewritten, got %v", err)
	}
	if reloaded.RecurringFallacies["Strawman"] != 1 {
		t.Fatalf("unexpected reloaded profile: %+v", reloaded)
	}
}

func TestLoadPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	fs := newFakeProfileStore()
	fs.loadErr = errors.New("disk on fire")
	if _, err := Load(context.Background(), fs, "anon_1", Options{}, nil); err == nil {
		t.Fatal("expected load error")
	}
}

func TestRecordInteractionScenario(t *testing.T) {
	t.Parallel()

	fs := newFakeProfileStore()
	h, err := Load(context.Background(), fs, "anon_1", Options{Now: fixedClock}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	input := "All swans I've seen are white, so all swans are white."
	if err := h.RecordInteraction(context.Background(), input, domain.Verdict{
		IdentifiedFallacy:   "Hasty Generalization",
		AdversarialStrategy: "Ask about black swans",
	}); err != nil {
		t.Fatalf("RecordInteraction failed: %v", err)
	}

	saved := fs.profiles["anon_1"]
	if saved == nil {
		t.Fatal("expected profile to be persisted")
	}
	if saved.RecurringFallacies["Hasty Generalization"] != 1 {
		t.Fatalf("expected counter 1, got %d", saved.RecurringFallacies["Hasty Generalization"])
	}
	if len(saved.StruggleHistory) != 1 || saved.StruggleHistory[0].Fallacy != "Hasty Generalization" {
		t.Fatalf("unexpected history: %+v", saved.StruggleHistory)
	}
	if saved.StruggleHistory[0].Timestamp != "2026-10-19T12:00:00Z" {
		t.Fatalf("unexpected timestamp: %q", saved.StruggleHistory[0].Timestamp)
	}
}

func TestRecordInteractionTwoStrawmen(t *testing.T) {
	t.Parallel()

	fs := newFakeProfileStore()
	h, err := Load(context.Background(), fs, "anon_1", Options{Now: fixedClock}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	v := domain.Verdict{IdentifiedFallacy: "Strawman"}
	for i := 0; i < 2; i++ {
		if err := h.RecordInteraction(context.Background(), "turn", v); err != nil {
			t.Fatalf("RecordInteraction %d failed: %v", i, err)
		}
	}

	if got := fs.profiles["anon_1"].RecurringFallacies["Strawman"]; got != 2 {
		t.Fatalf("expected Strawman=2, got %d", got)
	}
	if fs.saves != 2 {
		t.Fatalf("expected one write per turn, got %d", fs.saves)
	}
	want := "User's top recurring cognitive weaknesses: [Strawman (2)]. Challenge these specifically."
	if got := h.Summarize(); got != want {
		t.Fatalf("Summarize() = %q, want %q", got, want)
	}
}

func TestRecordInteractionSaveFailureKeepsMemoryUnchanged(t *testing.T) {
	t.Parallel()

	fs := newFakeProfileStore()
	h, err := Load(context.Background(), fs, "anon_1", Options{Now: fixedClock}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	fs.saveErr = errors.New("read-only filesystem")
	if err := h.RecordInteraction(context.Background(), "x", domain.Verdict{IdentifiedFallacy: "Strawman"}); err == nil {
		t.Fatal("expected save error")
	}
	if len(h.Snapshot().StruggleHistory) != 0 {
		t.Fatal("in-memory profile must not change when the write fails")
	}
}

func TestSummarizeHonorsTopFallacies(t *testing.T) {
	t.Parallel()

	fs := newFakeProfileStore()
	seed := domain.NewCognitiveProfile()
	seed.RecurringFallacies = map[string]int{"A": 4, "B": 3, "C": 2, "D": 1}
	fs.profiles["anon_1"] = seed

	h, err := Load(context.Background(), fs, "anon_1", Options{TopFallacies: 2}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	top := h.TopFallacies()
	if len(top) != 2 || top[0].Name != "A" || top[1].Name != "B" {
		t.Fatalf("unexpected top fallacies: %+v", top)
	}
}
