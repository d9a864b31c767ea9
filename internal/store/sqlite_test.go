package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ashureev/socratic-labs/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteUserRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	got, err := s.GetUser(ctx, "anon_missing")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) for missing user, got (%v, %v)", got, err)
	}

	now := time.Unix(1_700_000_000, 0)
	if err := s.UpsertUser(ctx, &domain.User{
		UserID: "anon_1", Username: "anon-1", LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	later := now.Add(time.Hour)
	if err := s.UpdateLastSeen(ctx, "anon_1", later); err != nil {
		t.Fatalf("UpdateLastSeen failed: %v", err)
	}

	got, err = s.GetUser(ctx, "anon_1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil || got.Username != "anon-1" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if !got.LastSeenAt.Equal(later) {
		t.Fatalf("expected last seen %v, got %v", later, got.LastSeenAt)
	}
}

func TestSQLiteProfileAbsent(t *testing.T) {
	s := newTestSQLite(t)

	p, err := s.LoadProfile(context.Background(), "anon_new")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
}

func TestSQLiteProfileRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	want := domain.NewCognitiveProfile()
	want.Record("All swans I've seen are white, so all swans are white.", domain.Verdict{
		IdentifiedFallacy:   "Hasty Generalization",
		AdversarialStrategy: "Probe the sample size",
	}, time.Unix(1_700_000_000, 0).UTC(), 50)
	want.CoreBeliefs = append(want.CoreBeliefs, "induction works")

	if err := s.SaveProfile(ctx, "anon_1", want); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	got, err := s.LoadProfile(ctx, "anon_1")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	// Overwrite replaces the whole document.
	want.RecurringFallacies["Hasty Generalization"] = 7
	if err := s.SaveProfile(ctx, "anon_1", want); err != nil {
		t.Fatalf("second SaveProfile failed: %v", err)
	}
	got, err = s.LoadProfile(ctx, "anon_1")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if got.RecurringFallacies["Hasty Generalization"] != 7 {
		t.Fatalf("expected overwritten count 7, got %d", got.RecurringFallacies["Hasty Generalization"])
	}
}

func TestSQLiteProfileMalformed(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO cognitive_profiles (user_id, profile_json, created_at, updated_at) VALUES (?, ?, 0, 0)`,
		"anon_bad", "{not json"); err != nil {
		t.Fatalf("seed malformed row: %v", err)
	}

	_, err := s.LoadProfile(ctx, "anon_bad")
	if !errors.Is(err, ErrMalformedProfile) {
		t.Fatalf("expected ErrMalformedProfile, got %v", err)
	}
}

func TestSQLitePing(t *testing.T) {
	s := newTestSQLite(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
