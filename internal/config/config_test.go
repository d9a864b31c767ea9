package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "   ")

	_, err := Load()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.Name != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %q", cfg.Model.Name)
	}
	if cfg.Model.Timeout != 60*time.Second {
		t.Fatalf("unexpected model timeout: %s", cfg.Model.Timeout)
	}
	if cfg.Profile.TopFallacies != 3 {
		t.Fatalf("expected top fallacies 3, got %d", cfg.Profile.TopFallacies)
	}
	if cfg.Profile.TopicLength != 50 {
		t.Fatalf("expected topic length 50, got %d", cfg.Profile.TopicLength)
	}
	if cfg.Profile.Backend != ProfileBackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Profile.Backend)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected 2h session TTL, got %s", cfg.SessionTTL)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode without FRONTEND_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("MODEL_TIMEOUT", "5s")
	t.Setenv("PROFILE_TOP_FALLACIES", "5")
	t.Setenv("PROFILE_BACKEND", "FILE")
	t.Setenv("RATE_LIMIT_WINDOW", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.Model.Timeout)
	}
	if cfg.Profile.TopFallacies != 5 {
		t.Fatalf("expected top fallacies 5, got %d", cfg.Profile.TopFallacies)
	}
	if cfg.Profile.Backend != ProfileBackendFile {
		t.Fatalf("expected file backend, got %q", cfg.Profile.Backend)
	}
	if cfg.RateLimit.WindowDuration != time.Minute {
		t.Fatalf("expected fallback window, got %s", cfg.RateLimit.WindowDuration)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("PROFILE_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown profile backend")
	}
}

func TestValidateRejectsNonPositiveTopFallacies(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("PROFILE_TOP_FALLACIES", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for PROFILE_TOP_FALLACIES=0")
	}
}
