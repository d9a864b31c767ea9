//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/socratic-labs/internal/config"
	"github.com/ashureev/socratic-labs/internal/domain"
	"github.com/ashureev/socratic-labs/internal/identity"
)

type fakeRepo struct {
	users   map[string]*domain.User
	pingErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]*domain.User{}}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	return f.users[userID], nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.users[user.UserID] = user
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeRepo) LoadProfile(_ context.Context, _ string) (*domain.CognitiveProfile, error) {
	return nil, nil
}

func (f *fakeRepo) SaveProfile(_ context.Context, _ string, _ *domain.CognitiveProfile) error {
	return nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return f.pingErr }
func (f *fakeRepo) Close() error                 { return nil }

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "busy")

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", w.Code)
	}
	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "busy" {
		t.Fatalf("unexpected error body: %v", got)
	}
}

func TestGetMe(t *testing.T) {
	repo := newFakeRepo()
	repo.users["anon_1"] = &domain.User{UserID: "anon_1", Username: "anon-user"}
	h := NewHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(identity.WithIdentity(req.Context(), "anon_1", "tab-9"))
	w := httptest.NewRecorder()
	h.GetMe(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["user_id"] != "anon_1" || got["session_id"] != "tab-9" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestGetMeUnauthorized(t *testing.T) {
	h := NewHandler(newFakeRepo(), nil)
	w := httptest.NewRecorder()
	h.GetMe(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetConfig(t *testing.T) {
	cfg := &config.Config{
		Model:   config.ModelConfig{Name: "gemini-2.5-flash"},
		Profile: config.ProfileConfig{Backend: config.ProfileBackendFile, TopFallacies: 3, TopicLength: 50},
	}
	h := NewHandler(newFakeRepo(), cfg)

	w := httptest.NewRecorder()
	h.GetConfig(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	var got map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["model"] != "gemini-2.5-flash" || got["profile_backend"] != "file" {
		t.Fatalf("unexpected config body: %v", got)
	}
	if got["top_fallacies"] != float64(3) {
		t.Fatalf("unexpected top_fallacies: %v", got["top_fallacies"])
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		want    int
	}{
		{"healthy", nil, http.StatusOK},
		{"degraded", errors.New("disk I/O error"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.pingErr = tt.pingErr
			w := httptest.NewRecorder()
			NewHealthHandler(repo).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
