package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ashureev/socratic-labs/internal/domain"
)

var safeUserIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// FileProfileStore keeps cognitive profiles as indented JSON documents on disk.
// Writes go to a temp file in the same directory and are renamed into place,
// so an interrupted save never leaves a partial document behind.
type FileProfileStore struct {
	dir  string
	path string // when set, every user maps to this single document
}

// NewFileProfileStore stores one document per user under dir.
func NewFileProfileStore(dir string) *FileProfileStore {
	return &FileProfileStore{dir: dir}
}

// NewSingleFileProfileStore stores the profile at a fixed path regardless of user.
func NewSingleFileProfileStore(path string) *FileProfileStore {
	return &FileProfileStore{path: path}
}

func (s *FileProfileStore) pathFor(userID string) (string, error) {
	if s.path != "" {
		return s.path, nil
	}
	if !safeUserIDPattern.MatchString(userID) {
		return "", fmt.Errorf("invalid user id %q for file profile store", userID)
	}
	return filepath.Join(s.dir, userID+".json"), nil
}

// LoadProfile reads the profile document, returning (nil, nil) when absent.
func (s *FileProfileStore) LoadProfile(_ context.Context, userID string) (*domain.CognitiveProfile, error) {
	path, err := s.pathFor(userID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	var profile domain.CognitiveProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrMalformedProfile, path, err)
	}
	profile.Normalize()
	return &profile, nil
}

// SaveProfile overwrites the profile document atomically.
func (s *FileProfileStore) SaveProfile(ctx context.Context, userID string, profile *domain.CognitiveProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(userID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(profile, "", "    ")
	if err != nil {
		return fmt.Errorf("encode cognitive profile: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp profile: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp profile: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp profile: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace profile %s: %w", path, err)
	}
	committed = true
	return nil
}
