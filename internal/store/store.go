// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/socratic-labs/internal/domain"
)

// ErrMalformedProfile is returned when a persisted profile exists but cannot be decoded.
var ErrMalformedProfile = errors.New("malformed cognitive profile")

// ProfileStore persists one cognitive profile per user.
type ProfileStore interface {
	// LoadProfile returns the stored profile, or (nil, nil) if none exists.
	// A document that exists but cannot be decoded yields ErrMalformedProfile.
	LoadProfile(ctx context.Context, userID string) (*domain.CognitiveProfile, error)

	// SaveProfile replaces the stored profile in full.
	SaveProfile(ctx context.Context, userID string, profile *domain.CognitiveProfile) error
}

// Repository defines the interface for persisting users and their profiles.
type Repository interface {
	ProfileStore

	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

var (
	_ Repository   = (*SQLiteStore)(nil)
	_ ProfileStore = (*FileProfileStore)(nil)
)
