// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned by Load when no model credential is configured.
var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY is not set")

// Profile backends.
const (
	ProfileBackendSQLite = "sqlite"
	ProfileBackendFile   = "file"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	DBPath             string
	GoogleAPIKey       string
	MaxRequestBodySize int64
	SessionTTL         time.Duration
	Model              ModelConfig
	Profile            ProfileConfig
	RateLimit          RateLimitConfig
	ConversationLog    ConversationLogConfig
}

// ModelConfig controls the remote model calls.
type ModelConfig struct {
	Name    string
	Timeout time.Duration
}

// ProfileConfig controls cognitive profile persistence and summarization.
type ProfileConfig struct {
	Backend      string // "sqlite" or "file"
	Dir          string // file backend, server: one JSON document per user
	Path         string // file backend, CLI: single JSON document
	TopFallacies int
	TopicLength  int
}

// RateLimitConfig bounds dialogue turns per user.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		FrontendURL:        getEnv("FRONTEND_URL", ""),
		DBPath:             getEnv("DB_PATH", "./data/socratic.db"),
		GoogleAPIKey:       strings.TrimSpace(getEnv("GOOGLE_API_KEY", "")),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		SessionTTL:         getEnvDuration("SESSION_TTL", 2*time.Hour),
		Model: ModelConfig{
			Name:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvDuration("MODEL_TIMEOUT", 60*time.Second),
		},
		Profile: ProfileConfig{
			Backend:      strings.ToLower(getEnv("PROFILE_BACKEND", ProfileBackendSQLite)),
			Dir:          getEnv("PROFILE_DIR", "./data/profiles"),
			Path:         getEnv("PROFILE_PATH", "cognitive_profile.json"),
			TopFallacies: getEnvInt("PROFILE_TOP_FALLACIES", 3),
			TopicLength:  getEnvInt("PROFILE_TOPIC_LENGTH", 50),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 10),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if cfg.GoogleAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be > 0")
	}
	switch c.Profile.Backend {
	case ProfileBackendSQLite:
	case ProfileBackendFile:
		if c.Profile.Dir == "" {
			return fmt.Errorf("PROFILE_DIR cannot be empty with the file backend")
		}
	default:
		return fmt.Errorf("PROFILE_BACKEND must be %q or %q, got %q", ProfileBackendSQLite, ProfileBackendFile, c.Profile.Backend)
	}
	if c.Profile.TopFallacies <= 0 {
		return fmt.Errorf("PROFILE_TOP_FALLACIES must be > 0")
	}
	if c.Profile.TopicLength <= 0 {
		return fmt.Errorf("PROFILE_TOPIC_LENGTH must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
