package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

var errAPIKeyRequired = errors.New("gemini API key is required")

// GeminiClient talks to the Gemini API through the genai SDK.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// GeminiClientConfig holds configuration for the Gemini client.
type GeminiClientConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultGeminiClientConfig returns default configuration.
func DefaultGeminiClientConfig() GeminiClientConfig {
	return GeminiClientConfig{
		Model:   "gemini-2.5-flash",
		Timeout: 60 * time.Second,
	}
}

// NewGeminiClient creates a Gemini client. No network I/O happens here.
func NewGeminiClient(ctx context.Context, cfg GeminiClientConfig, logger *slog.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultGeminiClientConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logger.Info("Gemini client ready", "model", cfg.Model, "timeout", cfg.Timeout)

	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Name returns the model name.
func (c *GeminiClient) Name() string {
	return c.model
}

// GenerateJSON sends a single prompt and requests an application/json response.
func (c *GeminiClient) GenerateJSON(ctx context.Context, systemInstruction, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", classifyModelError(ctx, "generate", c.timeout, err)
	}

	text := responseText(resp)
	c.logger.Debug("Gemini generate completed", "model", c.model, "duration", time.Since(start), "response_len", len(text))
	return text, nil
}

// Chat opens a chat seeded with history and sends message as the next user turn.
func (c *GeminiClient) Chat(ctx context.Context, systemInstruction string, history []HistoryEntry, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	chat, err := c.client.Chats.Create(ctx, c.model, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}, toGenaiContents(history))
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", classifyModelError(ctx, "chat", c.timeout, err)
	}

	text := responseText(resp)
	c.logger.Debug("Gemini chat completed",
		"model", c.model,
		"history_len", len(history),
		"duration", time.Since(start),
		"response_len", len(text),
	)
	return text, nil
}

func toGenaiContents(history []HistoryEntry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, entry := range history {
		parts := make([]*genai.Part, 0, len(entry.Parts))
		for _, p := range entry.Parts {
			parts = append(parts, genai.NewPartFromText(p))
		}
		contents = append(contents, &genai.Content{Role: entry.Role, Parts: parts})
	}
	return contents
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

// classifyModelError maps deadline failures to ErrModelTimeout.
func classifyModelError(ctx context.Context, op string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %s: %v", op, ErrModelTimeout, timeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
