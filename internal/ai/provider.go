package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Role tags a message in a conversation
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completion is the text a model returned for a conversation.
// An empty Text means the model produced no completion.
type Completion struct {
	Text  string
	Model string
}

// Chat sends an ordered conversation to a language model and returns its completion
type Chat interface {
	Complete(ctx context.Context, messages []Message) (*Completion, error)
}

// ChatFunc adapts a function to the Chat interface
type ChatFunc func(ctx context.Context, messages []Message) (*Completion, error)

// Complete calls f
func (f ChatFunc) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	return f(ctx, messages)
}

// Config selects and configures a provider
type Config struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

const defaultMaxTokens = 4096

// NewProvider creates a chat provider based on the provider name
func NewProvider(ctx context.Context, cfg Config) (Chat, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	switch strings.ToLower(cfg.Provider) {
	case "claude", "anthropic":
		return NewClaudeProvider(cfg)
	case "openai", "gpt":
		return NewOpenAIProvider(cfg)
	case "ollama", "":
		return NewOllamaProvider(cfg)
	case "gemini", "google":
		return NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai, ollama, gemini)", cfg.Provider)
	}
}

// apiKey returns the configured key or the first non-empty environment variable
func apiKey(configured string, envVars ...string) string {
	if configured != "" {
		return configured
	}
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// splitSystem separates system messages from the rest of the conversation.
// Multiple system messages are joined with blank lines.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
