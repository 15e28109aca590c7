package ai

import (
	"context"
	"fmt"
	"math"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOllamaURL   = "http://localhost:11434/v1"
	defaultOllamaModel = "llama3.1"
)

// OpenAIProvider implements Chat using the OpenAI chat completions API.
// It also serves Ollama, which exposes an OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	key := apiKey(cfg.APIKey, "TESTGEN_OPENAI_KEY", "OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("TESTGEN_OPENAI_KEY or OPENAI_API_KEY environment variable required")
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// NewOllamaProvider creates a provider for a local Ollama server
func NewOllamaProvider(cfg Config) (*OpenAIProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			baseURL = host + "/v1"
		} else {
			baseURL = defaultOllamaURL
		}
	}

	// Ollama ignores the key but the client requires one
	key := apiKey(cfg.APIKey, "OLLAMA_API_KEY")
	if key == "" {
		key = "ollama"
	}
	clientCfg := openai.DefaultConfig(key)
	clientCfg.BaseURL = baseURL

	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends the conversation as a chat completion request
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   p.maxTokens,
		Temperature: requestTemperature(p.temperature),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	completion := &Completion{Model: resp.Model}
	if len(resp.Choices) > 0 {
		completion.Text = resp.Choices[0].Message.Content
	}
	return completion, nil
}

// requestTemperature keeps an explicit 0 on the wire; go-openai omits a zero
// Temperature and the server would apply its own default instead.
func requestTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func openAIRole(r Role) string {
	switch r {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
