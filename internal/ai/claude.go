package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider implements Chat using Anthropic's Claude
type ClaudeProvider struct {
	client      *anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewClaudeProvider creates a new Claude provider
func NewClaudeProvider(cfg Config) (*ClaudeProvider, error) {
	key := apiKey(cfg.APIKey, "TESTGEN_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("TESTGEN_ANTHROPIC_KEY or ANTHROPIC_API_KEY environment variable required")
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &ClaudeProvider{
		client:      &client,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends the conversation to the Messages API
func (p *ClaudeProvider) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	system, rest := splitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(p.maxTokens),
		Temperature: anthropic.Float(p.temperature),
		Messages:    make([]anthropic.MessageParam, 0, len(rest)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range rest {
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}

	// First text block is the completion
	completion := &Completion{Model: string(resp.Model)}
	for _, block := range resp.Content {
		if block.Type == "text" {
			completion.Text = block.Text
			break
		}
	}
	return completion, nil
}
