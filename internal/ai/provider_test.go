package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		{Role: RoleSystem, Content: "one"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleSystem, Content: "two"},
		{Role: RoleAssistant, Content: "hi"},
	})

	assert.Equal(t, "one\n\ntwo", system)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	}, rest)
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "watson"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewProvider_MissingKeys(t *testing.T) {
	t.Setenv("TESTGEN_ANTHROPIC_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("TESTGEN_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider(context.Background(), Config{Provider: "claude"})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), Config{Provider: "openai"})
	assert.Error(t, err)
}

func TestNewProvider_OllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")

	chat, err := NewProvider(context.Background(), Config{Provider: "ollama"})
	require.NoError(t, err)

	p, ok := chat.(*OpenAIProvider)
	require.True(t, ok)
	assert.Equal(t, defaultOllamaModel, p.model)
	assert.Equal(t, defaultMaxTokens, p.maxTokens)
}

func TestAPIKeyFallback(t *testing.T) {
	t.Setenv("TESTGEN_X_KEY", "")
	t.Setenv("X_KEY", "from-env")

	assert.Equal(t, "explicit", apiKey("explicit", "TESTGEN_X_KEY", "X_KEY"))
	assert.Equal(t, "from-env", apiKey("", "TESTGEN_X_KEY", "X_KEY"))
	assert.Empty(t, apiKey("", "TESTGEN_X_KEY"))
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "llama3.1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"elements\": []}"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(Config{BaseURL: srv.URL, MaxTokens: 100})
	require.NoError(t, err)

	completion, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "extract"},
		{Role: RoleUser, Content: "login page"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"elements": []}`, completion.Text)
	assert.Equal(t, "llama3.1", completion.Model)
	assert.Equal(t, "llama3.1", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "login page", got.Messages[1].Content)
}

func TestOpenAIProvider_SendsZeroTemperature(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cmpl-1", "object": "chat.completion", "model": "llama3.1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(Config{BaseURL: srv.URL, Temperature: 0, MaxTokens: 10})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)

	require.Contains(t, body, "temperature")
	assert.InDelta(t, 0, body["temperature"], 1e-6)
}

func TestRequestTemperature(t *testing.T) {
	assert.Greater(t, requestTemperature(0), float32(0))
	assert.Equal(t, float32(0.7), requestTemperature(0.7))
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cmpl-1", "object": "chat.completion", "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	completion, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	assert.Empty(t, completion.Text)
}

func TestClaudeProvider_Complete(t *testing.T) {
	var got struct {
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"tasks\": []}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p, err := NewClaudeProvider(Config{APIKey: "k", BaseURL: srv.URL, Model: "claude-test", MaxTokens: 64})
	require.NoError(t, err)

	completion, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "extract tasks"},
		{Role: RoleUser, Content: "page"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"tasks": []}`, completion.Text)
	require.Len(t, got.System, 1)
	assert.Equal(t, "extract tasks", got.System[0].Text)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestChatFunc(t *testing.T) {
	var chat Chat = ChatFunc(func(ctx context.Context, messages []Message) (*Completion, error) {
		return &Completion{Text: messages[0].Content}, nil
	})

	c, err := chat.Complete(context.Background(), []Message{{Role: RoleUser, Content: "echo"}})
	require.NoError(t, err)
	assert.Equal(t, "echo", c.Text)
}
