package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatStub is an OpenAI-compatible chat completions endpoint.
type chatStub struct {
	status int
	reply  map[string]any
	got    map[string]any
	auth   string
	path   string
}

func (s *chatStub) serve(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.auth = r.Header.Get("Authorization")
		s.path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&s.got)
		w.Header().Set("Content-Type", "application/json")
		if s.status != 0 {
			w.WriteHeader(s.status)
		}
		_ = json.NewEncoder(w).Encode(s.reply)
	}))
	t.Cleanup(server.Close)
	return server.URL + "/v1"
}

func chatCompletion(content, finish string) map[string]any {
	choices := []map[string]any{}
	if content != "" {
		choices = append(choices, map[string]any{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		})
	}
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1767225600,
		"model":   "gpt-4o-mini",
		"choices": choices,
		"usage":   map[string]any{"prompt_tokens": 90, "completion_tokens": 60, "total_tokens": 150},
	}
}

func TestOpenAIProvider_Generate(t *testing.T) {
	stub := &chatStub{reply: chatCompletion(`{"questions":[{"questionType":"choice_one"}]}`, "stop")}
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: stub.serve(t)})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{
		System:    "Write language exercises as JSON.",
		Prompt:    "Write 1 question.",
		MaxTokens: 512,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"questions":[{"questionType":"choice_one"}]}`, resp.Text)
	assert.Equal(t, Usage{InputTokens: 90, OutputTokens: 60, TotalTokens: 150}, resp.Usage)
	assert.Equal(t, "end", resp.StopReason)
	assert.Equal(t, "Bearer sk-test", stub.auth)

	msgs, ok := stub.got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2, "system then user")
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Write 1 question.", msgs[1].(map[string]any)["content"])
}

func TestOpenAIProvider_NoSystemPrompt(t *testing.T) {
	stub := &chatStub{reply: chatCompletion(`{}`, "length")}
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", BaseURL: stub.serve(t)})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{Prompt: "x", MaxTokens: 16})
	require.NoError(t, err)
	assert.Equal(t, "max_tokens", resp.StopReason)
	assert.Len(t, stub.got["messages"], 1)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		rateLimit bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, false},
		{"bad gateway", http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &chatStub{
				status: tt.status,
				reply:  map[string]any{"error": map[string]any{"type": "error", "message": tt.name}},
			}
			p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: stub.serve(t)})
			require.NoError(t, err)

			_, err = p.Generate(context.Background(), Request{Prompt: "x", MaxTokens: 16})
			var rl *ErrRateLimit
			var unavail *ErrProviderUnavailable
			if tt.rateLimit {
				assert.True(t, errors.As(err, &rl), "got %T: %v", err, err)
			} else {
				assert.True(t, errors.As(err, &unavail), "got %T: %v", err, err)
			}
		})
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	stub := &chatStub{reply: chatCompletion("", "")}
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: stub.serve(t)})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Prompt: "x", MaxTokens: 16})
	var empty *ErrEmptyCompletion
	assert.True(t, errors.As(err, &empty), "got %v", err)
}

func TestOpenAIProvider_CanceledIsNotUnavailable(t *testing.T) {
	stub := &chatStub{reply: chatCompletion(`{}`, "stop")}
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: stub.serve(t)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Generate(ctx, Request{Prompt: "x", MaxTokens: 16})
	require.ErrorIs(t, err, context.Canceled)
	var unavail *ErrProviderUnavailable
	assert.False(t, errors.As(err, &unavail))
}
