package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenRouterProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OpenRouterConfig
		wantErr bool
		model   string
	}{
		{"missing key", OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"}, true, ""},
		{"model passed through", OpenRouterConfig{APIKey: "sk-or", Model: "anthropic/claude-3-haiku"}, false, "anthropic/claude-3-haiku"},
		{"friendly names are not mapped", OpenRouterConfig{APIKey: "sk-or", Model: "gpt-4o-mini"}, false, "gpt-4o-mini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewOpenRouterProvider(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.model, p.ModelID())
		})
	}
}

func TestOpenRouterProvider_UsesConfiguredEndpoint(t *testing.T) {
	stub := &chatStub{reply: chatCompletion(`{"questions":[]}`, "stop")}
	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		Model:   "meta-llama/llama-3-8b",
		BaseURL: stub.serve(t),
	})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{Prompt: "Write 5 questions.", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, `{"questions":[]}`, resp.Text)
	assert.Equal(t, "Bearer sk-or-test", stub.auth)
	assert.Equal(t, "/v1/chat/completions", stub.path)
	assert.Equal(t, "meta-llama/llama-3-8b", stub.got["model"])
}
