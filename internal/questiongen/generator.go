// Package questiongen asks a content generator for a batch of questions
// and admits the reply only when every question in it is well formed.
package questiongen

import (
	"context"
	"fmt"

	"github.com/abhisek/lingodrill/internal/items"
	"github.com/abhisek/lingodrill/internal/llm"
	"github.com/abhisek/lingodrill/internal/question"
)

// Config controls generation requests.
type Config struct {
	// MaxTokens is the token budget for the whole batch.
	MaxTokens int

	// Temperature controls output randomness (0.0-1.0).
	Temperature float64
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// Generator produces validated question batches.
type Generator struct {
	provider llm.Provider
	config   Config
	gate     *Gate
}

// New creates a Generator backed by provider.
func New(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, config: cfg, gate: NewGate()}
}

// Generate requests count questions grounded on sel. The batch is returned
// whole or not at all; see Gate.Accept for the rejection errors.
func (g *Generator) Generate(ctx context.Context, sel items.Selection, count int) ([]question.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", count)
	}
	ctx = llm.WithPurpose(ctx, "session-generation")

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      buildUserMessage(sel, count),
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	qs, err := g.gate.Accept(resp.Text, sel.All())
	if err != nil {
		return nil, err
	}
	return qs, nil
}
