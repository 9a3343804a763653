package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/lingodrill/internal/store"
)

// LoggingProvider records every generator request in the event log.
type LoggingProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
}

// WithLogging wraps a Provider with request logging. provider is the
// configured backend name recorded alongside each event.
func WithLogging(p Provider, provider string, events store.EventRepo) Provider {
	return &LoggingProvider{inner: p, provider: provider, events: events}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEvent{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
		CreatedAt:   start.UTC(),
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = resp.Text
		if c := LookupCost(resp.Model); c != nil {
			cost := c.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens)
			ev.CostUSD = &cost
		}
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	// A failed log write never fails the request.
	if logErr := l.events.AppendLLMRequest(ctx, ev); logErr != nil {
		slog.Warn("failed to record generator request", "error", logErr)
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	b.WriteString("[user]\n")
	b.WriteString(req.Prompt)
	b.WriteString("\n")
	return b.String()
}
