package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// LLMRequestEvent records a single generator call.
type LLMRequestEvent struct {
	ID           int64
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
	CostUSD      *float64
	CreatedAt    time.Time
}

// EventRepo provides append access to generator request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, ev LLMRequestEvent) error
}

var llmEventColumns = []string{
	"id", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
	"cost_usd", "created_at",
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// AppendLLMRequest implements EventRepo.
func (c *Conn) AppendLLMRequest(ctx context.Context, ev LLMRequestEvent) error {
	var cost any
	if ev.CostUSD != nil {
		cost = *ev.CostUSD
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	q, args := sqlite.Insert("llm_request_events").
		Columns(llmEventColumns[1:]...).
		Values(ev.Provider, ev.Model, ev.Purpose, ev.InputTokens, ev.OutputTokens,
			ev.LatencyMs, ev.Success, nullString(ev.ErrorMessage), nullString(ev.RequestBody),
			nullString(ev.ResponseBody), cost, formatTime(createdAt)).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// ListLLMRequests returns the most recent events, newest first.
func (c *Conn) ListLLMRequests(ctx context.Context, limit int) ([]LLMRequestEvent, error) {
	sel := sqlite.Select(llmEventColumns...).
		From(entsql.Table("llm_request_events")).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()
	return c.queryLLMRequests(ctx, q, args)
}

// GetLLMRequest returns one event by id, or ErrNotFound.
func (c *Conn) GetLLMRequest(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	q, args := sqlite.Select(llmEventColumns...).
		From(entsql.Table("llm_request_events")).
		Where(entsql.EQ("id", id)).
		Query()
	evs, err := c.queryLLMRequests(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, fmt.Errorf("llm request %d: %w", id, ErrNotFound)
	}
	return &evs[0], nil
}

func (c *Conn) queryLLMRequests(ctx context.Context, q string, args []any) ([]LLMRequestEvent, error) {
	rows, err := c.eq.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM request events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		var (
			ev                      LLMRequestEvent
			errMsg, reqBody, respBy sql.NullString
			cost                    sql.NullFloat64
			createdAt               string
		)
		if err := rows.Scan(&ev.ID, &ev.Provider, &ev.Model, &ev.Purpose, &ev.InputTokens,
			&ev.OutputTokens, &ev.LatencyMs, &ev.Success, &errMsg, &reqBody, &respBy,
			&cost, &createdAt); err != nil {
			return nil, fmt.Errorf("scan LLM request event: %w", err)
		}
		ev.ErrorMessage = errMsg.String
		ev.RequestBody = reqBody.String
		ev.ResponseBody = respBy.String
		if cost.Valid {
			ev.CostUSD = &cost.Float64
		}
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
