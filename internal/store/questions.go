package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingodrill/internal/question"
)

// InsertQuestions writes the questions of a session.
func (c *Conn) InsertQuestions(ctx context.Context, sessionID string, qs []question.Question) error {
	if len(qs) == 0 {
		return nil
	}
	ins := sqlite.Insert("questions").
		Columns("id", "session_id", "question_type", "difficulty_level", "body", "created_at")
	for _, q := range qs {
		body, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		ins.Values(q.ID, sessionID, string(q.Type()), q.DifficultyLevel, string(body), formatTime(q.CreatedAt))
	}
	stmt, args := ins.Query()
	if _, err := c.exec(ctx, stmt, args); err != nil {
		return fmt.Errorf("insert questions of %s: %w", sessionID, err)
	}
	return nil
}

// SessionQuestions returns the questions of a session created at or after
// notBefore. Older questions are treated as gone even before the retention
// sweep removes them.
func (c *Conn) SessionQuestions(ctx context.Context, sessionID string, notBefore time.Time) ([]question.Question, error) {
	q, args := sqlite.Select("body").
		From(entsql.Table("questions")).
		Where(entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.GTE("created_at", formatTime(notBefore)),
		)).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).
		Query()
	return c.queryQuestions(ctx, q, args)
}

// GetQuestion returns a question created at or after notBefore, or
// ErrNotFound.
func (c *Conn) GetQuestion(ctx context.Context, id string, notBefore time.Time) (*question.Question, error) {
	q, args := sqlite.Select("body").
		From(entsql.Table("questions")).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.GTE("created_at", formatTime(notBefore)),
		)).
		Query()
	qs, err := c.queryQuestions(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return &qs[0], nil
}

func (c *Conn) queryQuestions(ctx context.Context, q string, args []any) ([]question.Question, error) {
	rows, err := c.eq.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []question.Question
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var qn question.Question
		if err := json.Unmarshal([]byte(body), &qn); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		out = append(out, qn)
	}
	return out, rows.Err()
}
