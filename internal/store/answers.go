package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// AnswerRecord is a stored answer to one question of a session.
type AnswerRecord struct {
	SessionID        string
	QuestionID       string
	UserAnswer       json.RawMessage
	IsCorrect        bool
	Points           int
	TimeTakenSeconds float64
	AnsweredAt       time.Time
}

var answerColumns = []string{
	"session_id", "question_id", "user_answer", "is_correct",
	"points", "time_taken_seconds", "answered_at",
}

// InsertAnswer stores an answer unless one already exists for the same
// session and question. Returns false when an earlier answer was kept.
func (c *Conn) InsertAnswer(ctx context.Context, a AnswerRecord) (bool, error) {
	q, args := sqlite.Insert("answers").
		Columns(answerColumns...).
		Values(a.SessionID, a.QuestionID, string(a.UserAnswer), a.IsCorrect,
			a.Points, a.TimeTakenSeconds, formatTime(a.AnsweredAt)).
		OnConflict(
			entsql.ConflictColumns("session_id", "question_id"),
			entsql.DoNothing(),
		).
		Query()
	n, err := c.exec(ctx, q, args)
	if err != nil {
		return false, fmt.Errorf("insert answer %s/%s: %w", a.SessionID, a.QuestionID, err)
	}
	return n == 1, nil
}

// GetAnswer returns the answer for a session and question, or ErrNotFound.
func (c *Conn) GetAnswer(ctx context.Context, sessionID, questionID string) (*AnswerRecord, error) {
	q, args := sqlite.Select(answerColumns...).
		From(entsql.Table("answers")).
		Where(entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.EQ("question_id", questionID),
		)).
		Query()
	as, err := c.queryAnswers(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(as) == 0 {
		return nil, fmt.Errorf("answer %s/%s: %w", sessionID, questionID, ErrNotFound)
	}
	return &as[0], nil
}

// SessionAnswers returns all answers of a session in the order given.
func (c *Conn) SessionAnswers(ctx context.Context, sessionID string) ([]AnswerRecord, error) {
	q, args := sqlite.Select(answerColumns...).
		From(entsql.Table("answers")).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Asc("id")).
		Query()
	return c.queryAnswers(ctx, q, args)
}

func (c *Conn) queryAnswers(ctx context.Context, q string, args []any) ([]AnswerRecord, error) {
	rows, err := c.eq.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []AnswerRecord
	for rows.Next() {
		var (
			a                  AnswerRecord
			answer, answeredAt string
		)
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &answer, &a.IsCorrect,
			&a.Points, &a.TimeTakenSeconds, &answeredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.UserAnswer = json.RawMessage(answer)
		if a.AnsweredAt, err = parseTime(answeredAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
