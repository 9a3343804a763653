package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// SessionResult is the archived summary of a completed session. It
// outlives the session's questions and answers.
type SessionResult struct {
	SessionID       string
	TotalQuestions  int
	Answered        int
	Correct         int
	Score           int
	DifficultyLevel float64
	CompletedAt     time.Time
}

// ArchiveResult records a completed session's summary. The first archive
// of a session wins.
func (c *Conn) ArchiveResult(ctx context.Context, r SessionResult) error {
	q, args := sqlite.Insert("session_results").
		Columns("session_id", "total_questions", "answered", "correct", "score", "difficulty_level", "completed_at").
		Values(r.SessionID, r.TotalQuestions, r.Answered, r.Correct, r.Score, r.DifficultyLevel, formatTime(r.CompletedAt)).
		OnConflict(
			entsql.ConflictColumns("session_id"),
			entsql.DoNothing(),
		).
		Query()
	if _, err := c.Execute(ctx, q, args...); err != nil {
		return fmt.Errorf("archive session %s: %w", r.SessionID, err)
	}
	return nil
}

// GetResult returns the archived summary of a session, or ErrNotFound.
func (c *Conn) GetResult(ctx context.Context, sessionID string) (*SessionResult, error) {
	q, args := sqlite.Select("session_id", "total_questions", "answered", "correct", "score", "difficulty_level", "completed_at").
		From(entsql.Table("session_results")).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	res, err := c.Execute(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", sessionID, err)
	}
	if res.RowCount == 0 {
		return nil, fmt.Errorf("result %s: %w", sessionID, ErrNotFound)
	}
	row := res.Rows[0]
	completedAt, err := parseTime(asString(row["completed_at"]))
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		SessionID:       asString(row["session_id"]),
		TotalQuestions:  asInt(row["total_questions"]),
		Answered:        asInt(row["answered"]),
		Correct:         asInt(row["correct"]),
		Score:           asInt(row["score"]),
		DifficultyLevel: asFloat(row["difficulty_level"]),
		CompletedAt:     completedAt,
	}, nil
}

// SweepStats reports what one retention sweep changed.
type SweepStats struct {
	Expired         int64 // sessions flipped to expired
	PurgedSessions  int64
	PurgedQuestions int64
}

// Sweep applies the retention policy at now:
//   - pending and active sessions past their expiry are marked expired
//   - pending and expired sessions past their expiry are deleted, with
//     their questions and answers
//   - questions created before questionCutoff are deleted whatever the
//     status of their session
//
// Completed sessions and archived results are never touched.
func (c *Conn) Sweep(ctx context.Context, now, questionCutoff time.Time) (SweepStats, error) {
	var stats SweepStats
	nowStr := formatTime(now)

	q, args := sqlite.Update("sessions").
		Set("status", "expired").
		Set("updated_at", nowStr).
		Where(entsql.And(
			entsql.In("status", "pending", "active"),
			entsql.LTE("expires_at", nowStr),
		)).
		Query()
	res, err := c.Execute(ctx, q, args...)
	if err != nil {
		return stats, fmt.Errorf("expire sessions: %w", err)
	}
	stats.Expired = res.RowCount

	q, args = sqlite.Delete("sessions").
		Where(entsql.And(
			entsql.In("status", "pending", "expired"),
			entsql.LTE("expires_at", nowStr),
		)).
		Query()
	if res, err = c.Execute(ctx, q, args...); err != nil {
		return stats, fmt.Errorf("purge sessions: %w", err)
	}
	stats.PurgedSessions = res.RowCount

	q, args = sqlite.Delete("questions").
		Where(entsql.LT("created_at", formatTime(questionCutoff))).
		Query()
	if res, err = c.Execute(ctx, q, args...); err != nil {
		return stats, fmt.Errorf("purge questions: %w", err)
	}
	stats.PurgedQuestions = res.RowCount

	return stats, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
