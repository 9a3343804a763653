package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SessionRecord is the persisted form of a session.
type SessionRecord struct {
	ID              string
	Status          string
	QuestionIDs     []string
	DifficultyLevel float64
	CreatedAt       time.Time
	StartedAt       *time.Time
	ExpiresAt       time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

var sessionColumns = []string{
	"id", "status", "question_ids", "difficulty_level",
	"created_at", "started_at", "expires_at", "completed_at", "updated_at",
}

// InsertSession writes a new session row.
func (c *Conn) InsertSession(ctx context.Context, rec SessionRecord) error {
	ids, err := json.Marshal(rec.QuestionIDs)
	if err != nil {
		return fmt.Errorf("marshal question ids: %w", err)
	}
	q, args := sqlite.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			rec.ID, rec.Status, string(ids), rec.DifficultyLevel,
			formatTime(rec.CreatedAt), formatTimePtr(rec.StartedAt),
			formatTime(rec.ExpiresAt), formatTimePtr(rec.CompletedAt),
			formatTime(rec.UpdatedAt),
		).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("insert session %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateSessionState persists a state transition. The update only applies
// while the stored status still equals from, so two racing transitions
// cannot both win. Returns false when the row did not match.
func (c *Conn) UpdateSessionState(ctx context.Context, rec SessionRecord, from string) (bool, error) {
	q, args := sqlite.Update("sessions").
		Set("status", rec.Status).
		Set("started_at", formatTimePtr(rec.StartedAt)).
		Set("completed_at", formatTimePtr(rec.CompletedAt)).
		Set("updated_at", formatTime(rec.UpdatedAt)).
		Where(entsql.And(
			entsql.EQ("id", rec.ID),
			entsql.EQ("status", from),
		)).
		Query()
	n, err := c.exec(ctx, q, args)
	if err != nil {
		return false, fmt.Errorf("update session %s: %w", rec.ID, err)
	}
	return n == 1, nil
}

// GetSession returns the session with the given id, or ErrNotFound.
func (c *Conn) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	q, args := sqlite.Select(sessionColumns...).
		From(entsql.Table("sessions")).
		Where(entsql.EQ("id", id)).
		Query()
	recs, err := c.querySessions(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return &recs[0], nil
}

// ListSessions returns sessions newest first. An empty status matches all.
// limit <= 0 returns all.
func (c *Conn) ListSessions(ctx context.Context, status string, limit int) ([]SessionRecord, error) {
	sel := sqlite.Select(sessionColumns...).
		From(entsql.Table("sessions")).
		OrderBy(entsql.Desc("created_at"), entsql.Asc("id"))
	if status != "" {
		sel.Where(entsql.EQ("status", status))
	}
	if limit > 0 {
		sel.Limit(limit)
	}
	q, args := sel.Query()
	return c.querySessions(ctx, q, args)
}

// CountPending returns the number of sessions stored as pending whose
// expiry is still in the future at now.
func (c *Conn) CountPending(ctx context.Context, now time.Time) (int, error) {
	q, args := sqlite.Select(entsql.Count("*")).
		From(entsql.Table("sessions")).
		Where(entsql.And(
			entsql.EQ("status", "pending"),
			entsql.GT("expires_at", formatTime(now)),
		)).
		Query()
	n, err := c.queryInt(ctx, q, args)
	if err != nil {
		return 0, fmt.Errorf("count pending sessions: %w", err)
	}
	return n, nil
}

func (c *Conn) querySessions(ctx context.Context, q string, args []any) ([]SessionRecord, error) {
	rows, err := c.eq.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec                               SessionRecord
			ids, createdAt, expiresAt, update string
			startedAt, completedAt            sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Status, &ids, &rec.DifficultyLevel,
			&createdAt, &startedAt, &expiresAt, &completedAt, &update); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &rec.QuestionIDs); err != nil {
			return nil, fmt.Errorf("decode question ids of %s: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if rec.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, err
		}
		if rec.UpdatedAt, err = parseTime(update); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = parseNullTime(startedAt); err != nil {
			return nil, err
		}
		if rec.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
