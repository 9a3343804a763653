package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/lingodrill/internal/items"
)

// ErrItemNotFound is returned when an item id does not exist.
var ErrItemNotFound = errors.New("item not found")

// PutItem inserts or replaces an item.
func (c *Conn) PutItem(ctx context.Context, it items.Item) error {
	q, args := sqlite.Insert("items").
		Columns("id", "kind", "content", "difficulty_level", "frequency_rank", "created_at").
		Values(it.ID, string(it.Kind), it.Content, nullInt(it.DifficultyLevel), nullInt(it.FrequencyRank), formatTime(it.CreatedAt)).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("put item %s: %w", it.ID, err)
	}
	return nil
}

// RecordReview sets the mastery score and last review time of an item.
func (c *Conn) RecordReview(ctx context.Context, itemID string, mastery int, reviewedAt time.Time) error {
	exists, err := c.itemExists(ctx, itemID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	q, args := sqlite.Insert("item_analytics").
		Columns("item_id", "mastery_score", "last_reviewed_at").
		Values(itemID, mastery, formatTime(reviewedAt)).
		OnConflict(
			entsql.ConflictColumns("item_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := c.exec(ctx, q, args); err != nil {
		return fmt.Errorf("record review for %s: %w", itemID, err)
	}
	return nil
}

func (c *Conn) itemExists(ctx context.Context, id string) (bool, error) {
	q, args := sqlite.Select(entsql.Count("*")).
		From(entsql.Table("items")).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := c.queryInt(ctx, q, args)
	if err != nil {
		return false, fmt.Errorf("lookup item %s: %w", id, err)
	}
	return n > 0, nil
}

// QueryLowMastery implements items.Repository. Items without analytics
// count as mastery 0; on equal mastery never-reviewed items come first
// (oldest created first), then reviewed items by oldest review.
func (c *Conn) QueryLowMastery(ctx context.Context, pool items.Kind, limit int) ([]items.Item, error) {
	cands, err := c.candidates(ctx, pool, limit)
	if err != nil {
		return nil, err
	}
	out := make([]items.Item, len(cands))
	for i, cand := range cands {
		out[i] = cand.Item
	}
	return out, nil
}

// ListCandidates returns items of a pool with their analytics, in
// selection order. limit <= 0 returns all.
func (c *Conn) ListCandidates(ctx context.Context, pool items.Kind, limit int) ([]items.Candidate, error) {
	return c.candidates(ctx, pool, limit)
}

func (c *Conn) candidates(ctx context.Context, pool items.Kind, limit int) ([]items.Candidate, error) {
	it := entsql.Table("items").As("i")
	an := entsql.Table("item_analytics").As("a")

	sel := sqlite.Select(
		it.C("id"), it.C("kind"), it.C("content"),
		it.C("difficulty_level"), it.C("frequency_rank"), it.C("created_at"),
		an.C("mastery_score"), an.C("last_reviewed_at"),
	).
		From(it).
		LeftJoin(an).On(it.C("id"), an.C("item_id")).
		Where(entsql.EQ(it.C("kind"), string(pool))).
		OrderExpr(
			entsql.Expr("COALESCE(a.mastery_score, 0) ASC"),
			entsql.Expr("a.last_reviewed_at IS NOT NULL ASC"),
			entsql.Expr("COALESCE(a.last_reviewed_at, i.created_at) ASC"),
			entsql.Expr("i.id ASC"),
		)
	if limit > 0 {
		sel.Limit(limit)
	}

	q, args := sel.Query()
	rows, err := c.eq.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s pool: %w", pool, err)
	}
	defer rows.Close()

	var out []items.Candidate
	for rows.Next() {
		var (
			cand             items.Candidate
			kind, createdAt  string
			difficulty, rank sql.NullInt64
			mastery          sql.NullInt64
			lastReviewed     sql.NullString
		)
		if err := rows.Scan(&cand.Item.ID, &kind, &cand.Item.Content, &difficulty, &rank, &createdAt, &mastery, &lastReviewed); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		cand.Item.Kind = items.Kind(kind)
		cand.Item.DifficultyLevel = int(difficulty.Int64)
		cand.Item.FrequencyRank = int(rank.Int64)
		if cand.Item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		cand.Analytics.ItemID = cand.Item.ID
		cand.Analytics.MasteryScore = int(mastery.Int64)
		if cand.Analytics.LastReviewedAt, err = parseNullTime(lastReviewed); err != nil {
			return nil, err
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}
