package items

import (
	"context"
	"time"
)

// Kind names an item pool.
type Kind string

const (
	KindLexical Kind = "lexical"
	KindGrammar Kind = "grammar"
)

// Valid reports whether k is a known pool.
func (k Kind) Valid() bool {
	return k == KindLexical || k == KindGrammar
}

// Item is a lexical or grammar unit eligible for practice. Items are owned
// by the authoring side and are read-only to the practice engine.
type Item struct {
	ID              string
	Kind            Kind
	Content         string
	DifficultyLevel int // 0 when unset, otherwise 1-10
	FrequencyRank   int // 0 when unset, otherwise 1-10
	CreatedAt       time.Time
}

// Analytics is the per-item review state read by the selector.
type Analytics struct {
	ItemID         string
	MasteryScore   int        // 0-100
	LastReviewedAt *time.Time // nil when never reviewed
}

// Candidate is an item joined with its analytics, the unit the selector
// orders. Items without an analytics row have a zero Analytics.
type Candidate struct {
	Item      Item
	Analytics Analytics
}

// Repository is read access to both item pools.
type Repository interface {
	// QueryLowMastery returns up to limit items of the pool, weakest and
	// most neglected first (see Less).
	QueryLowMastery(ctx context.Context, pool Kind, limit int) ([]Item, error)
}

// Less orders candidates for practice: lower mastery first; on equal
// mastery never-reviewed items come first (oldest created first), then
// reviewed items by oldest review. IDs break any remaining tie.
func Less(a, b Candidate) bool {
	if a.Analytics.MasteryScore != b.Analytics.MasteryScore {
		return a.Analytics.MasteryScore < b.Analytics.MasteryScore
	}
	aSeen, bSeen := a.Analytics.LastReviewedAt != nil, b.Analytics.LastReviewedAt != nil
	if aSeen != bSeen {
		return !aSeen
	}
	aT, bT := staleness(a), staleness(b)
	if !aT.Equal(bT) {
		return aT.Before(bT)
	}
	return a.Item.ID < b.Item.ID
}

// staleness is the reference time for tie-breaking: the last review when
// there is one, else the item's creation time.
func staleness(c Candidate) time.Time {
	if c.Analytics.LastReviewedAt != nil {
		return *c.Analytics.LastReviewedAt
	}
	return c.Item.CreatedAt
}
