package items

import (
	"context"
	"fmt"
)

// Selection is the set of item ids grounding one session.
type Selection struct {
	LexicalIDs []string
	GrammarIDs []string

	// Items holds the selected items, lexical first, for prompt building.
	Items []Item
}

// All returns lexical then grammar ids.
func (s Selection) All() []string {
	out := make([]string, 0, len(s.LexicalIDs)+len(s.GrammarIDs))
	out = append(out, s.LexicalIDs...)
	return append(out, s.GrammarIDs...)
}

// Len returns the total number of selected ids.
func (s Selection) Len() int {
	return len(s.LexicalIDs) + len(s.GrammarIDs)
}

// Split returns how many items each pool contributes to a count:
// ceil(count/2) lexical, the rest grammar.
func Split(count int) (lexical, grammar int) {
	if count <= 0 {
		return 0, 0
	}
	lexical = (count + 1) / 2
	return lexical, count - lexical
}

// Selector picks the weakest, most neglected items from both pools.
type Selector struct {
	repo Repository
}

// NewSelector creates a Selector reading from repo.
func NewSelector(repo Repository) *Selector {
	return &Selector{repo: repo}
}

// Select returns up to count item ids split across the pools. A pool with
// fewer items than its share contributes what it has.
func (s *Selector) Select(ctx context.Context, count int) (Selection, error) {
	lexCount, gramCount := Split(count)

	var sel Selection
	if lexCount > 0 {
		lex, err := s.repo.QueryLowMastery(ctx, KindLexical, lexCount)
		if err != nil {
			return Selection{}, fmt.Errorf("query lexical pool: %w", err)
		}
		lex = truncate(lex, lexCount)
		sel.LexicalIDs = ids(lex)
		sel.Items = append(sel.Items, lex...)
	}
	if gramCount > 0 {
		gram, err := s.repo.QueryLowMastery(ctx, KindGrammar, gramCount)
		if err != nil {
			return Selection{}, fmt.Errorf("query grammar pool: %w", err)
		}
		gram = truncate(gram, gramCount)
		sel.GrammarIDs = ids(gram)
		sel.Items = append(sel.Items, gram...)
	}
	return sel, nil
}

func truncate(items []Item, limit int) []Item {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
