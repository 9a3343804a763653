package items

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestSplit(t *testing.T) {
	for count := 0; count <= 51; count++ {
		lex, gram := Split(count)
		wantLex := (count + 1) / 2
		if lex != wantLex {
			t.Errorf("Split(%d) lexical = %d, want %d", count, lex, wantLex)
		}
		if lex+gram != count {
			t.Errorf("Split(%d) = %d + %d, does not sum to count", count, lex, gram)
		}
	}
}

func seedPool(repo *MemoryRepository, kind Kind, n int) {
	for i := 0; i < n; i++ {
		repo.Put(Item{
			ID:        fmt.Sprintf("%s-%02d", kind, i),
			Kind:      kind,
			Content:   "x",
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestSelect_SplitAndTruncate(t *testing.T) {
	repo := NewMemoryRepository()
	seedPool(repo, KindLexical, 20)
	seedPool(repo, KindGrammar, 20)
	sel := NewSelector(repo)

	for _, count := range []int{1, 5, 10, 11, 25} {
		got, err := sel.Select(context.Background(), count)
		if err != nil {
			t.Fatalf("Select(%d): %v", count, err)
		}
		wantLex, wantGram := Split(count)
		if len(got.LexicalIDs) != wantLex || len(got.GrammarIDs) != wantGram {
			t.Errorf("Select(%d) = %d lexical, %d grammar; want %d, %d",
				count, len(got.LexicalIDs), len(got.GrammarIDs), wantLex, wantGram)
		}
		if got.Len() != count {
			t.Errorf("Select(%d).Len() = %d", count, got.Len())
		}
	}
}

func TestSelect_ShortPoolReturnsWhatExists(t *testing.T) {
	repo := NewMemoryRepository()
	seedPool(repo, KindLexical, 2)
	seedPool(repo, KindGrammar, 10)

	got, err := NewSelector(repo).Select(context.Background(), 10)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got.LexicalIDs) != 2 {
		t.Errorf("lexical = %d, want 2", len(got.LexicalIDs))
	}
	if len(got.GrammarIDs) != 5 {
		t.Errorf("grammar = %d, want 5", len(got.GrammarIDs))
	}
}

func TestSelect_LowerMasteryFirst(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(Item{ID: "strong", Kind: KindLexical, CreatedAt: baseTime})
	repo.Put(Item{ID: "weak", Kind: KindLexical, CreatedAt: baseTime})
	repo.SetAnalytics(Analytics{ItemID: "strong", MasteryScore: 40, LastReviewedAt: ptr(baseTime)})
	repo.SetAnalytics(Analytics{ItemID: "weak", MasteryScore: 10, LastReviewedAt: ptr(baseTime)})

	got, err := NewSelector(repo).Select(context.Background(), 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got.LexicalIDs) != 1 || got.LexicalIDs[0] != "weak" {
		t.Errorf("LexicalIDs = %v, want [weak]", got.LexicalIDs)
	}
}

func TestSelect_NeverReviewedBeforeReviewed(t *testing.T) {
	repo := NewMemoryRepository()
	// The never-reviewed item was created after the other was last reviewed.
	repo.Put(Item{ID: "reviewed", Kind: KindGrammar, CreatedAt: baseTime.AddDate(0, 0, -30)})
	repo.Put(Item{ID: "unseen", Kind: KindGrammar, CreatedAt: baseTime.AddDate(0, 0, -1)})
	repo.SetAnalytics(Analytics{ItemID: "reviewed", MasteryScore: 20, LastReviewedAt: ptr(baseTime.AddDate(0, 0, -3))})
	repo.SetAnalytics(Analytics{ItemID: "unseen", MasteryScore: 20})

	items, err := repo.QueryLowMastery(context.Background(), KindGrammar, 2)
	if err != nil {
		t.Fatalf("QueryLowMastery: %v", err)
	}
	if items[0].ID != "unseen" || items[1].ID != "reviewed" {
		t.Errorf("order = [%s %s], want [unseen reviewed]", items[0].ID, items[1].ID)
	}
}

func TestSelect_MissingAnalyticsIsZeroMastery(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(Item{ID: "scored", Kind: KindLexical, CreatedAt: baseTime})
	repo.Put(Item{ID: "bare", Kind: KindLexical, CreatedAt: baseTime.Add(time.Hour)})
	repo.SetAnalytics(Analytics{ItemID: "scored", MasteryScore: 5, LastReviewedAt: ptr(baseTime)})

	items, _ := repo.QueryLowMastery(context.Background(), KindLexical, 10)
	if items[0].ID != "bare" {
		t.Errorf("first = %s, want bare", items[0].ID)
	}
}

func TestLess_OlderReviewFirst(t *testing.T) {
	older := Candidate{Item: Item{ID: "b"}, Analytics: Analytics{MasteryScore: 50, LastReviewedAt: ptr(baseTime.AddDate(0, 0, -10))}}
	newer := Candidate{Item: Item{ID: "a"}, Analytics: Analytics{MasteryScore: 50, LastReviewedAt: ptr(baseTime)}}
	if !Less(older, newer) {
		t.Error("older review should sort first")
	}
	if Less(newer, older) {
		t.Error("Less is not antisymmetric")
	}
}

type failingRepo struct{}

func (failingRepo) QueryLowMastery(context.Context, Kind, int) ([]Item, error) {
	return nil, errors.New("connection refused")
}

func TestSelect_RepositoryError(t *testing.T) {
	_, err := NewSelector(failingRepo{}).Select(context.Background(), 4)
	if err == nil {
		t.Fatal("expected error")
	}
}
