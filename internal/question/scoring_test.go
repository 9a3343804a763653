package question

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimeLimitSeconds(t *testing.T) {
	tests := []struct {
		typ        Type
		difficulty int
		want       int
	}{
		{TypeChoiceOne, 1, 35},
		{TypeChoiceOne, 10, 80},
		{TypeTranslate, 4, 70},
		{TypeReverseTranslation, 10, 130},
		{TypeGrammarTransformation, 2, 50},
		{TypeGapFill, 5, 55},
	}
	for _, tt := range tests {
		if got := TimeLimitSeconds(tt.typ, tt.difficulty); got != tt.want {
			t.Errorf("TimeLimitSeconds(%s, %d) = %d, want %d", tt.typ, tt.difficulty, got, tt.want)
		}
	}
}

func TestNewScoreBand(t *testing.T) {
	got := NewScoreBand(3)
	want := ScoreBand{50, 45, 40, 35, 30, 15}
	if got != want {
		t.Errorf("NewScoreBand(3) = %v, want %v", got, want)
	}

	// Odd base halves with floor.
	if b := NewScoreBand(1); b[5] != 5 {
		t.Errorf("NewScoreBand(1)[5] = %d, want 5", b[5])
	}
}

func TestBandIndex(t *testing.T) {
	limit := 100
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{29 * time.Second, 0},
		{30 * time.Second, 1},
		{49 * time.Second, 1},
		{50 * time.Second, 2},
		{69 * time.Second, 2},
		{70 * time.Second, 3},
		{84 * time.Second, 3},
		{85 * time.Second, 4},
		{99 * time.Second, 4},
		{100 * time.Second, 5},
		{10 * time.Minute, 5},
	}
	for _, tt := range tests {
		if got := BandIndex(tt.elapsed, limit); got != tt.want {
			t.Errorf("BandIndex(%s) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}

	if got := BandIndex(time.Second, 0); got != 5 {
		t.Errorf("BandIndex with zero limit = %d, want 5", got)
	}
}

func TestStamp(t *testing.T) {
	q := Question{DifficultyLevel: 2, Body: Translate{SourceText: "hola", CorrectTranslation: "hello"}}
	Stamp(&q)
	if q.TimeLimitSeconds != 50 {
		t.Errorf("TimeLimitSeconds = %d, want 50", q.TimeLimitSeconds)
	}
	if q.ScoreBand[0] != 40 {
		t.Errorf("ScoreBand[0] = %d, want 40", q.ScoreBand[0])
	}
}

func TestQuestionJSON_Flat(t *testing.T) {
	q := Question{
		ID:              "q1",
		Context:         "Pick the right word",
		DifficultyLevel: 4,
		RelatedItemIDs:  []string{"lex-1"},
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Body: ChoiceOne{
			Prompt:          "She ___ to school.",
			Options:         []Option{{ID: "a", Text: "go"}, {ID: "b", Text: "goes"}},
			CorrectOptionID: "b",
		},
	}
	Stamp(&q)

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if flat["questionType"] != "choice_one" {
		t.Errorf("questionType = %v", flat["questionType"])
	}
	if flat["correctOptionId"] != "b" {
		t.Errorf("correctOptionId = %v, want b at top level", flat["correctOptionId"])
	}

	var back Question
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	body, ok := back.Body.(ChoiceOne)
	if !ok {
		t.Fatalf("body type = %T, want ChoiceOne", back.Body)
	}
	if body.CorrectOptionID != "b" || len(body.Options) != 2 {
		t.Errorf("unexpected body: %+v", body)
	}
	if back.ScoreBand != q.ScoreBand {
		t.Errorf("score band lost: %v", back.ScoreBand)
	}
}

func TestTypeValid(t *testing.T) {
	for _, typ := range AllTypes {
		if !typ.Valid() {
			t.Errorf("%s should be valid", typ)
		}
		body, err := NewBody(typ)
		if err != nil {
			t.Fatalf("NewBody(%s): %v", typ, err)
		}
		if Deref(body).Type() != typ {
			t.Errorf("body for %s reports %s", typ, Deref(body).Type())
		}
	}
	if Type("essay").Valid() {
		t.Error("essay should not be valid")
	}
}

func TestMeanDifficulty(t *testing.T) {
	qs := []Question{{DifficultyLevel: 2}, {DifficultyLevel: 5}}
	if got := MeanDifficulty(qs); got != 3.5 {
		t.Errorf("MeanDifficulty = %v, want 3.5", got)
	}
	if MeanDifficulty(nil) != 0 {
		t.Error("MeanDifficulty(nil) should be 0")
	}
}
