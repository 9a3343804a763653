package questiongen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingodrill/internal/items"
	"github.com/abhisek/lingodrill/internal/llm"
	"github.com/abhisek/lingodrill/internal/question"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testGate() *Gate {
	g := NewGate()
	g.now = func() time.Time { return fixedNow }
	n := 0
	g.newID = func() string {
		n++
		return fmt.Sprintf("q-%02d", n)
	}
	return g
}

// oneOfEach has one valid question per type, in declaration order.
var oneOfEach = []string{
	`{"questionType":"lexical_fix","context":"Fix the word","difficultyLevel":2,"relatedItemIds":["lex-1"],
	  "sentence":"I has a cat","incorrectWord":"has","correctWord":"have"}`,
	`{"questionType":"grammar_transformation","context":"Make it passive","difficultyLevel":4,
	  "originalSentence":"He ate the cake.","correctAnswer":"The cake was eaten by him."}`,
	`{"questionType":"sentence_puzzle","context":"Order the words","difficultyLevel":1,
	  "words":["here","She","is"],"correctSentence":"She is here"}`,
	`{"questionType":"translate","context":"Translate","difficultyLevel":3,
	  "sourceText":"Buenos días","correctTranslation":"Good morning"}`,
	`{"questionType":"reverse_translation","context":"Translate back","difficultyLevel":3,
	  "sourceText":"Good night","correctTranslation":"Buenas noches"}`,
	`{"questionType":"gap_fill","context":"Fill the gaps","difficultyLevel":2,
	  "sentence":"He ___ to work and ___ coffee.",
	  "gaps":[{"index":4,"correctAnswer":"buys"},{"index":1,"correctAnswer":"goes"}]}`,
	`{"questionType":"choice_one","context":"Pick one","difficultyLevel":2,
	  "prompt":"Past of go?","options":[{"id":"a","text":"goed"},{"id":"b","text":"went"}],"correctOptionId":"b"}`,
	`{"questionType":"choice_multi","context":"Pick all verbs","difficultyLevel":5,
	  "prompt":"Verbs?","options":[{"id":"a","text":"run"},{"id":"b","text":"table"},{"id":"c","text":"sing"}],
	  "correctOptionIds":["a","c"]}`,
	`{"questionType":"matching","context":"Match","difficultyLevel":2,
	  "leftItems":[{"id":"l1","text":"dog"},{"id":"l2","text":"cat"}],
	  "rightItems":[{"id":"r1","text":"perro"},{"id":"r2","text":"gato"}],
	  "correctPairs":[{"leftId":"l1","rightId":"r1"},{"leftId":"l2","rightId":"r2"}]}`,
	`{"questionType":"true_false","context":"True or false","difficultyLevel":1,
	  "statement":"Cats bark.","correctAnswer":false}`,
}

func batch(elems ...string) string {
	return `{"questions":[` + strings.Join(elems, ",") + `]}`
}

func withElem(i int, elem string) []string {
	out := append([]string(nil), oneOfEach...)
	out[i] = elem
	return out
}

func validationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.ErrorIs(t, err, ErrFieldValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	return verr
}

func TestAccept_AllTypes(t *testing.T) {
	qs, err := testGate().Accept(batch(oneOfEach...), []string{"lex-1", "gram-1"})
	require.NoError(t, err)
	require.Len(t, qs, 10)

	for i, q := range qs {
		assert.Equal(t, question.AllTypes[i], q.Type(), "question %d", i)
		assert.Equal(t, fmt.Sprintf("q-%02d", i+1), q.ID)
		assert.Equal(t, fixedNow, q.CreatedAt)
		assert.Equal(t, question.TimeLimitSeconds(q.Type(), q.DifficultyLevel), q.TimeLimitSeconds)
		assert.Equal(t, question.NewScoreBand(q.DifficultyLevel), q.ScoreBand)
	}

	// The first question names a selected item; the rest fall back to all.
	assert.Equal(t, []string{"lex-1"}, qs[0].RelatedItemIDs)
	assert.Equal(t, []string{"lex-1", "gram-1"}, qs[1].RelatedItemIDs)

	// Translation family doubles the per-difficulty time.
	assert.Equal(t, 30+3*5*2, qs[3].TimeLimitSeconds)
	assert.Equal(t, 30+2*5, qs[0].TimeLimitSeconds)
}

func TestAccept_GapIndexesNormalized(t *testing.T) {
	qs, err := testGate().Accept(batch(oneOfEach[5]), nil)
	require.NoError(t, err)

	gf, ok := qs[0].Body.(question.GapFill)
	require.True(t, ok)
	require.Len(t, gf.Gaps, 2)
	assert.Equal(t, 0, gf.Gaps[0].Index)
	assert.Equal(t, "goes", gf.Gaps[0].CorrectAnswer)
	assert.Equal(t, 1, gf.Gaps[1].Index)
	assert.Equal(t, "buys", gf.Gaps[1].CorrectAnswer)
}

func TestAccept_OneBadElementRejectsBatch(t *testing.T) {
	// Element 7 lacks difficultyLevel.
	bad := `{"questionType":"choice_multi","context":"Pick all verbs",
	  "prompt":"Verbs?","options":[{"id":"a","text":"run"},{"id":"b","text":"sing"}],
	  "correctOptionIds":["a","b"]}`

	qs, err := testGate().Accept(batch(withElem(7, bad)...), nil)
	assert.Nil(t, qs)

	verr := validationError(t, err)
	assert.Equal(t, 10, verr.Total)
	require.Len(t, verr.Failures, 1)
	assert.Equal(t, 7, verr.Failures[0].Index)
	assert.Equal(t, "difficultyLevel", verr.Failures[0].Field)
	assert.Equal(t, []int{7}, verr.Indexes())
}

func TestAccept_ReportsEveryFailure(t *testing.T) {
	elems := withElem(0, `{"questionType":"lexical_fix","context":" ","difficultyLevel":11,
	  "sentence":"I has a cat","incorrectWord":"has","correctWord":"have"}`)
	elems[9] = `{"questionType":"true_false","context":"T/F","difficultyLevel":1,"statement":"Cats bark."}`

	_, err := testGate().Accept(batch(elems...), nil)
	verr := validationError(t, err)

	fields := map[string]int{}
	for _, f := range verr.Failures {
		fields[f.Field] = f.Index
	}
	assert.Equal(t, map[string]int{"context": 0, "difficultyLevel": 0, "correctAnswer": 9}, fields)
	assert.Equal(t, []int{0, 9}, verr.Indexes())
}

func TestAccept_FieldChecks(t *testing.T) {
	tests := []struct {
		name  string
		elem  string
		field string
	}{
		{"unknown type",
			`{"questionType":"essay","context":"x","difficultyLevel":1}`, "questionType"},
		{"difficulty as string",
			`{"questionType":"true_false","context":"x","difficultyLevel":"3","statement":"s","correctAnswer":true}`, "difficultyLevel"},
		{"difficulty zero",
			`{"questionType":"true_false","context":"x","difficultyLevel":0,"statement":"s","correctAnswer":true}`, "difficultyLevel"},
		{"blank option text",
			`{"questionType":"choice_one","context":"x","difficultyLevel":1,"prompt":"p",
			  "options":[{"id":"a","text":"one"},{"id":"b","text":""}],"correctOptionId":"a"}`, "options[1].text"},
		{"correct option not offered",
			`{"questionType":"choice_one","context":"x","difficultyLevel":1,"prompt":"p",
			  "options":[{"id":"a","text":"one"}],"correctOptionId":"z"}`, "correctOptionId"},
		{"duplicate option id",
			`{"questionType":"choice_one","context":"x","difficultyLevel":1,"prompt":"p",
			  "options":[{"id":"a","text":"one"},{"id":"a","text":"two"}],"correctOptionId":"a"}`, "options"},
		{"multi id not offered",
			`{"questionType":"choice_multi","context":"x","difficultyLevel":1,"prompt":"p",
			  "options":[{"id":"a","text":"one"}],"correctOptionIds":["a","q"]}`, "correctOptionIds[1]"},
		{"multi duplicate answers",
			`{"questionType":"choice_multi","context":"x","difficultyLevel":1,"prompt":"p",
			  "options":[{"id":"a","text":"one"}],"correctOptionIds":["a","a"]}`, "correctOptionIds"},
		{"pair names missing right item",
			`{"questionType":"matching","context":"x","difficultyLevel":1,
			  "leftItems":[{"id":"l1","text":"a"}],"rightItems":[{"id":"r1","text":"b"}],
			  "correctPairs":[{"leftId":"l1","rightId":"r9"}]}`, "correctPairs[0].rightId"},
		{"duplicate gap index",
			`{"questionType":"gap_fill","context":"x","difficultyLevel":1,"sentence":"___ ___",
			  "gaps":[{"index":0,"correctAnswer":"a"},{"index":0,"correctAnswer":"b"}]}`, "gaps[1].index"},
		{"puzzle with one word",
			`{"questionType":"sentence_puzzle","context":"x","difficultyLevel":1,"words":["Hi"],"correctSentence":"Hi"}`, "words"},
		{"missing gaps",
			`{"questionType":"gap_fill","context":"x","difficultyLevel":1,"sentence":"___"}`, "gaps"},
		{"not an object", `"lexical_fix"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testGate().Accept(batch(tt.elem), nil)
			verr := validationError(t, err)
			require.NotEmpty(t, verr.Failures)

			var fields []string
			for _, f := range verr.Failures {
				assert.Equal(t, 0, f.Index)
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestAccept_PayloadErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"no json", "Sorry, I cannot help with that.", ErrMalformedPayload},
		{"broken json", `{"questions": [ {"questionType": }`, ErrMalformedPayload},
		{"missing questions", `{"items": []}`, ErrEmptyPayload},
		{"empty questions", `{"questions": []}`, ErrEmptyPayload},
		{"questions not array", `{"questions": {}}`, ErrEmptyPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := testGate().Accept(tt.raw, nil)
			assert.Nil(t, qs)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAccept_ProseAroundJSON(t *testing.T) {
	raw := "Here are your questions:\n```json\n" + batch(oneOfEach[9]) + "\n```\nGood luck!"
	qs, err := testGate().Accept(raw, nil)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, question.TypeTrueFalse, qs[0].Type())
}

func TestGenerate(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: batch(oneOfEach[0], oneOfEach[6])})
	gen := New(mock, DefaultConfig())
	gen.gate = testGate()

	sel := items.Selection{
		LexicalIDs: []string{"lex-1"},
		GrammarIDs: []string{"gram-1"},
		Items: []items.Item{
			{ID: "lex-1", Kind: items.KindLexical, Content: "have"},
			{ID: "gram-1", Kind: items.KindGrammar, Content: "past simple"},
		},
	}
	qs, err := gen.Generate(context.Background(), sel, 2)
	require.NoError(t, err)
	assert.Len(t, qs, 2)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, systemPrompt, req.System)
	assert.Contains(t, req.Prompt, "Write 2 questions.")
	assert.Contains(t, req.Prompt, "- lex-1 (lexical): have")
	assert.Contains(t, req.Prompt, "- gram-1 (grammar): past simple")
}

func TestGenerate_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{RetryAfter: time.Second}})
	_, err := New(mock, DefaultConfig()).Generate(context.Background(), items.Selection{}, 3)

	var rl *llm.ErrRateLimit
	assert.ErrorAs(t, err, &rl)
}

func TestGenerate_InvalidCount(t *testing.T) {
	mock := llm.NewMockProvider()
	_, err := New(mock, DefaultConfig()).Generate(context.Background(), items.Selection{}, 0)
	assert.Error(t, err)
	assert.Equal(t, 0, mock.CallCount())
}
