package evaluate

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/lingodrill/internal/question"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestIsCorrect(t *testing.T) {
	gapFill := question.GapFill{
		Sentence: "He ___ to work and ___ coffee.",
		Gaps: []question.Gap{
			{Index: 0, CorrectAnswer: "goes"},
			{Index: 1, CorrectAnswer: "buys", AlternativeAnswers: []string{"purchases"}},
		},
	}
	choiceMulti := question.ChoiceMulti{
		Prompt: "Which are verbs?",
		Options: []question.Option{
			{ID: "opt_m01", Text: "run"}, {ID: "opt_m02", Text: "eat"},
			{ID: "opt_m03", Text: "table"}, {ID: "opt_m04", Text: "sing"},
		},
		CorrectOptionIDs: []string{"opt_m01", "opt_m02", "opt_m04"},
	}
	matching := question.Matching{
		LeftItems:  []question.Option{{ID: "l1", Text: "dog"}, {ID: "l2", Text: "cat"}},
		RightItems: []question.Option{{ID: "r1", Text: "perro"}, {ID: "r2", Text: "gato"}},
		CorrectPairs: []question.Pair{
			{LeftID: "l1", RightID: "r1"},
			{LeftID: "l2", RightID: "r2"},
		},
	}

	tests := []struct {
		name   string
		body   question.Body
		answer string
		want   bool
	}{
		{"lexical fix exact", question.LexicalFix{Sentence: "I has a cat", IncorrectWord: "has", CorrectWord: "have"}, `"have"`, true},
		{"lexical fix case and space", question.LexicalFix{CorrectWord: "have"}, `"  HAVE "`, true},
		{"lexical fix wrong", question.LexicalFix{CorrectWord: "have"}, `"had"`, false},
		{"lexical fix empty", question.LexicalFix{CorrectWord: "have"}, `"   "`, false},

		{"grammar main answer", question.GrammarTransformation{CorrectAnswer: "The cake was eaten by him.", AlternativeAnswers: []string{"The cake was eaten."}}, `"the cake was eaten by him."`, true},
		{"grammar alternative", question.GrammarTransformation{CorrectAnswer: "The cake was eaten by him.", AlternativeAnswers: []string{"The cake was eaten."}}, `"The cake was eaten."`, true},
		{"grammar wrong", question.GrammarTransformation{CorrectAnswer: "The cake was eaten by him."}, `"He ate the cake."`, false},

		{"puzzle as string", question.SentencePuzzle{Words: []string{"is", "She", "here"}, CorrectSentence: "She is here"}, `"she is here"`, true},
		{"puzzle as words", question.SentencePuzzle{Words: []string{"is", "She", "here"}, CorrectSentence: "She is here"}, `["She", "is", " here"]`, true},
		{"puzzle wrong order", question.SentencePuzzle{Words: []string{"is", "She", "here"}, CorrectSentence: "She is here"}, `["is", "She", "here"]`, false},

		{"translate main", question.Translate{CorrectTranslation: "Good morning", AlternativeTranslations: []string{"Morning"}}, `"good morning"`, true},
		{"translate alternative", question.Translate{CorrectTranslation: "Good morning", AlternativeTranslations: []string{"Morning"}}, `" morning"`, true},
		{"reverse translation", question.ReverseTranslation{CorrectTranslation: "Buenos días"}, `"buenos DÍAS"`, true},
		{"reverse translation wrong", question.ReverseTranslation{CorrectTranslation: "Buenos días"}, `"Buenas noches"`, false},

		{"gap fill with alternative", gapFill, `{"0":"goes","1":"purchases"}`, true},
		{"gap fill as list", gapFill, `["goes", "buys"]`, true},
		{"gap fill one wrong", gapFill, `{"0":"go","1":"buys"}`, false},
		{"gap fill missing gap", gapFill, `{"0":"goes"}`, false},

		{"choice one", question.ChoiceOne{CorrectOptionID: "b"}, `"b"`, true},
		{"choice one wrong", question.ChoiceOne{CorrectOptionID: "b"}, `"a"`, false},

		{"choice multi order independent", choiceMulti, `["opt_m04","opt_m01","opt_m02"]`, true},
		{"choice multi subset", choiceMulti, `["opt_m01","opt_m02"]`, false},
		{"choice multi superset", choiceMulti, `["opt_m01","opt_m02","opt_m03","opt_m04"]`, false},

		{"matching all pairs", matching, `{"l1":"r1","l2":"r2"}`, true},
		{"matching swapped", matching, `{"l1":"r2","l2":"r1"}`, false},
		{"matching partial", matching, `{"l1":"r1"}`, false},

		{"true false correct", question.TrueFalse{Statement: "Cats bark.", CorrectAnswer: false}, `false`, true},
		{"true false incorrect", question.TrueFalse{Statement: "Water is wet.", CorrectAnswer: true}, `false`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsCorrect(tt.body, raw(tt.answer))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsCorrect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsCorrect_UnreadableAnswer(t *testing.T) {
	tests := []struct {
		name   string
		body   question.Body
		answer string
	}{
		{"true false given string", question.TrueFalse{CorrectAnswer: true}, `"true"`},
		{"choice multi given string", question.ChoiceMulti{CorrectOptionIDs: []string{"a"}}, `"a"`},
		{"gap fill bad key", question.GapFill{Gaps: []question.Gap{{CorrectAnswer: "x"}}}, `{"first":"x"}`},
		{"translate given number", question.Translate{CorrectTranslation: "one"}, `1`},
		{"true false null", question.TrueFalse{CorrectAnswer: false}, `null`},
		{"choice one null", question.ChoiceOne{CorrectOptionID: ""}, `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IsCorrect(tt.body, raw(tt.answer))
			var unreadable *ErrUnreadableAnswer
			if !errors.As(err, &unreadable) {
				t.Fatalf("expected ErrUnreadableAnswer, got %v", err)
			}
			if unreadable.Type != tt.body.Type() {
				t.Errorf("Type = %s, want %s", unreadable.Type, tt.body.Type())
			}
		})
	}
}

func TestEvaluate_Scoring(t *testing.T) {
	q := question.Question{
		DifficultyLevel: 2,
		Body:            question.ChoiceOne{CorrectOptionID: "b"},
	}
	question.Stamp(&q) // limit 40s, band {40,35,30,25,20,10}

	tests := []struct {
		name    string
		answer  string
		elapsed time.Duration
		want    Result
	}{
		{"fast correct", `"b"`, 5 * time.Second, Result{Correct: true, Points: 40}},
		{"mid correct", `"b"`, 25 * time.Second, Result{Correct: true, Points: 30}},
		{"late correct", `"b"`, 39 * time.Second, Result{Correct: true, Points: 20}},
		{"overtime correct", `"b"`, 2 * time.Minute, Result{Correct: true, Points: 10}},
		{"fast incorrect", `"a"`, time.Second, Result{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(q, raw(tt.answer), tt.elapsed)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate = %+v, want %+v", got, tt.want)
			}
		})
	}
}
