// Package evaluate decides whether a submitted answer is correct for each
// question type and how many points it earns.
package evaluate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/lingodrill/internal/question"
)

// ErrUnreadableAnswer is wrapped when a submitted value does not have the
// shape expected for the question type.
type ErrUnreadableAnswer struct {
	Type question.Type
	Err  error
}

func (e *ErrUnreadableAnswer) Error() string {
	return fmt.Sprintf("unreadable %s answer: %v", e.Type, e.Err)
}

func (e *ErrUnreadableAnswer) Unwrap() error { return e.Err }

// null decodes without error into most Go values, so it is rejected
// explicitly where the zero value could be a correct answer.
var errNullAnswer = errors.New("answer is null")

// Result is the outcome of evaluating one submission.
type Result struct {
	Correct bool
	Points  int
}

// Evaluate checks a serialized answer against q and scores it by elapsed time.
// Incorrect answers always score zero.
func Evaluate(q question.Question, answer json.RawMessage, elapsed time.Duration) (Result, error) {
	correct, err := IsCorrect(q.Body, answer)
	if err != nil {
		return Result{}, err
	}
	if !correct {
		return Result{}, nil
	}
	return Result{Correct: true, Points: q.ScoreBand.Points(elapsed, q.TimeLimitSeconds)}, nil
}

// IsCorrect is the correctness predicate. The expected answer shape per type:
//
//	lexical_fix, grammar_transformation, translate, reverse_translation: string
//	sentence_puzzle: string, or array of words joined by single spaces
//	gap_fill: object keyed by gap index, or array in gap order
//	choice_one: option id string
//	choice_multi: array of option ids
//	matching: object mapping left id to right id
//	true_false: boolean
func IsCorrect(body question.Body, answer json.RawMessage) (bool, error) {
	switch b := body.(type) {
	case question.LexicalFix:
		s, err := decodeString(b.Type(), answer)
		if err != nil {
			return false, err
		}
		return matchText(s, b.CorrectWord), nil

	case question.GrammarTransformation:
		s, err := decodeString(b.Type(), answer)
		if err != nil {
			return false, err
		}
		return matchText(s, b.CorrectAnswer, b.AlternativeAnswers...), nil

	case question.SentencePuzzle:
		s, err := decodeSentence(b.Type(), answer)
		if err != nil {
			return false, err
		}
		return matchText(s, b.CorrectSentence), nil

	case question.Translate:
		s, err := decodeString(b.Type(), answer)
		if err != nil {
			return false, err
		}
		return matchText(s, b.CorrectTranslation, b.AlternativeTranslations...), nil

	case question.ReverseTranslation:
		s, err := decodeString(b.Type(), answer)
		if err != nil {
			return false, err
		}
		return matchText(s, b.CorrectTranslation, b.AlternativeTranslations...), nil

	case question.GapFill:
		values, err := decodeGaps(b.Type(), answer)
		if err != nil {
			return false, err
		}
		return checkGaps(b, values), nil

	case question.ChoiceOne:
		var id *string
		if err := json.Unmarshal(answer, &id); err != nil {
			return false, &ErrUnreadableAnswer{Type: b.Type(), Err: err}
		}
		if id == nil {
			return false, &ErrUnreadableAnswer{Type: b.Type(), Err: errNullAnswer}
		}
		return *id == b.CorrectOptionID, nil

	case question.ChoiceMulti:
		var ids []string
		if err := json.Unmarshal(answer, &ids); err != nil {
			return false, &ErrUnreadableAnswer{Type: b.Type(), Err: err}
		}
		return sameSet(ids, b.CorrectOptionIDs), nil

	case question.Matching:
		var mapping map[string]string
		if err := json.Unmarshal(answer, &mapping); err != nil {
			return false, &ErrUnreadableAnswer{Type: b.Type(), Err: err}
		}
		for _, p := range b.CorrectPairs {
			if mapping[p.LeftID] != p.RightID {
				return false, nil
			}
		}
		return true, nil

	case question.TrueFalse:
		var v *bool
		if err := json.Unmarshal(answer, &v); err != nil {
			return false, &ErrUnreadableAnswer{Type: b.Type(), Err: err}
		}
		if v == nil {
			return false, &ErrUnreadableAnswer{Type: b.Type(), Err: errNullAnswer}
		}
		return *v == b.CorrectAnswer, nil
	}
	return false, fmt.Errorf("no evaluator for body %T", body)
}

// matchText compares trimmed, case-folded text against the accepted answers.
func matchText(submitted, correct string, alternatives ...string) bool {
	s := strings.TrimSpace(submitted)
	if s == "" {
		return false
	}
	if strings.EqualFold(s, strings.TrimSpace(correct)) {
		return true
	}
	for _, alt := range alternatives {
		if strings.EqualFold(s, strings.TrimSpace(alt)) {
			return true
		}
	}
	return false
}

func checkGaps(b question.GapFill, values map[int]string) bool {
	for _, gap := range b.Gaps {
		v, ok := values[gap.Index]
		if !ok {
			return false
		}
		if !matchText(v, gap.CorrectAnswer, gap.AlternativeAnswers...) {
			return false
		}
	}
	return true
}

// sameSet reports set equality, ignoring order and duplicates.
func sameSet(a, b []string) bool {
	left := make(map[string]struct{}, len(a))
	for _, v := range a {
		left[v] = struct{}{}
	}
	right := make(map[string]struct{}, len(b))
	for _, v := range b {
		right[v] = struct{}{}
	}
	if len(left) != len(right) {
		return false
	}
	for v := range left {
		if _, ok := right[v]; !ok {
			return false
		}
	}
	return true
}

func decodeString(t question.Type, answer json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(answer, &s); err != nil {
		return "", &ErrUnreadableAnswer{Type: t, Err: err}
	}
	return s, nil
}

func decodeSentence(t question.Type, answer json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(answer, &s); err == nil {
		return s, nil
	}
	var words []string
	if err := json.Unmarshal(answer, &words); err != nil {
		return "", &ErrUnreadableAnswer{Type: t, Err: err}
	}
	trimmed := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			trimmed = append(trimmed, w)
		}
	}
	return strings.Join(trimmed, " "), nil
}

func decodeGaps(t question.Type, answer json.RawMessage) (map[int]string, error) {
	var list []string
	if err := json.Unmarshal(answer, &list); err == nil {
		out := make(map[int]string, len(list))
		for i, v := range list {
			out[i] = v
		}
		return out, nil
	}

	var keyed map[string]string
	if err := json.Unmarshal(answer, &keyed); err != nil {
		return nil, &ErrUnreadableAnswer{Type: t, Err: err}
	}
	out := make(map[int]string, len(keyed))
	for k, v := range keyed {
		idx, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, &ErrUnreadableAnswer{Type: t, Err: fmt.Errorf("gap key %q is not an index", k)}
		}
		out[idx] = v
	}
	return out, nil
}
