package questiongen

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"

	"github.com/abhisek/lingodrill/internal/question"
)

// header holds the fields every generated question must carry. Pointers
// tell a missing field apart from a zero value.
type header struct {
	QuestionType    *string  `json:"questionType" validate:"required,oneof=lexical_fix grammar_transformation sentence_puzzle translate reverse_translation gap_fill choice_one choice_multi matching true_false"`
	Context         *string  `json:"context" validate:"required,notblank"`
	DifficultyLevel *int     `json:"difficultyLevel" validate:"required,min=1,max=10"`
	RelatedItemIDs  []string `json:"relatedItemIds"`
}

// Gate turns untrusted generator output into questions. A batch is
// accepted whole or rejected whole.
type Gate struct {
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// NewGate creates a Gate stamping questions with the current time.
func NewGate() *Gate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	return &Gate{
		validate: v,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Accept parses raw generator output and returns the stamped questions.
// relatedItemIDs are the items the batch was generated for.
//
// Errors: ErrMalformedPayload when no JSON object can be extracted,
// ErrEmptyPayload when it has no questions, and *ValidationError listing
// every failing field when any element is invalid.
func (g *Gate) Accept(raw string, relatedItemIDs []string) ([]question.Question, error) {
	span, err := extractObject(raw)
	if err != nil {
		return nil, err
	}
	elems, err := splitQuestions(span)
	if err != nil {
		return nil, err
	}

	type parsed struct {
		h    header
		body question.Body
	}
	accepted := make([]parsed, len(elems))
	var failures []FieldFailure

	for i, elem := range elems {
		h, body, errs := g.check(elem)
		for _, f := range errs {
			f.Index = i
			failures = append(failures, f)
		}
		accepted[i] = parsed{h: h, body: body}
	}
	if len(failures) > 0 {
		return nil, &ValidationError{Total: len(elems), Failures: failures}
	}

	now := g.now().UTC()
	out := make([]question.Question, len(accepted))
	for i, p := range accepted {
		q := question.Question{
			ID:              g.newID(),
			Context:         strings.TrimSpace(*p.h.Context),
			DifficultyLevel: *p.h.DifficultyLevel,
			RelatedItemIDs:  relatedFor(p.h.RelatedItemIDs, relatedItemIDs),
			CreatedAt:       now,
			Body:            normalize(p.body),
		}
		question.Stamp(&q)
		out[i] = q
	}
	return out, nil
}

// check validates one element and returns its header and body. Only the
// first failure per field is reported.
func (g *Gate) check(elem json.RawMessage) (header, question.Body, []FieldFailure) {
	var h header
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(elem, &obj); err != nil {
		return h, nil, []FieldFailure{{Reason: "must be a JSON object"}}
	}

	var fails failureSet
	fails.addDecode(json.Unmarshal(elem, &h))
	fails.addValidation(g.validate.Struct(h))

	if h.QuestionType == nil || !question.Type(*h.QuestionType).Valid() {
		return h, nil, fails.list
	}
	t := question.Type(*h.QuestionType)

	ptr, err := question.NewBody(t)
	if err != nil {
		fails.add("questionType", err.Error())
		return h, nil, fails.list
	}
	fails.addDecode(json.Unmarshal(elem, ptr))
	fails.addValidation(g.validate.Struct(ptr))

	body := question.Deref(ptr)
	if _, ok := obj["correctAnswer"]; !ok && t == question.TypeTrueFalse {
		fails.add("correctAnswer", "is required")
	}
	for _, f := range crossCheck(body) {
		fails.add(f.Field, f.Reason)
	}
	return h, body, fails.list
}

// crossCheck enforces rules that span several fields of a body.
func crossCheck(body question.Body) []FieldFailure {
	var out []FieldFailure
	fail := func(field, format string, args ...any) {
		out = append(out, FieldFailure{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	switch b := body.(type) {
	case question.ChoiceOne:
		ids, dup := optionIDs(b.Options)
		if dup != "" {
			fail("options", "duplicate option id %q", dup)
		}
		if b.CorrectOptionID != "" && !ids[b.CorrectOptionID] {
			fail("correctOptionId", "%q does not match any option id", b.CorrectOptionID)
		}
	case question.ChoiceMulti:
		ids, dup := optionIDs(b.Options)
		if dup != "" {
			fail("options", "duplicate option id %q", dup)
		}
		for i, id := range b.CorrectOptionIDs {
			if id != "" && !ids[id] {
				fail(fmt.Sprintf("correctOptionIds[%d]", i), "%q does not match any option id", id)
			}
		}
	case question.Matching:
		left, dup := optionIDs(b.LeftItems)
		if dup != "" {
			fail("leftItems", "duplicate id %q", dup)
		}
		right, dup := optionIDs(b.RightItems)
		if dup != "" {
			fail("rightItems", "duplicate id %q", dup)
		}
		paired := make(map[string]bool)
		for i, p := range b.CorrectPairs {
			if p.LeftID != "" && !left[p.LeftID] {
				fail(fmt.Sprintf("correctPairs[%d].leftId", i), "%q does not match any left item", p.LeftID)
			}
			if p.RightID != "" && !right[p.RightID] {
				fail(fmt.Sprintf("correctPairs[%d].rightId", i), "%q does not match any right item", p.RightID)
			}
			if paired[p.LeftID] {
				fail(fmt.Sprintf("correctPairs[%d].leftId", i), "%q is paired more than once", p.LeftID)
			}
			paired[p.LeftID] = true
		}
	case question.GapFill:
		seen := make(map[int]bool)
		for i, gap := range b.Gaps {
			if seen[gap.Index] {
				fail(fmt.Sprintf("gaps[%d].index", i), "duplicate gap index %d", gap.Index)
			}
			seen[gap.Index] = true
		}
	}
	return out
}

func optionIDs(opts []question.Option) (map[string]bool, string) {
	ids := make(map[string]bool, len(opts))
	dup := ""
	for _, o := range opts {
		if ids[o.ID] && dup == "" {
			dup = o.ID
		}
		ids[o.ID] = true
	}
	return ids, dup
}

// normalize renumbers gap indexes to their positions, in declared order.
func normalize(body question.Body) question.Body {
	gf, ok := body.(question.GapFill)
	if !ok {
		return body
	}
	gaps := slices.Clone(gf.Gaps)
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].Index < gaps[j].Index })
	for i := range gaps {
		gaps[i].Index = i
	}
	gf.Gaps = gaps
	return gf
}

// relatedFor keeps the element's own item references when they name
// selected items, else falls back to the whole selection.
func relatedFor(declared, selected []string) []string {
	if len(selected) == 0 {
		return slices.Clone(declared)
	}
	var out []string
	for _, id := range declared {
		if slices.Contains(selected, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return slices.Clone(selected)
	}
	return out
}

// failureSet collects per-field failures for one element, first wins.
type failureSet struct {
	list []FieldFailure
	seen map[string]bool
}

func (s *failureSet) add(field, reason string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[field] {
		return
	}
	s.seen[field] = true
	s.list = append(s.list, FieldFailure{Field: field, Reason: reason})
}

func (s *failureSet) addDecode(err error) {
	if err == nil {
		return
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		s.add(typeErr.Field, fmt.Sprintf("has wrong type %s, want %s", typeErr.Value, jsonKind(typeErr.Type)))
		return
	}
	s.add("", err.Error())
}

func (s *failureSet) addValidation(err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		s.add("", err.Error())
		return
	}
	for _, fe := range verrs {
		s.add(fieldPath(fe.Namespace()), reason(fe))
	}
}

// fieldPath drops the Go type name validator puts at the root of a
// namespace: "ChoiceOne.options[1].id" becomes "options[1].id".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "oneof":
		return "must be a known question type"
	case "unique":
		return "must not contain duplicates"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int64, reflect.Int32:
		return "integer"
	case reflect.Float64, reflect.Float32:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	}
	return "object"
}
