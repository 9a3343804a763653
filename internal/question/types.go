package question

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies one of the ten exercise formats.
type Type string

const (
	TypeLexicalFix            Type = "lexical_fix"
	TypeGrammarTransformation Type = "grammar_transformation"
	TypeSentencePuzzle        Type = "sentence_puzzle"
	TypeTranslate             Type = "translate"
	TypeReverseTranslation    Type = "reverse_translation"
	TypeGapFill               Type = "gap_fill"
	TypeChoiceOne             Type = "choice_one"
	TypeChoiceMulti           Type = "choice_multi"
	TypeMatching              Type = "matching"
	TypeTrueFalse             Type = "true_false"
)

// AllTypes lists every question type in a stable order.
var AllTypes = []Type{
	TypeLexicalFix,
	TypeGrammarTransformation,
	TypeSentencePuzzle,
	TypeTranslate,
	TypeReverseTranslation,
	TypeGapFill,
	TypeChoiceOne,
	TypeChoiceMulti,
	TypeMatching,
	TypeTrueFalse,
}

// Valid reports whether t is one of the known question types.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TranslationFamily reports whether answering t means producing a whole
// sentence in another form. These types get double the time budget.
func (t Type) TranslationFamily() bool {
	switch t {
	case TypeTranslate, TypeReverseTranslation, TypeGrammarTransformation:
		return true
	}
	return false
}

// Question is an immutable generated exercise. The variant-specific part
// lives in Body; Type() is derived from it.
type Question struct {
	ID               string
	Context          string
	DifficultyLevel  int
	RelatedItemIDs   []string
	CreatedAt        time.Time
	TimeLimitSeconds int
	ScoreBand        ScoreBand
	Body             Body
}

// Type returns the question type carried by the body.
func (q Question) Type() Type {
	if q.Body == nil {
		return ""
	}
	return q.Body.Type()
}

// Body is the variant-specific payload of a Question. The set of
// implementations is closed to this package.
type Body interface {
	Type() Type
	isBody()
}

// Option is a selectable entry in choice and matching questions.
type Option struct {
	ID   string `json:"id" validate:"notblank"`
	Text string `json:"text" validate:"notblank"`
}

// LexicalFix asks the learner to replace a wrong word in a sentence.
type LexicalFix struct {
	Sentence      string `json:"sentence" validate:"notblank"`
	IncorrectWord string `json:"incorrectWord" validate:"notblank"`
	CorrectWord   string `json:"correctWord" validate:"notblank"`
}

// GrammarTransformation asks for a sentence rewritten per an instruction.
type GrammarTransformation struct {
	OriginalSentence   string   `json:"originalSentence" validate:"notblank"`
	CorrectAnswer      string   `json:"correctAnswer" validate:"notblank"`
	AlternativeAnswers []string `json:"alternativeAnswers,omitempty"`
}

// SentencePuzzle asks the learner to assemble scrambled words.
type SentencePuzzle struct {
	Words           []string `json:"words" validate:"required,min=2,dive,notblank"`
	CorrectSentence string   `json:"correctSentence" validate:"notblank"`
}

// Translate asks for a translation into the target language.
type Translate struct {
	SourceText              string   `json:"sourceText" validate:"notblank"`
	CorrectTranslation      string   `json:"correctTranslation" validate:"notblank"`
	AlternativeTranslations []string `json:"alternativeTranslations,omitempty"`
}

// ReverseTranslation asks for a translation back into the learner's language.
type ReverseTranslation struct {
	SourceText              string   `json:"sourceText" validate:"notblank"`
	CorrectTranslation      string   `json:"correctTranslation" validate:"notblank"`
	AlternativeTranslations []string `json:"alternativeTranslations,omitempty"`
}

// Gap is one blank in a GapFill sentence.
type Gap struct {
	Index              int      `json:"index" validate:"min=0"`
	CorrectAnswer      string   `json:"correctAnswer" validate:"notblank"`
	AlternativeAnswers []string `json:"alternativeAnswers,omitempty"`
}

// GapFill asks for every blank in a sentence to be filled.
type GapFill struct {
	Sentence string `json:"sentence" validate:"notblank"`
	Gaps     []Gap  `json:"gaps" validate:"required,min=1,dive"`
}

// ChoiceOne is a single-answer multiple choice question.
type ChoiceOne struct {
	Prompt          string   `json:"prompt" validate:"notblank"`
	Options         []Option `json:"options" validate:"required,min=1,dive"`
	CorrectOptionID string   `json:"correctOptionId" validate:"notblank"`
}

// ChoiceMulti is a multiple choice question with several correct options.
type ChoiceMulti struct {
	Prompt           string   `json:"prompt" validate:"notblank"`
	Options          []Option `json:"options" validate:"required,min=1,dive"`
	CorrectOptionIDs []string `json:"correctOptionIds" validate:"required,min=1,unique,dive,notblank"`
}

// Pair links a left item to a right item in a Matching question.
type Pair struct {
	LeftID  string `json:"leftId" validate:"notblank"`
	RightID string `json:"rightId" validate:"notblank"`
}

// Matching asks the learner to pair left items with right items.
type Matching struct {
	LeftItems    []Option `json:"leftItems" validate:"required,min=1,dive"`
	RightItems   []Option `json:"rightItems" validate:"required,min=1,dive"`
	CorrectPairs []Pair   `json:"correctPairs" validate:"required,min=1,dive"`
}

// TrueFalse asks whether a statement holds.
type TrueFalse struct {
	Statement     string `json:"statement" validate:"notblank"`
	CorrectAnswer bool   `json:"correctAnswer"`
}

func (LexicalFix) Type() Type            { return TypeLexicalFix }
func (GrammarTransformation) Type() Type { return TypeGrammarTransformation }
func (SentencePuzzle) Type() Type        { return TypeSentencePuzzle }
func (Translate) Type() Type             { return TypeTranslate }
func (ReverseTranslation) Type() Type    { return TypeReverseTranslation }
func (GapFill) Type() Type               { return TypeGapFill }
func (ChoiceOne) Type() Type             { return TypeChoiceOne }
func (ChoiceMulti) Type() Type           { return TypeChoiceMulti }
func (Matching) Type() Type              { return TypeMatching }
func (TrueFalse) Type() Type             { return TypeTrueFalse }

func (LexicalFix) isBody()            {}
func (GrammarTransformation) isBody() {}
func (SentencePuzzle) isBody()        {}
func (Translate) isBody()             {}
func (ReverseTranslation) isBody()    {}
func (GapFill) isBody()               {}
func (ChoiceOne) isBody()             {}
func (ChoiceMulti) isBody()           {}
func (Matching) isBody()              {}
func (TrueFalse) isBody()             {}

// NewBody returns a pointer to a zero body of type t, suitable for
// decoding into.
func NewBody(t Type) (Body, error) {
	switch t {
	case TypeLexicalFix:
		return &LexicalFix{}, nil
	case TypeGrammarTransformation:
		return &GrammarTransformation{}, nil
	case TypeSentencePuzzle:
		return &SentencePuzzle{}, nil
	case TypeTranslate:
		return &Translate{}, nil
	case TypeReverseTranslation:
		return &ReverseTranslation{}, nil
	case TypeGapFill:
		return &GapFill{}, nil
	case TypeChoiceOne:
		return &ChoiceOne{}, nil
	case TypeChoiceMulti:
		return &ChoiceMulti{}, nil
	case TypeMatching:
		return &Matching{}, nil
	case TypeTrueFalse:
		return &TrueFalse{}, nil
	}
	return nil, fmt.Errorf("unknown question type %q", t)
}

// DecodeBody decodes the variant fields of a flat question object.
// Unknown keys (the common fields) are ignored. The returned Body is a
// value, not a pointer.
func DecodeBody(t Type, data []byte) (Body, error) {
	ptr, err := NewBody(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("decode %s body: %w", t, err)
	}
	return Deref(ptr), nil
}

// Deref converts a pointer body produced by NewBody to its value form.
func Deref(b Body) Body {
	switch v := b.(type) {
	case *LexicalFix:
		return *v
	case *GrammarTransformation:
		return *v
	case *SentencePuzzle:
		return *v
	case *Translate:
		return *v
	case *ReverseTranslation:
		return *v
	case *GapFill:
		return *v
	case *ChoiceOne:
		return *v
	case *ChoiceMulti:
		return *v
	case *Matching:
		return *v
	case *TrueFalse:
		return *v
	}
	return b
}
