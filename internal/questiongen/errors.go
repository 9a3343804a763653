package questiongen

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedPayload means no parsable JSON object was found in the
	// generator output.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrEmptyPayload means the object had no non-empty questions array.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrFieldValidation is matched by every *ValidationError.
	ErrFieldValidation = errors.New("field validation failed")
)

// FieldFailure is one reason a generated question was rejected.
type FieldFailure struct {
	Index  int    // position in the questions array
	Field  string // JSON path within the question, empty for the whole element
	Reason string
}

func (f FieldFailure) String() string {
	if f.Field == "" {
		return fmt.Sprintf("[%d] %s", f.Index, f.Reason)
	}
	return fmt.Sprintf("[%d] %s: %s", f.Index, f.Field, f.Reason)
}

// ValidationError rejects a whole generated batch. It lists every failure
// found, across all elements.
type ValidationError struct {
	Total    int // number of elements in the rejected batch
	Failures []FieldFailure
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("generated batch of %d rejected, %d failure(s): %s",
		e.Total, len(e.Failures), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrFieldValidation
}

// Indexes returns the distinct element indexes that failed, ascending.
func (e *ValidationError) Indexes() []int {
	var out []int
	seen := make(map[int]bool)
	for _, f := range e.Failures {
		if !seen[f.Index] {
			seen[f.Index] = true
			out = append(out, f.Index)
		}
	}
	return out
}
