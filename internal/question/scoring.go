package question

import "time"

// ScoreBand holds the points awarded for a correct answer, indexed by how
// much of the time limit was used: <30%, <50%, <70%, <85%, <100%, >=100%.
type ScoreBand [6]int

// bandThresholds are the upper bounds (exclusive) of the first five bands,
// as fractions of the time limit.
var bandThresholds = [5]float64{0.30, 0.50, 0.70, 0.85, 1.00}

// TimeLimitSeconds derives the answer time budget for a question.
func TimeLimitSeconds(t Type, difficulty int) int {
	multiplier := 1
	if t.TranslationFamily() {
		multiplier = 2
	}
	return 30 + difficulty*5*multiplier
}

// NewScoreBand derives the six-band score table for a difficulty level.
func NewScoreBand(difficulty int) ScoreBand {
	base := difficulty * 10
	return ScoreBand{base + 20, base + 15, base + 10, base + 5, base, base / 2}
}

// BandIndex returns which band an elapsed time falls into for the given
// time limit. A non-positive limit always lands in the last band.
func BandIndex(elapsed time.Duration, limitSeconds int) int {
	if limitSeconds <= 0 {
		return len(bandThresholds)
	}
	ratio := elapsed.Seconds() / float64(limitSeconds)
	for i, upper := range bandThresholds {
		if ratio < upper {
			return i
		}
	}
	return len(bandThresholds)
}

// Points returns the score for a correct answer given the elapsed time.
func (b ScoreBand) Points(elapsed time.Duration, limitSeconds int) int {
	return b[BandIndex(elapsed, limitSeconds)]
}

// Stamp fills the derived fields of q from its type and difficulty.
func Stamp(q *Question) {
	q.TimeLimitSeconds = TimeLimitSeconds(q.Type(), q.DifficultyLevel)
	q.ScoreBand = NewScoreBand(q.DifficultyLevel)
}
