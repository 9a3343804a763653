package session

import (
	"context"
	"errors"

	"github.com/abhisek/lingodrill/internal/question"
	"github.com/abhisek/lingodrill/internal/store"
)

// QuestionResult is one row of a session summary.
type QuestionResult struct {
	QuestionID string
	Type       question.Type // empty once the question has been purged
	Answered   bool
	Correct    bool
	Points     int
	MaxPoints  int
}

// Summary holds what the summary view displays.
type Summary struct {
	Session        Session
	Questions      []QuestionResult
	TotalQuestions int
	Answered       int
	Correct        int
	Score          int
	MaxScore       int
	Accuracy       float64 // correct over answered, 0 when nothing answered

	// Archived is the stored result of a completed session, if any.
	Archived *store.SessionResult
}

// Summarize builds the summary of a session as of now.
func (m *Manager) Summarize(ctx context.Context, id string) (*Summary, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	qs, err := m.Questions(ctx, id)
	if err != nil {
		return nil, err
	}
	answers, err := m.Answers(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := BuildSummary(*s, qs, answers)

	res, err := m.store.GetResult(ctx, id)
	switch {
	case err == nil:
		sum.Archived = res
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return sum, nil
}

// BuildSummary lays out one row per question id of s, in session order.
func BuildSummary(s Session, qs []question.Question, answers []Answer) *Summary {
	byID := make(map[string]question.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	answered := make(map[string]Answer, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = a
	}

	sum := &Summary{Session: s, TotalQuestions: len(s.QuestionIDs)}
	for _, id := range s.QuestionIDs {
		row := QuestionResult{QuestionID: id}
		if q, ok := byID[id]; ok {
			row.Type = q.Type()
			row.MaxPoints = q.ScoreBand[0]
		}
		if a, ok := answered[id]; ok {
			row.Answered = true
			row.Correct = a.IsCorrect
			row.Points = a.Points
			sum.Answered++
			if a.IsCorrect {
				sum.Correct++
			}
			sum.Score += a.Points
		}
		sum.MaxScore += row.MaxPoints
		sum.Questions = append(sum.Questions, row)
	}
	if sum.Answered > 0 {
		sum.Accuracy = float64(sum.Correct) / float64(sum.Answered)
	}
	return sum
}
