package question

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelope is the flat JSON form of a Question: the common fields plus the
// body fields side by side, the same shape the generator is asked to emit.
type envelope struct {
	ID               string    `json:"id"`
	QuestionType     Type      `json:"questionType"`
	Context          string    `json:"context"`
	DifficultyLevel  int       `json:"difficultyLevel"`
	RelatedItemIDs   []string  `json:"relatedItemIds"`
	CreatedAt        time.Time `json:"createdAt"`
	TimeLimitSeconds int       `json:"timeLimitSeconds"`
	ScoreBand        ScoreBand `json:"scoreBand"`
}

// MarshalJSON flattens the common fields and the body into one object.
func (q Question) MarshalJSON() ([]byte, error) {
	if q.Body == nil {
		return nil, fmt.Errorf("question %s has no body", q.ID)
	}
	bodyJSON, err := json.Marshal(q.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(bodyJSON, &merged); err != nil {
		return nil, fmt.Errorf("flatten body: %w", err)
	}

	common, err := json.Marshal(envelope{
		ID:               q.ID,
		QuestionType:     q.Type(),
		Context:          q.Context,
		DifficultyLevel:  q.DifficultyLevel,
		RelatedItemIDs:   q.RelatedItemIDs,
		CreatedAt:        q.CreatedAt,
		TimeLimitSeconds: q.TimeLimitSeconds,
		ScoreBand:        q.ScoreBand,
	})
	if err != nil {
		return nil, err
	}
	var commonFields map[string]json.RawMessage
	if err := json.Unmarshal(common, &commonFields); err != nil {
		return nil, err
	}
	for k, v := range commonFields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the flat form written by MarshalJSON.
func (q *Question) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	body, err := DecodeBody(env.QuestionType, data)
	if err != nil {
		return err
	}
	*q = Question{
		ID:               env.ID,
		Context:          env.Context,
		DifficultyLevel:  env.DifficultyLevel,
		RelatedItemIDs:   env.RelatedItemIDs,
		CreatedAt:        env.CreatedAt,
		TimeLimitSeconds: env.TimeLimitSeconds,
		ScoreBand:        env.ScoreBand,
		Body:             body,
	}
	return nil
}

// MeanDifficulty returns the average difficulty of qs, or 0 for none.
func MeanDifficulty(qs []Question) float64 {
	if len(qs) == 0 {
		return 0
	}
	total := 0
	for _, q := range qs {
		total += q.DifficultyLevel
	}
	return float64(total) / float64(len(qs))
}
