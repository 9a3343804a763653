// Package session manages practice sessions from creation through
// completion or expiry, and records the answers given to their questions.
package session

import (
	"encoding/json"
	"time"

	"github.com/abhisek/lingodrill/internal/store"
)

// Status is a session state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Session is a time-boxed bundle of questions. QuestionIDs is fixed at
// creation.
type Session struct {
	ID              string     `json:"id"`
	Status          Status     `json:"status"`
	QuestionIDs     []string   `json:"questionIds"`
	DifficultyLevel float64    `json:"difficultyLevel"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// At returns s as seen at now: a pending or active session whose expiry
// has passed reads as expired whatever its stored status.
func (s Session) At(now time.Time) Session {
	if !s.Status.Terminal() && !now.Before(s.ExpiresAt) {
		s.Status = StatusExpired
	}
	return s
}

// HasQuestion reports whether id belongs to the session.
func (s Session) HasQuestion(id string) bool {
	for _, q := range s.QuestionIDs {
		if q == id {
			return true
		}
	}
	return false
}

// Reconcile picks one of two copies of the same session. A completed copy
// wins; otherwise the more recently updated one does, and a tie keeps a.
// The chosen copy is returned whole, fields are never mixed.
func Reconcile(a, b Session) Session {
	aDone, bDone := a.Status == StatusCompleted, b.Status == StatusCompleted
	if aDone != bDone {
		if aDone {
			return a
		}
		return b
	}
	if b.UpdatedAt.After(a.UpdatedAt) {
		return b
	}
	return a
}

// Answer is a recorded answer to one question of a session.
type Answer struct {
	SessionID        string          `json:"sessionId"`
	QuestionID       string          `json:"questionId"`
	UserAnswer       json.RawMessage `json:"userAnswer"`
	IsCorrect        bool            `json:"isCorrect"`
	Points           int             `json:"points"`
	TimeTakenSeconds float64         `json:"timeTakenSeconds"`
	AnsweredAt       time.Time       `json:"answeredAt"`
}

func fromRecord(rec store.SessionRecord) Session {
	return Session{
		ID:              rec.ID,
		Status:          Status(rec.Status),
		QuestionIDs:     rec.QuestionIDs,
		DifficultyLevel: rec.DifficultyLevel,
		CreatedAt:       rec.CreatedAt,
		StartedAt:       rec.StartedAt,
		ExpiresAt:       rec.ExpiresAt,
		CompletedAt:     rec.CompletedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func (s Session) record() store.SessionRecord {
	return store.SessionRecord{
		ID:              s.ID,
		Status:          string(s.Status),
		QuestionIDs:     s.QuestionIDs,
		DifficultyLevel: s.DifficultyLevel,
		CreatedAt:       s.CreatedAt,
		StartedAt:       s.StartedAt,
		ExpiresAt:       s.ExpiresAt,
		CompletedAt:     s.CompletedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func answerFromRecord(rec store.AnswerRecord) Answer {
	return Answer{
		SessionID:        rec.SessionID,
		QuestionID:       rec.QuestionID,
		UserAnswer:       rec.UserAnswer,
		IsCorrect:        rec.IsCorrect,
		Points:           rec.Points,
		TimeTakenSeconds: rec.TimeTakenSeconds,
		AnsweredAt:       rec.AnsweredAt,
	}
}

func (a Answer) record() store.AnswerRecord {
	return store.AnswerRecord{
		SessionID:        a.SessionID,
		QuestionID:       a.QuestionID,
		UserAnswer:       a.UserAnswer,
		IsCorrect:        a.IsCorrect,
		Points:           a.Points,
		TimeTakenSeconds: a.TimeTakenSeconds,
		AnsweredAt:       a.AnsweredAt,
	}
}
