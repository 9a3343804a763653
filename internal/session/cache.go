package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/abhisek/lingodrill/internal/store"
)

func sessionKey(id string) string { return "session:" + id }
func answersKey(id string) string { return "answers:" + id }

// Cache failures are logged and never fail the operation: the relational
// store already holds the truth.

func (m *Manager) cacheSession(s Session) {
	if m.cache == nil || s.ID == "" {
		return
	}
	blob, err := json.Marshal(s)
	if err == nil {
		err = m.cache.Set(sessionKey(s.ID), blob, m.cacheTTL)
	}
	if err != nil {
		m.logger.Warn("session cache write failed", "session_id", s.ID, "error", err)
	}
}

func (m *Manager) cachedSession(id string) (Session, bool) {
	if m.cache == nil {
		return Session{}, false
	}
	blob, err := m.cache.Get(sessionKey(id))
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			m.logger.Warn("session cache read failed", "session_id", id, "error", err)
		}
		return Session{}, false
	}
	var s Session
	if err := json.Unmarshal(blob, &s); err != nil || s.ID != id || !s.Status.Valid() {
		m.logger.Warn("discarding unreadable cached session", "session_id", id)
		m.uncache(id)
		return Session{}, false
	}
	return s, true
}

func (m *Manager) cacheAnswers(sessionID string, recs []store.AnswerRecord) {
	if m.cache == nil || len(recs) == 0 {
		return
	}
	history := make([]Answer, len(recs))
	for i, r := range recs {
		history[i] = answerFromRecord(r)
	}
	blob, err := json.Marshal(history)
	if err == nil {
		err = m.cache.Set(answersKey(sessionID), blob, m.cacheTTL)
	}
	if err != nil {
		m.logger.Warn("answer cache write failed", "session_id", sessionID, "error", err)
	}
}

// cachedAnswers serves the answer history of a completed session from the
// cache. Only a completed session's history is final, and the copy is used
// only when it holds as many answers as the archived result counted.
func (m *Manager) cachedAnswers(ctx context.Context, sessionID string) ([]Answer, bool) {
	if m.cache == nil {
		return nil, false
	}
	blob, err := m.cache.Get(answersKey(sessionID))
	if err != nil {
		return nil, false
	}
	var history []Answer
	if err := json.Unmarshal(blob, &history); err != nil {
		return nil, false
	}
	res, err := m.store.GetResult(ctx, sessionID)
	if err != nil || res.Answered != len(history) {
		return nil, false
	}
	return history, true
}

func (m *Manager) uncache(id string) {
	if m.cache == nil {
		return
	}
	for _, key := range []string{sessionKey(id), answersKey(id)} {
		if err := m.cache.Remove(key); err != nil {
			m.logger.Warn("cache remove failed", "key", key, "error", err)
		}
	}
}
