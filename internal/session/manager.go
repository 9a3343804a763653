package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/lingodrill/internal/evaluate"
	"github.com/abhisek/lingodrill/internal/metrics"
	"github.com/abhisek/lingodrill/internal/question"
	"github.com/abhisek/lingodrill/internal/store"
)

const (
	// DefaultMaxPending is the default cap on live pending sessions.
	DefaultMaxPending = 3

	// DefaultTTL is how long a new session stays answerable.
	DefaultTTL = 24 * time.Hour

	// QuestionRetention is how long questions are kept after creation.
	QuestionRetention = 30 * 24 * time.Hour

	defaultCacheTTL = 7 * 24 * time.Hour
)

// Options configures a Manager. Zero values take the defaults above.
type Options struct {
	MaxPending int
	TTL        time.Duration

	// Cache is an optional local copy of session and answer-history blobs.
	Cache    *store.Cache
	CacheTTL time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Manager owns session state. The relational store is authoritative; the
// optional cache is reconciled against it on every read.
type Manager struct {
	store      *store.Store
	cache      *store.Cache
	maxPending int
	ttl        time.Duration
	cacheTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewManager creates a Manager over st.
func NewManager(st *store.Store, opts Options) *Manager {
	m := &Manager{
		store:      st,
		cache:      opts.Cache,
		maxPending: opts.MaxPending,
		ttl:        opts.TTL,
		cacheTTL:   opts.CacheTTL,
		logger:     opts.Logger,
		now:        opts.Now,
		newID:      uuid.NewString,
	}
	if m.maxPending <= 0 {
		m.maxPending = DefaultMaxPending
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.cacheTTL <= 0 {
		m.cacheTTL = defaultCacheTTL
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// MaxPending returns the configured pending-session cap.
func (m *Manager) MaxPending() int {
	return m.maxPending
}

// PendingCount returns how many sessions are pending and not yet expired.
func (m *Manager) PendingCount(ctx context.Context) (int, error) {
	return m.store.CountPending(ctx, m.now().UTC())
}

// Create persists a pending session holding qs. A ttl <= 0 uses the
// configured default. The capacity check and both writes share one
// transaction, so a refused or failed create leaves nothing behind.
func (m *Manager) Create(ctx context.Context, qs []question.Question, ttl time.Duration) (*Session, error) {
	if len(qs) == 0 {
		return nil, errors.New("a session needs at least one question")
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	now := m.now().UTC()
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	s := Session{
		ID:              m.newID(),
		Status:          StatusPending,
		QuestionIDs:     ids,
		DifficultyLevel: question.MeanDifficulty(qs),
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
		UpdatedAt:       now,
	}

	err := m.store.InTx(ctx, func(c *store.Conn) error {
		pending, err := c.CountPending(ctx, now)
		if err != nil {
			return err
		}
		if pending >= m.maxPending {
			return fmt.Errorf("%w: %d of %d pending", ErrCapacityExceeded, pending, m.maxPending)
		}
		if err := c.InsertSession(ctx, s.record()); err != nil {
			return err
		}
		return c.InsertQuestions(ctx, s.ID, qs)
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionTransitions.WithLabelValues(string(StatusPending)).Inc()
	m.logger.Info("session created", "session_id", s.ID, "questions", len(qs), "expires_at", s.ExpiresAt)
	m.cacheSession(s)
	return &s, nil
}

// Get returns a session as of now. An overdue pending or active session is
// moved to expired before it is returned.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := m.store.InTx(ctx, func(c *store.Conn) error {
		var err error
		s, err = m.load(ctx, c, id, m.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	m.cacheSession(s)
	return &s, nil
}

// Start moves a pending session to active. Starting an active session is
// a no-op.
func (m *Manager) Start(ctx context.Context, id string) (*Session, error) {
	var s Session
	var rejected error
	err := m.store.InTx(ctx, func(c *store.Conn) error {
		now := m.now().UTC()
		var err error
		if s, err = m.load(ctx, c, id, now); err != nil {
			return err
		}
		switch s.Status {
		case StatusActive:
			return nil
		case StatusPending:
			next := s
			next.Status = StatusActive
			next.StartedAt = &now
			next.UpdatedAt = now
			if err := m.persist(ctx, c, next, s.Status); err != nil {
				return err
			}
			s = next
			return nil
		}
		rejected = fmt.Errorf("start session %s: %w (%s)", id, ErrSessionClosed, s.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.cacheSession(s)
	if rejected != nil {
		return &s, rejected
	}
	return &s, nil
}

// Complete submits an active session explicitly, whether or not every
// question was answered.
func (m *Manager) Complete(ctx context.Context, id string) (*Session, error) {
	var s Session
	var rejected error
	err := m.store.InTx(ctx, func(c *store.Conn) error {
		now := m.now().UTC()
		var err error
		if s, err = m.load(ctx, c, id, now); err != nil {
			return err
		}
		switch s.Status {
		case StatusActive:
			s, err = m.complete(ctx, c, s, s.Status, now)
			return err
		case StatusPending:
			rejected = fmt.Errorf("complete session %s: %w: pending sessions must be started first", id, ErrInvalidTransition)
		default:
			rejected = fmt.Errorf("complete session %s: %w (%s)", id, ErrSessionClosed, s.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.cacheSession(s)
	if rejected != nil {
		return &s, rejected
	}
	return &s, nil
}

// Submission is one answer to a question of a session.
type Submission struct {
	SessionID  string
	QuestionID string
	Answer     json.RawMessage
	Elapsed    time.Duration
}

// Submitted is the outcome of a recorded answer.
type Submitted struct {
	Answer  Answer
	Session Session
}

// SubmitAnswer evaluates and records an answer. The first answer to a
// question wins; later ones fail with *StaleWriteError and change nothing.
// The first answer starts a pending session and the last one completes it.
func (m *Manager) SubmitAnswer(ctx context.Context, sub Submission) (*Submitted, error) {
	if sub.Elapsed < 0 {
		return nil, fmt.Errorf("negative elapsed time %s", sub.Elapsed)
	}

	var out Submitted
	var history []store.AnswerRecord
	var rejected error
	err := m.store.InTx(ctx, func(c *store.Conn) error {
		now := m.now().UTC()
		s, err := m.load(ctx, c, sub.SessionID, now)
		if err != nil {
			return err
		}
		out.Session = s
		if s.Status.Terminal() {
			// Keep a lazy expiry done by load.
			rejected = fmt.Errorf("answer session %s: %w (%s)", s.ID, ErrSessionClosed, s.Status)
			return nil
		}
		if !s.HasQuestion(sub.QuestionID) {
			return fmt.Errorf("question %s in session %s: %w", sub.QuestionID, s.ID, ErrNotFound)
		}

		if prev, err := c.GetAnswer(ctx, s.ID, sub.QuestionID); err == nil {
			return staleWrite(*prev)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		q, err := c.GetQuestion(ctx, sub.QuestionID, now.Add(-QuestionRetention))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("question %s: %w", sub.QuestionID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		res, err := evaluate.Evaluate(*q, sub.Answer, sub.Elapsed)
		if err != nil {
			return err
		}
		a := Answer{
			SessionID:        s.ID,
			QuestionID:       sub.QuestionID,
			UserAnswer:       sub.Answer,
			IsCorrect:        res.Correct,
			Points:           res.Points,
			TimeTakenSeconds: sub.Elapsed.Seconds(),
			AnsweredAt:       now,
		}
		inserted, err := c.InsertAnswer(ctx, a.record())
		if err != nil {
			return err
		}
		if !inserted {
			prev, err := c.GetAnswer(ctx, s.ID, sub.QuestionID)
			if err != nil {
				return err
			}
			return staleWrite(*prev)
		}
		out.Answer = a

		if history, err = c.SessionAnswers(ctx, s.ID); err != nil {
			return err
		}

		next := s
		next.UpdatedAt = now
		if next.Status == StatusPending {
			next.Status = StatusActive
			next.StartedAt = &now
		}
		if len(history) >= len(s.QuestionIDs) {
			out.Session, err = m.complete(ctx, c, next, s.Status, now)
			return err
		}
		if err := m.persist(ctx, c, next, s.Status); err != nil {
			return err
		}
		out.Session = next
		return nil
	})

	if rejected != nil {
		m.cacheSession(out.Session)
		return nil, rejected
	}
	if err != nil {
		if errors.Is(err, ErrStaleWrite) {
			metrics.AnswersRecorded.WithLabelValues("stale").Inc()
		}
		return nil, err
	}

	result := "incorrect"
	if out.Answer.IsCorrect {
		result = "correct"
	}
	metrics.AnswersRecorded.WithLabelValues(result).Inc()
	m.logger.Debug("answer recorded",
		"session_id", sub.SessionID, "question_id", sub.QuestionID,
		"correct", out.Answer.IsCorrect, "points", out.Answer.Points)

	m.cacheSession(out.Session)
	m.cacheAnswers(sub.SessionID, history)
	return &out, nil
}

// List returns sessions newest first, as of now. An empty status matches
// all; limit <= 0 returns all.
func (m *Manager) List(ctx context.Context, status Status, limit int) ([]Session, error) {
	recs, err := m.store.ListSessions(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	var out []Session
	for _, rec := range recs {
		s := fromRecord(rec).At(now)
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Questions returns the questions of a session still inside the retention
// window, in session order.
func (m *Manager) Questions(ctx context.Context, id string) ([]question.Question, error) {
	rec, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	qs, err := m.store.SessionQuestions(ctx, id, m.now().UTC().Add(-QuestionRetention))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]question.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	out := make([]question.Question, 0, len(qs))
	for _, qid := range rec.QuestionIDs {
		if q, ok := byID[qid]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// Question returns one question of a session.
func (m *Manager) Question(ctx context.Context, sessionID, questionID string) (*question.Question, error) {
	rec, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, notFound(err)
	}
	if !fromRecord(*rec).HasQuestion(questionID) {
		return nil, fmt.Errorf("question %s in session %s: %w", questionID, sessionID, ErrNotFound)
	}
	q, err := m.store.GetQuestion(ctx, questionID, m.now().UTC().Add(-QuestionRetention))
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

// Answers returns the recorded answers of a session.
func (m *Manager) Answers(ctx context.Context, id string) ([]Answer, error) {
	if cached, ok := m.cachedAnswers(ctx, id); ok {
		return cached, nil
	}
	recs, err := m.store.SessionAnswers(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]Answer, len(recs))
	for i, r := range recs {
		out[i] = answerFromRecord(r)
	}
	return out, nil
}

// load reads a session inside a transaction, reconciles it with the cache
// and applies lazy expiry.
func (m *Manager) load(ctx context.Context, c *store.Conn, id string, now time.Time) (Session, error) {
	rec, err := c.GetSession(ctx, id)
	if err != nil {
		return Session{}, notFound(err)
	}
	durable := fromRecord(*rec)

	s := durable
	if cached, ok := m.cachedSession(id); ok {
		merged := Reconcile(durable, cached)
		if merged.Status == durable.Status || canTransition(durable.Status, merged.Status) {
			s = merged
		}
	}
	if s.Status != durable.Status {
		m.logger.Info("adopting cached session state", "session_id", id, "stored", durable.Status, "cached", s.Status)
		if s.Status == StatusCompleted {
			if s, err = m.complete(ctx, c, s, durable.Status, *completedAt(s, now)); err != nil {
				return Session{}, err
			}
		} else if err := m.persist(ctx, c, s, durable.Status); err != nil {
			return Session{}, err
		}
	}

	if view := s.At(now); view.Status != s.Status {
		view.UpdatedAt = now
		if err := m.persist(ctx, c, view, s.Status); err != nil {
			return Session{}, err
		}
		m.logger.Info("session expired", "session_id", id, "expired_at", s.ExpiresAt)
		s = view
	}
	return s, nil
}

// complete moves s to completed and archives its result.
func (m *Manager) complete(ctx context.Context, c *store.Conn, s Session, from Status, now time.Time) (Session, error) {
	s.Status = StatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
	if err := m.persist(ctx, c, s, from); err != nil {
		return Session{}, err
	}

	answers, err := c.SessionAnswers(ctx, s.ID)
	if err != nil {
		return Session{}, err
	}
	result := store.SessionResult{
		SessionID:       s.ID,
		TotalQuestions:  len(s.QuestionIDs),
		Answered:        len(answers),
		DifficultyLevel: s.DifficultyLevel,
		CompletedAt:     now,
	}
	for _, a := range answers {
		if a.IsCorrect {
			result.Correct++
		}
		result.Score += a.Points
	}
	if err := c.ArchiveResult(ctx, result); err != nil {
		return Session{}, err
	}
	m.logger.Info("session completed", "session_id", s.ID,
		"answered", result.Answered, "correct", result.Correct, "score", result.Score)
	return s, nil
}

// persist writes a transition, refusing it when the stored status is no
// longer from.
func (m *Manager) persist(ctx context.Context, c *store.Conn, s Session, from Status) error {
	ok, err := c.UpdateSessionState(ctx, s.record(), string(from))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: session %s is no longer %s", ErrInvalidTransition, s.ID, from)
	}
	metrics.SessionTransitions.WithLabelValues(string(s.Status)).Inc()
	return nil
}

func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusCompleted || to == StatusExpired
	case StatusActive:
		return to == StatusCompleted || to == StatusExpired
	}
	return false
}

func completedAt(s Session, now time.Time) *time.Time {
	if s.CompletedAt != nil {
		return s.CompletedAt
	}
	return &now
}

func staleWrite(prev store.AnswerRecord) error {
	return &StaleWriteError{
		SessionID:  prev.SessionID,
		QuestionID: prev.QuestionID,
		Existing:   answerFromRecord(prev),
	}
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
