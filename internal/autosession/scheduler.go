// Package autosession generates practice sessions in the background on a
// fixed interval and runs the retention sweep.
package autosession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/abhisek/lingodrill/internal/items"
	"github.com/abhisek/lingodrill/internal/llm"
	"github.com/abhisek/lingodrill/internal/metrics"
	"github.com/abhisek/lingodrill/internal/question"
	"github.com/abhisek/lingodrill/internal/questiongen"
	"github.com/abhisek/lingodrill/internal/session"
	"github.com/abhisek/lingodrill/internal/store"
)

// ErrNoItems means both item pools are empty, so there is nothing to
// ground a session on.
var ErrNoItems = errors.New("no items to practice")

// Selector picks the items a session practices.
type Selector interface {
	Select(ctx context.Context, count int) (items.Selection, error)
}

// Generator produces a validated question batch.
type Generator interface {
	Generate(ctx context.Context, sel items.Selection, count int) ([]question.Question, error)
}

// Sessions is the part of the session manager the scheduler drives.
type Sessions interface {
	PendingCount(ctx context.Context) (int, error)
	MaxPending() int
	Create(ctx context.Context, qs []question.Question, ttl time.Duration) (*session.Session, error)
	Sweep(ctx context.Context) (store.SweepStats, error)
}

// Config controls the scheduler.
type Config struct {
	// Enabled turns on periodic generation. The sweep runs regardless.
	Enabled       bool
	Interval      time.Duration
	QuestionCount int
	Expiry        time.Duration

	// SweepInterval is how often the retention sweep runs. Zero means hourly.
	SweepInterval time.Duration

	// TickTimeout bounds one tick. Zero means no bound beyond the
	// provider's own timeout.
	TickTimeout time.Duration

	Notifier Notifier
	Logger   *slog.Logger
}

// Scheduler runs select, generate, validate and persist on a timer. At
// most one timer is active per Scheduler: Start on a running scheduler is
// a no-op.
type Scheduler struct {
	selector  Selector
	generator Generator
	sessions  Sessions
	config    Config
	logger    *slog.Logger

	mu     sync.Mutex
	cron   *gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped Scheduler.
func New(sel Selector, gen Generator, sessions Sessions, cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NewNotifier("notification", io.Discard, cfg.Logger)
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	return &Scheduler{
		selector:  sel,
		generator: gen,
		sessions:  sessions,
		config:    cfg,
		logger:    cfg.Logger,
	}
}

// Start registers the jobs and starts the timer. The first tick fires one
// interval after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.logger.Debug("auto-session scheduler already running")
		return nil
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	cron.WaitForScheduleAll()

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	if s.config.Enabled {
		if s.config.Interval <= 0 {
			cancel()
			return fmt.Errorf("auto-session interval must be positive, got %s", s.config.Interval)
		}
		if _, err := cron.Every(s.config.Interval).Tag("auto-session").Do(s.runTick, jobCtx); err != nil {
			cancel()
			return fmt.Errorf("schedule auto-session job: %w", err)
		}
	}
	if _, err := cron.Every(s.config.SweepInterval).Tag("retention-sweep").Do(s.runSweep, jobCtx); err != nil {
		cancel()
		return fmt.Errorf("schedule retention sweep: %w", err)
	}

	cron.StartAsync()
	s.cron, s.ctx, s.cancel = cron, jobCtx, cancel
	s.logger.Info("auto-session scheduler started",
		"enabled", s.config.Enabled, "interval", s.config.Interval,
		"question_count", s.config.QuestionCount, "sweep_interval", s.config.SweepInterval)
	return nil
}

// Stop prevents further ticks. A tick in flight finishes first; its
// session is still subject to the capacity check when it is persisted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cron, cancel := s.cron, s.cancel
	s.cron, s.ctx, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if cron == nil {
		return
	}
	cron.Stop()
	cancel()
	s.logger.Info("auto-session scheduler stopped")
}

// Running reports whether the timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Tick runs the pipeline once. Any failing step aborts the rest and leaves
// no session behind. Returns session.ErrCapacityExceeded, wrapped, when
// the pending cap is already reached.
func (s *Scheduler) Tick(ctx context.Context) (*session.Session, error) {
	pending, err := s.sessions.PendingCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending sessions: %w", err)
	}
	if pending >= s.sessions.MaxPending() {
		return nil, fmt.Errorf("%w: %d of %d pending", session.ErrCapacityExceeded, pending, s.sessions.MaxPending())
	}

	sel, err := s.selector.Select(ctx, s.config.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	if sel.Len() == 0 {
		return nil, ErrNoItems
	}

	start := time.Now()
	qs, err := s.generator.Generate(ctx, sel, s.config.QuestionCount)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		recordRejection(err)
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, qs, s.config.Expiry)
	if err != nil {
		return nil, err
	}
	s.config.Notifier.SessionReady(ctx, sess)
	return sess, nil
}

func (s *Scheduler) runTick(ctx context.Context) {
	if s.config.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TickTimeout)
		defer cancel()
	}

	sess, err := s.Tick(ctx)
	outcome := tickOutcome(err)
	metrics.SchedulerTicks.WithLabelValues(outcome).Inc()

	switch outcome {
	case "created":
		s.logger.Info("auto-session created", "session_id", sess.ID, "questions", len(sess.QuestionIDs))
	case "at_capacity", "no_items":
		s.logger.Info("auto-session skipped", "reason", err)
	default:
		s.logger.Error("auto-session tick failed", "outcome", outcome, "error", err)
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if _, err := s.sessions.Sweep(ctx); err != nil {
		s.logger.Error("retention sweep failed", "error", err)
	}
}

func tickOutcome(err error) string {
	var rateLimit *llm.ErrRateLimit
	var unavailable *llm.ErrProviderUnavailable
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, session.ErrCapacityExceeded):
		return "at_capacity"
	case errors.Is(err, ErrNoItems):
		return "no_items"
	case errors.Is(err, questiongen.ErrMalformedPayload),
		errors.Is(err, questiongen.ErrEmptyPayload),
		errors.Is(err, questiongen.ErrFieldValidation):
		return "rejected"
	case errors.As(err, &rateLimit), errors.As(err, &unavailable):
		return "generator_unavailable"
	}
	return "error"
}

func recordRejection(err error) {
	switch {
	case errors.Is(err, questiongen.ErrMalformedPayload):
		metrics.GateRejections.WithLabelValues("malformed").Inc()
	case errors.Is(err, questiongen.ErrEmptyPayload):
		metrics.GateRejections.WithLabelValues("empty").Inc()
	case errors.Is(err, questiongen.ErrFieldValidation):
		metrics.GateRejections.WithLabelValues("field_validation").Inc()
	}
}
