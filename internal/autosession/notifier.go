package autosession

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/abhisek/lingodrill/internal/session"
)

// Notifier announces a newly generated session.
type Notifier interface {
	SessionReady(ctx context.Context, s *session.Session)
}

// NewNotifier returns the notifier for a popup behavior: "surprise" prints
// to out, "notification" logs at info and "silent" logs at debug.
func NewNotifier(behavior string, out io.Writer, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	switch behavior {
	case "surprise":
		return &printNotifier{out: out}
	case "silent":
		return &logNotifier{logger: logger, level: slog.LevelDebug}
	}
	return &logNotifier{logger: logger, level: slog.LevelInfo}
}

type printNotifier struct {
	out io.Writer
}

func (n *printNotifier) SessionReady(_ context.Context, s *session.Session) {
	fmt.Fprintf(n.out, "New practice session ready: %s (%d questions, expires %s)\n",
		s.ID, len(s.QuestionIDs), s.ExpiresAt.Local().Format("Mon 15:04"))
}

type logNotifier struct {
	logger *slog.Logger
	level  slog.Level
}

func (n *logNotifier) SessionReady(ctx context.Context, s *session.Session) {
	n.logger.Log(ctx, n.level, "practice session ready",
		"session_id", s.ID, "questions", len(s.QuestionIDs), "expires_at", s.ExpiresAt)
}
