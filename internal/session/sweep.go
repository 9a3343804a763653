package session

import (
	"context"
	"time"

	"github.com/abhisek/lingodrill/internal/metrics"
	"github.com/abhisek/lingodrill/internal/store"
)

// Sweep applies the retention policy at now: overdue sessions are expired,
// pending and expired sessions past their expiry are purged along with
// their questions and answers, and questions older than QuestionRetention
// are purged whatever their session's status. Completed sessions and their
// archived results stay.
func (m *Manager) Sweep(ctx context.Context) (store.SweepStats, error) {
	now := m.now().UTC()

	var stats store.SweepStats
	var purged []string
	err := m.store.InTx(ctx, func(c *store.Conn) error {
		recs, err := c.ListSessions(ctx, "", 0)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if rec.Status != string(StatusCompleted) && !now.Before(rec.ExpiresAt) {
				purged = append(purged, rec.ID)
			}
		}
		stats, err = c.Sweep(ctx, now, now.Add(-QuestionRetention))
		return err
	})
	if err != nil {
		return store.SweepStats{}, err
	}

	for _, id := range purged {
		m.uncache(id)
	}
	metrics.SweepPurged.WithLabelValues("expired").Add(float64(stats.Expired))
	metrics.SweepPurged.WithLabelValues("sessions").Add(float64(stats.PurgedSessions))
	metrics.SweepPurged.WithLabelValues("questions").Add(float64(stats.PurgedQuestions))
	m.logger.Info("retention sweep done",
		"expired", stats.Expired, "purged_sessions", stats.PurgedSessions,
		"purged_questions", stats.PurgedQuestions, "cutoff", now.Add(-QuestionRetention).Format(time.DateOnly))
	return stats, nil
}
