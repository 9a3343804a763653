package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	older := t0
	newer := t0.Add(time.Minute)

	tests := []struct {
		name string
		a, b Session
		want string
	}{
		{"completed beats newer active",
			Session{ID: "a", Status: StatusCompleted, UpdatedAt: older},
			Session{ID: "b", Status: StatusActive, UpdatedAt: newer}, "a"},
		{"completed beats newer pending, either side",
			Session{ID: "a", Status: StatusPending, UpdatedAt: newer},
			Session{ID: "b", Status: StatusCompleted, UpdatedAt: older}, "b"},
		{"neither completed, newer wins",
			Session{ID: "a", Status: StatusPending, UpdatedAt: older},
			Session{ID: "b", Status: StatusActive, UpdatedAt: newer}, "b"},
		{"both completed, newer wins",
			Session{ID: "a", Status: StatusCompleted, UpdatedAt: newer},
			Session{ID: "b", Status: StatusCompleted, UpdatedAt: older}, "a"},
		{"tie keeps first",
			Session{ID: "a", Status: StatusActive, UpdatedAt: older},
			Session{ID: "b", Status: StatusExpired, UpdatedAt: older}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.a, tt.b).ID)
		})
	}
}

func TestReconcile_NoFieldMixing(t *testing.T) {
	started := t0
	a := Session{ID: "s", Status: StatusActive, StartedAt: &started, UpdatedAt: t0, DifficultyLevel: 3}
	b := Session{ID: "s", Status: StatusPending, UpdatedAt: t0.Add(time.Second), DifficultyLevel: 5}

	got := Reconcile(a, b)
	assert.Equal(t, b, got)
}

func TestAt(t *testing.T) {
	s := Session{Status: StatusActive, ExpiresAt: t0}
	assert.Equal(t, StatusActive, s.At(t0.Add(-time.Nanosecond)).Status)
	assert.Equal(t, StatusExpired, s.At(t0).Status)

	done := Session{Status: StatusCompleted, ExpiresAt: t0}
	assert.Equal(t, StatusCompleted, done.At(t0.Add(time.Hour)).Status)
}

func putCached(t *testing.T, f *fixture, s Session) {
	t.Helper()
	blob, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, f.cache.Set(sessionKey(s.ID), blob, time.Hour))
}

func TestGet_AdoptsCompletedCacheCopy(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	s := f.create(t, 2, 0)

	cached := *s
	cached.Status = StatusCompleted
	done := t0.Add(time.Minute)
	cached.CompletedAt = &done
	putCached(t, f, cached)

	got, err := f.mgr.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	rec, err := f.store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", rec.Status)
	res, err := f.store.GetResult(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Answered)
}

func TestGet_KeepsTerminalStoreState(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	s := f.create(t, 1, time.Hour)

	f.clock.advance(2 * time.Hour)
	_, err := f.mgr.Get(ctx, s.ID)
	require.NoError(t, err)

	// A newer cached copy cannot bring an expired session back.
	revived := *s
	revived.Status = StatusPending
	revived.UpdatedAt = f.clock.now().Add(time.Hour)
	putCached(t, f, revived)

	got, err := f.mgr.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
}

func TestCache_AnswerHistory(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	s := f.create(t, 2, 0)

	for _, qid := range s.QuestionIDs {
		_, err := f.answer(s.ID, qid, `true`, time.Second)
		require.NoError(t, err)
	}

	cached, ok := f.mgr.cachedAnswers(ctx, s.ID)
	require.True(t, ok)
	assert.Len(t, cached, 2)

	answers, err := f.mgr.Answers(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 2)

	// Purging the session drops its cache entries too.
	f.clock.advance(DefaultTTL + QuestionRetention)
	pending := f.create(t, 1, time.Hour)
	f.clock.advance(2 * time.Hour)
	_, err = f.mgr.Sweep(ctx)
	require.NoError(t, err)

	_, ok = f.mgr.cachedSession(pending.ID)
	assert.False(t, ok)
}
