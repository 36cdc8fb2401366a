package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mauv0809/pingpong-ladder/internal/database"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWarmer struct {
	calls atomic.Int32
	err   error
}

func (w *countingWarmer) Warm(ctx context.Context) error {
	w.calls.Add(1)
	return w.err
}

func TestRunNow_PrunesExpiredRows(t *testing.T) {
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()
	ctx := context.Background()

	quota := match.NewQuotaStore(db)
	require.NoError(t, quota.Reserve(ctx, "a", "b", "2026-03-01", 2))
	require.NoError(t, quota.Reserve(ctx, "a", "b", "2026-03-17", 2))

	notifications := notifier.NewStore(db)
	now := time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)
	for id, at := range map[string]time.Time{"old": now.AddDate(0, 0, -45), "fresh": now.Add(-time.Hour)} {
		require.NoError(t, notifications.AddPending(ctx, notifier.Pending{ID: id, Event: notifier.Event{
			Kind: notifier.KindPendingCreated, MatchID: "m1", ActorID: "a", RecipientID: "b",
			MatchStatus: match.StatusPending, CreatedAt: at,
		}}))
	}

	warmer := &countingWarmer{}
	s, err := New(quota, notifications, warmer, Options{QuotaRetention: 7, NotificationRetention: 30, Location: time.UTC})
	require.NoError(t, err)
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.RunNow(ctx))

	count, err := quota.Count(ctx, "a", "b", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "counter older than retention should be pruned")
	count, err = quota.Count(ctx, "a", "b", "2026-03-17")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	pending, err := notifications.ListPending(ctx, "b", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "fresh", pending[0].ID)

	assert.Equal(t, int32(1), warmer.calls.Load())
}

func TestRunNow_ReportsFailingJob(t *testing.T) {
	quota := match.NewMockQuota()
	warmer := &countingWarmer{err: errors.New("catalog unavailable")}

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	s, err := New(quota, notifier.NewStore(db), warmer, Options{})
	require.NoError(t, err)

	err = s.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm-achievement-catalog")
}

func TestStart_RunsJobsImmediately(t *testing.T) {
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	warmer := &countingWarmer{}
	s, err := New(match.NewQuotaStore(db), notifier.NewStore(db), warmer, Options{Interval: time.Hour})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return warmer.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}
