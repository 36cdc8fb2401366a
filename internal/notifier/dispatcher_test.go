package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mauv0809/pingpong-ladder/internal/database"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/mauv0809/pingpong-ladder/internal/pubsub"
	"github.com/mauv0809/pingpong-ladder/internal/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (notifier.Store, func()) {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	return notifier.NewStore(db), teardown
}

func subscribe(t *testing.T, store notifier.Store, id, userID string) {
	t.Helper()
	require.NoError(t, store.SaveSubscription(context.Background(), notifier.Subscription{
		ID: id, UserID: userID, Endpoint: "https://push.example.com/" + id, P256dh: "key", Auth: "auth",
		CreatedAt: time.Now(),
	}))
}

func event() notifier.Event {
	return notifier.Event{
		Kind:        notifier.KindPendingCreated,
		MatchID:     "8f14e45f-ceea-467f-a0e6-3bb4f2c0d6a1",
		ActorID:     "a",
		RecipientID: "b",
		MatchStatus: match.StatusPending,
	}
}

func TestNotify_StoresRowAndPushes(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	ctx := context.Background()
	subscribe(t, store, "s1", "b")
	subscribe(t, store, "s2", "b")
	subscribe(t, store, "s3", "someone-else")

	pusher := push.NewMock()
	m := metrics.NewMock()
	d := notifier.NewDispatcher(store, pusher, nil, m)

	d.Notify(ctx, event())

	pending, err := store.ListPending(ctx, "b", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, notifier.KindPendingCreated, pending[0].Kind)
	assert.Equal(t, "a", pending[0].ActorID)
	assert.Equal(t, match.StatusPending, pending[0].MatchStatus)

	require.Equal(t, 2, pusher.Calls())
	var payload notifier.Payload
	require.NoError(t, json.Unmarshal(pusher.SendCalls[0].Payload, &payload))
	assert.Equal(t, "/matches/8f14e45f-ceea-467f-a0e6-3bb4f2c0d6a1", payload.URL)
	assert.Equal(t, "match-8f14e45f-ceea-467f-a0e6-3bb4f2c0d6a1", payload.Tag)
	assert.Equal(t, "Nova partida para confirmar", payload.Title)
	assert.Len(t, pusher.SendCalls[0].Topic, 32)

	assert.Equal(t, 1, m.NotificationsSent(metrics.ChannelInApp))
	assert.Equal(t, 2, m.NotificationsSent(metrics.ChannelPush))
}

func TestNotify_GoneDisablesSubscription(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	ctx := context.Background()
	subscribe(t, store, "gone", "b")
	subscribe(t, store, "flaky", "b")

	pusher := push.NewMock()
	pusher.SendFunc = func(target push.Target, payload []byte) error {
		if target.Endpoint == "https://push.example.com/gone" {
			return fmt.Errorf("%w: status 410", push.ErrGone)
		}
		return errors.New("push service responded with status 500")
	}
	d := notifier.NewDispatcher(store, pusher, nil, metrics.NewMock())

	d.Notify(ctx, event())

	gone, err := store.GetSubscription(ctx, "gone")
	require.NoError(t, err)
	assert.True(t, gone.Disabled)
	assert.NotNil(t, gone.DisabledAt)

	flaky, err := store.GetSubscription(ctx, "flaky")
	require.NoError(t, err)
	assert.False(t, flaky.Disabled)
	assert.Equal(t, 1, flaky.FailureCount)
	assert.Contains(t, flaky.LastError, "500")

	active, err := store.ActiveSubscriptions(ctx, "b")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "flaky", active[0].ID)

	t.Run("resubscribing re-enables the endpoint", func(t *testing.T) {
		require.NoError(t, store.SaveSubscription(ctx, notifier.Subscription{
			ID: "ignored", UserID: "b", Endpoint: "https://push.example.com/gone", P256dh: "k2", Auth: "a2", CreatedAt: time.Now(),
		}))
		again, err := store.GetSubscription(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, again.Disabled)
		assert.Equal(t, 0, again.FailureCount)
	})
}

func TestNotify_PublishesWhenConfigured(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	ctx := context.Background()
	subscribe(t, store, "s1", "b")

	pusher := push.NewMock()
	publisher := pubsub.NewMock()
	d := notifier.NewDispatcher(store, pusher, publisher, metrics.NewMock())

	d.Notify(ctx, event())

	calls := publisher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, pubsub.EventMatchNotification, calls[0].Event)
	assert.Equal(t, 0, pusher.Calls(), "push is left to the subscriber")

	t.Run("publish failure falls back to inline push", func(t *testing.T) {
		publisher.SendMessageFunc = func(pubsub.EventType, any) error { return errors.New("unavailable") }
		d.Notify(ctx, event())
		assert.Equal(t, 1, pusher.Calls())
	})
}

func TestNotify_StoreFailureDoesNotPanic(t *testing.T) {
	store, teardown := setupStore(t)
	teardown()

	m := metrics.NewMock()
	d := notifier.NewDispatcher(store, push.NewMock(), nil, m)
	assert.NotPanics(t, func() { d.Notify(context.Background(), event()) })
	assert.Equal(t, 1, m.NotificationsFailed(metrics.ChannelInApp))
}

func TestPrunePendingBefore(t *testing.T) {
	store, teardown := setupStore(t)
	defer teardown()
	ctx := context.Background()

	old := event()
	old.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)
	recent := event()
	recent.CreatedAt = time.Now()
	require.NoError(t, store.AddPending(ctx, notifier.Pending{ID: "old", Event: old}))
	require.NoError(t, store.AddPending(ctx, notifier.Pending{ID: "new", Event: recent}))

	n, err := store.PrunePendingBefore(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBuildPayload(t *testing.T) {
	ev := event()
	ev.Kind = notifier.KindPendingTransferred
	assert.Equal(t, "Placar contestado", notifier.BuildPayload(ev).Title)
	ev.Kind = notifier.KindPendingResolved
	assert.Equal(t, "Partida validada", notifier.BuildPayload(ev).Title)
}
