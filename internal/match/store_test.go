package match_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/database"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database with two members.
func setupTestDB(t *testing.T) (match.MatchStore, club.ClubStore, *sql.DB, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	clubStore := club.New(db)
	ctx := context.Background()
	require.NoError(t, clubStore.AddPlayer(ctx, club.Player{ID: "a", Name: "Ana"}))
	require.NoError(t, clubStore.AddPlayer(ctx, club.Player{ID: "b", Name: "Bruno"}))

	return match.NewStore(db), clubStore, db, teardown
}

func newMatch(id string) *match.Match {
	return &match.Match{
		ID:        id,
		PlayerA:   "a",
		PlayerB:   "b",
		WinnerID:  "a",
		ScoreA:    3,
		ScoreB:    1,
		CreatedBy: "a",
		CreatedAt: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
	}
}

func settlementFor(m *match.Match, approver string) match.Settlement {
	return match.Settlement{
		MatchID:    m.ID,
		ApprovedBy: approver,
		Expected:   *m,
		Deltas:     rating.Calculate(1000, 1000, 24),
		KFactor:    24,
		At:         time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC),
	}
}

func TestCreateAndGet(t *testing.T) {
	store, _, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newMatch("m1")))

	m, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, match.StatusPending, m.Status)
	assert.Equal(t, "a", m.WinnerID)
	assert.Equal(t, "3x1", m.Score())
	assert.Nil(t, m.ValidatedAt)

	open, err := store.GetOpen(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", open.ID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, match.ErrMatchNotFound)
}

func TestCreate_RejectsUnknownPlayer(t *testing.T) {
	store, _, _, teardown := setupTestDB(t)
	defer teardown()

	m := newMatch("m1")
	m.PlayerB = "ghost"
	assert.Error(t, store.Create(context.Background(), m))
}

func TestContest(t *testing.T) {
	store, _, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newMatch("m1")))

	err := store.Contest(ctx, "m1", "b", match.Outcome{ScoreA: 1, ScoreB: 3}, time.Now())
	require.NoError(t, err)

	m, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, match.StatusEdited, m.Status)
	assert.Equal(t, "b", m.WinnerID)
	assert.Equal(t, "b", m.CreatedBy)
	assert.Equal(t, 1, m.ScoreA)
	assert.Equal(t, 3, m.ScoreB)

	t.Run("contesting an edited match is allowed", func(t *testing.T) {
		require.NoError(t, store.Contest(ctx, "m1", "a", match.Outcome{ScoreA: 3, ScoreB: 2}, time.Now()))
		m, err := store.Get(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "a", m.WinnerID)
		assert.Equal(t, "a", m.CreatedBy)
	})

	t.Run("unknown match", func(t *testing.T) {
		err := store.Contest(ctx, "missing", "a", match.Outcome{ScoreA: 3, ScoreB: 2}, time.Now())
		assert.ErrorIs(t, err, match.ErrMatchNotFound)
	})
}

func TestSettle(t *testing.T) {
	store, clubStore, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	m := newMatch("m1")
	require.NoError(t, store.Create(ctx, m))

	settled, err := store.Settle(ctx, settlementFor(m, "b"))
	require.NoError(t, err)

	assert.Equal(t, match.StatusValidated, settled.Match.Status)
	assert.Equal(t, 1012, settled.Winner.Rating)
	assert.Equal(t, 988, settled.Loser.Rating)
	assert.Equal(t, 12, settled.Match.PointsVariationA)
	assert.Equal(t, -12, settled.Match.PointsVariationB)

	stored, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, match.StatusValidated, stored.Status)
	assert.Equal(t, "b", stored.ApprovedBy)
	assert.Equal(t, 24, stored.RatingFactorUsed)
	assert.Equal(t, 1012, stored.FinalRatingA)
	assert.Equal(t, 988, stored.FinalRatingB)
	require.NotNil(t, stored.ValidatedAt)

	winner, err := clubStore.GetPlayer(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1012, winner.Rating)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 1, winner.GamesPlayed)
	assert.Equal(t, 1, winner.WinStreak)
	assert.Equal(t, 1, winner.BestStreak)

	loser, err := clubStore.GetPlayer(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 988, loser.Rating)
	assert.Equal(t, 1, loser.Losses)
	assert.Equal(t, 0, loser.WinStreak)

	t.Run("second settle is rejected", func(t *testing.T) {
		_, err := store.Settle(ctx, settlementFor(m, "b"))
		assert.ErrorIs(t, err, match.ErrStatusChanged)

		again, err := clubStore.GetPlayer(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1012, again.Rating)
	})

	t.Run("validated match is no longer open", func(t *testing.T) {
		_, err := store.GetOpen(ctx, "m1")
		assert.ErrorIs(t, err, match.ErrMatchNotFound)
	})
}

func TestSettle_StaleRead(t *testing.T) {
	store, clubStore, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	m := newMatch("m1")
	require.NoError(t, store.Create(ctx, m))

	// The opponent contests after the confirmer has read the row.
	require.NoError(t, store.Contest(ctx, "m1", "b", match.Outcome{ScoreA: 1, ScoreB: 3}, time.Now()))

	_, err := store.Settle(ctx, settlementFor(m, "b"))
	assert.ErrorIs(t, err, match.ErrStatusChanged)

	p, err := clubStore.GetPlayer(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1000, p.Rating)
	assert.Equal(t, 0, p.GamesPlayed)
}

func TestSettle_FloorIsApplied(t *testing.T) {
	store, _, db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	_, err := db.Exec("UPDATE players SET rating = 105 WHERE id = 'b'")
	require.NoError(t, err)

	m := newMatch("m1")
	require.NoError(t, store.Create(ctx, m))
	st := settlementFor(m, "b")
	st.Deltas = rating.Result{WinnerDelta: 1, LoserDelta: -20}

	settled, err := store.Settle(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, rating.MinRating, settled.Loser.Rating)
	assert.Equal(t, -5, settled.Loser.AppliedChange)
	assert.Equal(t, -5, settled.Match.PointsVariationB)
}

func TestSettle_ConcurrentConfirmations(t *testing.T) {
	store, clubStore, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	m := newMatch("m1")
	require.NoError(t, store.Create(ctx, m))

	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Settle(ctx, settlementFor(m, "b"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, match.ErrStatusChanged) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	p, err := clubStore.GetPlayer(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1012, p.Rating)
	assert.Equal(t, 1, p.GamesPlayed)
}

func TestCancel(t *testing.T) {
	store, clubStore, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	t.Run("open match", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, newMatch("open")))
		reversed, err := store.Cancel(ctx, "open", "admin", time.Now())
		require.NoError(t, err)
		assert.False(t, reversed)

		m, err := store.Get(ctx, "open")
		require.NoError(t, err)
		assert.Equal(t, match.StatusCanceled, m.Status)
		assert.Equal(t, "admin", m.CanceledBy)
		require.NotNil(t, m.CanceledAt)
	})

	t.Run("validated match is reversed", func(t *testing.T) {
		m := newMatch("done")
		require.NoError(t, store.Create(ctx, m))
		_, err := store.Settle(ctx, settlementFor(m, "b"))
		require.NoError(t, err)

		reversed, err := store.Cancel(ctx, "done", "admin", time.Now())
		require.NoError(t, err)
		assert.True(t, reversed)

		a, err := clubStore.GetPlayer(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1000, a.Rating)
		assert.Equal(t, 0, a.Wins)
		assert.Equal(t, 0, a.GamesPlayed)

		b, err := clubStore.GetPlayer(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 1000, b.Rating)
		assert.Equal(t, 0, b.Losses)
	})

	t.Run("canceled match cannot be canceled again", func(t *testing.T) {
		_, err := store.Cancel(ctx, "done", "admin", time.Now())
		assert.ErrorIs(t, err, match.ErrStatusChanged)
	})
}

func TestListValidatedForPlayer(t *testing.T) {
	store, _, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	first := newMatch("m1")
	second := newMatch("m2")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, newMatch("m3")))

	_, err := store.Settle(ctx, settlementFor(first, "b"))
	require.NoError(t, err)
	_, err = store.Settle(ctx, settlementFor(second, "b"))
	require.NoError(t, err)

	history, err := store.ListValidatedForPlayer(ctx, "b")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m2", history[0].ID)
	assert.Equal(t, "m1", history[1].ID)

	all, err := store.ListForPlayer(ctx, "a", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
