package club_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (club.ClubStore, *sql.DB, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	return club.New(db), db, dbTeardown
}

func TestAddAndGetPlayers(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.AddPlayer(ctx, club.Player{ID: "p1", Name: "Player One"}))
	require.NoError(t, store.AddPlayer(ctx, club.Player{ID: "p2", Name: "Player Two", Rating: 1100}))

	p1, err := store.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Player One", p1.Name)
	assert.Equal(t, 1000, p1.Rating)

	_, err = store.GetPlayer(ctx, "p3")
	assert.ErrorIs(t, err, club.ErrPlayerNotFound)

	t.Run("gets multiple players", func(t *testing.T) {
		players, err := store.GetPlayers(ctx, []string{"p1", "p2", "missing"})
		require.NoError(t, err)
		require.Len(t, players, 2)
	})

	t.Run("finds a player by name ignoring case", func(t *testing.T) {
		p, err := store.FindPlayerByName(ctx, "player two")
		require.NoError(t, err)
		assert.Equal(t, "p2", p.ID)

		_, err = store.FindPlayerByName(ctx, "Nobody")
		assert.ErrorIs(t, err, club.ErrPlayerNotFound)
	})

	t.Run("returns empty slice for empty id slice", func(t *testing.T) {
		players, err := store.GetPlayers(ctx, []string{})
		require.NoError(t, err)
		assert.Len(t, players, 0)
	})
}

func TestAddPlayer_DoesNotResetRating(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.AddPlayer(ctx, club.Player{ID: "p1", Name: "Old Name"}))
	_, err := db.Exec("UPDATE players SET rating = 1234, wins = 3 WHERE id = 'p1'")
	require.NoError(t, err)

	require.NoError(t, store.AddPlayer(ctx, club.Player{ID: "p1", Name: "New Name"}))
	p, err := store.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", p.Name)
	assert.Equal(t, 1234, p.Rating)
	assert.Equal(t, 3, p.Wins)
}

func TestGetLeaderboard(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO players (id, name, rating, games_played, hidden, created_at) VALUES
		('p1', 'Ana', 1100, 4, 0, 0),
		('p2', 'Bruno', 1250, 2, 0, 0),
		('p3', 'Carla', 1400, 9, 1, 0),
		('p4', 'Davi', 1500, 0, 0, 0),
		('p5', 'Eva', 980, 1, 0, 0)`)
	require.NoError(t, err)

	board, err := store.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3, "hidden players and players without games are excluded")
	assert.Equal(t, "p2", board[0].ID)
	assert.Equal(t, "p1", board[1].ID)
	assert.Equal(t, "p5", board[2].ID)

	top, err := store.GetLeaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestGetRatingInputs(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.AddPlayer(ctx, club.Player{ID: "a", Name: "A"}))
	require.NoError(t, store.AddPlayer(ctx, club.Player{ID: "b", Name: "B", Rating: 1200}))

	in, err := store.GetRatingInputs(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 1000, in.PlayerA.Rating)
	assert.Equal(t, 1200, in.PlayerB.Rating)
	assert.Equal(t, 24, in.KFactor)

	require.NoError(t, store.SetSetting(ctx, club.SettingKFactor, "32"))
	in, err = store.GetRatingInputs(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 32, in.KFactor)

	_, err = store.GetRatingInputs(ctx, "a", "nobody")
	assert.ErrorIs(t, err, club.ErrPlayerNotFound)
}

func TestGetIntSetting(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	limit, err := store.GetIntSetting(ctx, club.SettingDailyMatchLimit, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, limit)

	v, err := store.GetIntSetting(ctx, "unknown_key", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	require.NoError(t, store.SetSetting(ctx, "broken", "abc"))
	_, err = store.GetIntSetting(ctx, "broken", 1)
	assert.Error(t, err)
}

func TestWinPercentage(t *testing.T) {
	assert.Equal(t, 0.0, club.Player{}.WinPercentage())
	assert.InDelta(t, 75.0, club.Player{Wins: 3, GamesPlayed: 4}.WinPercentage(), 0.001)
}
