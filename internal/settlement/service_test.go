package settlement_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/database"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/mauv0809/pingpong-ladder/internal/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db           *sql.DB
	svc          *settlement.Service
	club         club.ClubStore
	matches      match.MatchStore
	achievements achievement.Store
	notifier     *notifier.Mock
	feed         *settlement.MockFeed
	metrics      *metrics.Mock
}

func setup(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	ctx := context.Background()
	clubStore := club.New(db)
	for _, p := range []club.Player{{ID: "a", Name: "Ana"}, {ID: "b", Name: "Bruno"}, {ID: "c", Name: "Carla"}} {
		require.NoError(t, clubStore.AddPlayer(ctx, p))
	}

	matches := match.NewStore(db)
	achievementStore := achievement.New(db)
	m := metrics.NewMock()
	engine := achievement.NewEngine(achievementStore, achievement.NewCatalogCache(achievementStore, time.Minute),
		clubStore, matches, m, time.UTC)
	n := notifier.NewMock()
	feed := settlement.NewMockFeed()

	svc := settlement.New(clubStore, matches, match.NewQuotaStore(db), engine, n, feed, m, settlement.Options{})

	env := &testEnv{db: db, svc: svc, club: clubStore, matches: matches, achievements: achievementStore,
		notifier: n, feed: feed, metrics: m}
	return env, func() {
		require.NoError(t, svc.Wait(context.Background()))
		teardown()
	}
}

func (env *testEnv) rating(t *testing.T, id string) int {
	t.Helper()
	p, err := env.club.GetPlayer(context.Background(), id)
	require.NoError(t, err)
	return p.Rating
}

func achievementKeys(list []achievement.Unlocked) []string {
	keys := []string{}
	for _, u := range list {
		keys = append(keys, u.Key)
	}
	return keys
}

func TestRegisterAndConfirm(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "a", "b", "3x1")
	require.NoError(t, err)
	require.NotEmpty(t, reg.MatchID)
	assert.Equal(t, match.StatusPending, reg.Match.Status)
	assert.Equal(t, "a", reg.Match.WinnerID)

	res, err := env.svc.Confirm(ctx, reg.MatchID, "b")
	require.NoError(t, err)
	assert.Equal(t, match.StatusValidated, res.Match.Status)
	assert.Equal(t, 1012, res.Winner.Rating)
	assert.Equal(t, 988, res.Loser.Rating)
	assert.Equal(t, 12, res.Match.PointsVariationA)
	assert.Equal(t, -12, res.Match.PointsVariationB)
	assert.Equal(t, 24, res.Match.RatingFactorUsed)
	assert.ElementsMatch(t, []string{"first_game", "top_3"}, achievementKeys(res.Unlocked), "the confirming loser gets only their own unlocks")

	require.NoError(t, env.svc.Wait(ctx))
	assert.Equal(t, 1012, env.rating(t, "a"))
	assert.Equal(t, 988, env.rating(t, "b"))

	held, err := env.achievements.ListForUser(ctx, "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first_game", "first_win", "top_3"}, achievementKeys(held))

	calls := env.notifier.Calls()
	require.Len(t, calls, 2)
	kinds := map[notifier.Kind]notifier.Event{}
	for _, c := range calls {
		kinds[c.Kind] = c
	}
	assert.Equal(t, "b", kinds[notifier.KindPendingCreated].RecipientID)
	assert.Equal(t, "a", kinds[notifier.KindPendingResolved].RecipientID)
	assert.Len(t, env.feed.MatchValidatedCalls, 1)
	assert.Len(t, env.feed.AchievementsUnlockedCalls, 2)
	assert.Equal(t, 1, env.metrics.MatchesValidated())
}

func TestConfirm_RegistrantMayConfirm(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "a", "b", "3x1")
	require.NoError(t, err)
	res, err := env.svc.Confirm(ctx, reg.MatchID, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", res.Match.ApprovedBy)
	assert.ElementsMatch(t, []string{"first_game", "first_win", "top_3"}, achievementKeys(res.Unlocked))
}

func TestContestFlipsWinner(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "a", "b", "3x1")
	require.NoError(t, err)

	require.NoError(t, env.svc.Contest(ctx, reg.MatchID, "b", "1x3"))
	m, err := env.matches.Get(ctx, reg.MatchID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusEdited, m.Status)
	assert.Equal(t, "b", m.WinnerID)
	assert.Equal(t, "b", m.CreatedBy)

	_, err = env.svc.Confirm(ctx, reg.MatchID, "a")
	require.NoError(t, err)
	assert.Equal(t, 988, env.rating(t, "a"))
	assert.Equal(t, 1012, env.rating(t, "b"))

	require.NoError(t, env.svc.Wait(ctx))
	var transferred bool
	for _, c := range env.notifier.Calls() {
		if c.Kind == notifier.KindPendingTransferred {
			transferred = true
			assert.Equal(t, "a", c.RecipientID)
			assert.Equal(t, match.StatusEdited, c.MatchStatus)
		}
	}
	assert.True(t, transferred)

	t.Run("contesting a validated match is refused", func(t *testing.T) {
		err := env.svc.Contest(ctx, reg.MatchID, "a", "3x0")
		assert.ErrorIs(t, err, settlement.ErrAlreadyValidated)
	})
}

func TestConfirm_AlreadyValidated(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "a", "b", "3x1")
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, reg.MatchID, "b")
	require.NoError(t, err)

	_, err = env.svc.Confirm(ctx, reg.MatchID, "b")
	assert.ErrorIs(t, err, settlement.ErrAlreadyValidated)
	assert.Equal(t, settlement.CodeAlreadyValidated, settlement.CodeOf(err))
	assert.Equal(t, 1012, env.rating(t, "a"))
}

func TestConfirm_ConcurrentExactlyOnce(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "a", "b", "3x1")
	require.NoError(t, err)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Confirm(ctx, reg.MatchID, "b")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			code := settlement.CodeOf(err)
			assert.Contains(t, []settlement.Code{settlement.CodeMatchAlreadyProcessed, settlement.CodeAlreadyValidated}, code)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1012, env.rating(t, "a"))
	assert.Equal(t, 988, env.rating(t, "b"))

	p, err := env.club.GetPlayer(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, p.GamesPlayed)
	assert.Equal(t, 1, p.Wins)
}

func TestRegister_DailyQuota(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "a", "b", "3x1")
	require.NoError(t, err)
	_, err = env.svc.Register(ctx, "b", "a", "3x2")
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, "a", "b", "3x0")
	assert.ErrorIs(t, err, settlement.ErrQuotaExceeded)
	assert.Equal(t, 1, env.metrics.QuotaRejections())

	_, err = env.svc.Register(ctx, "a", "c", "3x0")
	assert.NoError(t, err, "other pairs are unaffected")

	t.Run("limit follows the setting", func(t *testing.T) {
		require.NoError(t, env.club.SetSetting(ctx, club.SettingDailyMatchLimit, "3"))
		_, err := env.svc.Register(ctx, "a", "b", "3x0")
		assert.NoError(t, err)
	})
}

func TestRegister_Validation(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	testCases := []struct {
		name     string
		player   string
		opponent string
		outcome  string
		want     *settlement.Error
	}{
		{name: "same player", player: "a", opponent: "a", outcome: "3x1", want: settlement.ErrSamePlayer},
		{name: "missing opponent", player: "a", opponent: " ", outcome: "3x1", want: settlement.ErrInvalidInput},
		{name: "tied score", player: "a", opponent: "b", outcome: "2x2", want: settlement.ErrInvalidInput},
		{name: "garbage score", player: "a", opponent: "b", outcome: "three to one", want: settlement.ErrInvalidInput},
		{name: "unknown opponent", player: "a", opponent: "ghost", outcome: "3x1", want: settlement.ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Register(ctx, tc.player, tc.opponent, tc.outcome)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	count, err := match.NewQuotaStore(env.db).Count(ctx, "a", "ghost", time.Now().UTC().Format(time.DateOnly))
	require.NoError(t, err)
	assert.Equal(t, 0, count, "rejected registrations take no quota")
}

func TestRegister_ReleasesQuotaWhenInsertFails(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()

	matches := match.NewMock()
	matches.CreateFunc = func(*match.Match) error { return errors.New("disk full") }
	quota := match.NewMockQuota()
	svc := settlement.New(env.club, matches, quota, achievement.NewMock(), notifier.NewMock(), nil, metrics.NewMock(), settlement.Options{})

	_, err := svc.Register(context.Background(), "a", "b", "3x1")
	assert.ErrorIs(t, err, settlement.ErrInternal)
	assert.Equal(t, 1, quota.ReserveCalls)
	assert.Equal(t, 1, quota.ReleaseCalls)
}

func TestConfirm_Refusals(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "a", "b", "3x1")
	require.NoError(t, err)

	t.Run("unknown match", func(t *testing.T) {
		_, err := env.svc.Confirm(ctx, "missing", "b")
		assert.ErrorIs(t, err, settlement.ErrNotFound)
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := env.svc.Confirm(ctx, reg.MatchID, "c")
		assert.ErrorIs(t, err, settlement.ErrNotParticipant)
	})

	t.Run("invalid rating factor", func(t *testing.T) {
		require.NoError(t, env.club.SetSetting(ctx, club.SettingKFactor, "0"))
		defer func() { require.NoError(t, env.club.SetSetting(ctx, club.SettingKFactor, "24")) }()

		_, err := env.svc.Confirm(ctx, reg.MatchID, "b")
		assert.ErrorIs(t, err, settlement.ErrInvalidKFactor)

		m, err := env.matches.Get(ctx, reg.MatchID)
		require.NoError(t, err)
		assert.True(t, m.Status.Open())
		assert.Equal(t, 1000, env.rating(t, "a"))
	})

	t.Run("inconsistent row", func(t *testing.T) {
		_, err := env.db.Exec("UPDATE matches SET winner_id = 'b' WHERE id = ?", reg.MatchID)
		require.NoError(t, err)
		defer env.db.Exec("UPDATE matches SET winner_id = 'a' WHERE id = ?", reg.MatchID)

		_, err = env.svc.Confirm(ctx, reg.MatchID, "b")
		assert.ErrorIs(t, err, settlement.ErrInconsistentMatch)
	})

	t.Run("outsider cannot contest", func(t *testing.T) {
		err := env.svc.Contest(ctx, reg.MatchID, "c", "1x3")
		assert.ErrorIs(t, err, settlement.ErrNotParticipant)
	})
}

func TestCancel(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	reg, err := env.svc.Register(ctx, "a", "b", "3x1")
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, reg.MatchID, "b")
	require.NoError(t, err)

	require.NoError(t, env.svc.Cancel(ctx, reg.MatchID, "admin"))
	assert.Equal(t, 1000, env.rating(t, "a"))
	assert.Equal(t, 1000, env.rating(t, "b"))

	assert.ErrorIs(t, env.svc.Cancel(ctx, reg.MatchID, "admin"), settlement.ErrAlreadyCanceled)
	_, err = env.svc.Confirm(ctx, reg.MatchID, "b")
	assert.ErrorIs(t, err, settlement.ErrAlreadyCanceled)
	assert.ErrorIs(t, env.svc.Contest(ctx, reg.MatchID, "b", "1x3"), settlement.ErrAlreadyCanceled)

	t.Run("open match", func(t *testing.T) {
		open, err := env.svc.Register(ctx, "a", "c", "3x1")
		require.NoError(t, err)
		require.NoError(t, env.svc.Cancel(ctx, open.MatchID, "admin"))
		_, err = env.svc.Confirm(ctx, open.MatchID, "c")
		assert.ErrorIs(t, err, settlement.ErrAlreadyCanceled)
	})

	assert.ErrorIs(t, env.svc.Cancel(ctx, "missing", "admin"), settlement.ErrNotFound)
}

func TestWait_RespectsContext(t *testing.T) {
	env, teardown := setup(t)
	defer teardown()

	block := make(chan struct{})
	env.notifier.NotifyFunc = func(notifier.Event) { <-block }
	_, err := env.svc.Register(context.Background(), "a", "b", "3x1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, env.svc.Wait(ctx), context.DeadlineExceeded)

	close(block)
	assert.NoError(t, env.svc.Wait(context.Background()))
}
