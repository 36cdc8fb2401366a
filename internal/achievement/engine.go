package achievement

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates the catalog against a player after a settled match.
type Engine struct {
	store   Store
	cache   *CatalogCache
	club    club.ClubStore
	matches match.MatchStore
	metrics metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

var _ Evaluator = (*Engine)(nil)

// NewEngine creates an Engine. loc is the club time zone used for day, week
// and month boundaries.
func NewEngine(store Store, cache *CatalogCache, clubStore club.ClubStore, matches match.MatchStore, m metrics.Metrics, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:   store,
		cache:   cache,
		club:    clubStore,
		matches: matches,
		metrics: m,
		loc:     loc,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Evaluate runs one pass for c.UserID and returns the achievements this pass
// actually unlocked. It never fails: errors are logged and yield no unlocks.
func (e *Engine) Evaluate(ctx context.Context, c Context) []Unlocked {
	unlocked, err := e.evaluate(ctx, c)
	if err != nil {
		log.Error("Achievement evaluation failed", "userID", c.UserID, "matchID", c.MatchID, "error", err)
		return []Unlocked{}
	}
	if len(unlocked) > 0 {
		e.metrics.IncAchievementsUnlocked(len(unlocked))
	}
	return unlocked
}

func (e *Engine) evaluate(ctx context.Context, c Context) ([]Unlocked, error) {
	var (
		catalog []Achievement
		held    map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = e.cache.Get(gctx)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		held, err = e.store.UnlockedIDs(gctx, c.UserID)
		if err != nil {
			return fmt.Errorf("failed to load unlocked achievements: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := newPass(e, c)
	unlocked := []Unlocked{}
	for _, a := range catalog {
		if held[a.ID] {
			continue
		}
		ok, err := p.satisfied(ctx, a.ConditionType, a.ConditionValue)
		if err != nil {
			log.Warn("Skipping achievement condition", "achievementID", a.ID, "condition", a.ConditionType, "error", err)
			continue
		}
		if !ok {
			continue
		}
		at := p.now
		inserted, err := e.store.Unlock(ctx, c.UserID, a.ID, c.MatchID, at)
		if err != nil {
			log.Error("Failed to record achievement", "achievementID", a.ID, "userID", c.UserID, "error", err)
			continue
		}
		if inserted {
			unlocked = append(unlocked, Unlocked{Achievement: a, UnlockedAt: at, MatchID: c.MatchID})
		}
	}
	return unlocked, nil
}
