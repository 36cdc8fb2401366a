package achievement

import (
	"context"
	"fmt"
	"time"

	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/match"
)

// pass is the state of a single evaluation. Results are memoized by
// (condition, value) and the expensive reads happen at most once.
type pass struct {
	e   *Engine
	c   Context
	now time.Time

	results map[conditionKey]bool

	history       []match.Match
	historyLoaded bool

	player *club.Player

	ranks map[int]bool
}

func newPass(e *Engine, c Context) *pass {
	return &pass{
		e:       e,
		c:       c,
		now:     e.now().In(e.loc),
		results: make(map[conditionKey]bool),
		ranks:   make(map[int]bool),
	}
}

func (p *pass) satisfied(ctx context.Context, kind ConditionType, value int) (bool, error) {
	key := conditionKey{kind: kind, value: value}
	if ok, found := p.results[key]; found {
		return ok, nil
	}
	ok, err := p.check(ctx, kind, value)
	if err != nil {
		return false, err
	}
	p.results[key] = ok
	return ok, nil
}

func (p *pass) check(ctx context.Context, kind ConditionType, value int) (bool, error) {
	c := p.c
	switch kind {
	case ConditionGamesPlayed:
		return c.GamesPlayed >= value, nil
	case ConditionWins:
		return c.Wins >= value, nil
	case ConditionLosses:
		return c.Losses >= value, nil
	case ConditionStreak:
		return c.WinStreak >= value, nil
	case ConditionRating:
		return c.Rating >= value, nil
	case ConditionWinRate:
		if c.GamesPlayed < minGamesForWinRate {
			return false, nil
		}
		return float64(c.Wins)*100/float64(c.GamesPlayed) >= float64(value), nil
	case ConditionUpsetWin:
		return c.HasMatch && c.IsWinner && c.OpponentRating-c.RatingBefore >= value, nil
	case ConditionShutout:
		return c.HasMatch && c.IsWinner && c.Score == fmt.Sprintf("%dx0", value), nil
	case ConditionRanking:
		return p.inTop(ctx, value)
	case ConditionAccountAge:
		player, err := p.loadPlayer(ctx)
		if err != nil {
			return false, err
		}
		return int(p.now.Sub(player.CreatedAt).Hours()/24) >= value, nil
	}

	history, err := p.loadHistory(ctx)
	if err != nil {
		return false, err
	}
	switch kind {
	case ConditionDailyMatches:
		return p.matchesToday(history) >= value, nil
	case ConditionHeadToHead:
		return maxHeadToHead(history, c.UserID) >= value, nil
	case ConditionUniqueOpponents:
		return uniqueOpponents(history, c.UserID) >= value, nil
	case ConditionConsecutiveWeeks:
		return p.consecutiveWeeks(history) >= value, nil
	case ConditionActiveMonths:
		return p.activeMonths(history) >= value, nil
	case ConditionFirstWeek, ConditionFirstMonth:
		player, err := p.loadPlayer(ctx)
		if err != nil {
			return false, err
		}
		window := 7 * 24 * time.Hour
		if kind == ConditionFirstMonth {
			window = 30 * 24 * time.Hour
		}
		return matchesWithin(history, player.CreatedAt, window) >= value, nil
	case ConditionComeback:
		return comebackGapDays(history) >= value, nil
	}
	return false, fmt.Errorf("unknown condition type %q", kind)
}

func (p *pass) loadHistory(ctx context.Context) ([]match.Match, error) {
	if p.historyLoaded {
		return p.history, nil
	}
	history, err := p.e.matches.ListValidatedForPlayer(ctx, p.c.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match history: %w", err)
	}
	p.history, p.historyLoaded = history, true
	return history, nil
}

func (p *pass) loadPlayer(ctx context.Context) (*club.Player, error) {
	if p.player != nil {
		return p.player, nil
	}
	player, err := p.e.club.GetPlayer(ctx, p.c.UserID)
	if err != nil {
		return nil, err
	}
	p.player = player
	return player, nil
}

func (p *pass) inTop(ctx context.Context, n int) (bool, error) {
	if ok, found := p.ranks[n]; found {
		return ok, nil
	}
	board, err := p.e.club.GetLeaderboard(ctx, n)
	if err != nil {
		return false, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	ok := false
	for _, player := range board {
		if player.ID == p.c.UserID {
			ok = true
			break
		}
	}
	p.ranks[n] = ok
	return ok, nil
}

func (p *pass) matchesToday(history []match.Match) int {
	y, m, d := p.now.Date()
	count := 0
	for _, h := range history {
		at := h.CreatedAt
		if h.ValidatedAt != nil {
			at = *h.ValidatedAt
		}
		hy, hm, hd := at.In(p.e.loc).Date()
		if hy == y && hm == m && hd == d {
			count++
		}
	}
	return count
}

type isoWeek struct{ year, week int }

// consecutiveWeeks counts the unbroken chain of ISO weeks with a match,
// ending with the current week.
func (p *pass) consecutiveWeeks(history []match.Match) int {
	weeks := make(map[isoWeek]bool, len(history))
	for _, h := range history {
		y, w := h.CreatedAt.In(p.e.loc).ISOWeek()
		weeks[isoWeek{y, w}] = true
	}
	count := 0
	for day := p.now; ; day = day.AddDate(0, 0, -7) {
		y, w := day.ISOWeek()
		if !weeks[isoWeek{y, w}] {
			return count
		}
		count++
	}
}

func (p *pass) activeMonths(history []match.Match) int {
	months := make(map[string]bool)
	for _, h := range history {
		months[h.CreatedAt.In(p.e.loc).Format("2006-01")] = true
	}
	return len(months)
}

func maxHeadToHead(history []match.Match, userID string) int {
	counts := make(map[string]int)
	best := 0
	for i := range history {
		opp := history[i].Opponent(userID)
		counts[opp]++
		if counts[opp] > best {
			best = counts[opp]
		}
	}
	return best
}

func uniqueOpponents(history []match.Match, userID string) int {
	seen := make(map[string]bool)
	for i := range history {
		seen[history[i].Opponent(userID)] = true
	}
	return len(seen)
}

func matchesWithin(history []match.Match, since time.Time, window time.Duration) int {
	end := since.Add(window)
	count := 0
	for _, h := range history {
		if !h.CreatedAt.Before(since) && h.CreatedAt.Before(end) {
			count++
		}
	}
	return count
}

// comebackGapDays is the gap between the two most recent matches. history is newest first.
func comebackGapDays(history []match.Match) int {
	if len(history) < 2 {
		return 0
	}
	return int(history[0].CreatedAt.Sub(history[1].CreatedAt).Hours() / 24)
}
