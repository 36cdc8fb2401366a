package match

import (
	"context"
	"time"
)

// MatchStore defines the match persistence operations. Every transition is a
// conditional write guarded on the current status.
type MatchStore interface {
	Create(ctx context.Context, m *Match) error
	Get(ctx context.Context, matchID string) (*Match, error)
	// GetOpen returns the match only while it is pendente or edited.
	GetOpen(ctx context.Context, matchID string) (*Match, error)
	Contest(ctx context.Context, matchID, userID string, outcome Outcome, at time.Time) error
	Settle(ctx context.Context, s Settlement) (*Settled, error)
	// Cancel moves the match to cancelado, reversing rating effects of a validated match.
	// It reports whether a reversal happened.
	Cancel(ctx context.Context, matchID, actorID string, at time.Time) (bool, error)
	ListValidatedForPlayer(ctx context.Context, playerID string) ([]Match, error)
	ListForPlayer(ctx context.Context, playerID string, limit int) ([]Match, error)
}

// QuotaStore bounds how many matches a pair may register per day.
type QuotaStore interface {
	// Reserve takes one slot for the pair on day, failing with ErrQuotaExceeded at the limit.
	Reserve(ctx context.Context, playerID, opponentID, day string, limit int) error
	Release(ctx context.Context, playerID, opponentID, day string) error
	Count(ctx context.Context, playerID, opponentID, day string) (int, error)
	PruneBefore(ctx context.Context, day string) (int64, error)
}
