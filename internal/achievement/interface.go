package achievement

import (
	"context"
	"time"
)

// Store defines the catalog and unlock persistence operations.
type Store interface {
	ActiveCatalog(ctx context.Context) ([]Achievement, error)
	UnlockedIDs(ctx context.Context, userID string) (map[string]bool, error)
	// Unlock records the achievement for the user. It reports false when the
	// user already held it.
	Unlock(ctx context.Context, userID, achievementID, matchID string, at time.Time) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]Unlocked, error)
}

// Evaluator runs an evaluation pass and returns what was newly unlocked.
type Evaluator interface {
	Evaluate(ctx context.Context, c Context) []Unlocked
}
