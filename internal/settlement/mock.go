package settlement

import (
	"context"
	"sync"

	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/match"
)

// MockFeed is a mock implementation of the Feed interface for testing.
// It is safe for concurrent use.
type MockFeed struct {
	mu sync.Mutex

	MatchValidatedFunc func(settled *match.Settled) error

	MatchValidatedCalls       []*match.Settled
	AchievementsUnlockedCalls []struct {
		Player   club.Player
		Unlocked []achievement.Unlocked
	}
}

func NewMockFeed() *MockFeed {
	return &MockFeed{}
}

func (m *MockFeed) MatchValidated(ctx context.Context, settled *match.Settled, winner, loser club.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchValidatedCalls = append(m.MatchValidatedCalls, settled)
	if m.MatchValidatedFunc != nil {
		return m.MatchValidatedFunc(settled)
	}
	return nil
}

func (m *MockFeed) AchievementsUnlocked(ctx context.Context, player club.Player, unlocked []achievement.Unlocked) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AchievementsUnlockedCalls = append(m.AchievementsUnlockedCalls, struct {
		Player   club.Player
		Unlocked []achievement.Unlocked
	}{player, unlocked})
	return nil
}
