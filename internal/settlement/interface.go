package settlement

import (
	"context"

	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/match"
)

// Feed announces settled results to the club channel.
type Feed interface {
	MatchValidated(ctx context.Context, settled *match.Settled, winner, loser club.Player) error
	AchievementsUnlocked(ctx context.Context, player club.Player, unlocked []achievement.Unlocked) error
}
