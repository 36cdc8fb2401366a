package settlement

import (
	"sync"
	"time"

	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
)

const (
	DefaultTimeout            = 5 * time.Second
	DefaultBackgroundTimeout  = 20 * time.Second
	DefaultAchievementTimeout = 2 * time.Second
	defaultDailyLimit         = 2
)

// Options tune the service. Zero values fall back to the defaults.
type Options struct {
	// Timeout bounds each operation's critical path.
	Timeout time.Duration
	// BackgroundTimeout bounds each detached post-processing task.
	BackgroundTimeout time.Duration
	// AchievementTimeout bounds the awaited evaluation for the confirming member.
	AchievementTimeout time.Duration
	// Location decides which calendar day a registration counts against.
	Location *time.Location
}

// Service runs the match settlement protocol.
type Service struct {
	club         club.ClubStore
	matches      match.MatchStore
	quota        match.QuotaStore
	achievements achievement.Evaluator
	notifier     notifier.Notifier
	feed         Feed
	metrics      metrics.Metrics
	opts         Options
	now          func() time.Time

	wg sync.WaitGroup
}

// RegisterResult is returned by Register.
type RegisterResult struct {
	MatchID string       `json:"match_id"`
	Match   *match.Match `json:"match"`
}

// ConfirmResult is returned by Confirm. Unlocked lists the confirming
// member's new achievements.
type ConfirmResult struct {
	Match    *match.Match           `json:"match"`
	Winner   match.PlayerState      `json:"winner"`
	Loser    match.PlayerState      `json:"loser"`
	Unlocked []achievement.Unlocked `json:"unlocked_achievements"`
}
