package achievement

import (
	"database/sql"
	"time"
)

// ConditionType names the rule an achievement is unlocked by.
type ConditionType string

const (
	ConditionGamesPlayed      ConditionType = "games_played"
	ConditionWins             ConditionType = "wins"
	ConditionLosses           ConditionType = "losses"
	ConditionStreak           ConditionType = "streak"
	ConditionRating           ConditionType = "rating"
	ConditionWinRate          ConditionType = "win_rate"
	ConditionRanking          ConditionType = "ranking"
	ConditionDailyMatches     ConditionType = "daily_matches"
	ConditionHeadToHead       ConditionType = "head_to_head"
	ConditionUniqueOpponents  ConditionType = "unique_opponents"
	ConditionAccountAge       ConditionType = "account_age"
	ConditionConsecutiveWeeks ConditionType = "consecutive_weeks"
	ConditionActiveMonths     ConditionType = "active_months"
	ConditionFirstWeek        ConditionType = "first_week"
	ConditionFirstMonth       ConditionType = "first_month"
	ConditionComeback         ConditionType = "comeback"
	ConditionUpsetWin         ConditionType = "upset_win"
	ConditionShutout          ConditionType = "shutout"
)

// minGamesForWinRate keeps a 1-0 record from unlocking win-rate achievements.
const minGamesForWinRate = 10

// store handles database operations for the catalog and unlocks.
type store struct {
	db *sql.DB
}

// Achievement is a catalog entry.
type Achievement struct {
	ID             string        `json:"id"`
	Key            string        `json:"key"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Rarity         string        `json:"rarity"`
	RewardPoints   int           `json:"reward_points"`
	ConditionType  ConditionType `json:"condition_type"`
	ConditionValue int           `json:"condition_value"`
	Active         bool          `json:"active"`
}

// Unlocked is an achievement a user holds.
type Unlocked struct {
	Achievement
	UnlockedAt time.Time `json:"unlocked_at"`
	MatchID    string    `json:"match_id,omitempty"`
}

// Context is the player state an evaluation pass runs against. Counters are
// the values after the triggering match was applied.
type Context struct {
	UserID      string
	Wins        int
	Losses      int
	GamesPlayed int
	Rating      int
	WinStreak   int
	// Match specific fields, meaningful only when HasMatch is set.
	HasMatch       bool
	MatchID        string
	IsWinner       bool
	RatingBefore   int
	OpponentRating int
	// Score is the result from the user's side, e.g. "3x0".
	Score string
}

type conditionKey struct {
	kind  ConditionType
	value int
}
