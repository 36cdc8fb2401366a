package club

import (
	"database/sql"
	"errors"
	"time"
)

const (
	SettingKFactor         = "elo_k_factor"
	SettingDailyMatchLimit = "daily_match_limit"
)

// ErrPlayerNotFound is returned when a member id is unknown.
var ErrPlayerNotFound = errors.New("player not found")

// store handles all database operations for the club.
type store struct {
	db *sql.DB
}

// Player is a club member together with their mutable rating state.
type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Rating      int       `json:"rating"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	GamesPlayed int       `json:"games_played"`
	WinStreak   int       `json:"win_streak"`
	BestStreak  int       `json:"best_streak"`
	Hidden      bool      `json:"hidden"`
	CreatedAt   time.Time `json:"created_at"`
}

// WinPercentage returns the share of games won, from 0 to 100.
func (p Player) WinPercentage() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.GamesPlayed) * 100
}

// RatingInputs is the consistent snapshot a confirmation settles against.
type RatingInputs struct {
	PlayerA Player
	PlayerB Player
	KFactor int
}
