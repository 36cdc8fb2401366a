package club

import "context"

// ClubStore defines the interface for interacting with club members and settings.
type ClubStore interface {
	AddPlayer(ctx context.Context, player Player) error
	GetPlayer(ctx context.Context, playerID string) (*Player, error)
	GetPlayers(ctx context.Context, playerIDs []string) ([]Player, error)
	FindPlayerByName(ctx context.Context, name string) (*Player, error)
	GetLeaderboard(ctx context.Context, limit int) ([]Player, error)
	GetRatingInputs(ctx context.Context, playerA, playerB string) (*RatingInputs, error)
	GetIntSetting(ctx context.Context, key string, fallback int) (int, error)
	SetSetting(ctx context.Context, key, value string) error
}
