package achievement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a new achievement Store.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) ActiveCatalog(ctx context.Context) ([]Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, name, description, category, rarity, reward_points, condition_type, condition_value, active
		FROM achievements
		WHERE active = 1
		ORDER BY category, condition_type, condition_value
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement catalog: %w", err)
	}
	defer rows.Close()

	catalog := []Achievement{}
	for rows.Next() {
		var a Achievement
		if err := rows.Scan(&a.ID, &a.Key, &a.Name, &a.Description, &a.Category, &a.Rarity,
			&a.RewardPoints, &a.ConditionType, &a.ConditionValue, &a.Active); err != nil {
			return nil, fmt.Errorf("failed to scan achievement row: %w", err)
		}
		catalog = append(catalog, a)
	}
	return catalog, rows.Err()
}

func (s *store) UnlockedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT achievement_id FROM user_achievements WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unlocked achievements: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unlocked achievement: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Unlock relies on the (user_id, achievement_id) key: concurrent passes may
// both decide to unlock, only one insert takes effect.
func (s *store) Unlock(ctx context.Context, userID, achievementID, matchID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at, match_id)
		VALUES (?, ?, ?, NULLIF(?, ''))
		ON CONFLICT(user_id, achievement_id) DO NOTHING
	`, userID, achievementID, at.Unix(), matchID)
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement %s for %s: %w", achievementID, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read unlock result: %w", err)
	}
	if n == 1 {
		log.Info("Achievement unlocked", "userID", userID, "achievementID", achievementID, "matchID", matchID)
	}
	return n == 1, nil
}

func (s *store) ListForUser(ctx context.Context, userID string) ([]Unlocked, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.key, a.name, a.description, a.category, a.rarity, a.reward_points,
			a.condition_type, a.condition_value, a.active, ua.unlocked_at, COALESCE(ua.match_id, '')
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = ?
		ORDER BY ua.unlocked_at DESC, a.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements of %s: %w", userID, err)
	}
	defer rows.Close()

	unlocked := []Unlocked{}
	for rows.Next() {
		var u Unlocked
		var at int64
		if err := rows.Scan(&u.ID, &u.Key, &u.Name, &u.Description, &u.Category, &u.Rarity, &u.RewardPoints,
			&u.ConditionType, &u.ConditionValue, &u.Active, &at, &u.MatchID); err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}
		u.UnlockedAt = time.Unix(at, 0)
		unlocked = append(unlocked, u)
	}
	return unlocked, rows.Err()
}
