package match

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/database"
)

// NewQuotaStore creates a new QuotaStore.
func NewQuotaStore(db *sql.DB) QuotaStore {
	return &quotaStore{
		db: db,
	}
}

// pairKey orders the two ids so (a, b) and (b, a) share one counter.
func pairKey(playerID, opponentID string) (string, string) {
	if playerID < opponentID {
		return playerID, opponentID
	}
	return opponentID, playerID
}

// Reserve claims a slot with a single conditional write, so two concurrent
// registrations can never both take the last slot.
func (q *quotaStore) Reserve(ctx context.Context, playerID, opponentID, day string, limit int) error {
	if limit <= 0 {
		return ErrQuotaExceeded
	}
	low, high := pairKey(playerID, opponentID)

	_, err := q.db.ExecContext(ctx,
		"INSERT INTO daily_quota (player_low, player_high, day, count) VALUES (?, ?, ?, 1)", low, high, day)
	if err == nil {
		return nil
	}
	if !database.IsUniqueViolation(err) {
		return fmt.Errorf("failed to reserve quota: %w", err)
	}

	res, err := q.db.ExecContext(ctx, `
		UPDATE daily_quota SET count = count + 1
		WHERE player_low = ? AND player_high = ? AND day = ? AND count < ?
	`, low, high, day, limit)
	if err != nil {
		return fmt.Errorf("failed to reserve quota: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read quota result: %w", err)
	}
	if n == 0 {
		log.Debug("Daily quota exhausted", "low", low, "high", high, "day", day, "limit", limit)
		return ErrQuotaExceeded
	}
	return nil
}

// Release gives back a slot taken by Reserve when the registration did not go through.
func (q *quotaStore) Release(ctx context.Context, playerID, opponentID, day string) error {
	low, high := pairKey(playerID, opponentID)
	_, err := q.db.ExecContext(ctx, `
		UPDATE daily_quota SET count = count - 1
		WHERE player_low = ? AND player_high = ? AND day = ? AND count > 0
	`, low, high, day)
	if err != nil {
		return fmt.Errorf("failed to release quota: %w", err)
	}
	return nil
}

func (q *quotaStore) Count(ctx context.Context, playerID, opponentID, day string) (int, error) {
	low, high := pairKey(playerID, opponentID)
	var count int
	err := q.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(count), 0) FROM daily_quota WHERE player_low = ? AND player_high = ? AND day = ?",
		low, high, day).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to read quota: %w", err)
	}
	return count, nil
}

// PruneBefore deletes counters of days strictly before day (YYYY-MM-DD).
func (q *quotaStore) PruneBefore(ctx context.Context, day string) (int64, error) {
	res, err := q.db.ExecContext(ctx, "DELETE FROM daily_quota WHERE day < ?", day)
	if err != nil {
		return 0, fmt.Errorf("failed to prune quota: %w", err)
	}
	return res.RowsAffected()
}
