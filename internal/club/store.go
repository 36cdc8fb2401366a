package club

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/rating"
)

// New creates a new ClubStore.
func New(db *sql.DB) ClubStore {
	return &store{
		db: db,
	}
}

const playerColumns = "id, name, rating, wins, losses, games_played, win_streak, best_streak, hidden, created_at"

// AddPlayer inserts a member, or refreshes the display name of an existing one.
// Rating state of existing members is never touched here.
func (s *store) AddPlayer(ctx context.Context, player Player) error {
	if player.Rating == 0 {
		player.Rating = rating.DefaultRating
	}
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, rating, hidden, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, hidden = excluded.hidden
	`, player.ID, player.Name, player.Rating, player.Hidden, player.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to add player %s: %w", player.ID, err)
	}
	log.Debug("Upserted player", "playerID", player.ID, "name", player.Name)
	return nil
}

func (s *store) GetPlayer(ctx context.Context, playerID string) (*Player, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE id = ?", playerID)
	p, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", playerID, err)
	}
	return p, nil
}

// GetPlayers returns the members with the given ids. Unknown ids are skipped.
func (s *store) GetPlayers(ctx context.Context, playerIDs []string) ([]Player, error) {
	if len(playerIDs) == 0 {
		return []Player{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(playerIDs)), ",")
	rows, err := s.db.QueryContext(ctx, "SELECT "+playerColumns+" FROM players WHERE id IN ("+placeholders+")", ToAnySlice(playerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// FindPlayerByName looks a member up by display name, ignoring case.
func (s *store) FindPlayerByName(ctx context.Context, name string) (*Player, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE name = ? COLLATE NOCASE LIMIT 1", strings.TrimSpace(name))
	p, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to find player %q: %w", name, err)
	}
	return p, nil
}

// GetLeaderboard returns visible members ordered by rating. A limit <= 0 returns everyone.
func (s *store) GetLeaderboard(ctx context.Context, limit int) ([]Player, error) {
	query := "SELECT " + playerColumns + ` FROM players
		WHERE hidden = 0 AND games_played > 0
		ORDER BY rating DESC, wins DESC, name ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// GetRatingInputs reads both participants and the active K-factor in one read transaction.
func (s *store) GetRatingInputs(ctx context.Context, playerA, playerB string) (*RatingInputs, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := scanPlayer(tx.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE id = ?", playerA))
	if err != nil {
		return nil, fmt.Errorf("failed to read player %s: %w", playerA, notFound(err))
	}
	b, err := scanPlayer(tx.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE id = ?", playerB))
	if err != nil {
		return nil, fmt.Errorf("failed to read player %s: %w", playerB, notFound(err))
	}
	k, err := intSetting(ctx, tx, SettingKFactor, rating.DefaultFactor)
	if err != nil {
		return nil, err
	}
	return &RatingInputs{PlayerA: *a, PlayerB: *b, KFactor: k}, nil
}

func (s *store) GetIntSetting(ctx context.Context, key string, fallback int) (int, error) {
	return intSetting(ctx, s.db, key, fallback)
}

func (s *store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	log.Info("Updated setting", "key", key, "value", value)
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func intSetting(ctx context.Context, q queryRower, key string, fallback int) (int, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("setting %s is not an integer: %q", key, raw)
	}
	return v, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlayerNotFound
	}
	return err
}

// scanPlayer is a helper function to scan a single player row.
func scanPlayer(scanner interface{ Scan(...any) error }) (*Player, error) {
	var p Player
	var createdAt int64
	err := scanner.Scan(&p.ID, &p.Name, &p.Rating, &p.Wins, &p.Losses, &p.GamesPlayed, &p.WinStreak, &p.BestStreak, &p.Hidden, &createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

func ToAnySlice[T any](s []T) []any {
	a := make([]any, len(s))
	for i, v := range s {
		a[i] = v
	}
	return a
}
