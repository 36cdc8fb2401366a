package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/rating"
)

// NewStore creates a new MatchStore.
func NewStore(db *sql.DB) MatchStore {
	return &store{
		db: db,
	}
}

const matchColumns = `id, player_a, player_b, winner_id, score_a, score_b, status, created_by, approved_by,
	points_variation_a, points_variation_b, final_rating_a, final_rating_b, rating_factor_used,
	created_at, updated_at, validated_at, canceled_at, canceled_by`

// Create inserts a new match. Status defaults to pendente.
func (s *store) Create(ctx context.Context, m *Match) error {
	if m.Status == "" {
		m.Status = StatusPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.UpdatedAt = m.CreatedAt
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, player_a, player_b, winner_id, score_a, score_b, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.PlayerA, m.PlayerB, m.WinnerID, m.ScoreA, m.ScoreB, m.Status, m.CreatedBy, m.CreatedAt.Unix(), m.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	log.Info("Created match", "matchID", m.ID, "playerA", m.PlayerA, "playerB", m.PlayerB, "score", m.Score())
	return nil
}

func (s *store) Get(ctx context.Context, matchID string) (*Match, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id = ?", matchID)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, err)
	}
	return m, nil
}

func (s *store) GetOpen(ctx context.Context, matchID string) (*Match, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id = ? AND status IN (?, ?)",
		matchID, StatusPending, StatusEdited)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get open match %s: %w", matchID, err)
	}
	return m, nil
}

// Contest replaces the score of an open match and hands it back to the opponent.
func (s *store) Contest(ctx context.Context, matchID, userID string, outcome Outcome, at time.Time) error {
	var playerA, playerB string
	err := s.db.QueryRowContext(ctx, "SELECT player_a, player_b FROM matches WHERE id = ?", matchID).Scan(&playerA, &playerB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to read match %s: %w", matchID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE matches
		SET score_a = ?, score_b = ?, winner_id = ?, status = ?, created_by = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, outcome.ScoreA, outcome.ScoreB, outcome.Winner(playerA, playerB), StatusEdited, userID, at.Unix(),
		matchID, StatusPending, StatusEdited)
	if err != nil {
		return fmt.Errorf("failed to contest match %s: %w", matchID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read contest result: %w", err)
	} else if n == 0 {
		return ErrStatusChanged
	}
	log.Info("Match contested", "matchID", matchID, "by", userID, "score", outcome.String())
	return nil
}

// Settle validates an open match and applies the rating result to both
// participants in one transaction. The status compare-and-swap runs first so
// the transaction holds the write lock before any player row is read.
func (s *store) Settle(ctx context.Context, st Settlement) (*Settled, error) {
	exp := st.Expected
	winnerID, loserID := exp.WinnerID, exp.LoserID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE matches
		SET status = ?, approved_by = ?, rating_factor_used = ?, validated_at = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
			AND winner_id = ? AND score_a = ? AND score_b = ? AND created_by = ?
	`, StatusValidated, st.ApprovedBy, st.KFactor, st.At.Unix(), st.At.Unix(),
		st.MatchID, StatusPending, StatusEdited,
		exp.WinnerID, exp.ScoreA, exp.ScoreB, exp.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to validate match %s: %w", st.MatchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read validation result: %w", err)
	}
	if n == 0 {
		return nil, ErrStatusChanged
	}

	winner, err := applyResult(ctx, tx, winnerID, st.Deltas.WinnerDelta, true)
	if err != nil {
		return nil, err
	}
	loser, err := applyResult(ctx, tx, loserID, st.Deltas.LoserDelta, false)
	if err != nil {
		return nil, err
	}

	settled := exp
	settled.Status = StatusValidated
	settled.ApprovedBy = st.ApprovedBy
	settled.RatingFactorUsed = st.KFactor
	settled.UpdatedAt = st.At
	validatedAt := st.At
	settled.ValidatedAt = &validatedAt
	a, b := winner, loser
	if winnerID == exp.PlayerB {
		a, b = loser, winner
	}
	settled.PointsVariationA, settled.FinalRatingA = a.AppliedChange, a.Rating
	settled.PointsVariationB, settled.FinalRatingB = b.AppliedChange, b.Rating

	_, err = tx.ExecContext(ctx, `
		UPDATE matches
		SET points_variation_a = ?, points_variation_b = ?, final_rating_a = ?, final_rating_b = ?
		WHERE id = ?
	`, settled.PointsVariationA, settled.PointsVariationB, settled.FinalRatingA, settled.FinalRatingB, st.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to record rating audit for match %s: %w", st.MatchID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement of match %s: %w", st.MatchID, err)
	}
	log.Info("Match settled", "matchID", st.MatchID, "winner", winnerID, "winnerRating", winner.Rating,
		"loser", loserID, "loserRating", loser.Rating, "k", st.KFactor)
	return &Settled{Match: &settled, Winner: winner, Loser: loser}, nil
}

func applyResult(ctx context.Context, tx *sql.Tx, playerID string, delta int, won bool) (PlayerState, error) {
	ps := PlayerState{ID: playerID}
	err := tx.QueryRowContext(ctx, "SELECT rating, wins, losses, games_played, win_streak FROM players WHERE id = ?", playerID).
		Scan(&ps.RatingBefore, &ps.Wins, &ps.Losses, &ps.GamesPlayed, &ps.WinStreak)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ps, fmt.Errorf("%w: %s", ErrPlayerMissing, playerID)
		}
		return ps, fmt.Errorf("failed to read rating of %s: %w", playerID, err)
	}

	ps.Rating = rating.ApplyFloor(ps.RatingBefore + delta)
	ps.AppliedChange = ps.Rating - ps.RatingBefore
	ps.GamesPlayed++
	if won {
		ps.Wins++
		ps.WinStreak++
	} else {
		ps.Losses++
		ps.WinStreak = 0
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE players
		SET rating = ?, wins = ?, losses = ?, games_played = ?, win_streak = ?, best_streak = MAX(best_streak, ?)
		WHERE id = ?
	`, ps.Rating, ps.Wins, ps.Losses, ps.GamesPlayed, ps.WinStreak, ps.WinStreak, playerID)
	if err != nil {
		return ps, fmt.Errorf("failed to update rating of %s: %w", playerID, err)
	}
	return ps, nil
}

func (s *store) Cancel(ctx context.Context, matchID, actorID string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin cancel transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET status = ?, canceled_at = ?, canceled_by = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, StatusCanceled, at.Unix(), actorID, at.Unix(), matchID, StatusPending, StatusEdited)
	if err != nil {
		return false, fmt.Errorf("failed to cancel match %s: %w", matchID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit cancel of match %s: %w", matchID, err)
		}
		log.Info("Open match canceled", "matchID", matchID, "by", actorID)
		return false, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE matches SET status = ?, canceled_at = ?, canceled_by = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, StatusCanceled, at.Unix(), actorID, at.Unix(), matchID, StatusValidated)
	if err != nil {
		return false, fmt.Errorf("failed to cancel match %s: %w", matchID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrStatusChanged
	}

	var playerA, playerB, winnerID string
	var pvA, pvB sql.NullInt64
	err = tx.QueryRowContext(ctx, "SELECT player_a, player_b, winner_id, points_variation_a, points_variation_b FROM matches WHERE id = ?", matchID).
		Scan(&playerA, &playerB, &winnerID, &pvA, &pvB)
	if err != nil {
		return false, fmt.Errorf("failed to read rating audit of match %s: %w", matchID, err)
	}

	for _, p := range []struct {
		id    string
		delta int64
	}{{playerA, pvA.Int64}, {playerB, pvB.Int64}} {
		counter := "losses"
		if p.id == winnerID {
			counter = "wins"
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE players
			SET rating = MAX(?, rating - ?), `+counter+` = MAX(0, `+counter+` - 1), games_played = MAX(0, games_played - 1)
			WHERE id = ?
		`, rating.MinRating, p.delta, p.id)
		if err != nil {
			return false, fmt.Errorf("failed to reverse rating of %s: %w", p.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit reversal of match %s: %w", matchID, err)
	}
	log.Info("Validated match canceled and reversed", "matchID", matchID, "by", actorID, "deltaA", pvA.Int64, "deltaB", pvB.Int64)
	return true, nil
}

// ListValidatedForPlayer returns every validated match of a player, newest first.
func (s *store) ListValidatedForPlayer(ctx context.Context, playerID string) ([]Match, error) {
	return s.list(ctx, "SELECT "+matchColumns+` FROM matches
		WHERE status = ? AND (player_a = ? OR player_b = ?)
		ORDER BY created_at DESC`, StatusValidated, playerID, playerID)
}

func (s *store) ListForPlayer(ctx context.Context, playerID string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx, "SELECT "+matchColumns+` FROM matches
		WHERE player_a = ? OR player_b = ?
		ORDER BY created_at DESC LIMIT ?`, playerID, playerID, limit)
}

func (s *store) list(ctx context.Context, query string, args ...any) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// scanMatch is a helper function to scan a single match row.
func scanMatch(scanner interface{ Scan(...any) error }) (*Match, error) {
	var m Match
	var approvedBy, canceledBy sql.NullString
	var pvA, pvB, finalA, finalB, factor, validatedAt, canceledAt sql.NullInt64
	var createdAt, updatedAt int64

	err := scanner.Scan(
		&m.ID, &m.PlayerA, &m.PlayerB, &m.WinnerID, &m.ScoreA, &m.ScoreB, &m.Status, &m.CreatedBy, &approvedBy,
		&pvA, &pvB, &finalA, &finalB, &factor,
		&createdAt, &updatedAt, &validatedAt, &canceledAt, &canceledBy,
	)
	if err != nil {
		return nil, err
	}

	m.ApprovedBy = approvedBy.String
	m.CanceledBy = canceledBy.String
	m.PointsVariationA = int(pvA.Int64)
	m.PointsVariationB = int(pvB.Int64)
	m.FinalRatingA = int(finalA.Int64)
	m.FinalRatingB = int(finalB.Int64)
	m.RatingFactorUsed = int(factor.Int64)
	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	if validatedAt.Valid {
		t := time.Unix(validatedAt.Int64, 0)
		m.ValidatedAt = &t
	}
	if canceledAt.Valid {
		t := time.Unix(canceledAt.Int64, 0)
		m.CanceledAt = &t
	}
	return &m, nil
}
