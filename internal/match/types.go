package match

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mauv0809/pingpong-ladder/internal/rating"
)

// Status is the lifecycle state of a reported match.
type Status string

const (
	StatusPending   Status = "pendente"
	StatusEdited    Status = "edited"
	StatusValidated Status = "validado"
	StatusCanceled  Status = "cancelado"
)

// Open reports whether the match still awaits a confirm or contest.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusEdited
}

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrStatusChanged signals that a conditional write matched zero rows:
	// someone else moved the match first.
	ErrStatusChanged  = errors.New("match status changed concurrently")
	ErrQuotaExceeded  = errors.New("daily match limit reached for this pair")
	ErrPlayerMissing  = errors.New("participant row missing")
	ErrInconsistent   = errors.New("declared winner does not match the score")
	ErrInvalidOutcome = errors.New("invalid outcome")
)

// store handles database operations for matches.
type store struct {
	db *sql.DB
}

// quotaStore handles the per-pair daily counters.
type quotaStore struct {
	db *sql.DB
}

// Match is one reported contest between two members.
type Match struct {
	ID               string     `json:"id"`
	PlayerA          string     `json:"player_a"`
	PlayerB          string     `json:"player_b"`
	WinnerID         string     `json:"winner_id"`
	ScoreA           int        `json:"score_a"`
	ScoreB           int        `json:"score_b"`
	Status           Status     `json:"status"`
	CreatedBy        string     `json:"created_by"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	PointsVariationA int        `json:"points_variation_a"`
	PointsVariationB int        `json:"points_variation_b"`
	FinalRatingA     int        `json:"final_rating_a,omitempty"`
	FinalRatingB     int        `json:"final_rating_b,omitempty"`
	RatingFactorUsed int        `json:"rating_factor_used,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ValidatedAt      *time.Time `json:"validated_at,omitempty"`
	CanceledAt       *time.Time `json:"canceled_at,omitempty"`
	CanceledBy       string     `json:"canceled_by,omitempty"`
}

func (m *Match) IsParticipant(playerID string) bool {
	return playerID != "" && (m.PlayerA == playerID || m.PlayerB == playerID)
}

// Opponent returns the other participant, or "" when playerID did not play.
func (m *Match) Opponent(playerID string) string {
	switch playerID {
	case m.PlayerA:
		return m.PlayerB
	case m.PlayerB:
		return m.PlayerA
	}
	return ""
}

func (m *Match) LoserID() string {
	return m.Opponent(m.WinnerID)
}

// Score renders the result in slot order, e.g. "3x1".
func (m *Match) Score() string {
	return Outcome{ScoreA: m.ScoreA, ScoreB: m.ScoreB}.String()
}

// ScoreFor renders the result from playerID's point of view.
func (m *Match) ScoreFor(playerID string) string {
	if playerID == m.PlayerB {
		return Outcome{ScoreA: m.ScoreB, ScoreB: m.ScoreA}.String()
	}
	return m.Score()
}

// Validate checks the row invariants that settlement depends on.
func (m *Match) Validate() error {
	if m.PlayerA == m.PlayerB {
		return fmt.Errorf("%w: players are the same", ErrInconsistent)
	}
	if m.ScoreA == m.ScoreB {
		return fmt.Errorf("%w: scores are tied", ErrInconsistent)
	}
	expected := Outcome{ScoreA: m.ScoreA, ScoreB: m.ScoreB}.Winner(m.PlayerA, m.PlayerB)
	if m.WinnerID != expected {
		return fmt.Errorf("%w: winner %s, score %s", ErrInconsistent, m.WinnerID, m.Score())
	}
	return nil
}

// Settlement is the write set of one confirmation.
type Settlement struct {
	MatchID    string
	ApprovedBy string
	// Expected is the row as read by the confirmer; the commit only applies if it is unchanged.
	Expected Match
	Deltas   rating.Result
	KFactor  int
	At       time.Time
}

// PlayerState is a participant's rating state after a settlement.
type PlayerState struct {
	ID            string `json:"id"`
	RatingBefore  int    `json:"rating_before"`
	Rating        int    `json:"rating"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	GamesPlayed   int    `json:"games_played"`
	WinStreak     int    `json:"win_streak"`
	AppliedChange int    `json:"applied_change"`
}

// Settled is the committed result of a confirmation.
type Settled struct {
	Match  *Match
	Winner PlayerState
	Loser  PlayerState
}
