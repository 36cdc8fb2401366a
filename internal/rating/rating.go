package rating

import "math"

const (
	// MinRating is the floor no player rating may drop below.
	MinRating = 100
	// DefaultRating is assigned to new members.
	DefaultRating = 1000
	// DefaultFactor is the K-factor used when settings carry none.
	DefaultFactor = 24

	minFactor = 1
	maxFactor = 100
)

// Result holds the independently derived deltas for one settled match.
type Result struct {
	WinnerDelta int `json:"winner_delta"`
	LoserDelta  int `json:"loser_delta"`
}

// Expected returns the probability that a player rated a beats a player rated b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Calculate computes the rating deltas for a winner and a loser under factor k.
// The loser delta is derived from its own expected score and is never positive.
func Calculate(winnerRating, loserRating, k int) Result {
	winner := math.Round(float64(k) * (1 - Expected(winnerRating, loserRating)))
	loser := math.Round(float64(k) * (0 - Expected(loserRating, winnerRating)))
	return Result{
		WinnerDelta: int(winner),
		LoserDelta:  int(loser),
	}
}

// ApplyFloor clamps a rating to MinRating.
func ApplyFloor(r int) int {
	if r < MinRating {
		return MinRating
	}
	return r
}

// ValidFactor reports whether k is an accepted K-factor.
func ValidFactor(k int) bool {
	return k >= minFactor && k <= maxFactor
}
