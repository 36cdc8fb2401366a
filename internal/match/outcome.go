package match

import (
	"fmt"
	"regexp"
	"strconv"
)

const maxPoints = 99

var outcomePattern = regexp.MustCompile(`^\s*(\d{1,2})\s*[xX]\s*(\d{1,2})\s*$`)

// Outcome is a final score in slot order: player A's points, then player B's.
type Outcome struct {
	ScoreA int
	ScoreB int
}

// ParseOutcome parses "NxM" with both sides in 0..99 and N != M.
func ParseOutcome(raw string) (Outcome, error) {
	m := outcomePattern.FindStringSubmatch(raw)
	if m == nil {
		return Outcome{}, fmt.Errorf("%w: %q is not in NxM format", ErrInvalidOutcome, raw)
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	o := Outcome{ScoreA: a, ScoreB: b}
	if a > maxPoints || b > maxPoints {
		return Outcome{}, fmt.Errorf("%w: scores must be between 0 and %d", ErrInvalidOutcome, maxPoints)
	}
	if a == b {
		return Outcome{}, fmt.Errorf("%w: a match cannot end tied", ErrInvalidOutcome)
	}
	return o, nil
}

// Winner returns whichever of playerA and playerB scored more.
func (o Outcome) Winner(playerA, playerB string) string {
	if o.ScoreA > o.ScoreB {
		return playerA
	}
	return playerB
}

func (o Outcome) String() string {
	return fmt.Sprintf("%dx%d", o.ScoreA, o.ScoreB)
}
