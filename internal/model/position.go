package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Position is the closed set of graded fantasy positions.
type Position string

// Graded positions.
const (
	QB Position = "QB"
	RB Position = "RB"
	WR Position = "WR"
	TE Position = "TE"
)

// PositionAll selects every position on the read path. It is never a valid
// grading position.
const PositionAll = "ALL"

// AllPositions lists every graded position in display order.
var AllPositions = []Position{QB, RB, WR, TE}

// ParsePosition converts user input into a Position. Matching is
// case-insensitive; "ALL" and unknown values are rejected.
func ParsePosition(s string) (Position, error) {
	switch Position(strings.ToUpper(strings.TrimSpace(s))) {
	case QB:
		return QB, nil
	case RB:
		return RB, nil
	case WR:
		return WR, nil
	case TE:
		return TE, nil
	}
	return "", eris.Errorf("model: unknown position %q", s)
}

// Valid reports whether p is one of the graded positions.
func (p Position) Valid() bool {
	switch p {
	case QB, RB, WR, TE:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (p Position) String() string { return string(p) }

// Order returns the display ordinal used when grouping grades by position.
func (p Position) Order() int {
	for i, pos := range AllPositions {
		if pos == p {
			return i
		}
	}
	return len(AllPositions)
}

// Mode selects the pillar weighting profile used when composing Alpha.
type Mode string

// Grading modes.
const (
	ModeRedraft  Mode = "redraft"
	ModeDynasty  Mode = "dynasty"
	ModeBestBall Mode = "bestball"
)

// ParseMode converts user input into a Mode. Empty input means redraft.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeRedraft, nil
	case ModeRedraft, ModeDynasty, ModeBestBall:
		return m, nil
	}
	return "", eris.Errorf("model: unknown mode %q", s)
}
