package board

import (
	"errors"
	"math"
)

// PositionGap is the spacing between appended items. The gap leaves room
// for hundreds of midpoint insertions at any boundary before float64
// precision runs out, so siblings never need renumbering.
const PositionGap = 1000

// ErrNaNPosition is returned when an allocation would produce a
// non-numeric position. This only happens from a malformed source value and
// is refused before any write.
var ErrNaNPosition = errors.New("computed position is not a number")

// Intent describes where a new or moved item should land relative to the
// existing items of a (group, column).
type Intent struct {
	Kind  IntentKind `json:"kind"`
	Index int        `json:"index,omitempty"` // neighbor index for before/after
}

// IntentKind enumerates the placement intents.
type IntentKind string

const (
	IntentAppend IntentKind = "append"
	IntentBefore IntentKind = "before"
	IntentAfter  IntentKind = "after"
)

// AppendPosition returns the position for a new tail item given the sorted
// existing positions of the destination column.
func AppendPosition(sorted []float64) (float64, error) {
	if len(sorted) == 0 {
		return PositionGap, nil
	}
	return checkPosition(sorted[len(sorted)-1] + PositionGap)
}

// BetweenPosition returns the midpoint of two adjacent positions.
func BetweenPosition(prev, next float64) (float64, error) {
	return checkPosition((prev + next) / 2)
}

// PlacePosition resolves an Intent against the sorted existing positions.
// Before the first element halves it; after the last adds the gap; anything
// in between bisects the two neighbors. Existing positions are never
// rewritten.
func PlacePosition(sorted []float64, intent Intent) (float64, error) {
	switch intent.Kind {
	case IntentAppend:
		return AppendPosition(sorted)
	case IntentBefore:
		i := intent.Index
		if i < 0 || i >= len(sorted) {
			return 0, errors.New("before: neighbor index out of range")
		}
		if i == 0 {
			return checkPosition(sorted[0] / 2)
		}
		return BetweenPosition(sorted[i-1], sorted[i])
	case IntentAfter:
		i := intent.Index
		if i < 0 || i >= len(sorted) {
			return 0, errors.New("after: neighbor index out of range")
		}
		if i == len(sorted)-1 {
			return checkPosition(sorted[i] + PositionGap)
		}
		return BetweenPosition(sorted[i], sorted[i+1])
	default:
		return 0, errors.New("unknown placement intent")
	}
}

func checkPosition(p float64) (float64, error) {
	if math.IsNaN(p) {
		return 0, ErrNaNPosition
	}
	return p, nil
}
