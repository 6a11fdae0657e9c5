package domain

import "github.com/pkg/errors"

// Side is the direction of a simulated position.
type Side int

const (
	// SideYes holds the win-side token outright.
	SideYes Side = iota
	// SideNo holds the lose-side token outright.
	SideNo
	// SideBoth holds both sides of a binary pair (arbitrage lock).
	SideBoth
	// SideMaker holds inventory acquired at a quoted bid, exited at a
	// quoted ask with probabilistic fills.
	SideMaker
)

const (
	sideStringYes   = "YES"
	sideStringNo    = "NO"
	sideStringBoth  = "BOTH"
	sideStringMaker = "MAKER"
)

// String returns the string representation of the side.
func (s Side) String() string {
	switch s {
	case SideYes:
		return sideStringYes
	case SideNo:
		return sideStringNo
	case SideBoth:
		return sideStringBoth
	case SideMaker:
		return sideStringMaker
	default:
		return "unknown"
	}
}

// ParseSide converts a string tag into a Side, rejecting unknown tags.
func ParseSide(s string) (Side, error) {
	switch s {
	case sideStringYes:
		return SideYes, nil
	case sideStringNo:
		return SideNo, nil
	case sideStringBoth:
		return SideBoth, nil
	case sideStringMaker:
		return SideMaker, nil
	}
	return 0, errors.Errorf("unknown side: %s", s)
}

// SidePrice converts a win-side price into the price of the held side.
// BOTH and MAKER positions are quoted against the win-side price directly.
func SidePrice(side Side, yesPrice float64) float64 {
	if side == SideNo {
		return 1 - yesPrice
	}
	return yesPrice
}
