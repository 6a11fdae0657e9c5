package domain

import "time"

// EquityPoint is one point of the equity curve, recorded once per
// simulation step. Invariant: Equity == Cash + PositionsValue.
type EquityPoint struct {
	Time           time.Time
	Equity         float64
	Cash           float64
	PositionsValue float64
}
