package domain

import "time"

// PricePoint is a single immutable price observation.
type PricePoint struct {
	// Time is the observation timestamp.
	Time time.Time
	// Price is the traded or quoted mid price, in [0, 1] for binary markets.
	Price float64
	// Volume is the traded volume attributed to this observation.
	Volume float64
	// Bid is the best bid at observation time, zero when unknown.
	Bid float64
	// Ask is the best ask at observation time, zero when unknown.
	Ask float64
}
