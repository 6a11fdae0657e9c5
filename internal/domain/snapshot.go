package domain

// MarketSnapshot is an ephemeral derived view of one instrument at a
// timestamp. It is computed on demand and never persisted.
type MarketSnapshot struct {
	// InstrumentID identifies the instrument the snapshot was taken from.
	InstrumentID string
	// Price is the last known win-side price.
	Price float64
	// Bid is the best bid, synthesized from the price when unknown.
	Bid float64
	// Ask is the best ask, synthesized from the price when unknown.
	Ask float64
	// Volume24h is the trailing 24h observation volume.
	Volume24h float64
	// Change24h is the trailing 24h simple return.
	Change24h float64
	// Volatility is the trailing 24h stddev of successive returns.
	Volatility float64
	// DaysToResolve is the remaining time to resolution in days, clamped
	// to at least 1; 365 when the resolution time is unknown.
	DaysToResolve float64
}
