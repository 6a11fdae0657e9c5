package domain

import "fmt"

// Signal is an entry intent returned by a strategy callback. A nil signal
// means no action.
type Signal struct {
	// Side is the direction to open.
	Side Side
	// Confidence is the strategy's confidence in the thesis, in (0, 1].
	Confidence float64
	// Price optionally overrides the entry price; zero means use the
	// side-adjusted market price.
	Price float64
	// MakerBid is the quoted entry price for maker signals.
	MakerBid float64
	// MakerAsk is the quoted exit price for maker signals.
	MakerAsk float64
	// Reason is a short human-readable thesis for the entry.
	Reason string
}

// String returns a human-readable string representation.
func (s *Signal) String() string {
	return fmt.Sprintf("side: %s confidence: %.2f reason: %s", s.Side, s.Confidence, s.Reason)
}
