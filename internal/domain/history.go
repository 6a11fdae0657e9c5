package domain

import (
	"math"
	"sort"
	"time"
)

// Outcome is the terminal resolution of an instrument.
type Outcome int

const (
	// OutcomeNone means the instrument has not resolved.
	OutcomeNone Outcome = iota
	// OutcomeWin means the instrument resolved to the win side (1.0).
	OutcomeWin
	// OutcomeLose means the instrument resolved to the lose side (0.0).
	OutcomeLose
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "WIN"
	case OutcomeLose:
		return "LOSE"
	default:
		return "NONE"
	}
}

// InstrumentHistory holds the time-ordered price series for one instrument.
// Points are ascending with unique timestamps. The data store owns the
// history; the replay engine only holds a reference and never mutates it.
type InstrumentHistory struct {
	// ID uniquely identifies the instrument.
	ID string
	// Label is a short human-readable description.
	Label string
	// Points is the ordered price series.
	Points []PricePoint
	// Outcome is the terminal resolution, OutcomeNone if unresolved.
	Outcome Outcome
	// ResolvedAt is the resolution time, zero if unresolved.
	ResolvedAt time.Time
}

// searchAt returns the index of the last point at or before t, or -1 when t
// precedes all data.
func (h *InstrumentHistory) searchAt(t time.Time) int {
	return sort.Search(len(h.Points), func(i int) bool {
		return h.Points[i].Time.After(t)
	}) - 1
}

// PriceAt returns the last known price at or before t. A timestamp before
// the first observation yields the first price; one after the last yields
// the last price. The boolean is false only for an empty series.
func (h *InstrumentHistory) PriceAt(t time.Time) (float64, bool) {
	p, ok := h.PointAt(t)
	if !ok {
		return 0, false
	}
	return p.Price, true
}

// PointAt returns the full observation at or before t, clamped to the first
// point when t precedes all data.
func (h *InstrumentHistory) PointAt(t time.Time) (PricePoint, bool) {
	if len(h.Points) == 0 {
		return PricePoint{}, false
	}
	idx := h.searchAt(t)
	if idx < 0 {
		return h.Points[0], true
	}
	return h.Points[idx], true
}

// PriceChange returns the simple return over the trailing window ending at
// t. Fewer than 2 usable observations yields 0.0, never an error.
func (h *InstrumentHistory) PriceChange(t time.Time, window time.Duration) float64 {
	current, ok := h.PriceAt(t)
	if !ok {
		return 0
	}
	past, ok := h.PriceAt(t.Add(-window))
	if !ok || past <= 0 {
		return 0
	}
	return (current - past) / past
}

// Volatility returns the standard deviation of successive returns over the
// trailing window ending at t. Fewer than 2 observations yields 0.0.
func (h *InstrumentHistory) Volatility(t time.Time, window time.Duration) float64 {
	lo, hi := h.windowBounds(t, window)
	if hi-lo < 2 {
		return 0
	}
	returns := make([]float64, 0, hi-lo-1)
	for i := lo + 1; i < hi; i++ {
		prev := h.Points[i-1].Price
		if prev > 0 {
			returns = append(returns, (h.Points[i].Price-prev)/prev)
		}
	}
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// VolumeIn sums observation volume over the trailing window ending at t.
func (h *InstrumentHistory) VolumeIn(t time.Time, window time.Duration) float64 {
	lo, hi := h.windowBounds(t, window)
	var total float64
	for i := lo; i < hi; i++ {
		total += h.Points[i].Volume
	}
	return total
}

// ClosesIn returns the prices of observations in the trailing window
// ending at t, oldest first.
func (h *InstrumentHistory) ClosesIn(t time.Time, window time.Duration) []float64 {
	lo, hi := h.windowBounds(t, window)
	closes := make([]float64, 0, hi-lo)
	for i := lo; i < hi; i++ {
		closes = append(closes, h.Points[i].Price)
	}
	return closes
}

// windowBounds returns the half-open index range [lo, hi) of points inside
// the trailing window ending at t.
func (h *InstrumentHistory) windowBounds(t time.Time, window time.Duration) (int, int) {
	start := t.Add(-window)
	lo := sort.Search(len(h.Points), func(i int) bool {
		return !h.Points[i].Time.Before(start)
	})
	hi := h.searchAt(t) + 1
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// FinalPrice returns the settlement price: 1.0 for a win, 0.0 for a loss,
// otherwise the last observed price (0.5 for an empty series).
func (h *InstrumentHistory) FinalPrice() float64 {
	switch h.Outcome {
	case OutcomeWin:
		return 1.0
	case OutcomeLose:
		return 0.0
	}
	if len(h.Points) == 0 {
		return 0.5
	}
	return h.Points[len(h.Points)-1].Price
}

// Resolved reports whether the instrument's outcome is known at or before t.
func (h *InstrumentHistory) Resolved(t time.Time) bool {
	return h.Outcome != OutcomeNone && !h.ResolvedAt.IsZero() && !t.Before(h.ResolvedAt)
}

// ActiveAt reports whether the series spans t: the instrument traded at t
// and had not yet resolved.
func (h *InstrumentHistory) ActiveAt(t time.Time) bool {
	if len(h.Points) == 0 {
		return false
	}
	start := h.Points[0].Time
	end := h.Points[len(h.Points)-1].Time
	if !h.ResolvedAt.IsZero() {
		end = h.ResolvedAt
	}
	return !t.Before(start) && !t.After(end)
}
