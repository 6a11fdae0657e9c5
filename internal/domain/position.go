package domain

import (
	"time"

	"github.com/pkg/errors"
)

// Position is an open simulated position. The engine enforces at most one
// open position per instrument per run.
type Position struct {
	// InstrumentID identifies the instrument held.
	InstrumentID string
	// Strategy is the name of the strategy that opened the position.
	Strategy string
	// Side is the held direction.
	Side Side
	// EntryTime is the simulation time at entry.
	EntryTime time.Time
	// EntryPrice is the effective entry price after slippage.
	EntryPrice float64
	// Shares is the number of outcome tokens held.
	Shares float64
	// CostBasis is the capital committed at entry, commission included.
	CostBasis float64
	// MakerBid and MakerAsk are the quoted pair for maker positions.
	MakerBid float64
	MakerAsk float64
}

// NewPosition constructs a validated open position.
func NewPosition(instrumentID, strategy string, side Side, entryTime time.Time, entryPrice, shares, costBasis float64) (*Position, error) {
	if instrumentID == "" {
		return nil, errors.New("instrument id is required")
	}
	if entryPrice <= 0 {
		return nil, errors.New("entry price must be greater than zero")
	}
	if shares <= 0 {
		return nil, errors.New("share count must be greater than zero")
	}
	if costBasis <= 0 {
		return nil, errors.New("cost basis must be greater than zero")
	}
	return &Position{
		InstrumentID: instrumentID,
		Strategy:     strategy,
		Side:         side,
		EntryTime:    entryTime,
		EntryPrice:   entryPrice,
		Shares:       shares,
		CostBasis:    costBasis,
	}, nil
}

// HoldHours returns the holding duration at t in hours.
func (p *Position) HoldHours(t time.Time) float64 {
	return t.Sub(p.EntryTime).Hours()
}

// MarkValue returns the mark-to-market value of the position given the
// current win-side price. An arbitrage pair is held at cost until
// settlement: its profit is locked but treated as unrealized, which
// understates interim volatility of that position type.
func (p *Position) MarkValue(yesPrice float64) float64 {
	if p.Side == SideBoth {
		return p.CostBasis
	}
	return p.Shares * SidePrice(p.Side, yesPrice)
}
