package domain

import "time"

// TradeRecord is an append-only record of one simulated trade. It is
// created open at entry and finalized exactly once at exit; a finalized
// record is never mutated again.
type TradeRecord struct {
	InstrumentID string
	Label        string
	Strategy     string
	Side         Side
	EntryTime    time.Time
	EntryPrice   float64
	ExitTime     time.Time
	ExitPrice    float64
	ExitReason   ExitReason
	Shares       float64
	CostBasis    float64
	Proceeds     float64
	PnL          float64
	PnLPct       float64
	Open         bool
}

// Close finalizes the trade and computes realized P&L. Proceeds are gross
// of commission; the engine accounts for exit commission in cash directly.
func (t *TradeRecord) Close(exitTime time.Time, exitPrice float64, reason ExitReason) {
	if !t.Open {
		return
	}
	t.ExitTime = exitTime
	t.ExitPrice = exitPrice
	t.ExitReason = reason
	t.Open = false
	t.Proceeds = t.Shares * exitPrice
	t.PnL = t.Proceeds - t.CostBasis
	if t.CostBasis > 0 {
		t.PnLPct = t.PnL / t.CostBasis * 100
	}
}

// HoldHours returns the holding duration of a closed trade in hours.
func (t *TradeRecord) HoldHours() float64 {
	if t.Open {
		return 0
	}
	return t.ExitTime.Sub(t.EntryTime).Hours()
}
