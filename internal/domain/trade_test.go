package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTradeCloseComputesPnL(t *testing.T) {
	entry := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tr := &TradeRecord{
		InstrumentID: "inst-1",
		Strategy:     "near_certain",
		Side:         SideYes,
		EntryTime:    entry,
		EntryPrice:   0.50,
		Shares:       200,
		CostBasis:    100,
		Open:         true,
	}

	tr.Close(entry.Add(6*time.Hour), 0.60, ExitTakeProfit)

	require.False(t, tr.Open)
	require.InDelta(t, 120.0, tr.Proceeds, 1e-9)
	require.InDelta(t, 20.0, tr.PnL, 1e-9)
	require.InDelta(t, 20.0, tr.PnLPct, 1e-9)
	require.InDelta(t, 6.0, tr.HoldHours(), 1e-9)
	require.Equal(t, ExitTakeProfit, tr.ExitReason)
}

func TestTradeCloseIsIdempotent(t *testing.T) {
	entry := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tr := &TradeRecord{EntryTime: entry, Shares: 100, CostBasis: 50, Open: true}

	tr.Close(entry.Add(time.Hour), 0.60, ExitStopLoss)
	first := *tr

	// a second close must not mutate the finalized record
	tr.Close(entry.Add(2*time.Hour), 0.90, ExitTakeProfit)
	require.Equal(t, first, *tr)
}

func TestNewPositionValidation(t *testing.T) {
	entry := time.Now()

	tests := []struct {
		name       string
		id         string
		entryPrice float64
		shares     float64
		costBasis  float64
		wantErr    bool
	}{
		{name: "valid", id: "a", entryPrice: 0.5, shares: 10, costBasis: 5},
		{name: "missing id", id: "", entryPrice: 0.5, shares: 10, costBasis: 5, wantErr: true},
		{name: "zero price", id: "a", entryPrice: 0, shares: 10, costBasis: 5, wantErr: true},
		{name: "zero shares", id: "a", entryPrice: 0.5, shares: 0, costBasis: 5, wantErr: true},
		{name: "zero cost", id: "a", entryPrice: 0.5, shares: 10, costBasis: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPosition(tc.id, "s", SideYes, entry, tc.entryPrice, tc.shares, tc.costBasis)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, p)
		})
	}
}

func TestMarkValue(t *testing.T) {
	entry := time.Now()

	yes, err := NewPosition("a", "s", SideYes, entry, 0.50, 100, 50)
	require.NoError(t, err)
	require.InDelta(t, 60.0, yes.MarkValue(0.60), 1e-9)

	no, err := NewPosition("a", "s", SideNo, entry, 0.50, 100, 50)
	require.NoError(t, err)
	require.InDelta(t, 40.0, no.MarkValue(0.60), 1e-9)

	// arbitrage pair is held at cost until settlement
	both, err := NewPosition("a", "s", SideBoth, entry, 0.95, 100, 95)
	require.NoError(t, err)
	require.InDelta(t, 95.0, both.MarkValue(0.10), 1e-9)
}
