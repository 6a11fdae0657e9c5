package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/probelab/backcast/internal/domain"
	"github.com/probelab/backcast/internal/engine"
)

var analysisStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func closedTrade(pnl float64, holdHours float64) *domain.TradeRecord {
	cost := 100.0
	t := &domain.TradeRecord{
		InstrumentID: "a",
		Strategy:     "test",
		EntryTime:    analysisStart,
		Shares:       100,
		CostBasis:    cost,
		Open:         true,
	}
	t.Close(analysisStart.Add(time.Duration(holdHours)*time.Hour), (cost+pnl)/100, domain.ExitTakeProfit)
	return t
}

func equityCurve(values ...float64) []domain.EquityPoint {
	points := make([]domain.EquityPoint, len(values))
	for i, v := range values {
		points[i] = domain.EquityPoint{Time: analysisStart.Add(time.Duration(i) * time.Hour), Equity: v, Cash: v}
	}
	return points
}

func TestAnalyzeDegenerateInputs(t *testing.T) {
	res := &engine.Result{
		Strategy:       "empty",
		Start:          analysisStart,
		End:            analysisStart.Add(24 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   1000,
	}
	m := Analyze(res)
	require.Zero(t, m.TotalReturn)
	require.Zero(t, m.SharpeRatio)
	require.Zero(t, m.SortinoRatio)
	require.Zero(t, m.MaxDrawdown)
	require.Zero(t, m.TotalTrades)
	require.Zero(t, m.WinRate)
	require.Zero(t, m.ProfitFactor)
}

func TestAnalyzeReturns(t *testing.T) {
	res := &engine.Result{
		Strategy:       "test",
		Start:          analysisStart,
		End:            analysisStart.Add(365 * 24 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   1100,
	}
	m := Analyze(res)
	require.InDelta(t, 100, m.TotalReturn, 1e-9)
	require.InDelta(t, 10, m.TotalReturnPct, 1e-9)
	// a one-year window annualizes to the simple return
	require.InDelta(t, 10, m.AnnualizedReturn, 1e-6)
}

func TestAnnualizedReturnIsCapped(t *testing.T) {
	// doubling in a day explodes when compounded over a year
	res := &engine.Result{
		Start:          analysisStart,
		End:            analysisStart.Add(24 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   2000,
	}
	require.Equal(t, 9999.0, Analyze(res).AnnualizedReturn)

	wiped := &engine.Result{
		Start:          analysisStart,
		End:            analysisStart.Add(24 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   0,
	}
	require.Equal(t, -999.0, Analyze(wiped).AnnualizedReturn)
}

func TestTradeStats(t *testing.T) {
	res := &engine.Result{
		Start:          analysisStart,
		End:            analysisStart.Add(48 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   1030,
		Trades: []*domain.TradeRecord{
			closedTrade(20, 10),
			closedTrade(30, 20),
			closedTrade(-20, 30),
			{InstrumentID: "open", Open: true, CostBasis: 100}, // ignored
		},
	}
	m := Analyze(res)
	require.Equal(t, 3, m.TotalTrades)
	require.Equal(t, 2, m.WinningTrades)
	require.Equal(t, 1, m.LosingTrades)
	require.InDelta(t, 66.666, m.WinRate, 0.01)
	require.InDelta(t, 2.5, m.ProfitFactor, 1e-9)
	require.InDelta(t, 25, m.AvgWin, 1e-9)
	require.InDelta(t, -20, m.AvgLoss, 1e-9)
	require.InDelta(t, 10, m.AvgTrade, 1e-9)
	require.InDelta(t, 20, m.AvgHoldingHours, 1e-9)
}

func TestProfitFactorWithNoLosses(t *testing.T) {
	res := &engine.Result{
		Start:          analysisStart,
		End:            analysisStart.Add(48 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   1050,
		Trades:         []*domain.TradeRecord{closedTrade(50, 5)},
	}
	require.True(t, math.IsInf(Analyze(res).ProfitFactor, 1))
}

func TestRiskRatios(t *testing.T) {
	// returns: +10%, -5%
	res := &engine.Result{
		Start:          analysisStart,
		End:            analysisStart.Add(48 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   1045,
		Equity:         equityCurve(1000, 1100, 1045),
	}
	m := Analyze(res)

	mean := (0.10 - 0.05) / 2
	variance := (math.Pow(0.10-mean, 2) + math.Pow(-0.05-mean, 2)) / 2
	wantSharpe := mean / math.Sqrt(variance) * math.Sqrt(252)
	require.InDelta(t, wantSharpe, m.SharpeRatio, 1e-9)

	downside := math.Sqrt(0.05 * 0.05 / 2)
	wantSortino := mean / downside * math.Sqrt(252)
	require.InDelta(t, wantSortino, m.SortinoRatio, 1e-9)
}

func TestRiskRatiosZeroVariance(t *testing.T) {
	res := &engine.Result{
		Start:          analysisStart,
		End:            analysisStart.Add(48 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   1000,
		Equity:         equityCurve(1000, 1000, 1000),
	}
	m := Analyze(res)
	require.Zero(t, m.SharpeRatio)
	require.Zero(t, m.SortinoRatio)
}

func TestMaxDrawdown(t *testing.T) {
	res := &engine.Result{
		Start:          analysisStart,
		End:            analysisStart.Add(5 * 24 * time.Hour),
		InitialCapital: 1000,
		FinalCapital:   1150,
		Equity:         equityCurve(1000, 1200, 900, 1100, 1150),
	}
	m := Analyze(res)
	require.InDelta(t, 300, m.MaxDrawdown, 1e-9)
	require.InDelta(t, 25, m.MaxDrawdownPct, 1e-9)
}

func TestCompareRanksAndPicksLeaders(t *testing.T) {
	require.Nil(t, Compare(nil))

	a := &Metrics{Strategy: "a", TotalReturnPct: 5, SharpeRatio: 2.0, WinRate: 40}
	b := &Metrics{Strategy: "b", TotalReturnPct: 12, SharpeRatio: 1.1, WinRate: 70}
	c := &Metrics{Strategy: "c", TotalReturnPct: -3, SharpeRatio: 0.2, WinRate: 90}

	cmp := Compare([]*Metrics{a, b, c})
	require.Equal(t, []string{"b", "a", "c"}, []string{cmp.Ranked[0].Strategy, cmp.Ranked[1].Strategy, cmp.Ranked[2].Strategy})
	require.Equal(t, "b", cmp.BestReturn.Strategy)
	require.Equal(t, "a", cmp.BestSharpe.Strategy)
	require.Equal(t, "c", cmp.BestWinRate.Strategy)
}
