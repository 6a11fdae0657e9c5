package report

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/probelab/backcast/internal/analysis"
	"github.com/probelab/backcast/internal/domain"
	"github.com/probelab/backcast/internal/engine"
	"github.com/probelab/backcast/internal/risk"
)

func sampleMetrics() *analysis.Metrics {
	return &analysis.Metrics{
		RunID:          "run-1",
		Strategy:       "near_certain",
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 1000,
		FinalCapital:   1080,
		TotalReturn:    80,
		TotalReturnPct: 8,
		SharpeRatio:    1.4,
		TotalTrades:    12,
		WinningTrades:  8,
		LosingTrades:   4,
		WinRate:        66.7,
		ProfitFactor:   2.1,
	}
}

func sampleMonteCarlo(t *testing.T) *risk.Result {
	t.Helper()
	trades := make([]*domain.TradeRecord, 0, 12)
	pcts := []float64{0.1, -0.05, 0.2, -0.15, 0.07, -0.02, 0.3, -0.25, 0.12, -0.08, 0.04, 0.09}
	for _, p := range pcts {
		trades = append(trades, &domain.TradeRecord{CostBasis: 100, PnL: p * 100})
	}
	res, err := risk.Run(trades, risk.DefaultConfig(1))
	require.NoError(t, err)
	return res
}

func TestRenderMetrics(t *testing.T) {
	out := RenderMetrics(sampleMetrics())
	require.Contains(t, out, "near_certain")
	require.Contains(t, out, "Sharpe")
	require.Contains(t, out, "Profit Factor")
}

func TestRenderComparison(t *testing.T) {
	require.Equal(t, "no results to compare", RenderComparison(nil))

	a := sampleMetrics()
	b := sampleMetrics()
	b.Strategy = "dip_buy"
	b.TotalReturnPct = 20
	b.ProfitFactor = math.Inf(1)

	out := RenderComparison(analysis.Compare([]*analysis.Metrics{a, b}))
	require.Contains(t, out, "near_certain")
	require.Contains(t, out, "dip_buy")
	require.Contains(t, out, "inf")
	require.Contains(t, out, "Best Return")
}

func TestRenderMonteCarloAndHistogram(t *testing.T) {
	mc := sampleMonteCarlo(t)
	out := RenderMonteCarlo(mc, "momentum")
	require.Contains(t, out, "momentum")
	require.Contains(t, out, "VaR")

	hist := RenderHistogram(mc, 10, 40)
	require.Contains(t, hist, "HISTOGRAM")
	require.Contains(t, hist, "Mean")
}

func TestWriteJSONHandlesInfiniteProfitFactor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	m := sampleMetrics()
	m.ProfitFactor = math.Inf(1)

	require.NoError(t, WriteJSON(path, m, sampleMonteCarlo(t)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var out Export
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, "run-1", out.Metrics.RunID)
	require.Equal(t, -1.0, out.Metrics.ProfitFactor)
	require.NotNil(t, out.MonteCarlo)
	// the original metrics are untouched
	require.True(t, math.IsInf(m.ProfitFactor, 1))
}

func TestWriteEquityAndTradesCSV(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	open := &domain.TradeRecord{InstrumentID: "b", Strategy: "s", Open: true}
	closed := &domain.TradeRecord{
		InstrumentID: "a", Strategy: "s", Side: domain.SideYes,
		EntryTime: start, Shares: 100, CostBasis: 50, Open: true,
	}
	closed.Close(start.Add(4*time.Hour), 0.6, domain.ExitTakeProfit)

	res := &engine.Result{
		Equity: []domain.EquityPoint{
			{Time: start, Equity: 1000, Cash: 1000},
			{Time: start.Add(time.Hour), Equity: 1010, Cash: 950, PositionsValue: 60},
		},
		Trades: []*domain.TradeRecord{closed, open},
	}

	equityPath := filepath.Join(dir, "equity.csv")
	require.NoError(t, WriteEquityCSV(equityPath, res))
	rows := readCSV(t, equityPath)
	require.Len(t, rows, 3)
	require.Equal(t, "equity", rows[0][1])

	tradesPath := filepath.Join(dir, "trades.csv")
	require.NoError(t, WriteTradesCSV(tradesPath, res))
	rows = readCSV(t, tradesPath)
	// header plus the closed trade only
	require.Len(t, rows, 2)
	require.Equal(t, "a", rows[1][0])
	require.Equal(t, "TAKE_PROFIT", rows[1][7])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	a, err := NewArchive(dir)
	require.NoError(t, err)

	m := sampleMetrics()
	require.NoError(t, a.Save(m))
	m2 := sampleMetrics()
	m2.RunID = "run-2"
	m2.Strategy = "dip_buy"
	require.NoError(t, a.Save(m2))

	runs, err := a.RunsAfter(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-1", runs[0].Metrics.RunID)
	require.Equal(t, "dip_buy", runs[1].Metrics.Strategy)

	require.NoError(t, a.Close())

	// reopening sees the same history
	a2, err := NewArchive(dir)
	require.NoError(t, err)
	defer a2.Close()
	runs, err = a2.RunsAfter(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, uint64(2), a2.CurrentIndex())
}

func TestArchiveRejectsMissingRunID(t *testing.T) {
	a, err := NewArchive(t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	m := sampleMetrics()
	m.RunID = ""
	require.Error(t, a.Save(m))
}
