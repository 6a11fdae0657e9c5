// Package analysis computes performance metrics from raw run results:
// returns, risk ratios, drawdown, and trade statistics.
package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/probelab/backcast/internal/domain"
	"github.com/probelab/backcast/internal/engine"
)

const (
	annualizedFloor = -999
	annualizedCeil  = 9999
	// trading periods per year for ratio annualization
	periodsPerYear = 252
)

// Metrics is the full performance summary of one run. All percentage
// fields are expressed in percent, not fractions.
type Metrics struct {
	RunID          string    `json:"run_id"`
	Strategy       string    `json:"strategy"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	InitialCapital float64   `json:"initial_capital"`
	FinalCapital   float64   `json:"final_capital"`

	TotalReturn      float64 `json:"total_return"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	AnnualizedReturn float64 `json:"annualized_return"`

	SharpeRatio    float64 `json:"sharpe_ratio"`
	SortinoRatio   float64 `json:"sortino_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	ProfitFactor    float64 `json:"profit_factor"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
	AvgTrade        float64 `json:"avg_trade"`
	AvgHoldingHours float64 `json:"avg_holding_hours"`
}

// Analyze computes the metrics for a finished run. Degenerate inputs
// (no trades, short equity curves) produce zero-valued metrics, never
// errors.
func Analyze(res *engine.Result) *Metrics {
	m := &Metrics{
		RunID:          res.RunID,
		Strategy:       res.Strategy,
		Start:          res.Start,
		End:            res.End,
		InitialCapital: res.InitialCapital,
		FinalCapital:   res.FinalCapital,
	}
	m.calcReturns()
	m.calcTradeStats(res.Trades)
	m.calcRiskRatios(res.Equity)
	m.calcDrawdown(res.Equity)
	return m
}

func (m *Metrics) calcReturns() {
	m.TotalReturn = m.FinalCapital - m.InitialCapital
	if m.InitialCapital > 0 {
		m.TotalReturnPct = m.TotalReturn / m.InitialCapital * 100
	}

	days := m.End.Sub(m.Start).Hours() / 24
	if days <= 0 || m.InitialCapital <= 0 {
		return
	}
	growth := m.FinalCapital / m.InitialCapital
	if growth <= 0 {
		m.AnnualizedReturn = annualizedFloor
		return
	}
	annualized := (math.Pow(growth, 365/days) - 1) * 100
	switch {
	case math.IsNaN(annualized) || math.IsInf(annualized, 1):
		annualized = annualizedCeil
	case math.IsInf(annualized, -1):
		annualized = annualizedFloor
	}
	m.AnnualizedReturn = math.Max(annualizedFloor, math.Min(annualizedCeil, annualized))
}

func (m *Metrics) calcTradeStats(trades []*domain.TradeRecord) {
	var closed []*domain.TradeRecord
	for _, t := range trades {
		if !t.Open {
			closed = append(closed, t)
		}
	}
	m.TotalTrades = len(closed)
	if m.TotalTrades == 0 {
		return
	}

	var grossProfit, grossLoss, totalPnL, holdHours float64
	for _, t := range closed {
		totalPnL += t.PnL
		holdHours += t.HoldHours()
		if t.PnL > 0 {
			m.WinningTrades++
			grossProfit += t.PnL
		} else {
			m.LosingTrades++
			grossLoss += -t.PnL
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	m.AvgTrade = totalPnL / float64(m.TotalTrades)
	m.AvgHoldingHours = holdHours / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = -grossLoss / float64(m.LosingTrades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		m.ProfitFactor = math.Inf(1)
	}
}

// calcRiskRatios derives Sharpe and Sortino from per-step equity returns,
// annualized at 252 periods and a zero risk-free rate. The Sortino
// downside variance is divided by the total return count so that rare
// losses are not overweighted.
func (m *Metrics) calcRiskRatios(equity []domain.EquityPoint) {
	if len(equity) < 2 {
		return
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev > 0 {
			returns = append(returns, (equity[i].Equity-prev)/prev)
		}
	}
	if len(returns) == 0 {
		return
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance, downsideVariance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
		if r < 0 {
			downsideVariance += r * r
		}
	}
	variance /= float64(len(returns))
	downsideVariance /= float64(len(returns))

	if std := math.Sqrt(variance); std > 0 {
		m.SharpeRatio = mean / std * math.Sqrt(periodsPerYear)
	}
	if downsideStd := math.Sqrt(downsideVariance); downsideStd > 0 {
		m.SortinoRatio = mean / downsideStd * math.Sqrt(periodsPerYear)
	}
}

func (m *Metrics) calcDrawdown(equity []domain.EquityPoint) {
	if len(equity) == 0 {
		return
	}
	peak := equity[0].Equity
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
			if peak > 0 {
				m.MaxDrawdownPct = dd / peak * 100
			}
		}
	}
}

// Comparison summarizes several runs side by side.
type Comparison struct {
	// Ranked holds the metrics sorted by total return, best first.
	Ranked []*Metrics
	// BestReturn, BestSharpe, and BestWinRate point into Ranked.
	BestReturn  *Metrics
	BestSharpe  *Metrics
	BestWinRate *Metrics
}

// Compare ranks metrics by total return and picks the leaders. Returns nil
// for an empty input.
func Compare(metrics []*Metrics) *Comparison {
	if len(metrics) == 0 {
		return nil
	}
	ranked := make([]*Metrics, len(metrics))
	copy(ranked, metrics)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalReturnPct > ranked[j].TotalReturnPct
	})

	c := &Comparison{Ranked: ranked, BestReturn: ranked[0], BestSharpe: ranked[0], BestWinRate: ranked[0]}
	for _, m := range ranked[1:] {
		if m.SharpeRatio > c.BestSharpe.SharpeRatio {
			c.BestSharpe = m
		}
		if m.WinRate > c.BestWinRate.WinRate {
			c.BestWinRate = m
		}
	}
	return c
}
