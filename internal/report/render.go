// Package report renders run results for the terminal, exports them to
// JSON and CSV, and archives run summaries in a write-ahead log.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/probelab/backcast/internal/analysis"
	"github.com/probelab/backcast/internal/risk"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#BF4343", Dark: "#F57373"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	gainStyle = lipgloss.NewStyle().Foreground(special)
	lossStyle = lipgloss.NewStyle().Foreground(warning)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)
)

func signed(v float64) string {
	s := fmt.Sprintf("%+.2f", v)
	if v < 0 {
		return lossStyle.Render(s)
	}
	return gainStyle.Render(s)
}

// RenderMetrics formats one run's performance summary.
func RenderMetrics(m *analysis.Metrics) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RUN RESULTS: "+m.Strategy) + "\n")

	b.WriteString(sectionStyle.Render("RETURNS") + "\n")
	fmt.Fprintf(&b, "  Initial Capital:    $%.2f\n", m.InitialCapital)
	fmt.Fprintf(&b, "  Final Capital:      $%.2f\n", m.FinalCapital)
	fmt.Fprintf(&b, "  Total Return:       $%s (%s%%)\n", signed(m.TotalReturn), signed(m.TotalReturnPct))
	fmt.Fprintf(&b, "  Annualized Return:  %s%%\n", signed(m.AnnualizedReturn))

	b.WriteString(sectionStyle.Render("RISK") + "\n")
	fmt.Fprintf(&b, "  Sharpe Ratio:       %.2f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "  Sortino Ratio:      %.2f\n", m.SortinoRatio)
	fmt.Fprintf(&b, "  Max Drawdown:       $%.2f (%.2f%%)\n", m.MaxDrawdown, m.MaxDrawdownPct)

	b.WriteString(sectionStyle.Render("TRADES") + "\n")
	fmt.Fprintf(&b, "  Total Trades:       %d\n", m.TotalTrades)
	fmt.Fprintf(&b, "  Winning / Losing:   %d / %d\n", m.WinningTrades, m.LosingTrades)
	fmt.Fprintf(&b, "  Win Rate:           %.1f%%\n", m.WinRate)
	fmt.Fprintf(&b, "  Profit Factor:      %s\n", profitFactor(m.ProfitFactor))
	fmt.Fprintf(&b, "  Avg Win / Loss:     $%.2f / $%.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Fprintf(&b, "  Avg Trade:          $%.2f\n", m.AvgTrade)
	fmt.Fprintf(&b, "  Avg Holding:        %.1f hours\n", m.AvgHoldingHours)

	return boxStyle.Render(b.String())
}

func profitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}

// RenderComparison formats the side-by-side strategy table.
func RenderComparison(c *analysis.Comparison) string {
	if c == nil || len(c.Ranked) == 0 {
		return "no results to compare"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("STRATEGY COMPARISON") + "\n\n")
	fmt.Fprintf(&b, "%-24s %10s %8s %10s %8s %8s %8s\n",
		"Strategy", "Return", "Sharpe", "MaxDD", "Trades", "Win%", "PF")
	b.WriteString(strings.Repeat("-", 82) + "\n")

	for _, m := range c.Ranked {
		fmt.Fprintf(&b, "%-24s %9.1f%% %8.2f %9.1f%% %8d %7.1f%% %8s\n",
			m.Strategy, m.TotalReturnPct, m.SharpeRatio, m.MaxDrawdownPct,
			m.TotalTrades, m.WinRate, profitFactor(m.ProfitFactor))
	}
	b.WriteString(strings.Repeat("-", 82) + "\n\n")

	fmt.Fprintf(&b, "Best Return:  %s (%+.1f%%)\n", c.BestReturn.Strategy, c.BestReturn.TotalReturnPct)
	fmt.Fprintf(&b, "Best Sharpe:  %s (%.2f)\n", c.BestSharpe.Strategy, c.BestSharpe.SharpeRatio)
	fmt.Fprintf(&b, "Best WinRate: %s (%.1f%%)\n", c.BestWinRate.Strategy, c.BestWinRate.WinRate)

	return boxStyle.Render(b.String())
}

// RenderMonteCarlo formats the risk simulation summary.
func RenderMonteCarlo(r *risk.Result, strategyName string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("MONTE CARLO: "+strategyName) + "\n")
	fmt.Fprintf(&b, "  %d simulations, %d trades per path\n", r.Simulations, r.TradesPerPath)

	b.WriteString(sectionStyle.Render("RETURN DISTRIBUTION") + "\n")
	fmt.Fprintf(&b, "  Mean / Median:      %s%% / %s%%\n", signed(r.MeanReturnPct), signed(r.MedianReturnPct))
	fmt.Fprintf(&b, "  Std Deviation:      %.2f%%\n", r.StdReturnPct)
	fmt.Fprintf(&b, "  Min / Max:          %s%% / %s%%\n", signed(r.MinReturnPct), signed(r.MaxReturnPct))
	fmt.Fprintf(&b, "  95%% CI:             [%+.2f%%, %+.2f%%]\n", r.CI95Lower, r.CI95Upper)
	fmt.Fprintf(&b, "  99%% CI:             [%+.2f%%, %+.2f%%]\n", r.CI99Lower, r.CI99Upper)

	b.WriteString(sectionStyle.Render("RISK") + "\n")
	fmt.Fprintf(&b, "  Prob(Return > 0):   %.1f%%\n", r.ProbPositive*100)
	fmt.Fprintf(&b, "  Prob(Loss > 50%%):   %.1f%%\n", r.ProbLoss50*100)
	fmt.Fprintf(&b, "  Prob(Ruin):         %.1f%%\n", r.ProbRuin*100)
	fmt.Fprintf(&b, "  VaR 95 / 99:        %+.2f%% / %+.2f%%\n", r.VaR95, r.VaR99)
	fmt.Fprintf(&b, "  CVaR 95:            %+.2f%%\n", r.CVaR95)

	b.WriteString(sectionStyle.Render("DRAWDOWN") + "\n")
	fmt.Fprintf(&b, "  Mean Max DD:        %.2f%%\n", r.MeanMaxDrawdown)
	fmt.Fprintf(&b, "  Worst Max DD:       %.2f%%\n", r.WorstMaxDrawdown)

	return boxStyle.Render(b.String())
}

// RenderHistogram draws an ASCII histogram of the simulated return
// distribution.
func RenderHistogram(r *risk.Result, bins, width int) string {
	if len(r.Returns) == 0 {
		return "no simulated returns"
	}
	if bins <= 0 {
		bins = 20
	}
	if width <= 0 {
		width = 50
	}

	minVal, maxVal := r.Returns[0], r.Returns[len(r.Returns)-1]
	span := maxVal - minVal
	if span == 0 {
		return "all simulated returns identical"
	}

	counts := make([]int, bins)
	binWidth := span / float64(bins)
	for _, v := range r.Returns {
		idx := int((v - minVal) / binWidth)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render("RETURN HISTOGRAM") + "\n")
	for i, count := range counts {
		binStart := minVal + float64(i)*binWidth
		binEnd := binStart + binWidth
		barLen := 0
		if maxCount > 0 {
			barLen = count * width / maxCount
		}
		bar := strings.Repeat("█", barLen)
		switch {
		case binEnd <= 0:
			bar = lossStyle.Render(bar)
		case binStart >= 0:
			bar = gainStyle.Render(bar)
		}
		fmt.Fprintf(&b, "  %7.1f%% |%s (%d)\n", binStart, bar, count)
	}
	fmt.Fprintf(&b, "  Mean: %+.2f%%  Median: %+.2f%%\n", r.MeanReturnPct, r.MedianReturnPct)
	return b.String()
}
