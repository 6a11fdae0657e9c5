// Package risk estimates strategy risk by bootstrap-resampling closed
// trade outcomes into thousands of synthetic equity paths.
package risk

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"

	"github.com/probelab/backcast/internal/domain"
)

// position fraction applied to every resampled trade
const pathPositionPct = 0.10

// minimum closed trades for the resampled distribution to mean anything
const minClosedTrades = 10

// Config controls one Monte Carlo run.
type Config struct {
	// InitialCapital starts every simulated path.
	InitialCapital float64
	// Simulations is the number of resampled paths.
	Simulations int
	// TradesPerPath is the path length; zero means the input trade count.
	TradesPerPath int
	// Seed drives the resampling; equal seeds give equal distributions.
	Seed int64
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig(seed int64) Config {
	return Config{
		InitialCapital: 10000,
		Simulations:    1000,
		Seed:           seed,
	}
}

// Result holds the distribution statistics of a Monte Carlo run. All
// return and drawdown figures are percentages.
type Result struct {
	Simulations   int `json:"simulations"`
	TradesPerPath int `json:"trades_per_path"`

	MeanReturnPct   float64 `json:"mean_return_pct"`
	MedianReturnPct float64 `json:"median_return_pct"`
	StdReturnPct    float64 `json:"std_return_pct"`
	MinReturnPct    float64 `json:"min_return_pct"`
	MaxReturnPct    float64 `json:"max_return_pct"`

	CI95Lower float64 `json:"ci_95_lower"`
	CI95Upper float64 `json:"ci_95_upper"`
	CI99Lower float64 `json:"ci_99_lower"`
	CI99Upper float64 `json:"ci_99_upper"`

	ProbPositive float64 `json:"prob_positive"`
	ProbLoss50   float64 `json:"prob_loss_50"`
	ProbRuin     float64 `json:"prob_ruin"`

	VaR95  float64 `json:"var_95"`
	VaR99  float64 `json:"var_99"`
	CVaR95 float64 `json:"cvar_95"`

	MeanMaxDrawdown  float64 `json:"mean_max_drawdown"`
	WorstMaxDrawdown float64 `json:"worst_max_drawdown"`

	// Returns and Drawdowns are the sorted per-path outcomes, kept for
	// histogram rendering.
	Returns   []float64 `json:"-"`
	Drawdowns []float64 `json:"-"`
}

// Run resamples the closed trades of a finished run into cfg.Simulations
// synthetic paths. Fewer than 10 usable closed trades returns
// domain.ErrInsufficientData.
func Run(trades []*domain.TradeRecord, cfg Config) (*Result, error) {
	var pnlPcts []float64
	for _, t := range trades {
		if t.Open || t.PnL == 0 || t.CostBasis <= 0 {
			continue
		}
		pnlPcts = append(pnlPcts, t.PnL/t.CostBasis)
	}
	if len(pnlPcts) < minClosedTrades {
		return nil, errors.Wrapf(domain.ErrInsufficientData,
			"need at least %d closed trades, got %d", minClosedTrades, len(pnlPcts))
	}

	if cfg.Simulations <= 0 {
		cfg.Simulations = 1000
	}
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 10000
	}
	tradesPerPath := cfg.TradesPerPath
	if tradesPerPath <= 0 {
		tradesPerPath = len(pnlPcts)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	returns := make([]float64, 0, cfg.Simulations)
	drawdowns := make([]float64, 0, cfg.Simulations)

	for i := 0; i < cfg.Simulations; i++ {
		equity := cfg.InitialCapital
		peak := equity
		maxDD := 0.0

		for j := 0; j < tradesPerPath; j++ {
			pnlPct := pnlPcts[rng.Intn(len(pnlPcts))]
			equity += equity * pathPositionPct * pnlPct

			if equity > peak {
				peak = equity
			}
			if peak > 0 {
				if dd := (peak - equity) / peak; dd > maxDD {
					maxDD = dd
				}
			}
			// ruin halts the path
			if equity <= 0 {
				equity = 0
				break
			}
		}

		returns = append(returns, (equity-cfg.InitialCapital)/cfg.InitialCapital*100)
		drawdowns = append(drawdowns, maxDD*100)
	}

	sort.Float64s(returns)
	sort.Float64s(drawdowns)

	res := &Result{
		Simulations:   cfg.Simulations,
		TradesPerPath: tradesPerPath,
		Returns:       returns,
		Drawdowns:     drawdowns,
	}
	res.summarize()
	return res, nil
}

func (r *Result) summarize() {
	n := len(r.Returns)

	var mean float64
	for _, v := range r.Returns {
		mean += v
	}
	mean /= float64(n)
	var variance float64
	for _, v := range r.Returns {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)

	r.MeanReturnPct = mean
	r.MedianReturnPct = r.Returns[n/2]
	r.StdReturnPct = math.Sqrt(variance)
	r.MinReturnPct = r.Returns[0]
	r.MaxReturnPct = r.Returns[n-1]

	at := func(q float64) float64 {
		idx := int(q * float64(n))
		if idx >= n {
			idx = n - 1
		}
		return r.Returns[idx]
	}
	r.CI95Lower = at(0.025)
	r.CI95Upper = at(0.975)
	r.CI99Lower = at(0.005)
	r.CI99Upper = at(0.995)

	var positive, loss50, ruin int
	for _, v := range r.Returns {
		if v > 0 {
			positive++
		}
		if v <= -50 {
			loss50++
		}
		if v <= -99 {
			ruin++
		}
	}
	r.ProbPositive = float64(positive) / float64(n)
	r.ProbLoss50 = float64(loss50) / float64(n)
	r.ProbRuin = float64(ruin) / float64(n)

	idx5 := int(0.05 * float64(n))
	idx1 := int(0.01 * float64(n))
	r.VaR95 = -r.Returns[idx5]
	r.VaR99 = -r.Returns[idx1]
	if idx5 > 0 {
		var worst float64
		for _, v := range r.Returns[:idx5] {
			worst += v
		}
		r.CVaR95 = -worst / float64(idx5)
	}

	var ddSum float64
	for _, v := range r.Drawdowns {
		ddSum += v
	}
	r.MeanMaxDrawdown = ddSum / float64(n)
	r.WorstMaxDrawdown = r.Drawdowns[n-1]
}
