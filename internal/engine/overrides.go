package engine

// Overrides are per-strategy exit and sizing parameters. A zero
// MaxHoldHours means no timeout; a FixedPositionPct above zero bypasses
// Kelly sizing.
type Overrides struct {
	TakeProfitPct    float64 `yaml:"takeProfitPct"`
	StopLossPct      float64 `yaml:"stopLossPct"`
	MaxHoldHours     float64 `yaml:"maxHoldHours"`
	FillProbability  float64 `yaml:"fillProbability"`
	ExitSlippagePct  float64 `yaml:"exitSlippagePct"`
	UseKelly         bool    `yaml:"useKelly"`
	FixedPositionPct float64 `yaml:"fixedPositionPct"`
}

// DefaultOverrides returns the baseline exit parameters.
func DefaultOverrides() Overrides {
	return Overrides{
		TakeProfitPct:   0.10,
		StopLossPct:     -0.05,
		FillProbability: 1.0,
		UseKelly:        true,
	}
}

// builtinOverrides mirrors the live trader's per-strategy exit tuning.
var builtinOverrides = map[string]Overrides{
	"near_certain": DefaultOverrides(),
	"near_zero":    DefaultOverrides(),
	"dip_buy":      DefaultOverrides(),
	"volume_surge": DefaultOverrides(),
	"cross_venue":  DefaultOverrides(),
	"momentum":     DefaultOverrides(),
	"mid_range": {
		TakeProfitPct:    0.10,
		StopLossPct:      -0.05,
		FillProbability:  1.0,
		FixedPositionPct: 0.10,
	},
	"mean_reversion": {
		TakeProfitPct:    0.10,
		StopLossPct:      -0.05,
		FillProbability:  1.0,
		FixedPositionPct: 0.10,
	},
	"mean_reversion_broken": {
		TakeProfitPct:    0.10,
		StopLossPct:      -0.05,
		FillProbability:  1.0,
		FixedPositionPct: 0.10,
	},
	// holds until resolution; the wide thresholds are effectively disabled
	"dual_side_arb": {
		TakeProfitPct:    1.0,
		StopLossPct:      -0.50,
		FillProbability:  1.0,
		FixedPositionPct: 0.10,
	},
	"market_maker": {
		TakeProfitPct:    0.05,
		StopLossPct:      -0.03,
		MaxHoldHours:     4.0,
		FillProbability:  0.60,
		ExitSlippagePct:  0.002,
		FixedPositionPct: 0.10,
	},
}

// OverridesFor resolves the exit parameters for a strategy: explicit config
// first, then built-in tuning, then the baseline.
func (c *Config) OverridesFor(strategyName string) Overrides {
	if o, ok := c.StrategyOverrides[strategyName]; ok {
		return o
	}
	if o, ok := builtinOverrides[strategyName]; ok {
		return o
	}
	return DefaultOverrides()
}
