// Package config loads the replay configuration from YAML with
// production-matching defaults.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/probelab/backcast/internal/engine"
	"github.com/probelab/backcast/internal/risk"
)

// Config is the fully parsed run configuration.
type Config struct {
	// DataDir points at the JSON archive file or directory to load.
	// Empty means synthetic data.
	DataDir string
	// Strategies to replay; empty means all built-ins.
	Strategies []string
	// Start and End bound the replay window; zero means the data range.
	Start time.Time
	End   time.Time
	// StepHours is the simulation clock step.
	StepHours int
	// Seed drives every stochastic choice of the run.
	Seed int64

	Engine engine.Config

	// Simulations is the Monte Carlo path count.
	Simulations int

	// OutputDir receives JSON and CSV exports; empty disables them.
	OutputDir string
	// ArchiveDir holds the persistent run log; empty disables archiving.
	ArchiveDir string

	// Synthetic controls generated data when DataDir is empty.
	Synthetic SyntheticSettings
}

// SyntheticSettings shapes the generated dataset.
type SyntheticSettings struct {
	Instruments int `yaml:"instruments"`
	Days        int `yaml:"days"`
}

type configTmp struct {
	DataDir    string   `yaml:"data_dir"`
	Strategies []string `yaml:"strategies"`
	Start      string   `yaml:"start"`
	End        string   `yaml:"end"`
	StepHours  int      `yaml:"step_hours"`
	Seed       int64    `yaml:"seed"`

	InitialCapital string  `yaml:"initial_capital"`
	MaxPositionPct float64 `yaml:"max_position_pct"`
	MaxPositions   int     `yaml:"max_positions"`
	UseKelly       *bool   `yaml:"use_kelly"`
	KellyFraction  float64 `yaml:"kelly_fraction"`
	MinEdge        float64 `yaml:"min_edge"`
	MinConfidence  float64 `yaml:"min_confidence"`
	CommissionPct  float64 `yaml:"commission_pct"`
	MinPositionUSD string  `yaml:"min_position_usd"`
	MaxPositionUSD string  `yaml:"max_position_usd"`
	SlippagePct    float64 `yaml:"slippage_pct"`

	StrategyOverrides map[string]engine.Overrides `yaml:"strategy_overrides"`

	Simulations int    `yaml:"simulations"`
	OutputDir   string `yaml:"output_dir"`
	ArchiveDir  string `yaml:"archive_dir"`

	Synthetic SyntheticSettings `yaml:"synthetic"`
}

// Default returns the configuration used when no YAML file is given.
func Default() Config {
	return Config{
		StepHours:   1,
		Seed:        42,
		Engine:      engine.DefaultConfig(),
		Simulations: 1000,
		ArchiveDir:  "",
		Synthetic:   SyntheticSettings{Instruments: 50, Days: 30},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	var tmp configTmp
	if err := yaml.Unmarshal(raw, &tmp); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	cfg := Default()
	cfg.DataDir = tmp.DataDir
	cfg.Strategies = tmp.Strategies
	cfg.OutputDir = tmp.OutputDir
	cfg.ArchiveDir = tmp.ArchiveDir
	if tmp.StepHours > 0 {
		cfg.StepHours = tmp.StepHours
	}
	if tmp.Seed != 0 {
		cfg.Seed = tmp.Seed
	}
	if tmp.Simulations > 0 {
		cfg.Simulations = tmp.Simulations
	}
	if tmp.Synthetic.Instruments > 0 {
		cfg.Synthetic.Instruments = tmp.Synthetic.Instruments
	}
	if tmp.Synthetic.Days > 0 {
		cfg.Synthetic.Days = tmp.Synthetic.Days
	}

	if tmp.Start != "" {
		cfg.Start, err = time.Parse(time.RFC3339, tmp.Start)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'start' param in yaml config")
		}
	}
	if tmp.End != "" {
		cfg.End, err = time.Parse(time.RFC3339, tmp.End)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'end' param in yaml config")
		}
	}

	if tmp.InitialCapital != "" {
		capital, err := decimal.NewFromString(tmp.InitialCapital)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'initial_capital' param in yaml config")
		}
		if capital.Sign() <= 0 {
			return Config{}, errors.New("'initial_capital' must be positive")
		}
		cfg.Engine.InitialCapital = capital.InexactFloat64()
	}
	if tmp.MinPositionUSD != "" {
		v, err := decimal.NewFromString(tmp.MinPositionUSD)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'min_position_usd' param in yaml config")
		}
		cfg.Engine.MinPositionUSD = v.InexactFloat64()
	}
	if tmp.MaxPositionUSD != "" {
		v, err := decimal.NewFromString(tmp.MaxPositionUSD)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'max_position_usd' param in yaml config")
		}
		cfg.Engine.MaxPositionUSD = v.InexactFloat64()
	}

	if tmp.MaxPositionPct > 0 {
		cfg.Engine.MaxPositionPct = tmp.MaxPositionPct
	}
	if tmp.MaxPositions > 0 {
		cfg.Engine.MaxPositions = tmp.MaxPositions
	}
	if tmp.UseKelly != nil {
		cfg.Engine.UseKelly = *tmp.UseKelly
	}
	if tmp.KellyFraction > 0 {
		cfg.Engine.KellyFraction = tmp.KellyFraction
	}
	if tmp.MinEdge > 0 {
		cfg.Engine.MinEdge = tmp.MinEdge
	}
	if tmp.MinConfidence > 0 {
		cfg.Engine.MinConfidence = tmp.MinConfidence
	}
	if tmp.CommissionPct > 0 {
		cfg.Engine.CommissionPct = tmp.CommissionPct
	}
	if tmp.SlippagePct > 0 {
		cfg.Engine.SlippagePct = tmp.SlippagePct
	}
	if len(tmp.StrategyOverrides) > 0 {
		cfg.Engine.StrategyOverrides = tmp.StrategyOverrides
	}

	return cfg, nil
}

// RiskConfig derives the Monte Carlo parameters from the run config.
func (c Config) RiskConfig() risk.Config {
	rc := risk.DefaultConfig(c.Seed)
	rc.Simulations = c.Simulations
	rc.InitialCapital = c.Engine.InitialCapital
	return rc
}
