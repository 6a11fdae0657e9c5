package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "data_dir: ./archive\n"))
	require.NoError(t, err)
	require.Equal(t, "./archive", cfg.DataDir)
	require.Equal(t, 1, cfg.StepHours)
	require.Equal(t, int64(42), cfg.Seed)
	require.Equal(t, 1000.0, cfg.Engine.InitialCapital)
	require.Equal(t, 0.15, cfg.Engine.MaxPositionPct)
	require.Equal(t, 8, cfg.Engine.MaxPositions)
	require.True(t, cfg.Engine.UseKelly)
	require.Equal(t, 1000, cfg.Simulations)
	require.Equal(t, 50, cfg.Synthetic.Instruments)
}

func TestLoadFullConfig(t *testing.T) {
	body := `
data_dir: ./data
strategies: [near_certain, dip_buy]
start: "2024-01-01T00:00:00Z"
end: "2024-02-01T00:00:00Z"
step_hours: 4
seed: 7
initial_capital: "2500.50"
max_position_pct: 0.2
max_positions: 5
use_kelly: false
commission_pct: 0.002
min_position_usd: "25"
max_position_usd: "250"
simulations: 500
output_dir: ./out
strategy_overrides:
  dip_buy:
    takeProfitPct: 0.2
    stopLossPct: -0.1
    fillProbability: 1.0
synthetic:
  instruments: 10
  days: 14
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	require.Equal(t, []string{"near_certain", "dip_buy"}, cfg.Strategies)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Start)
	require.Equal(t, 4, cfg.StepHours)
	require.Equal(t, int64(7), cfg.Seed)
	require.Equal(t, 2500.50, cfg.Engine.InitialCapital)
	require.Equal(t, 0.2, cfg.Engine.MaxPositionPct)
	require.False(t, cfg.Engine.UseKelly)
	require.Equal(t, 25.0, cfg.Engine.MinPositionUSD)
	require.Equal(t, 250.0, cfg.Engine.MaxPositionUSD)
	require.Equal(t, 500, cfg.Simulations)
	require.Equal(t, 10, cfg.Synthetic.Instruments)

	o := cfg.Engine.OverridesFor("dip_buy")
	require.Equal(t, 0.2, o.TakeProfitPct)
	require.Equal(t, -0.1, o.StopLossPct)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "initial_capital: \"abc\"\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "initial_capital: \"-5\"\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "start: \"not a time\"\n"))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRiskConfig(t *testing.T) {
	cfg := Default()
	cfg.Seed = 9
	cfg.Simulations = 250
	cfg.Engine.InitialCapital = 5000

	rc := cfg.RiskConfig()
	require.Equal(t, int64(9), rc.Seed)
	require.Equal(t, 250, rc.Simulations)
	require.Equal(t, 5000.0, rc.InitialCapital)
}
