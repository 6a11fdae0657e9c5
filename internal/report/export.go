package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/probelab/backcast/internal/analysis"
	"github.com/probelab/backcast/internal/engine"
	"github.com/probelab/backcast/internal/risk"
)

// Export bundles everything worth persisting about one run.
type Export struct {
	Metrics    *analysis.Metrics `json:"metrics"`
	MonteCarlo *risk.Result      `json:"monte_carlo,omitempty"`
	ExportedAt time.Time         `json:"exported_at"`
}

// WriteJSON writes the run summary to path. An infinite profit factor is
// not representable in JSON and is replaced by -1.
func WriteJSON(path string, m *analysis.Metrics, mc *risk.Result) error {
	out := Export{Metrics: m, MonteCarlo: mc, ExportedAt: time.Now().UTC()}
	if math.IsInf(out.Metrics.ProfitFactor, 1) {
		cp := *m
		cp.ProfitFactor = -1
		out.Metrics = &cp
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal run summary")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// WriteEquityCSV writes the equity curve as timestamp,equity,cash,positions.
func WriteEquityCSV(path string, res *engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "equity", "cash", "positions_value"}); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, p := range res.Equity {
		record := []string{
			p.Time.Format(time.RFC3339),
			fmt.Sprintf("%.4f", p.Equity),
			fmt.Sprintf("%.4f", p.Cash),
			fmt.Sprintf("%.4f", p.PositionsValue),
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "write csv record")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush csv")
}

// WriteTradesCSV writes every closed trade of a run.
func WriteTradesCSV(path string, res *engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"instrument_id", "strategy", "side", "entry_time", "entry_price",
		"exit_time", "exit_price", "exit_reason", "shares", "cost_basis", "pnl", "pnl_pct",
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, t := range res.Trades {
		if t.Open {
			continue
		}
		record := []string{
			t.InstrumentID,
			t.Strategy,
			t.Side.String(),
			t.EntryTime.Format(time.RFC3339),
			fmt.Sprintf("%.4f", t.EntryPrice),
			t.ExitTime.Format(time.RFC3339),
			fmt.Sprintf("%.4f", t.ExitPrice),
			t.ExitReason.String(),
			fmt.Sprintf("%.4f", t.Shares),
			fmt.Sprintf("%.2f", t.CostBasis),
			fmt.Sprintf("%.2f", t.PnL),
			fmt.Sprintf("%.2f", t.PnLPct),
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "write csv record")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush csv")
}
