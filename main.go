package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/probelab/backcast/config"
	"github.com/probelab/backcast/internal/analysis"
	"github.com/probelab/backcast/internal/datastore"
	"github.com/probelab/backcast/internal/engine"
	"github.com/probelab/backcast/internal/report"
	"github.com/probelab/backcast/internal/risk"
	"github.com/probelab/backcast/internal/strategy"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	configPath := flag.String("config", "", "path to yaml config")
	dataDir := flag.String("data", "", "path to JSON archive file or directory (overrides config)")
	strategies := flag.String("strategies", "", "comma-separated strategy names (overrides config)")
	seed := flag.Int64("seed", 0, "random seed (overrides config)")
	outputDir := flag.String("out", "", "directory for JSON/CSV exports (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("failed to load configuration", zap.Error(err))
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *strategies != "" {
		cfg.Strategies = strings.Split(*strategies, ",")
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Fatal("replay failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, cfg config.Config) error {
	store := datastore.New(logger)
	if cfg.DataDir != "" {
		n, err := store.LoadArchive(cfg.DataDir)
		if err != nil {
			return errors.Wrap(err, "load archive")
		}
		logger.Info("archive loaded", zap.Int("instruments", n))
	} else {
		n := store.Generate(datastore.SyntheticConfig{
			Instruments: cfg.Synthetic.Instruments,
			Days:        cfg.Synthetic.Days,
			Interval:    time.Hour,
			Seed:        cfg.Seed,
		})
		logger.Info("synthetic data generated", zap.Int("instruments", n))
	}
	if err := store.Finalize(); err != nil {
		return err
	}

	registry := strategy.DefaultRegistry()
	names := cfg.Strategies
	if len(names) == 0 {
		names = registry.Names()
	}

	strats := make([]strategy.Strategy, 0, len(names))
	for _, name := range names {
		s, ok := registry.Get(strings.TrimSpace(name))
		if !ok {
			return errors.Errorf("unknown strategy: %s", name)
		}
		strats = append(strats, s)
	}

	step := time.Duration(cfg.StepHours) * time.Hour

	// one engine per goroutine: runs share nothing but the read-only store
	results := make([]*engine.Result, len(strats))
	g, gctx := errgroup.WithContext(ctx)
	for i, strat := range strats {
		g.Go(func() error {
			eng := engine.New(store, cfg.Engine, logger, cfg.Seed)
			res, err := eng.Run(gctx, strat, cfg.Start, cfg.End, step)
			if err != nil {
				return errors.Wrapf(err, "run %s", strat.Name())
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var archive *report.Archive
	if cfg.ArchiveDir != "" {
		var err error
		archive, err = report.NewArchive(cfg.ArchiveDir)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	metrics := make([]*analysis.Metrics, 0, len(results))
	for _, res := range results {
		m := analysis.Analyze(res)
		metrics = append(metrics, m)
		fmt.Println(report.RenderMetrics(m))

		mc, err := risk.Run(res.Trades, cfg.RiskConfig())
		switch {
		case err != nil:
			logger.Info("risk simulation skipped",
				zap.String("strategy", res.Strategy), zap.Error(err))
		default:
			fmt.Println(report.RenderMonteCarlo(mc, res.Strategy))
			fmt.Println(report.RenderHistogram(mc, 20, 50))
		}

		if cfg.OutputDir != "" {
			if err := exportRun(cfg.OutputDir, res, m, mc); err != nil {
				return err
			}
		}
		if archive != nil {
			if err := archive.Save(m); err != nil {
				return errors.Wrap(err, "archive run")
			}
		}
	}

	if len(metrics) > 1 {
		fmt.Println(report.RenderComparison(analysis.Compare(metrics)))
	}
	return nil
}

func exportRun(dir string, res *engine.Result, m *analysis.Metrics, mc *risk.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output dir %s", dir)
	}
	base := filepath.Join(dir, res.Strategy)
	if err := report.WriteJSON(base+".json", m, mc); err != nil {
		return err
	}
	if err := report.WriteEquityCSV(base+"_equity.csv", res); err != nil {
		return err
	}
	return report.WriteTradesCSV(base+"_trades.csv", res)
}
