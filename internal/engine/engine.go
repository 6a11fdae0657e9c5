// Package engine replays historical instrument data through strategy
// callbacks on a fixed-step simulation clock, tracking cash, positions,
// and the equity curve.
package engine

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/probelab/backcast/internal/datastore"
	"github.com/probelab/backcast/internal/domain"
	"github.com/probelab/backcast/internal/kelly"
	"github.com/probelab/backcast/internal/strategy"
)

// Config holds the run-wide simulation parameters.
type Config struct {
	InitialCapital    float64
	MaxPositionPct    float64
	MaxPositions      int
	UseKelly          bool
	KellyFraction     float64
	MinEdge           float64
	MinConfidence     float64
	CommissionPct     float64
	MinPositionUSD    float64
	MaxPositionUSD    float64
	SlippagePct       float64
	StrategyOverrides map[string]Overrides
}

// DefaultConfig returns the production-matching simulation parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 1000,
		MaxPositionPct: 0.15,
		MaxPositions:   8,
		UseKelly:       true,
		KellyFraction:  0.15,
		MinEdge:        0.02,
		MinConfidence:  0.55,
		CommissionPct:  0.001,
		MinPositionUSD: 50,
		MaxPositionUSD: 100,
		SlippagePct:    0.002,
	}
}

// Result is the raw output of one strategy run, consumed by the analyzer.
type Result struct {
	RunID          string
	Strategy       string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalCapital   float64
	Trades         []*domain.TradeRecord
	Equity         []domain.EquityPoint
}

// Engine replays one strategy at a time over the data store. An Engine is
// not safe for concurrent use; create one per goroutine when running
// strategies in parallel.
type Engine struct {
	store  *datastore.Store
	cfg    Config
	logger *zap.Logger
	sizer  *kelly.Calculator
	rng    *rand.Rand

	// per-run state, reset at the top of Run
	now       time.Time
	cash      float64
	positions map[string]*domain.Position
	trades    []*domain.TradeRecord
	equity    []domain.EquityPoint
	state     *strategy.State
}

// New creates an engine over the store. The seed drives every stochastic
// decision in the run (maker fills); equal seeds give equal runs.
func New(store *datastore.Store, cfg Config, logger *zap.Logger, seed int64) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sizer *kelly.Calculator
	if cfg.UseKelly {
		sizer = kelly.NewCalculator(cfg.KellyFraction, cfg.MaxPositionPct, cfg.MinEdge, cfg.MinConfidence)
	}
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger,
		sizer:  sizer,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

const arbMaxHoldHours = 30 * 24

// Run replays the strategy over [start, end] at the given step. Zero start
// or end default to the store's observation range. The context is checked
// once per simulation step.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, start, end time.Time, step time.Duration) (*Result, error) {
	dataStart, dataEnd, ok := e.store.TimeRange()
	if !ok {
		return nil, domain.ErrNoData
	}
	if start.IsZero() {
		start = dataStart
	}
	if end.IsZero() {
		end = dataEnd
	}
	if !end.After(start) {
		return nil, errors.Errorf("run window is empty: %s to %s", start, end)
	}
	if step <= 0 {
		step = time.Hour
	}

	e.now = start
	e.cash = e.cfg.InitialCapital
	e.positions = make(map[string]*domain.Position)
	e.trades = nil
	e.equity = nil
	e.state = strategy.NewState()

	runID := uuid.NewString()
	e.logger.Info("run started",
		zap.String("run_id", runID),
		zap.String("strategy", strat.Name()),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Duration("step", step))

	for current := start; !current.After(end); current = current.Add(step) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "run cancelled")
		}
		e.now = current

		e.processExits()
		if len(e.positions) < e.cfg.MaxPositions {
			e.scanEntries(strat)
		}

		equity := e.markEquity()
		e.equity = append(e.equity, domain.EquityPoint{
			Time:           current,
			Equity:         equity,
			Cash:           e.cash,
			PositionsValue: equity - e.cash,
		})
	}

	e.now = end
	e.closeAll()

	e.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.String("strategy", strat.Name()),
		zap.Int("trades", len(e.trades)),
		zap.Float64("final_capital", e.cash))

	return &Result{
		RunID:          runID,
		Strategy:       strat.Name(),
		Start:          start,
		End:            end,
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   e.cash,
		Trades:         e.trades,
		Equity:         e.equity,
	}, nil
}

// evaluate shields the run from a panicking strategy: the step is treated
// as no-signal and the panic is logged.
func (e *Engine) evaluate(strat strategy.Strategy, hist *domain.InstrumentHistory, snap *domain.MarketSnapshot) (sig *domain.Signal) {
	defer func() {
		if r := recover(); r != nil {
			sig = nil
			e.logger.Error("strategy panicked",
				zap.String("strategy", strat.Name()),
				zap.String("instrument", hist.ID),
				zap.Any("panic", r))
		}
	}()
	return strat.Evaluate(hist, snap, e.now, e.state)
}

func (e *Engine) scanEntries(strat strategy.Strategy) {
	for _, hist := range e.store.ActiveAt(e.now) {
		if _, held := e.positions[hist.ID]; held {
			continue
		}
		if len(e.positions) >= e.cfg.MaxPositions {
			return
		}
		snap, ok := e.store.Snapshot(hist.ID, e.now)
		if !ok {
			continue
		}
		if sig := e.evaluate(strat, hist, snap); sig != nil {
			e.openPosition(hist, snap, sig, strat.Name())
		}
	}
}

func (e *Engine) openPosition(hist *domain.InstrumentHistory, snap *domain.MarketSnapshot, sig *domain.Signal, strategyName string) {
	yesPrice := snap.Price

	var sidePrice float64
	switch {
	case sig.Side == domain.SideMaker || sig.Side == domain.SideBoth:
		sidePrice = sig.Price
		if sidePrice <= 0 {
			sidePrice = yesPrice
		}
	case sig.Price > 0 && sig.Price < 1:
		sidePrice = sig.Price
	default:
		sidePrice = domain.SidePrice(sig.Side, yesPrice)
	}
	if sidePrice <= 0.001 || sidePrice >= 0.999 {
		return
	}

	sidePrice *= 1 + e.cfg.SlippagePct
	if sidePrice > 0.999 {
		sidePrice = 0.999
	}

	amount := e.sizeEntry(strategyName, yesPrice, sidePrice, snap, sig)
	if amount > e.cfg.MaxPositionUSD {
		amount = e.cfg.MaxPositionUSD
	}
	if cashCap := e.cash * 0.95; amount > cashCap {
		amount = cashCap
	}
	if amount < e.cfg.MinPositionUSD {
		return
	}

	afterCommission := amount * (1 - e.cfg.CommissionPct)
	if afterCommission < 1 {
		return
	}
	shares := afterCommission / sidePrice

	pos, err := domain.NewPosition(hist.ID, strategyName, sig.Side, e.now, sidePrice, shares, amount)
	if err != nil {
		e.logger.Warn("rejected entry", zap.String("instrument", hist.ID), zap.Error(err))
		return
	}
	pos.MakerBid = sig.MakerBid
	pos.MakerAsk = sig.MakerAsk

	e.positions[hist.ID] = pos
	e.cash -= amount

	e.trades = append(e.trades, &domain.TradeRecord{
		InstrumentID: hist.ID,
		Label:        truncate(hist.Label, 60),
		Strategy:     strategyName,
		Side:         sig.Side,
		EntryTime:    e.now,
		EntryPrice:   sidePrice,
		Shares:       shares,
		CostBasis:    amount,
		Open:         true,
	})
}

// sizeEntry picks the capital to commit: fixed fraction when the strategy
// demands it, Kelly when enabled, flat max-position fraction otherwise.
func (e *Engine) sizeEntry(strategyName string, yesPrice, sidePrice float64, snap *domain.MarketSnapshot, sig *domain.Signal) float64 {
	o := e.cfg.OverridesFor(strategyName)
	if o.FixedPositionPct > 0 {
		return e.cfg.InitialCapital * o.FixedPositionPct
	}
	if e.sizer != nil && o.UseKelly {
		kellySide := sig.Side
		if kellySide == domain.SideMaker || kellySide == domain.SideBoth {
			kellySide = domain.SideYes
		}
		prob := kelly.EstimateProbability(strategyName, yesPrice, sig.Confidence, snap.Ask-snap.Bid, kellySide)
		if res := e.sizer.Size(prob, sidePrice, e.cash, sig.Confidence, kellySide); res != nil {
			return res.PositionSize
		}
		return e.cfg.InitialCapital * e.cfg.MaxPositionPct * 0.5
	}
	return e.cfg.InitialCapital * e.cfg.MaxPositionPct
}

// pendingExit is a close decision made during the scan phase. Exits are
// collected first and executed after the scan so the position map is not
// mutated mid-iteration.
type pendingExit struct {
	instrumentID string
	price        float64
	reason       domain.ExitReason
}

func (e *Engine) processExits() {
	var pending []pendingExit

	for _, id := range e.sortedPositionIDs() {
		pos := e.positions[id]
		hist := e.store.Instrument(id)
		if hist == nil {
			continue
		}
		yesPrice, ok := hist.PriceAt(e.now)
		if !ok {
			continue
		}

		o := e.cfg.OverridesFor(pos.Strategy)
		holdHours := pos.HoldHours(e.now)

		// resolution overrides every other exit
		if hist.Resolved(e.now) {
			yesFinal := hist.FinalPrice()
			var settle float64
			switch pos.Side {
			case domain.SideBoth:
				settle = 1.0 // one leg always pays out
			case domain.SideMaker:
				settle = yesFinal
			default:
				settle = domain.SidePrice(pos.Side, yesFinal)
			}
			pending = append(pending, pendingExit{id, settle, domain.ExitResolution})
			continue
		}

		if pos.Side == domain.SideBoth {
			// locked pair waits for resolution, with a backstop so
			// capital is not parked forever
			if holdHours >= arbMaxHoldHours {
				pending = append(pending, pendingExit{id, pos.EntryPrice, domain.ExitTimeout})
			}
			continue
		}

		if pos.Side == domain.SideMaker {
			if price, reason, exit := e.checkMakerExit(pos, yesPrice, holdHours, o); exit {
				pending = append(pending, pendingExit{id, price, reason})
			}
			continue
		}

		sidePrice := domain.SidePrice(pos.Side, yesPrice)
		pnlPct := 0.0
		if pos.CostBasis > 0 {
			pnlPct = (pos.Shares*sidePrice - pos.CostBasis) / pos.CostBasis
		}
		switch {
		case pnlPct >= o.TakeProfitPct:
			pending = append(pending, pendingExit{id, sidePrice, domain.ExitTakeProfit})
		case pnlPct <= o.StopLossPct:
			pending = append(pending, pendingExit{id, sidePrice, domain.ExitStopLoss})
		case o.MaxHoldHours > 0 && holdHours >= o.MaxHoldHours:
			pending = append(pending, pendingExit{id, sidePrice, domain.ExitTimeout})
		}
	}

	for _, p := range pending {
		e.closePosition(p.instrumentID, p.price, p.reason)
	}
}

// checkMakerExit models the maker inventory cycle: a probabilistic fill at
// the quoted ask, a tighter stop, and a forced discounted exit on timeout.
func (e *Engine) checkMakerExit(pos *domain.Position, yesPrice, holdHours float64, o Overrides) (float64, domain.ExitReason, bool) {
	ask := pos.MakerAsk
	if ask <= 0 {
		ask = pos.EntryPrice * 1.01
	}

	if yesPrice >= ask {
		if e.rng.Float64() < o.FillProbability {
			return ask * (1 - o.ExitSlippagePct), domain.ExitMakerFill, true
		}
		return 0, 0, false // no fill this cycle, retry
	}

	if pos.EntryPrice > 0 {
		pnlPct := (yesPrice - pos.EntryPrice) / pos.EntryPrice
		if pnlPct <= o.StopLossPct {
			return yesPrice, domain.ExitMakerStop, true
		}
	}

	if o.MaxHoldHours > 0 && holdHours >= o.MaxHoldHours {
		// forced seller crosses the spread
		return yesPrice * 0.99, domain.ExitMakerTimeout, true
	}

	return 0, 0, false
}

func (e *Engine) closePosition(instrumentID string, price float64, reason domain.ExitReason) {
	pos, ok := e.positions[instrumentID]
	if !ok {
		return
	}

	e.cash += pos.Shares * price * (1 - e.cfg.CommissionPct)
	delete(e.positions, instrumentID)

	switch pos.Strategy {
	case "mean_reversion":
		e.state.RecordMeanReversionExit(instrumentID, e.now)
	case "market_maker":
		e.state.ClearMakerQuote(instrumentID)
	}

	for _, t := range e.trades {
		if t.InstrumentID == instrumentID && t.Open {
			t.Close(e.now, price, reason)
			break
		}
	}
}

func (e *Engine) closeAll() {
	for _, id := range e.sortedPositionIDs() {
		pos := e.positions[id]
		hist := e.store.Instrument(id)
		if hist == nil {
			continue
		}
		yesFinal := hist.FinalPrice()
		var settle float64
		switch pos.Side {
		case domain.SideBoth:
			settle = 1.0
		case domain.SideMaker:
			settle = yesFinal
		default:
			settle = domain.SidePrice(pos.Side, yesFinal)
		}
		e.closePosition(id, settle, domain.ExitRunEnd)
	}
}

func (e *Engine) markEquity() float64 {
	equity := e.cash
	for id, pos := range e.positions {
		hist := e.store.Instrument(id)
		if hist == nil {
			equity += pos.CostBasis
			continue
		}
		yesPrice, ok := hist.PriceAt(e.now)
		if !ok {
			equity += pos.CostBasis
			continue
		}
		equity += pos.MarkValue(yesPrice)
	}
	return equity
}

// sortedPositionIDs keeps exit ordering deterministic across runs.
func (e *Engine) sortedPositionIDs() []string {
	ids := make([]string, 0, len(e.positions))
	for id := range e.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
