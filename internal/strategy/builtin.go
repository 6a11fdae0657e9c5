package strategy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/probelab/backcast/internal/domain"
	"github.com/probelab/backcast/pkg/indicators"
)

// Entry filter thresholds shared by the built-in strategies.
const (
	nearCertainMin      = 0.95
	nearZeroMax         = 0.05
	dipThreshold        = -0.05
	midRangeMin         = 0.20
	midRangeMax         = 0.80
	meanReversionLow    = 0.30
	meanReversionHigh   = 0.70
	maxDaysToResolve    = 90
	minAnnualizedReturn = 0.15
	momentumDeviation   = 0.05
	momentumEMAPeriod   = 6
	momentumRSIPeriod   = 7
	makerMinSpread      = 0.02
	makerMaxSpread      = 0.10
	makerMinVolume24h   = 15000
	makerPriceMin       = 0.03
	makerPriceMax       = 0.97
	arbMinProfit        = 0.02
)

// annualize compounds a simple return over the remaining days to an
// annualized rate; degenerate inputs yield 0.
func annualize(simpleReturn, days float64) float64 {
	if days <= 0 || simpleReturn <= -1 {
		return 0
	}
	annualized := math.Pow(1+simpleReturn, 365/days) - 1
	if math.IsInf(annualized, 0) || math.IsNaN(annualized) {
		return 10
	}
	return annualized
}

// NearCertain buys the win side of instruments the market already prices
// near 1.0, harvesting the remaining premium when the annualized return
// clears a floor.
type NearCertain struct{}

func (NearCertain) Name() string { return "near_certain" }

func (NearCertain) Evaluate(_ *domain.InstrumentHistory, snap *domain.MarketSnapshot, _ time.Time, _ *State) *domain.Signal {
	if snap.Price < nearCertainMin {
		return nil
	}
	if snap.DaysToResolve > maxDaysToResolve {
		return nil
	}
	expected := (1 - snap.Price) / snap.Price
	annualized := annualize(expected, snap.DaysToResolve)
	if annualized < minAnnualizedReturn {
		return nil
	}
	return &domain.Signal{
		Side:       domain.SideYes,
		Confidence: 0.95,
		Price:      snap.Price,
		Reason:     fmt.Sprintf("near-certain %.0f%%, %.0fd, %.0f%% annualized", snap.Price*100, snap.DaysToResolve, annualized*100),
	}
}

// NearZero buys the lose side of instruments priced near 0.0.
type NearZero struct{}

func (NearZero) Name() string { return "near_zero" }

func (NearZero) Evaluate(_ *domain.InstrumentHistory, snap *domain.MarketSnapshot, _ time.Time, _ *State) *domain.Signal {
	if snap.Price > nearZeroMax || snap.Price <= 0 {
		return nil
	}
	if snap.DaysToResolve > maxDaysToResolve {
		return nil
	}
	noPrice := 1 - snap.Price
	if noPrice >= 0.98 {
		return nil
	}
	expected := (1 - noPrice) / noPrice
	annualized := annualize(expected, snap.DaysToResolve)
	if annualized < minAnnualizedReturn {
		return nil
	}
	return &domain.Signal{
		Side:       domain.SideNo,
		Confidence: 0.95,
		Price:      noPrice,
		Reason:     fmt.Sprintf("near-zero win side %.0f%%, %.0fd", snap.Price*100, snap.DaysToResolve),
	}
}

// DipBuy buys the win side after a sharp 24h drop.
type DipBuy struct{}

func (DipBuy) Name() string { return "dip_buy" }

func (DipBuy) Evaluate(_ *domain.InstrumentHistory, snap *domain.MarketSnapshot, _ time.Time, _ *State) *domain.Signal {
	if snap.Change24h >= dipThreshold {
		return nil
	}
	return &domain.Signal{
		Side:       domain.SideYes,
		Confidence: 0.65,
		Price:      snap.Price,
		Reason:     fmt.Sprintf("dip %.1f%% over 24h", snap.Change24h*100),
	}
}

// MidRange trades with 24h momentum inside the 20-80% band.
type MidRange struct{}

func (MidRange) Name() string { return "mid_range" }

func (MidRange) Evaluate(_ *domain.InstrumentHistory, snap *domain.MarketSnapshot, _ time.Time, _ *State) *domain.Signal {
	if snap.Price < midRangeMin || snap.Price > midRangeMax {
		return nil
	}
	switch {
	case snap.Change24h > 0.005:
		return &domain.Signal{
			Side:       domain.SideYes,
			Confidence: 0.55,
			Price:      snap.Price,
			Reason:     fmt.Sprintf("mid-range up %+.1f%%", snap.Change24h*100),
		}
	case snap.Change24h < -0.005:
		return &domain.Signal{
			Side:       domain.SideNo,
			Confidence: 0.55,
			Price:      1 - snap.Price,
			Reason:     fmt.Sprintf("mid-range down %+.1f%%", snap.Change24h*100),
		}
	}
	return nil
}

// MeanReversion fades extremes with a re-entry cooldown, a per-instrument
// entry cap, and a 7-day trend filter.
type MeanReversion struct{}

func (MeanReversion) Name() string { return "mean_reversion" }

func (MeanReversion) Evaluate(hist *domain.InstrumentHistory, snap *domain.MarketSnapshot, now time.Time, state *State) *domain.Signal {
	var side domain.Side
	switch {
	case snap.Price < meanReversionLow && snap.Price > 0.05:
		side = domain.SideYes
	case snap.Price > meanReversionHigh && snap.Price < 0.95:
		side = domain.SideNo
	default:
		return nil
	}

	if !state.CanEnterMeanReversion(snap.InstrumentID, now) {
		return nil
	}

	// don't fight strong week-long momentum
	week := hist.PriceChange(now, 7*24*time.Hour)
	if side == domain.SideYes && week < -0.10 {
		return nil
	}
	if side == domain.SideNo && week > 0.10 {
		return nil
	}

	state.RecordMeanReversionEntry(snap.InstrumentID)

	return &domain.Signal{
		Side:       side,
		Confidence: 0.60,
		Price:      domain.SidePrice(side, snap.Price),
		Reason:     fmt.Sprintf("mean reversion at %.0f%%", snap.Price*100),
	}
}

// MeanReversionBroken is the A/B twin of MeanReversion without cooldown,
// trend filter, or entry cap. Kept to measure what the fixes are worth.
type MeanReversionBroken struct{}

func (MeanReversionBroken) Name() string { return "mean_reversion_broken" }

func (MeanReversionBroken) Evaluate(_ *domain.InstrumentHistory, snap *domain.MarketSnapshot, _ time.Time, _ *State) *domain.Signal {
	switch {
	case snap.Price < meanReversionLow && snap.Price > 0.05:
		return &domain.Signal{
			Side:       domain.SideYes,
			Confidence: 0.60,
			Price:      snap.Price,
			Reason:     fmt.Sprintf("mean reversion at %.0f%%", snap.Price*100),
		}
	case snap.Price > meanReversionHigh && snap.Price < 0.95:
		return &domain.Signal{
			Side:       domain.SideNo,
			Confidence: 0.60,
			Price:      1 - snap.Price,
			Reason:     fmt.Sprintf("mean reversion at %.0f%%", snap.Price*100),
		}
	}
	return nil
}

// Momentum follows deviations from a short EMA of the trailing day,
// skipping overextended instruments via RSI.
type Momentum struct{}

func (Momentum) Name() string { return "momentum" }

func (Momentum) Evaluate(hist *domain.InstrumentHistory, snap *domain.MarketSnapshot, now time.Time, _ *State) *domain.Signal {
	closes := hist.ClosesIn(now, 24*time.Hour)
	ema, err := indicators.LastEMA(closes, momentumEMAPeriod)
	if err != nil || ema <= 0 {
		return nil
	}
	deviation := (snap.Price - ema) / ema

	if rsi, err := indicators.RSI(closes, momentumRSIPeriod); err == nil && len(rsi) > 0 {
		last := rsi[len(rsi)-1]
		if last > 75 || last < 25 {
			return nil
		}
	}

	switch {
	case deviation > momentumDeviation && snap.Price < 0.85:
		return &domain.Signal{
			Side:       domain.SideYes,
			Confidence: math.Min(0.5+math.Abs(deviation), 0.8),
			Price:      snap.Price,
			Reason:     fmt.Sprintf("momentum %+.1f%% above EMA", deviation*100),
		}
	case deviation < -momentumDeviation && snap.Price > 0.15:
		return &domain.Signal{
			Side:       domain.SideNo,
			Confidence: math.Min(0.5+math.Abs(deviation), 0.8),
			Price:      1 - snap.Price,
			Reason:     fmt.Sprintf("momentum %+.1f%% below EMA", deviation*100),
		}
	}
	return nil
}

// VolumeSurge enters quiet accumulation: volume present, small 24h move,
// but elevated volatility.
type VolumeSurge struct{}

func (VolumeSurge) Name() string { return "volume_surge" }

func (VolumeSurge) Evaluate(_ *domain.InstrumentHistory, snap *domain.MarketSnapshot, _ time.Time, _ *State) *domain.Signal {
	if snap.Volume24h <= 0 || math.Abs(snap.Change24h) >= 0.05 {
		return nil
	}
	if snap.Volatility < 0.04 {
		return nil
	}
	side := domain.SideYes
	if snap.Change24h < 0 {
		side = domain.SideNo
	}
	return &domain.Signal{
		Side:       side,
		Confidence: 0.60,
		Price:      domain.SidePrice(side, snap.Price),
		Reason:     fmt.Sprintf("accumulation, volatility %.3f", snap.Volatility),
	}
}

// MarketMaker quotes a tight pair inside a wide observed spread and earns
// the crossing. Needs real bid/ask and volume; synthetic spreads make it
// look better than it is.
type MarketMaker struct{}

func (MarketMaker) Name() string { return "market_maker" }

func (MarketMaker) Evaluate(_ *domain.InstrumentHistory, snap *domain.MarketSnapshot, now time.Time, state *State) *domain.Signal {
	if snap.Price < makerPriceMin || snap.Price > makerPriceMax {
		return nil
	}
	if snap.Bid <= 0 || snap.Volume24h < makerMinVolume24h {
		return nil
	}
	mid := (snap.Ask + snap.Bid) / 2
	if mid <= 0 {
		return nil
	}
	spreadPct := (snap.Ask - snap.Bid) / mid
	if spreadPct < makerMinSpread || spreadPct > makerMaxSpread {
		return nil
	}

	offset := math.Max(mid*0.02, 0.01)
	bid := math.Round((mid-offset)*1000) / 1000
	ask := math.Round((mid+offset)*1000) / 1000

	state.RecordMakerQuote(snap.InstrumentID, bid, ask, now)

	return &domain.Signal{
		Side:       domain.SideMaker,
		Confidence: 0.65,
		Price:      bid,
		MakerBid:   bid,
		MakerAsk:   ask,
		Reason:     fmt.Sprintf("maker spread %.1f%%, $%.0fk volume", spreadPct*100, snap.Volume24h/1000),
	}
}

// DualSideArb buys both sides when their combined cost sits below 1.0 by
// more than the minimum profit, locking in the payout.
type DualSideArb struct{}

func (DualSideArb) Name() string { return "dual_side_arb" }

func (DualSideArb) Evaluate(_ *domain.InstrumentHistory, snap *domain.MarketSnapshot, _ time.Time, _ *State) *domain.Signal {
	yesPrice := snap.Ask
	noPrice := 1 - snap.Price
	if snap.Bid > 0 {
		noPrice = 1 - snap.Bid
	}
	totalCost := yesPrice + noPrice
	if totalCost >= 1-arbMinProfit || totalCost <= 0 {
		return nil
	}
	profitPct := (1 - totalCost) / totalCost
	return &domain.Signal{
		Side:       domain.SideBoth,
		Confidence: 0.99,
		Price:      totalCost,
		Reason:     fmt.Sprintf("dual arb $%.3f (%.1f%%)", totalCost, profitPct*100),
	}
}

// CrossVenue trades crypto-linked instruments when week-scale momentum
// diverges from day-scale momentum, a proxy for a slower venue lagging a
// faster reference market.
type CrossVenue struct{}

func (CrossVenue) Name() string { return "cross_venue" }

var cryptoKeywords = []string{"bitcoin", "btc", "ethereum", "eth", "solana", "sol", "crypto"}

func (CrossVenue) Evaluate(hist *domain.InstrumentHistory, snap *domain.MarketSnapshot, now time.Time, _ *State) *domain.Signal {
	label := strings.ToLower(hist.Label)
	crypto := false
	for _, kw := range cryptoKeywords {
		if strings.Contains(label, kw) {
			crypto = true
			break
		}
	}
	if !crypto {
		return nil
	}

	edge := hist.PriceChange(now, 7*24*time.Hour) - snap.Change24h
	if math.Abs(edge) < 0.05 {
		return nil
	}

	side := domain.SideYes
	if edge < 0 {
		side = domain.SideNo
	}
	return &domain.Signal{
		Side:       side,
		Confidence: math.Min(0.95, 0.70+math.Abs(edge)),
		Price:      domain.SidePrice(side, snap.Price),
		Reason:     fmt.Sprintf("cross-venue edge %+.1f%%", edge*100),
	}
}
