package kelly

import "github.com/probelab/backcast/internal/domain"

// priceZone maps a market price band to its historical average mispricing
// in probability points. Positive means the market underprices the win
// side. Derived from resolved-market trade analysis.
type priceZone struct {
	low, high, edge float64
}

var empiricalZones = []priceZone{
	{0.01, 0.10, -0.25}, // longshots are heavily overpriced
	{0.10, 0.35, -0.08},
	{0.35, 0.45, -0.15},
	{0.45, 0.55, 0.00},
	{0.55, 0.65, +0.15}, // systematic underpricing band
	{0.65, 0.70, +0.05},
	{0.70, 0.75, -0.08},
	{0.75, 0.80, +0.01},
	{0.80, 0.95, +0.02},
	{0.95, 0.99, +0.01},
}

// EmpiricalProbability estimates a true probability from the market price
// using the historical mispricing of its price zone, clamped to
// [0.01, 0.99].
func EmpiricalProbability(marketPrice float64) float64 {
	mispricing := 0.0
	for _, z := range empiricalZones {
		if marketPrice >= z.low && marketPrice < z.high {
			mispricing = z.edge
			break
		}
	}
	return clampProb(marketPrice + mispricing)
}

// EstimateProbability maps a strategy's qualitative thesis into a single
// probability consumed by the Kelly formula. Strategies with their own edge
// source (arbitrage, maker spread capture, cross-venue reference) bypass
// the empirical table.
func EstimateProbability(strategy string, price, confidence, spread float64, side domain.Side) float64 {
	switch strategy {
	case "dual_side_arb":
		if side == domain.SideYes {
			return 0.99
		}
		return 0.01
	case "market_maker":
		return clampProb(price + spread/2)
	case "cross_venue":
		if side == domain.SideYes {
			return 0.95
		}
		return 0.05
	}

	p := EmpiricalProbability(price)
	switch strategy {
	case "near_certain":
		p = clampProb(p + (1-p)*0.15)
	case "near_zero":
		p = clampProb(p - p*0.15)
	case "dip_buy":
		p = clampProb(p + 0.02)
	case "volume_surge":
		p = clampProb(p + 0.015)
	default:
		// generic thesis: small confidence-weighted tilt in the signal
		// direction
		if side == domain.SideYes {
			p = clampProb(p + confidence*0.05)
		} else {
			p = clampProb(p - confidence*0.05)
		}
	}
	return p
}

func clampProb(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}
