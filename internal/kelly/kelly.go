// Package kelly implements fractional Kelly position sizing for binary
// outcome markets.
package kelly

import (
	"github.com/probelab/backcast/internal/domain"
)

// RiskTier classifies the aggressiveness of a sized bet.
type RiskTier int

const (
	RiskLow RiskTier = iota
	RiskMedium
	RiskHigh
	RiskExtreme
)

// String returns the string representation of the risk tier.
func (r RiskTier) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskExtreme:
		return "EXTREME"
	default:
		return "unknown"
	}
}

// Result is the ephemeral output of one sizing call.
type Result struct {
	// RawFraction is the unclamped Kelly fraction f*.
	RawFraction float64
	// AdjustedFraction is f* after safety scaling and the position cap.
	AdjustedFraction float64
	// PositionSize is the capital to commit.
	PositionSize float64
	// Edge is the estimated probability minus the market price.
	Edge float64
	// ExpectedValue is Edge times PositionSize.
	ExpectedValue float64
	// Tier is the risk classification of the bet.
	Tier RiskTier
}

// Calculator sizes positions with a safety-scaled Kelly fraction and a hard
// position cap.
type Calculator struct {
	// Fraction scales raw Kelly down (e.g. 0.25 for quarter-Kelly).
	Fraction float64
	// MaxPositionFraction caps the bankroll share of any single position.
	MaxPositionFraction float64
	// MinEdge is the smallest edge worth betting on.
	MinEdge float64
	// MinConfidence gates estimates we do not trust.
	MinConfidence float64
}

// NewCalculator returns a calculator with the given safety parameters.
func NewCalculator(fraction, maxPositionFraction, minEdge, minConfidence float64) *Calculator {
	return &Calculator{
		Fraction:            fraction,
		MaxPositionFraction: maxPositionFraction,
		MinEdge:             minEdge,
		MinConfidence:       minConfidence,
	}
}

// Size computes the recommended position size. It returns nil ("no bet")
// when the probability or price is outside (0, 1), the bankroll is
// non-positive, confidence is below the minimum, or the edge is below the
// minimum. For SideNo the probability and price are inverted before the
// formula applies.
//
// f* = (p − price) / (1 − price), clamped to [0, 1], scaled by Fraction and
// by confidence, capped by MaxPositionFraction.
func (c *Calculator) Size(estimatedProb, marketPrice, bankroll, confidence float64, side domain.Side) *Result {
	if estimatedProb <= 0 || estimatedProb >= 1 {
		return nil
	}
	if marketPrice <= 0 || marketPrice >= 1 {
		return nil
	}
	if bankroll <= 0 {
		return nil
	}
	if confidence < c.MinConfidence {
		return nil
	}

	if side == domain.SideNo {
		estimatedProb = 1 - estimatedProb
		marketPrice = 1 - marketPrice
	}

	edge := estimatedProb - marketPrice
	if edge < c.MinEdge {
		return nil
	}

	raw := (estimatedProb - marketPrice) / (1 - marketPrice)
	if raw < 0 {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}

	adjusted := raw * c.Fraction * confidence
	if adjusted > c.MaxPositionFraction {
		adjusted = c.MaxPositionFraction
	}

	size := bankroll * adjusted
	return &Result{
		RawFraction:      raw,
		AdjustedFraction: adjusted,
		PositionSize:     size,
		Edge:             edge,
		ExpectedValue:    edge * size,
		Tier:             classifyRisk(raw, edge),
	}
}

func classifyRisk(raw, edge float64) RiskTier {
	switch {
	case raw < 0.05 && edge < 0.05:
		return RiskLow
	case raw < 0.15 && edge < 0.10:
		return RiskMedium
	case raw < 0.30:
		return RiskHigh
	default:
		return RiskExtreme
	}
}
