package datastore

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/probelab/backcast/internal/domain"
)

// SyntheticConfig controls synthetic series generation.
type SyntheticConfig struct {
	// Instruments is the number of instruments to generate.
	Instruments int
	// Days is the series length in days.
	Days int
	// Interval is the spacing between observations.
	Interval time.Duration
	// Start anchors the series; zero means Days before now.
	Start time.Time
	// Seed makes generation reproducible; 0 derives a seed from the clock.
	Seed int64
}

const meanReversionPull = 0.1

// Generate produces synthetic instruments via a mean-reverting random walk
// that drifts toward a predetermined terminal value (1.0 win / 0.0 lose) as
// the path approaches its resolution time. Volatility and bid/ask spread
// are randomized per path. Identical seeds reproduce identical series.
func (s *Store) Generate(cfg SyntheticConfig) int {
	if cfg.Instruments <= 0 || cfg.Days <= 0 {
		return 0
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	start := cfg.Start
	if start.IsZero() {
		start = time.Now().UTC().Add(-time.Duration(cfg.Days) * 24 * time.Hour)
	}
	points := int((time.Duration(cfg.Days) * 24 * time.Hour) / cfg.Interval)
	if points < 2 {
		points = 2
	}

	for i := 0; i < cfg.Instruments; i++ {
		initial := 0.20 + rng.Float64()*0.60
		outcome := domain.OutcomeLose
		final := 0.0
		if rng.Float64() < initial {
			outcome = domain.OutcomeWin
			final = 1.0
		}

		series := generatePath(rng, initial, final, points, start, cfg.Interval)
		h := &domain.InstrumentHistory{
			ID:         fmt.Sprintf("synthetic-%04d", i),
			Label:      fmt.Sprintf("Synthetic instrument %d", i+1),
			Points:     series,
			Outcome:    outcome,
			ResolvedAt: series[len(series)-1].Time,
		}
		s.instruments[h.ID] = h
	}
	return cfg.Instruments
}

func generatePath(rng *rand.Rand, initial, final float64, points int, start time.Time, interval time.Duration) []domain.PricePoint {
	series := make([]domain.PricePoint, 0, points)
	price := initial
	volatility := 0.02 + rng.Float64()*0.06
	scale := math.Sqrt(interval.Hours() / 24)

	for i := 0; i < points; i++ {
		progress := float64(i) / float64(points-1)
		target := initial + (final-initial)*progress

		drift := meanReversionPull * (target - price)
		noise := rng.NormFloat64() * volatility * scale
		price = clampPrice(price+drift+noise, 0.01, 0.99)

		// last point snaps to the terminal value
		if i == points-1 {
			price = final
		}

		spread := 0.01 + rng.Float64()*0.02
		series = append(series, domain.PricePoint{
			Time:   start.Add(time.Duration(i) * interval),
			Price:  price,
			Volume: 1000 + rng.Float64()*49000,
			Bid:    clampPrice(price-spread/2, 0.001, 0.999),
			Ask:    clampPrice(price+spread/2, 0.001, 0.999),
		})
	}
	return series
}

func clampPrice(p, lo, hi float64) float64 {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
