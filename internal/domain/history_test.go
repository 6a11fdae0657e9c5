package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeHistory(t *testing.T, prices ...float64) *InstrumentHistory {
	t.Helper()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	h := &InstrumentHistory{ID: "inst-1", Label: "test instrument"}
	for i, p := range prices {
		h.Points = append(h.Points, PricePoint{
			Time:  base.Add(time.Duration(i) * time.Hour),
			Price: p,
		})
	}
	return h
}

func TestPriceAtBounds(t *testing.T) {
	h := makeHistory(t, 0.40, 0.45, 0.50, 0.55)
	base := h.Points[0].Time

	tests := []struct {
		name     string
		at       time.Time
		expected float64
	}{
		{
			name:     "before first observation returns first price",
			at:       base.Add(-24 * time.Hour),
			expected: 0.40,
		},
		{
			name:     "after last observation returns last price",
			at:       base.Add(240 * time.Hour),
			expected: 0.55,
		},
		{
			name:     "exact match returns that observation",
			at:       base.Add(2 * time.Hour),
			expected: 0.50,
		},
		{
			name:     "between observations returns the earlier one",
			at:       base.Add(90 * time.Minute),
			expected: 0.45,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			price, ok := h.PriceAt(tc.at)
			require.True(t, ok)
			require.InDelta(t, tc.expected, price, 1e-12)
		})
	}
}

func TestPriceAtEmptySeries(t *testing.T) {
	h := &InstrumentHistory{ID: "empty"}
	_, ok := h.PriceAt(time.Now())
	require.False(t, ok)
}

func TestPriceChange(t *testing.T) {
	h := makeHistory(t, 0.50, 0.55, 0.60)
	at := h.Points[2].Time

	change := h.PriceChange(at, 2*time.Hour)
	require.InDelta(t, (0.60-0.50)/0.50, change, 1e-12)

	// window reaching before the series clamps to the first price
	change = h.PriceChange(at, 100*time.Hour)
	require.InDelta(t, 0.20, change, 1e-12)
}

func TestVolatilityNeedsTwoObservations(t *testing.T) {
	h := makeHistory(t, 0.50)
	require.Zero(t, h.Volatility(h.Points[0].Time, 24*time.Hour))

	h = makeHistory(t, 0.50, 0.50, 0.50)
	require.Zero(t, h.Volatility(h.Points[2].Time, 24*time.Hour))

	h = makeHistory(t, 0.50, 0.55, 0.50, 0.55)
	require.Greater(t, h.Volatility(h.Points[3].Time, 24*time.Hour), 0.0)
}

func TestFinalPrice(t *testing.T) {
	h := makeHistory(t, 0.70)
	require.InDelta(t, 0.70, h.FinalPrice(), 1e-12)

	h.Outcome = OutcomeWin
	require.Equal(t, 1.0, h.FinalPrice())

	h.Outcome = OutcomeLose
	require.Equal(t, 0.0, h.FinalPrice())
}

func TestActiveAt(t *testing.T) {
	h := makeHistory(t, 0.40, 0.50, 0.60)
	require.True(t, h.ActiveAt(h.Points[1].Time))
	require.False(t, h.ActiveAt(h.Points[0].Time.Add(-time.Hour)))
	require.False(t, h.ActiveAt(h.Points[2].Time.Add(time.Hour)))

	h.Outcome = OutcomeWin
	h.ResolvedAt = h.Points[1].Time
	require.False(t, h.ActiveAt(h.Points[2].Time))
}
