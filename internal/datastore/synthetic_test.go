package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/probelab/backcast/internal/domain"
)

func TestGenerateIsSeedReproducible(t *testing.T) {
	cfg := SyntheticConfig{
		Instruments: 5,
		Days:        7,
		Interval:    time.Hour,
		Start:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Seed:        42,
	}

	a := New(nil)
	require.Equal(t, 5, a.Generate(cfg))
	b := New(nil)
	require.Equal(t, 5, b.Generate(cfg))

	for _, ha := range a.Instruments() {
		hb := b.Instrument(ha.ID)
		require.NotNil(t, hb)
		require.Equal(t, ha.Outcome, hb.Outcome)
		require.Equal(t, len(ha.Points), len(hb.Points))
		for i := range ha.Points {
			require.Equal(t, ha.Points[i], hb.Points[i])
		}
	}
}

func TestGeneratePathsTerminateAtOutcome(t *testing.T) {
	s := New(nil)
	s.Generate(SyntheticConfig{
		Instruments: 10,
		Days:        10,
		Interval:    time.Hour,
		Start:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Seed:        7,
	})

	for _, h := range s.Instruments() {
		require.NotEqual(t, domain.OutcomeNone, h.Outcome)
		require.False(t, h.ResolvedAt.IsZero())

		last := h.Points[len(h.Points)-1]
		if h.Outcome == domain.OutcomeWin {
			require.Equal(t, 1.0, last.Price)
		} else {
			require.Equal(t, 0.0, last.Price)
		}

		// interior prices stay inside the tradeable band
		for _, p := range h.Points[:len(h.Points)-1] {
			require.GreaterOrEqual(t, p.Price, 0.01)
			require.LessOrEqual(t, p.Price, 0.99)
			require.Greater(t, p.Volume, 0.0)
			require.Less(t, p.Bid, p.Ask)
		}
	}
}
