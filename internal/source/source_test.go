package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/probelab/backcast/internal/domain"
)

func TestCLOBFetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prices-history", r.URL.Path)
		require.Equal(t, "cond-1", r.URL.Query().Get("market"))
		require.Equal(t, "60", r.URL.Query().Get("fidelity"))
		w.Write([]byte(`{"history":[{"t":1700000000,"p":0.42},{"t":1700003600,"p":0.45},{"t":0,"p":0.5}]}`))
	}))
	defer srv.Close()

	c := NewCLOBClient(srv.URL, nil)
	h, err := c.FetchHistory(context.Background(), "cond-1", "test instrument", 0)
	require.NoError(t, err)
	require.Equal(t, "cond-1", h.ID)
	// the zero-timestamp record is dropped
	require.Len(t, h.Points, 2)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), h.Points[0].Time)
	require.Equal(t, 0.42, h.Points[0].Price)
}

func TestCLOBFetchHistoryBadShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewCLOBClient(srv.URL, nil)
	_, err := c.FetchHistory(context.Background(), "cond-1", "", 60)
	require.Error(t, err)
}

func TestCLOBFetchHistoryEmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"history":[]}`))
	}))
	defer srv.Close()

	c := NewCLOBClient(srv.URL, nil)
	_, err := c.FetchHistory(context.Background(), "cond-1", "", 60)
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrNoData))
}

func TestCLOBFetchHistoryRequiresID(t *testing.T) {
	c := NewCLOBClient("http://localhost:0", nil)
	_, err := c.FetchHistory(context.Background(), "", "", 60)
	require.Error(t, err)
}

func TestAsInstrumentNormalizesCloses(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := []KlineBar{
		{OpenTime: start, Close: 50000, Volume: 10},
		{OpenTime: start.Add(time.Hour), Close: 55000, Volume: 20},
		{OpenTime: start.Add(2 * time.Hour), Close: 60000, Volume: 30},
	}

	h, err := AsInstrument("btc-ref", "BTCUSDT reference", bars)
	require.NoError(t, err)
	require.Len(t, h.Points, 3)
	require.InDelta(t, 0.05, h.Points[0].Price, 1e-12)
	require.InDelta(t, 0.50, h.Points[1].Price, 1e-12)
	require.InDelta(t, 0.95, h.Points[2].Price, 1e-12)
	require.Equal(t, 20.0, h.Points[1].Volume)

	_, err = AsInstrument("x", "", nil)
	require.True(t, errors.Is(err, domain.ErrNoData))
}

func TestAsInstrumentFlatSeries(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := []KlineBar{
		{OpenTime: start, Close: 100},
		{OpenTime: start.Add(time.Hour), Close: 100},
	}
	h, err := AsInstrument("flat", "", bars)
	require.NoError(t, err)
	for _, p := range h.Points {
		require.Equal(t, 0.5, p.Price)
	}
}
