package source

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/probelab/backcast/internal/domain"
	"github.com/probelab/backcast/pkg/retrier"
)

// KlineBar is one candlestick of a crypto reference series.
type KlineBar struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// BinanceSource fetches crypto klines used as reference series when
// studying venue-lag entries on crypto-linked instruments.
type BinanceSource struct {
	client *binance.Client
	retry  *retrier.Retrier
}

// NewBinanceSource creates a source. Public kline endpoints work with
// empty credentials.
func NewBinanceSource(apiKey, secretKey string) *BinanceSource {
	return &BinanceSource{
		client: binance.NewClient(apiKey, secretKey),
		retry: retrier.New(
			retrier.WithInitialInterval(time.Second),
			retrier.WithMaxRetries(3),
		),
	}
}

// FetchKlines downloads up to limit bars for symbol at the given interval
// (e.g. "1h").
func (s *BinanceSource) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]KlineBar, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}

	klines, err := retrier.DoWithData(s.retry, ctx, func(ctx context.Context) ([]*binance.Kline, error) {
		return s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch klines for %s", symbol)
	}

	bars := make([]KlineBar, 0, len(klines))
	for i, k := range klines {
		bar, err := parseKline(k)
		if err != nil {
			return nil, errors.Wrapf(err, "parse kline %d for %s", i, symbol)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseKline(k *binance.Kline) (KlineBar, error) {
	bar := KlineBar{OpenTime: time.UnixMilli(k.OpenTime).UTC()}
	for _, f := range []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", k.Open, &bar.Open},
		{"high", k.High, &bar.High},
		{"low", k.Low, &bar.Low},
		{"close", k.Close, &bar.Close},
		{"volume", k.Volume, &bar.Volume},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return KlineBar{}, errors.Wrapf(err, "parse %s", f.name)
		}
		*f.dst = d.InexactFloat64()
	}
	return bar, nil
}

// AsInstrument converts a kline series into a synthetic instrument by
// min-max scaling closes into the [0.05, 0.95] band. The result is a
// study series for venue-lag strategies, not a tradable probability.
func AsInstrument(id, label string, bars []KlineBar) (*domain.InstrumentHistory, error) {
	if len(bars) == 0 {
		return nil, errors.Wrap(domain.ErrNoData, "empty kline series")
	}

	low, high := bars[0].Close, bars[0].Close
	for _, b := range bars {
		if b.Close < low {
			low = b.Close
		}
		if b.Close > high {
			high = b.Close
		}
	}

	h := &domain.InstrumentHistory{ID: id, Label: label}
	span := high - low
	for _, b := range bars {
		price := 0.5
		if span > 0 {
			price = 0.05 + 0.90*(b.Close-low)/span
		}
		h.Points = append(h.Points, domain.PricePoint{
			Time:   b.OpenTime,
			Price:  price,
			Volume: b.Volume,
		})
	}
	return h, nil
}
