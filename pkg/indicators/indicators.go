// Package indicators wraps the cinar/indicator library behind plain-slice
// helpers for trailing-window price series.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
)

// EMA calculates the Exponential Moving Average for the given period and
// returns the series of EMA values (shorter than the input by the warmup).
func EMA(closes []float64, period int) ([]float64, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	out := helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes)))
	return out, nil
}

// LastEMA returns the most recent EMA value for the period.
func LastEMA(closes []float64, period int) (float64, error) {
	series, err := EMA(closes, period)
	if err != nil {
		return 0, err
	}
	if len(series) == 0 {
		return 0, fmt.Errorf("ema produced no values for %d inputs", len(closes))
	}
	return series[len(series)-1], nil
}

// RSI calculates the Relative Strength Index for the given period.
func RSI(closes []float64, period int) ([]float64, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	out := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes)))
	return out, nil
}
