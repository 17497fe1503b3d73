package strategy

import (
	"math"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// Closes extracts the close series from a bar slice.
func Closes(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i := range bars {
		closes[i] = bars[i].Close
	}
	return closes
}

// SMA returns the simple moving average of the last period values. The second
// return is false when fewer than period values are available.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average of values with the given period,
// seeded with the SMA of the first period values and smoothed over the rest.
func EMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}

	seed, _ := SMA(values[:period], period)
	alpha := 2.0 / float64(period+1)

	ema := seed
	for _, v := range values[period:] {
		ema = v*alpha + ema*(1-alpha)
	}
	return ema, true
}

// ATR returns the Wilder average true range over the last period bars. It
// needs period+1 bars for the first previous close.
func ATR(bars []model.Bar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}

	start := len(bars) - period
	sum := 0.0
	for i := start; i < len(bars); i++ {
		tr := bars[i].High - bars[i].Low
		prevClose := bars[i-1].Close
		tr = math.Max(tr, math.Abs(bars[i].High-prevClose))
		tr = math.Max(tr, math.Abs(bars[i].Low-prevClose))
		sum += tr
	}
	return sum / float64(period), true
}
