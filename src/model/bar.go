package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrEmptySeries = errors.New("bar series is empty")

// Bar is one OHLCV record plus any indicator enrichment computed upstream.
// The engine consumes bars as-is: the series handed to Run must already be
// gap-resolved, duplicate-free and time-ordered (see ValidateSeries).
type Bar struct {
	Timestamp  time.Time          `json:"timestamp"`
	Open       float64            `json:"open"`
	High       float64            `json:"high"`
	Low        float64            `json:"low"`
	Close      float64            `json:"close"`
	Volume     float64            `json:"volume"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// ValidateSeries checks the contract the engine relies on: at least one row,
// strictly increasing timestamps and finite prices. A series failing these
// checks must be repaired upstream, not worked around here.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}

	for i := range bars {
		b := &bars[i]
		for _, v := range [4]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bar %d (%s): non-finite price", i, b.Timestamp)
			}
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d (%s): high %.6f below low %.6f", i, b.Timestamp, b.High, b.Low)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("bar %d: timestamp %s not after previous %s", i, b.Timestamp, bars[i-1].Timestamp)
		}
	}

	return nil
}
