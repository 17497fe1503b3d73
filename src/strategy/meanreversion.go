package strategy

import (
	"fmt"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
	"github.com/davidgonveg/trading-advisor-sub002/src/portfolio"
)

// MeanReversion buys when the close drops a configured band below its SMA
// and exits once the close recovers to the mean. Entries deploy a fraction
// of free cash rather than a fixed size.
type MeanReversion struct {
	period   int
	bandPct  float64
	entryPct float64

	last map[string]float64
}

func (s *MeanReversion) Setup(params map[string]any) error {
	var err error
	if s.period, err = intParam(params, "sma_period", 20); err != nil {
		return err
	}
	if s.bandPct, err = floatParam(params, "band_pct", 0.02); err != nil {
		return err
	}
	if s.entryPct, err = floatParam(params, "entry_pct", 0.5); err != nil {
		return err
	}

	if s.period <= 1 {
		return fmt.Errorf("sma_period must be greater than 1, got %d", s.period)
	}
	if s.bandPct <= 0 {
		return fmt.Errorf("band_pct must be positive, got %v", s.bandPct)
	}
	if s.entryPct <= 0 || s.entryPct > 1 {
		return fmt.Errorf("entry_pct must be in (0, 1], got %v", s.entryPct)
	}
	return nil
}

func (s *MeanReversion) Params() map[string]any {
	return map[string]any{
		"sma_period": s.period,
		"band_pct":   s.bandPct,
		"entry_pct":  s.entryPct,
	}
}

// LastIndicators reports the mean and relative deviation behind the latest
// OnBar decision; nil during warmup.
func (s *MeanReversion) LastIndicators() map[string]float64 { return s.last }

func (s *MeanReversion) OnBar(history []model.Bar, ctx portfolio.Context) (model.Signal, error) {
	closes := Closes(history)
	sma, ok := SMA(closes, s.period)
	if !ok {
		s.last = nil
		return model.Hold(), nil
	}

	closePrice := closes[len(closes)-1]
	s.last = map[string]float64{"sma": sma, "sma_dev_pct": (closePrice - sma) / sma}

	switch {
	case !hasLong(ctx) && closePrice < sma*(1-s.bandPct):
		pct := s.entryPct
		return model.Signal{Side: model.SignalSideBuy, QuantityPct: &pct, Tag: "mr_entry"}, nil

	case hasLong(ctx) && closePrice >= sma:
		return model.Signal{Side: model.SignalSideSell, Tag: "mr_exit"}, nil
	}

	return model.Hold(), nil
}
