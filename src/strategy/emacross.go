package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
	"github.com/davidgonveg/trading-advisor-sub002/src/portfolio"
	"github.com/davidgonveg/trading-advisor-sub002/src/risk"
)

// EMACross goes long when the fast EMA crosses above the slow EMA and exits
// on the opposite cross. With allow_short the opposite cross also opens a
// short, mirrored stop and take-profit included. Entries carry an ATR
// stop-loss and a percentage take-profit; when risk_pct is set the long entry
// is sized off the stop distance, otherwise the engine's default sizing
// applies.
type EMACross struct {
	fastPeriod int
	slowPeriod int
	atrPeriod  int
	slATRMult  float64
	tpPct      float64
	riskPct    float64
	allowShort bool

	last map[string]float64
}

func (s *EMACross) Setup(params map[string]any) error {
	var err error
	if s.fastPeriod, err = intParam(params, "ema_fast", 12); err != nil {
		return err
	}
	if s.slowPeriod, err = intParam(params, "ema_slow", 26); err != nil {
		return err
	}
	if s.atrPeriod, err = intParam(params, "atr_period", 14); err != nil {
		return err
	}
	if s.slATRMult, err = floatParam(params, "sl_atr_mult", 1.5); err != nil {
		return err
	}
	if s.tpPct, err = floatParam(params, "tp_pct", 0.03); err != nil {
		return err
	}
	if s.riskPct, err = floatParam(params, "risk_pct", 0); err != nil {
		return err
	}
	if s.allowShort, err = boolParam(params, "allow_short", false); err != nil {
		return err
	}

	if s.fastPeriod <= 0 || s.slowPeriod <= s.fastPeriod {
		return fmt.Errorf("ema periods must satisfy 0 < fast < slow, got %d/%d", s.fastPeriod, s.slowPeriod)
	}
	return nil
}

func (s *EMACross) Params() map[string]any {
	return map[string]any{
		"ema_fast":    s.fastPeriod,
		"ema_slow":    s.slowPeriod,
		"atr_period":  s.atrPeriod,
		"sl_atr_mult": s.slATRMult,
		"tp_pct":      s.tpPct,
		"risk_pct":    s.riskPct,
		"allow_short": s.allowShort,
	}
}

// LastIndicators reports the EMAs and ATR behind the latest OnBar decision;
// nil during warmup.
func (s *EMACross) LastIndicators() map[string]float64 { return s.last }

func (s *EMACross) OnBar(history []model.Bar, ctx portfolio.Context) (model.Signal, error) {
	// One extra bar so the previous-bar EMAs exist for cross detection.
	if len(history) < s.slowPeriod+1 {
		s.last = nil
		return model.Hold(), nil
	}

	closes := Closes(history)
	fastNow, _ := EMA(closes, s.fastPeriod)
	slowNow, _ := EMA(closes, s.slowPeriod)
	fastPrev, _ := EMA(closes[:len(closes)-1], s.fastPeriod)
	slowPrev, _ := EMA(closes[:len(closes)-1], s.slowPeriod)
	atr, hasATR := ATR(history, s.atrPeriod)

	s.last = map[string]float64{"ema_fast": fastNow, "ema_slow": slowNow}
	if hasATR {
		s.last["atr"] = atr
	}

	crossedUp := fastPrev <= slowPrev && fastNow > slowNow
	crossedDown := fastPrev >= slowPrev && fastNow < slowNow
	closePrice := history[len(history)-1].Close

	switch {
	case crossedUp && hasShort(ctx):
		// No explicit size: the engine covers the full short.
		return model.Signal{Side: model.SignalSideBuy, Tag: "ema_cross_cover"}, nil

	case crossedUp && !hasLong(ctx):
		sig := model.Signal{Side: model.SignalSideBuy, Tag: "ema_cross_up"}

		if hasATR && atr > 0 {
			sl := closePrice - atr*s.slATRMult
			tp := closePrice * (1 + s.tpPct)
			sig.StopLoss = &sl
			sig.TakeProfit = &tp

			if s.riskPct > 0 {
				qty, _ := risk.SizeByStopDistance(
					decimal.NewFromFloat(ctx.TotalEquity),
					decimal.NewFromFloat(closePrice),
					decimal.NewFromFloat(sl),
					risk.Config{
						RiskPerTradePct: decimal.NewFromFloat(s.riskPct),
						MaxPositionPct:  decimal.NewFromInt(1),
					},
				).Float64()
				if qty > 0 {
					sig.Quantity = &qty
				}
			}
		}
		return sig, nil

	case crossedDown && hasLong(ctx):
		// No explicit size: the engine closes the full position.
		return model.Signal{Side: model.SignalSideSell, Tag: "ema_cross_down"}, nil

	case crossedDown && s.allowShort && !hasShort(ctx):
		sig := model.Signal{Side: model.SignalSideSell, Tag: "ema_cross_short"}
		if hasATR && atr > 0 {
			sl := closePrice + atr*s.slATRMult
			tp := closePrice * (1 - s.tpPct)
			sig.StopLoss = &sl
			sig.TakeProfit = &tp
		}
		return sig, nil
	}

	return model.Hold(), nil
}
