package risk

import (
	"github.com/shopspring/decimal"
)

// ----- sizing config -----

// Config bounds how much of the account a single position may put at risk.
type Config struct {
	// RiskPerTradePct is the fraction of equity lost if the stop is hit
	// (e.g. 0.01 risks 1% of equity per trade).
	RiskPerTradePct decimal.Decimal
	// MaxPositionPct caps the position notional as a fraction of equity.
	MaxPositionPct decimal.Decimal
	// CashBufferPct is the fraction of free cash kept back on full-size
	// entries so commission and slippage never overdraw the account.
	CashBufferPct decimal.Decimal
}

// DefaultConfig reasonable defaults, tweak per strategy.
func DefaultConfig() Config {
	return Config{
		RiskPerTradePct: decimal.NewFromFloat(0.01),
		MaxPositionPct:  decimal.NewFromFloat(1.0),
		CashBufferPct:   decimal.NewFromFloat(0.01),
	}
}

// ----- public API -----

// SizeByStopDistance sizes a position so the loss between entry and stop
// equals equity * RiskPerTradePct, then caps it at MaxPositionPct of equity.
// Decimal arithmetic keeps the sizing path free of float drift. Returns zero
// when the inputs cannot produce a meaningful size (flat stop, non-positive
// equity or price).
func SizeByStopDistance(equity, entry, stop decimal.Decimal, cfg Config) decimal.Decimal {
	if equity.LessThanOrEqual(decimal.Zero) || entry.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if cfg.RiskPerTradePct.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	distance := entry.Sub(stop).Abs()
	if distance.IsZero() {
		return decimal.Zero
	}

	qty := equity.Mul(cfg.RiskPerTradePct).Div(distance)

	if cfg.MaxPositionPct.GreaterThan(decimal.Zero) {
		maxQty := equity.Mul(cfg.MaxPositionPct).Div(entry)
		if qty.GreaterThan(maxQty) {
			qty = maxQty
		}
	}

	return qty
}

// MaxAffordable returns the largest quantity free cash can buy at price after
// holding back the configured cash buffer.
func MaxAffordable(cash, price decimal.Decimal, cfg Config) decimal.Decimal {
	if cash.LessThanOrEqual(decimal.Zero) || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	buffer := decimal.NewFromInt(1).Sub(cfg.CashBufferPct)
	if buffer.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	return cash.Mul(buffer).Div(price)
}
