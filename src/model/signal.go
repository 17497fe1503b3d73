package model

type SignalSide string

const (
	SignalSideBuy  SignalSide = "BUY"
	SignalSideSell SignalSide = "SELL"
	SignalSideHold SignalSide = "HOLD"
)

// Signal is a strategy decision for one bar. At most one of Quantity and
// QuantityPct may be set; when both are nil the engine infers the size
// (close the opposite position if one exists, otherwise deploy free cash).
type Signal struct {
	Side        SignalSide
	Quantity    *float64 // fixed number of units
	QuantityPct *float64 // fraction of position (closing) or cash (opening)
	StopLoss    *float64
	TakeProfit  *float64
	Tag         string
	Metadata    map[string]any
}

// Hold is the neutral signal.
func Hold() Signal {
	return Signal{Side: SignalSideHold}
}
