package metrics

import (
	"math"
	"strconv"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

const (
	qtyEpsilon = 1e-6
	// annualizationFactor assumes daily bars (√252 trading days).
	annualizationFactor = 252
)

// Direction attributes a matched trade to the side of the position it closed.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// MatchedTrade is one FIFO-matched entry/exit slice with realized P&L net of
// both the entry and exit commission attributable to the matched quantity.
type MatchedTrade struct {
	Symbol     string
	Direction  Direction
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
}

// SideSummary aggregates matched trades for one direction subset.
type SideSummary struct {
	TotalTrades  int      `json:"total_trades"`
	WinRatePct   float64  `json:"win_rate_pct"`
	ProfitFactor *float64 `json:"profit_factor,omitempty"` // nil when no losing trades
	TotalPnL     float64  `json:"total_pnl"`
}

// Report is the aggregate statistics block for one run.
type Report struct {
	TotalReturnPct float64     `json:"total_return_pct"`
	FinalEquity    float64     `json:"final_equity"`
	MaxDrawdownPct float64     `json:"max_drawdown_pct"`
	SharpeRatio    float64     `json:"sharpe_ratio"`
	TotalTrades    int         `json:"total_trades"`
	WinRatePct     float64     `json:"win_rate_pct"`
	ProfitFactor   *float64    `json:"profit_factor,omitempty"`
	Long           SideSummary `json:"long"`
	Short          SideSummary `json:"short"`
}

// FormatProfitFactor renders a profit factor for reports; the undefined case
// (no losing trades) reads "N/A" instead of infinity.
func FormatProfitFactor(pf *float64) string {
	if pf == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*pf, 'f', 2, 64)
}

type openSlot struct {
	quantity    float64
	price       float64
	commPerUnit float64
}

// MatchTrades replays the fill stream through FIFO matching and returns one
// MatchedTrade per closed entry/exit slice. The classification of opening vs
// closing mirrors the portfolio ledger exactly, including the one-fill
// reversal: closing quantity beyond all open slots opens a slot in the
// flipped direction. The trade log is the only input; no parallel ledger is
// consulted.
func MatchTrades(trades []model.Trade) []MatchedTrade {
	var results []MatchedTrade
	runningQty := 0.0
	var slots []openSlot

	for _, t := range trades {
		sideMultiplier := 1.0
		if t.Side == model.OrderSideSell {
			sideMultiplier = -1.0
		}

		isOpening := math.Abs(runningQty) < qtyEpsilon ||
			(runningQty > 0 && t.Side == model.OrderSideBuy) ||
			(runningQty < 0 && t.Side == model.OrderSideSell)

		if isOpening {
			slots = append(slots, openSlot{
				quantity:    t.Quantity,
				price:       t.Price,
				commPerUnit: t.Commission / t.Quantity,
			})
			runningQty += t.Quantity * sideMultiplier
			continue
		}

		qtyToClose := t.Quantity
		exitCommPerUnit := t.Commission / t.Quantity

		for qtyToClose > qtyEpsilon && len(slots) > 0 {
			slot := &slots[0]
			matched := math.Min(qtyToClose, slot.quantity)

			direction := DirectionLong
			pnl := (t.Price - slot.price) * matched
			if runningQty < 0 {
				direction = DirectionShort
				pnl = (slot.price - t.Price) * matched
			}
			pnl -= (slot.commPerUnit + exitCommPerUnit) * matched

			results = append(results, MatchedTrade{
				Symbol:     t.Symbol,
				Direction:  direction,
				Quantity:   matched,
				EntryPrice: slot.price,
				ExitPrice:  t.Price,
				PnL:        pnl,
			})

			slot.quantity -= matched
			qtyToClose -= matched
			if slot.quantity <= qtyEpsilon {
				slots = slots[1:]
			}
		}

		runningQty += t.Quantity * sideMultiplier

		// Reversal: the unmatched remainder becomes the first slot of the
		// flipped position.
		if qtyToClose > qtyEpsilon {
			slots = append(slots, openSlot{
				quantity:    qtyToClose,
				price:       t.Price,
				commPerUnit: exitCommPerUnit,
			})
		}
	}

	return results
}

// Calculate builds the aggregate report from the raw trade list and equity
// curve of one run. An empty curve yields a zero report.
func Calculate(trades []model.Trade, curve []model.EquitySnapshot, initialCapital float64) Report {
	if len(curve) == 0 {
		return Report{}
	}

	finalEquity := curve[len(curve)-1].TotalEquity

	report := Report{
		FinalEquity:    finalEquity,
		TotalReturnPct: (finalEquity/initialCapital - 1) * 100,
		MaxDrawdownPct: maxDrawdownPct(curve),
		SharpeRatio:    sharpe(curve),
	}

	matched := MatchTrades(trades)

	var long, short []MatchedTrade
	for _, m := range matched {
		if m.Direction == DirectionLong {
			long = append(long, m)
		} else {
			short = append(short, m)
		}
	}

	combined := summarize(matched)
	report.TotalTrades = combined.TotalTrades
	report.WinRatePct = combined.WinRatePct
	report.ProfitFactor = combined.ProfitFactor
	report.Long = summarize(long)
	report.Short = summarize(short)

	return report
}

func summarize(matched []MatchedTrade) SideSummary {
	summary := SideSummary{TotalTrades: len(matched)}
	if len(matched) == 0 {
		return summary
	}

	winSum, lossSum := 0.0, 0.0
	wins := 0
	for _, m := range matched {
		summary.TotalPnL += m.PnL
		if m.PnL > 0 {
			wins++
			winSum += m.PnL
		} else {
			lossSum += m.PnL
		}
	}

	summary.WinRatePct = float64(wins) / float64(len(matched)) * 100
	if lossSum != 0 {
		pf := winSum / math.Abs(lossSum)
		summary.ProfitFactor = &pf
	}

	return summary
}

func maxDrawdownPct(curve []model.EquitySnapshot) float64 {
	peak := math.Inf(-1)
	minDD := 0.0
	for _, snap := range curve {
		if snap.TotalEquity > peak {
			peak = snap.TotalEquity
		}
		if peak != 0 {
			if dd := snap.TotalEquity/peak - 1; dd < minDD {
				minDD = dd
			}
		}
	}
	return minDD * 100
}

// sharpe computes mean(Δequity%) / stdev(Δequity%) · √252 over per-bar
// equity changes, zero when the deviation is zero.
func sharpe(curve []model.EquitySnapshot) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].TotalEquity
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].TotalEquity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(annualizationFactor)
}
