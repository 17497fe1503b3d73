package portfolio

import (
	"fmt"
	"math"
	"sort"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

const (
	// positionEpsilon is the threshold below which a position is considered
	// flat and removed from the map.
	positionEpsilon = 1e-9
	// lotEpsilon guards FIFO arithmetic against float residue.
	lotEpsilon = 1e-6
	// drawdownWarnThreshold triggers a warning log line.
	drawdownWarnThreshold = -0.15
)

// Lot is an un-closed slice of a prior entry fill, consumed first-in
// first-out by later opposite-side fills.
type Lot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag,omitempty"`
}

// Context is the strategy-facing read view of the ledger.
type Context struct {
	Cash      float64
	Positions map[string]float64
	OpenLots  []Lot
	// TotalEquity is the equity recorded at the most recent snapshot.
	TotalEquity float64
	// UnrealizedPnL is total P&L since inception (equity minus initial
	// capital), not the marked P&L of open positions only. The historical
	// name is kept so existing strategies keep working; treat it as
	// "P&L to date".
	UnrealizedPnL float64
}

// Portfolio is the single writer for cash, positions and FIFO open lots.
// Trades enter through ApplyTrade only; snapshots are appended once per bar
// through RecordSnapshot.
type Portfolio struct {
	initialCapital float64
	cash           float64
	positions      map[string]float64
	openLots       []Lot
	trades         []model.Trade
	equityCurve    []model.EquitySnapshot
	maxEquity      float64
	log            *logger.Entry
}

func NewPortfolio(initialCapital float64, log *logger.Entry) *Portfolio {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]float64),
		maxEquity:      initialCapital,
		log:            log,
	}
}

func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }
func (p *Portfolio) Cash() float64           { return p.cash }

// Position returns the signed quantity for symbol, zero when flat.
func (p *Portfolio) Position(symbol string) float64 {
	return p.positions[symbol]
}

// Trades returns the fill log in application order. Callers must not mutate
// it.
func (p *Portfolio) Trades() []model.Trade {
	return p.trades
}

// EquityCurve returns the appended snapshots in time order. Callers must not
// mutate it.
func (p *Portfolio) EquityCurve() []model.EquitySnapshot {
	return p.equityCurve
}

// ApplyTrade updates cash, the signed position and the FIFO lot queue for one
// fill. A trade in the direction of the current position (or with no
// position) opens a lot; an opposite-direction trade consumes lots in
// creation order, and any quantity beyond the available lots opens a new lot
// in the flipped direction (one-fill reversal).
func (p *Portfolio) ApplyTrade(trade model.Trade) error {
	if math.IsNaN(trade.Price) || math.IsInf(trade.Price, 0) || trade.Quantity <= 0 {
		return fmt.Errorf("invalid trade %s: price=%v quantity=%v", trade.ID, trade.Price, trade.Quantity)
	}

	p.trades = append(p.trades, trade)

	currentQty := p.positions[trade.Symbol]
	notional := trade.Price * trade.Quantity

	if trade.Side == model.OrderSideBuy {
		p.cash -= notional + trade.Commission
	} else {
		p.cash += notional - trade.Commission
	}

	isClosing := (currentQty > 0 && trade.Side == model.OrderSideSell) ||
		(currentQty < 0 && trade.Side == model.OrderSideBuy)

	if isClosing {
		p.consumeLots(trade, currentQty)
	} else {
		p.openLots = append(p.openLots, Lot{
			Symbol:    trade.Symbol,
			Price:     trade.Price,
			Quantity:  trade.Quantity,
			Timestamp: trade.Timestamp,
			Tag:       trade.Tag,
		})

		direction := "LONG"
		if trade.Side == model.OrderSideSell {
			direction = "SHORT"
		}
		p.log.WithFields(logger.Fields{
			"symbol":   trade.Symbol,
			"side":     direction,
			"quantity": trade.Quantity,
			"price":    trade.Price,
		}).Info("position opened")
	}

	if trade.Side == model.OrderSideBuy {
		p.positions[trade.Symbol] = currentQty + trade.Quantity
	} else {
		p.positions[trade.Symbol] = currentQty - trade.Quantity
	}

	if math.Abs(p.positions[trade.Symbol]) < positionEpsilon {
		delete(p.positions, trade.Symbol)
	}

	return nil
}

// consumeLots walks the FIFO queue for a closing trade, realizes P&L against
// the consumed entries, and converts any over-close remainder into a lot in
// the flipped direction.
func (p *Portfolio) consumeLots(trade model.Trade, currentQty float64) {
	qtyToClose := trade.Quantity
	totalEntryCost := 0.0
	closedQty := 0.0
	kept := p.openLots[:0]

	for i := range p.openLots {
		lot := p.openLots[i]
		if lot.Symbol == trade.Symbol && qtyToClose > 0 {
			matched := math.Min(qtyToClose, lot.Quantity)
			totalEntryCost += matched * lot.Price
			lot.Quantity -= matched
			qtyToClose -= matched
			closedQty += matched

			if lot.Quantity > lotEpsilon {
				kept = append(kept, lot)
			}
			continue
		}
		kept = append(kept, lot)
	}
	p.openLots = kept

	if closedQty > 0 {
		closedNotional := trade.Price * closedQty

		var pnl float64
		if currentQty > 0 { // closing a long
			pnl = closedNotional - totalEntryCost - trade.Commission
		} else { // closing a short
			pnl = totalEntryCost - closedNotional - trade.Commission
		}

		outcome := "FLAT"
		if pnl > 0 {
			outcome = "WIN"
		} else if pnl < 0 {
			outcome = "LOSS"
		}
		p.log.WithFields(logger.Fields{
			"symbol":  trade.Symbol,
			"outcome": outcome,
			"pnl":     pnl,
			"reason":  trade.Tag,
			"cash":    p.cash,
		}).Info("position closed")
	}

	if qtyToClose > lotEpsilon {
		p.log.WithFields(logger.Fields{
			"symbol":    trade.Symbol,
			"remaining": qtyToClose,
		}).Info("position reversed")

		p.openLots = append(p.openLots, Lot{
			Symbol:    trade.Symbol,
			Price:     trade.Price,
			Quantity:  qtyToClose,
			Timestamp: trade.Timestamp,
			Tag:       trade.Tag,
		})
	}
}

// RecordSnapshot appends one equity-curve row, marking positions at the
// supplied prices. The running equity maximum never decreases, so drawdown
// is always ≤ 0.
func (p *Portfolio) RecordSnapshot(timestamp time.Time, prices map[string]float64) {
	positionValue := 0.0
	for _, symbol := range sortedSymbols(p.positions) {
		if price, ok := prices[symbol]; ok {
			positionValue += p.positions[symbol] * price
		}
	}

	totalEquity := p.cash + positionValue
	if totalEquity > p.maxEquity {
		p.maxEquity = totalEquity
	}

	drawdown := 0.0
	if p.maxEquity != 0 {
		drawdown = totalEquity/p.maxEquity - 1
	}

	if drawdown < drawdownWarnThreshold {
		p.log.WithFields(logger.Fields{
			"drawdown":  drawdown,
			"timestamp": timestamp,
		}).Warn("large drawdown")
	}

	p.equityCurve = append(p.equityCurve, model.EquitySnapshot{
		Timestamp:     timestamp,
		Cash:          p.cash,
		PositionValue: positionValue,
		TotalEquity:   totalEquity,
		Drawdown:      drawdown,
	})
}

// Context builds the read-only view handed to strategies. Maps and slices
// are copies; mutating them does not touch the ledger.
func (p *Portfolio) Context() Context {
	positions := make(map[string]float64, len(p.positions))
	for symbol, qty := range p.positions {
		positions[symbol] = qty
	}

	lots := make([]Lot, len(p.openLots))
	copy(lots, p.openLots)

	equity := p.initialCapital
	if n := len(p.equityCurve); n > 0 {
		equity = p.equityCurve[n-1].TotalEquity
	}

	return Context{
		Cash:          p.cash,
		Positions:     positions,
		OpenLots:      lots,
		TotalEquity:   equity,
		UnrealizedPnL: equity - p.initialCapital,
	}
}

// sortedSymbols gives a stable iteration order so float accumulation is
// reproducible across runs.
func sortedSymbols(m map[string]float64) []string {
	symbols := make([]string, 0, len(m))
	for s := range m {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
