package execution

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// Executor holds pending orders and matches them against one bar at a time.
// Pending orders live in a slice in submission order, never a map: replaying
// the same inputs must produce a byte-identical trade list, and map iteration
// would break that. Companion stop-loss orders are submitted before
// take-profits, so when both levels are touched inside one bar the stop's
// fill is applied first.
type Executor struct {
	commissionPct float64
	slippagePct   float64
	log           *logger.Entry
	pending       []*model.Order
}

func NewExecutor(commissionPct, slippagePct float64, log *logger.Entry) *Executor {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	return &Executor{
		commissionPct: commissionPct,
		slippagePct:   slippagePct,
		log:           log,
	}
}

// SubmitOrder queues an order for matching starting with the next processed
// bar. The executor owns the order until it reaches a terminal status.
func (e *Executor) SubmitOrder(order *model.Order) {
	order.Status = model.OrderStatusSubmitted
	e.pending = append(e.pending, order)

	e.log.WithFields(logger.Fields{
		"order_id": order.ID,
		"type":     order.Type,
		"side":     order.Side,
		"symbol":   order.Symbol,
		"quantity": order.Quantity,
		"tag":      order.Tag,
	}).Info("order submitted")
}

// CancelOrder removes a pending order. Returns false if the order is not
// pending (already filled, canceled, or never submitted).
func (e *Executor) CancelOrder(orderID string) bool {
	for i, order := range e.pending {
		if order.ID == orderID {
			order.Status = model.OrderStatusCanceled
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			e.log.WithField("order_id", orderID).Info("order canceled")
			return true
		}
	}
	return false
}

// PendingCount reports how many orders are waiting for a fill.
func (e *Executor) PendingCount() int {
	return len(e.pending)
}

// ProcessBar evaluates every pending order for symbol against the bar's OHLC
// range, independently of one another. Fills are all-or-nothing: a matched
// order yields exactly one Trade and leaves the pending set; unmatched orders
// persist with no expiry. Arithmetic anomalies (non-finite prices) abort the
// run instead of producing a silently wrong ledger.
func (e *Executor) ProcessBar(bar model.Bar, symbol string) ([]model.Trade, error) {
	var trades []model.Trade
	kept := e.pending[:0]

	for _, order := range e.pending {
		if order.Symbol != symbol {
			kept = append(kept, order)
			continue
		}

		basePrice, matched, err := matchOrder(order, bar)
		if err != nil {
			return nil, err
		}
		if !matched {
			kept = append(kept, order)
			continue
		}

		// Directional slippage: buys pay up, sells receive less.
		slippage := basePrice * e.slippagePct
		fillPrice := basePrice + slippage
		if order.Side == model.OrderSideSell {
			fillPrice = basePrice - slippage
		}

		if math.IsNaN(fillPrice) || math.IsInf(fillPrice, 0) {
			return nil, fmt.Errorf("non-finite fill price for order %s at %s", order.ID, bar.Timestamp)
		}

		commission := fillPrice * order.Quantity * e.commissionPct

		trade := model.Trade{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			Timestamp:  bar.Timestamp,
			Symbol:     symbol,
			Side:       order.Side,
			Quantity:   order.Quantity,
			Price:      fillPrice,
			Commission: commission,
			Slippage:   slippage,
			Tag:        order.Tag,
		}

		order.Status = model.OrderStatusFilled
		trades = append(trades, trade)

		e.log.WithFields(logger.Fields{
			"order_id":   order.ID,
			"side":       order.Side,
			"symbol":     symbol,
			"quantity":   order.Quantity,
			"price":      fillPrice,
			"commission": commission,
		}).Info("order filled")
	}

	e.pending = kept
	return trades, nil
}

// matchOrder applies the touch rules for one order against one bar and
// returns the pre-slippage fill price. Touches are inclusive: a limit buy at
// 100 fills when the bar low is exactly 100. The switch is exhaustive over
// the closed set of order types; an unknown type is a programming error and
// fails the run.
func matchOrder(order *model.Order, bar model.Bar) (float64, bool, error) {
	switch order.Type {
	case model.OrderTypeMarket:
		return bar.Open, true, nil

	case model.OrderTypeLimit:
		if order.Price == nil {
			return 0, false, fmt.Errorf("limit order %s has no limit price", order.ID)
		}
		limit := *order.Price
		if order.Side == model.OrderSideBuy {
			if bar.Low <= limit {
				return math.Min(bar.Open, limit), true, nil
			}
		} else {
			if bar.High >= limit {
				return math.Max(bar.Open, limit), true, nil
			}
		}
		return 0, false, nil

	case model.OrderTypeStop:
		if order.StopPrice == nil {
			return 0, false, fmt.Errorf("stop order %s has no stop price", order.ID)
		}
		stop := *order.StopPrice
		if order.Side == model.OrderSideBuy {
			if bar.High >= stop {
				return math.Max(bar.Open, stop), true, nil
			}
		} else {
			if bar.Low <= stop {
				return math.Min(bar.Open, stop), true, nil
			}
		}
		return 0, false, nil

	default:
		return 0, false, fmt.Errorf("unknown order type %q on order %s", order.Type, order.ID)
	}
}
