package model

import "time"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the exit side matching an entry side. Used when deriving
// companion stop-loss/take-profit orders.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

type OrderStatus string

const (
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

// Order is a trade intent created by the engine from a strategy signal.
// Quantity is always positive; direction lives exclusively in Side. The
// executor owns the order while it is pending, and an order reaches exactly
// one terminal status (FILLED, CANCELED or REJECTED) with no transitions
// afterwards.
type Order struct {
	ID        string
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Quantity  float64
	Price     *float64 // limit price, LIMIT orders only
	StopPrice *float64 // trigger price, STOP orders only
	Tag       string
	Status    OrderStatus
	CreatedAt time.Time
}
