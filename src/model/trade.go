package model

import "time"

// Trade is a single fill. The executor produces exactly one Trade per fill
// and nothing mutates it afterwards; RunID is stamped on the persisted copy
// only.
type Trade struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	RunID      string    `gorm:"index;size:36" json:"run_id,omitempty"`
	OrderID    string    `gorm:"size:36" json:"order_id"`
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `gorm:"index" json:"symbol"`
	Side       OrderSide `gorm:"size:4" json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
	Slippage   float64   `json:"slippage"`
	Tag        string    `json:"tag,omitempty"`
}

func (Trade) TableName() string {
	return "backtest_trades"
}
