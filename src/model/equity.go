package model

import "time"

// EquitySnapshot is one row of the equity curve, appended once per bar.
// Drawdown is relative to the running equity maximum and therefore always
// less than or equal to zero.
type EquitySnapshot struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	RunID         string    `gorm:"index;size:36" json:"run_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Cash          float64   `json:"cash"`
	PositionValue float64   `json:"position_value"`
	TotalEquity   float64   `json:"total_equity"`
	Drawdown      float64   `json:"drawdown"`
}

func (EquitySnapshot) TableName() string {
	return "backtest_equity"
}
