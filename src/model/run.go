package model

import "time"

// BacktestRun is the persisted summary of one engine run. Trades and equity
// rows reference it through RunID.
type BacktestRun struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Symbol         string     `gorm:"index" json:"symbol"`
	Strategy       string     `json:"strategy"`
	ParamsJSON     string     `json:"params_json,omitempty"`
	InitialCapital float64    `json:"initial_capital"`
	CommissionPct  float64    `json:"commission_pct"`
	SlippagePct    float64    `json:"slippage_pct"`
	Bars           int        `json:"bars"`
	FinalEquity    float64    `json:"final_equity"`
	TotalReturnPct float64    `json:"total_return_pct"`
	MaxDrawdownPct float64    `json:"max_drawdown_pct"`
	SharpeRatio    float64    `json:"sharpe_ratio"`
	TotalTrades    int        `json:"total_trades"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (BacktestRun) TableName() string {
	return "backtest_runs"
}
