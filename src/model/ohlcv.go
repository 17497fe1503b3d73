package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCVBase is the exchange-agnostic candle row shared by the interval
// tables. Prices are stored as decimals; conversion to float happens once,
// at the boundary to the simulation core (see Bar).
type OHLCVBase struct {
	ID       uint            `json:"id"`
	Datetime time.Time       `json:"datetime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	Symbol   string          `json:"symbol"`
}

// Bar converts the stored candle into the engine's float representation.
func (o *OHLCVBase) Bar() Bar {
	return Bar{
		Timestamp: o.Datetime,
		Open:      o.Open.InexactFloat64(),
		High:      o.High.InexactFloat64(),
		Low:       o.Low.InexactFloat64(),
		Close:     o.Close.InexactFloat64(),
		Volume:    o.Volume.InexactFloat64(),
	}
}

func (o *OHLCVBase) ConvertToOHLCV1m() *OHLCV1m {
	return &OHLCV1m{
		ID:       o.ID,
		Datetime: o.Datetime.Truncate(time.Minute),
		Open:     o.Open,
		High:     o.High,
		Low:      o.Low,
		Close:    o.Close,
		Volume:   o.Volume,
		Symbol:   o.Symbol,
	}
}

func (o *OHLCV1m) Base() *OHLCVBase {
	return &OHLCVBase{
		ID:       o.ID,
		Datetime: o.Datetime,
		Open:     o.Open,
		High:     o.High,
		Low:      o.Low,
		Close:    o.Close,
		Volume:   o.Volume,
		Symbol:   o.Symbol,
	}
}

func (o *OHLCVBase) ConvertToOHLCV1h() *OHLCV1h {
	return &OHLCV1h{
		ID:       o.ID,
		Datetime: o.Datetime.Truncate(time.Hour),
		Open:     o.Open,
		High:     o.High,
		Low:      o.Low,
		Close:    o.Close,
		Volume:   o.Volume,
		Symbol:   o.Symbol,
	}
}

type OHLCV1m struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	Datetime time.Time       `gorm:"uniqueIndex:idx_ohlcv_1m_dt_symbol" json:"datetime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	Symbol   string          `gorm:"uniqueIndex:idx_ohlcv_1m_dt_symbol;size:32" json:"symbol"`
}

func (OHLCV1m) TableName() string {
	return "ohlcv_1m"
}

type OHLCV1h struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	Datetime time.Time       `gorm:"uniqueIndex:idx_ohlcv_1h_dt_symbol" json:"datetime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	Symbol   string          `gorm:"uniqueIndex:idx_ohlcv_1h_dt_symbol;size:32" json:"symbol"`
}

func (OHLCV1h) TableName() string {
	return "ohlcv_1h"
}
