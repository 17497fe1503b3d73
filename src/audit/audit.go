package audit

import (
	"time"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// BarRecord is one bar's worth of audit state: the prices the engine saw,
// the decision the strategy made and the equity after fills.
type BarRecord struct {
	Index           int                `json:"index"`
	Timestamp       time.Time          `json:"timestamp"`
	Open            float64            `json:"open"`
	High            float64            `json:"high"`
	Low             float64            `json:"low"`
	Close           float64            `json:"close"`
	Indicators      map[string]float64 `json:"indicators,omitempty"`
	Signal          string             `json:"signal"`
	SignalTag       string             `json:"signal_tag,omitempty"`
	GateProbability *float64           `json:"gate_probability,omitempty"`
	GateAdmitted    *bool              `json:"gate_admitted,omitempty"`
	TotalEquity     float64            `json:"total_equity"`
}

// Sink receives the per-bar and per-trade records of one run. Implementations
// are observe-only: swapping one for another must never change a simulation
// result, only what gets written where.
type Sink interface {
	SetMetadata(meta map[string]any)
	LogBar(rec BarRecord)
	LogTrade(trade model.Trade)
	Flush() error
}

// Noop discards everything. It is the default sink.
type Noop struct{}

func (Noop) SetMetadata(map[string]any) {}
func (Noop) LogBar(BarRecord)           {}
func (Noop) LogTrade(model.Trade)       {}
func (Noop) Flush() error               { return nil }
