package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// Trail buffers the full run audit in memory and writes a single JSON
// document on Flush. Backtests are finite, so buffering the whole run is
// simpler and cheaper than streaming writes per bar.
type Trail struct {
	path    string
	payload trailPayload
}

type trailPayload struct {
	Metadata map[string]any `json:"metadata,omitempty"`
	Bars     []BarRecord    `json:"bars"`
	Trades   []model.Trade  `json:"trades"`
}

func NewTrail(path string) *Trail {
	return &Trail{path: path}
}

func (t *Trail) SetMetadata(meta map[string]any) {
	t.payload.Metadata = meta
}

func (t *Trail) LogBar(rec BarRecord) {
	t.payload.Bars = append(t.payload.Bars, rec)
}

func (t *Trail) LogTrade(trade model.Trade) {
	t.payload.Trades = append(t.payload.Trades, trade)
}

// Flush writes the buffered audit to disk, creating parent directories as
// needed.
func (t *Trail) Flush() error {
	raw, err := json.MarshalIndent(t.payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal audit trail: %w", err)
	}

	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit dir: %w", err)
		}
	}
	if err := os.WriteFile(t.path, raw, 0o644); err != nil {
		return fmt.Errorf("write audit trail: %w", err)
	}
	return nil
}
