package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
symbols: [BTCUSDT]
strategy: ema_cross
params:
  ema_fast: 9
  ema_slow: 21
initial_capital: 25000
commission_pct: 0.001
slippage_pct: 0.0005
interval: 1h
start: 2024-01-01T00:00:00Z
end: 2024-03-01T00:00:00Z
filter:
  enabled: true
  threshold: 0.6
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Symbols[0] != "BTCUSDT" || cfg.Strategy != "ema_cross" {
		t.Fatalf("basic fields wrong: %+v", cfg)
	}
	if cfg.InitialCapital != 25000 {
		t.Fatalf("initial capital: want 25000, got %v", cfg.InitialCapital)
	}
	if cfg.Params["ema_fast"] != 9 {
		t.Fatalf("params must survive as-is: %+v", cfg.Params)
	}
	if !cfg.Filter.Enabled || cfg.Filter.Threshold != 0.6 {
		t.Fatalf("filter config wrong: %+v", cfg.Filter)
	}
	if d, err := cfg.IntervalDuration(); err != nil || d != time.Hour {
		t.Fatalf("interval: want 1h, got %v (%v)", d, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
symbols: [AAPL]
strategy: mean_reversion
data_source: csv
csv_path: bars.csv
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InitialCapital != 10000 || cfg.Interval != "1h" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadBinanceSource(t *testing.T) {
	path := writeConfig(t, `
symbols: [BTCUSDT]
strategy: ema_cross
data_source: binance
start: 2024-01-01T00:00:00Z
end: 2024-02-01T00:00:00Z
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataSource != "binance" {
		t.Fatalf("data source wrong: %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "no symbols", body: "strategy: ema_cross\ndata_source: csv\ncsv_path: x.csv\n"},
		{name: "no strategy", body: "symbols: [AAPL]\ndata_source: csv\ncsv_path: x.csv\n"},
		{name: "csv without path", body: "symbols: [AAPL]\nstrategy: ema_cross\ndata_source: csv\n"},
		{name: "db without range", body: "symbols: [AAPL]\nstrategy: ema_cross\ndata_source: db\n"},
		{name: "binance without range", body: "symbols: [BTCUSDT]\nstrategy: ema_cross\ndata_source: binance\n"},
		{name: "unknown source", body: "symbols: [AAPL]\nstrategy: ema_cross\ndata_source: carrier_pigeon\n"},
		{name: "negative commission", body: "symbols: [AAPL]\nstrategy: ema_cross\ndata_source: csv\ncsv_path: x.csv\ncommission_pct: -1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
