package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidgonveg/trading-advisor-sub002/src/mlfilter"
)

// RunConfig describes one backtest invocation: the instrument(s), the
// strategy and its parameters, the cost model and where bars come from.
type RunConfig struct {
	Symbols  []string       `yaml:"symbols"`
	Strategy string         `yaml:"strategy"`
	Params   map[string]any `yaml:"params"`

	InitialCapital float64 `yaml:"initial_capital"`
	CommissionPct  float64 `yaml:"commission_pct"`
	SlippagePct    float64 `yaml:"slippage_pct"`

	// DataSource selects where bars come from: "db" (default), "clickhouse",
	// "binance" (REST kline download, no local store needed) or "csv".
	DataSource string    `yaml:"data_source"`
	CSVPath    string    `yaml:"csv_path"`
	Interval   string    `yaml:"interval"`
	Start      time.Time `yaml:"start"`
	End        time.Time `yaml:"end"`

	// AuditDir enables the JSON audit trail; one file per symbol.
	AuditDir string `yaml:"audit_dir"`
	// SaveResults persists runs to the results store.
	SaveResults bool `yaml:"save_results"`

	Filter mlfilter.Config `yaml:"filter"`
}

// Load reads and validates a run config file, applying defaults.
func Load(path string) (*RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &RunConfig{
		InitialCapital: 10000,
		DataSource:     "db",
		Interval:       "1h",
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *RunConfig) validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	if c.Strategy == "" {
		return fmt.Errorf("strategy must be set")
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %v", c.InitialCapital)
	}
	if c.CommissionPct < 0 || c.SlippagePct < 0 {
		return fmt.Errorf("commission_pct and slippage_pct must not be negative")
	}

	switch c.DataSource {
	case "db", "clickhouse", "binance":
		if c.Start.IsZero() || c.End.IsZero() || !c.End.After(c.Start) {
			return fmt.Errorf("start/end must form a valid range for data_source %q", c.DataSource)
		}
	case "csv":
		if c.CSVPath == "" {
			return fmt.Errorf("csv_path must be set for data_source csv")
		}
	default:
		return fmt.Errorf("unknown data_source %q", c.DataSource)
	}

	return nil
}

// IntervalDuration converts the interval string into a duration.
func (c *RunConfig) IntervalDuration() (time.Duration, error) {
	switch c.Interval {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown interval %q", c.Interval)
	}
}
