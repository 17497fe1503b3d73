package backtest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/audit"
	"github.com/davidgonveg/trading-advisor-sub002/src/config"
	"github.com/davidgonveg/trading-advisor-sub002/src/connectors"
	"github.com/davidgonveg/trading-advisor-sub002/src/data"
	"github.com/davidgonveg/trading-advisor-sub002/src/database"
	"github.com/davidgonveg/trading-advisor-sub002/src/engine"
	"github.com/davidgonveg/trading-advisor-sub002/src/metrics"
	"github.com/davidgonveg/trading-advisor-sub002/src/mlfilter"
	"github.com/davidgonveg/trading-advisor-sub002/src/model"
	"github.com/davidgonveg/trading-advisor-sub002/src/repository"
	"github.com/davidgonveg/trading-advisor-sub002/src/strategy"
)

// Runner executes every symbol of one run config through the replay engine
// and reports (and optionally persists) the results.
type Runner struct {
	Log        *logger.Entry
	ConfigPath string
}

func (r *Runner) Start() error {
	cfg, err := config.Load(r.ConfigPath)
	if err != nil {
		return err
	}
	if r.Log == nil {
		r.Log = logger.NewEntry(logger.StandardLogger())
	}

	if cfg.DataSource == "db" || cfg.SaveResults {
		if err := database.InitMainDB(); err != nil {
			return fmt.Errorf("init database: %w", err)
		}
	}

	loader, err := r.buildLoader(cfg)
	if err != nil {
		return err
	}

	factory := func(symbol string) (*engine.Engine, error) {
		eng := engine.New(engine.Config{
			InitialCapital: cfg.InitialCapital,
			CommissionPct:  cfg.CommissionPct,
			SlippagePct:    cfg.SlippagePct,
		}, r.Log.WithField("symbol", symbol))

		strat, err := strategy.New(cfg.Strategy)
		if err != nil {
			return nil, err
		}
		if err := eng.SetStrategy(strat, cfg.Params); err != nil {
			return nil, err
		}

		eng.SetGate(mlfilter.New(cfg.Filter, r.Log.WithField("symbol", symbol)))

		if cfg.AuditDir != "" {
			eng.SetAuditSink(audit.NewTrail(filepath.Join(cfg.AuditDir, symbol+".json")))
		}
		return eng, nil
	}

	startedAt := time.Now().UTC()
	items := engine.RunBatch(context.Background(), cfg.Symbols, loader, factory, r.Log)

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			continue
		}
		r.report(item)

		if cfg.SaveResults {
			if err := r.persist(cfg, item, startedAt); err != nil {
				r.Log.WithError(err).WithField("symbol", item.Symbol).Error("failed to persist run")
				failed++
			}
		}
	}

	if failed == len(items) && len(items) > 0 {
		return errors.New("all symbol runs failed")
	}
	return nil
}

// buildLoader picks the bar source the config names. The csv loader reads the
// same file regardless of symbol since a file holds one series.
func (r *Runner) buildLoader(cfg *config.RunConfig) (engine.BarLoader, error) {
	switch cfg.DataSource {
	case "csv":
		return func(_ context.Context, _ string) ([]model.Bar, error) {
			return data.LoadCSV(cfg.CSVPath)
		}, nil

	case "db":
		interval, err := cfg.IntervalDuration()
		if err != nil {
			return nil, err
		}
		repo := repository.NewOHLCVRepository()
		return func(ctx context.Context, symbol string) ([]model.Bar, error) {
			return repo.BarsForRange(ctx, symbol, cfg.Start, cfg.End, interval)
		}, nil

	case "clickhouse":
		source, err := connectors.NewClickHouseBarSource(connectors.GetConfig())
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, symbol string) ([]model.Bar, error) {
			return source.FetchBars(ctx, symbol, cfg.Start, cfg.End)
		}, nil

	case "binance":
		interval, err := cfg.IntervalDuration()
		if err != nil {
			return nil, err
		}
		client := connectors.NewBinanceClient(connectors.GetConfig().BinanceBaseURL)
		return func(ctx context.Context, symbol string) ([]model.Bar, error) {
			rows, err := client.FetchKlines(ctx, symbol, cfg.Start, cfg.End)
			if err != nil {
				return nil, err
			}
			if interval > time.Minute {
				rows, err = repository.AggregateFrom1m(rows, interval)
				if err != nil {
					return nil, err
				}
			}
			bars := make([]model.Bar, len(rows))
			for i := range rows {
				bars[i] = rows[i].Base().Bar()
			}
			return bars, nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown data_source %q", cfg.DataSource)
	}
}

func (r *Runner) report(item engine.BatchItem) {
	rep := item.Result.Report
	r.Log.WithFields(logger.Fields{
		"symbol":           item.Symbol,
		"final_equity":     rep.FinalEquity,
		"total_return_pct": rep.TotalReturnPct,
		"max_drawdown_pct": rep.MaxDrawdownPct,
		"sharpe":           rep.SharpeRatio,
		"trades":           rep.TotalTrades,
		"win_rate_pct":     rep.WinRatePct,
		"profit_factor":    metrics.FormatProfitFactor(rep.ProfitFactor),
	}).Info("backtest finished")
}

func (r *Runner) persist(cfg *config.RunConfig, item engine.BatchItem, startedAt time.Time) error {
	rep := item.Result.Report
	run := &model.BacktestRun{
		ID:             uuid.NewString(),
		Symbol:         item.Symbol,
		Strategy:       cfg.Strategy,
		InitialCapital: cfg.InitialCapital,
		CommissionPct:  cfg.CommissionPct,
		SlippagePct:    cfg.SlippagePct,
		Bars:           len(item.Result.EquityCurve),
		FinalEquity:    rep.FinalEquity,
		TotalReturnPct: rep.TotalReturnPct,
		MaxDrawdownPct: rep.MaxDrawdownPct,
		SharpeRatio:    rep.SharpeRatio,
		TotalTrades:    rep.TotalTrades,
		StartedAt:      startedAt,
	}

	repo := repository.NewBacktestRepository()
	return repo.SaveResult(context.Background(), run, item.Result, cfg.Params)
}
