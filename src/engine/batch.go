package engine

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
	"github.com/davidgonveg/trading-advisor-sub002/src/telemetry"
)

// BarLoader fetches the bar series for one symbol.
type BarLoader func(ctx context.Context, symbol string) ([]model.Bar, error)

// EngineFactory builds a fresh, fully configured engine per symbol so runs
// never share ledger or pending-order state.
type EngineFactory func(symbol string) (*Engine, error)

// BatchItem is one symbol's outcome within a batch. Err is set when the
// symbol's run failed; Result is set otherwise.
type BatchItem struct {
	Symbol string
	Result *Result
	Err    error
}

// RunBatch runs every symbol sequentially and in the given order, isolating
// failures: a symbol that errors or panics is recorded and skipped, never
// aborting the remaining symbols. Cancellation via ctx stops the batch
// between symbols.
func RunBatch(ctx context.Context, symbols []string, load BarLoader, factory EngineFactory, log *logger.Entry) []BatchItem {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	items := make([]BatchItem, 0, len(symbols))
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			log.WithField("remaining", len(symbols)-len(items)).Warn("batch canceled")
			return items
		default:
		}

		result, err := runSymbol(ctx, symbol, load, factory)
		if err != nil {
			log.WithError(err).WithField("symbol", symbol).Error("symbol run failed")
			telemetry.RunsTotal.WithLabelValues("error").Inc()
			items = append(items, BatchItem{Symbol: symbol, Err: err})
			continue
		}

		telemetry.RunsTotal.WithLabelValues("ok").Inc()
		items = append(items, BatchItem{Symbol: symbol, Result: result})
	}
	return items
}

// runSymbol converts panics from strategy or data code into errors so one
// bad symbol cannot take down the batch.
func runSymbol(ctx context.Context, symbol string, load BarLoader, factory EngineFactory) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic in run for %s: %v", symbol, r)
		}
	}()

	bars, err := load(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}

	eng, err := factory(symbol)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	result, err = eng.Run(symbol, bars)
	if err != nil {
		return nil, err
	}
	if err := eng.FlushAudit(); err != nil {
		return nil, fmt.Errorf("flush audit: %w", err)
	}
	return result, nil
}
