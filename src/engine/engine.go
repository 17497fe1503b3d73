package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/audit"
	"github.com/davidgonveg/trading-advisor-sub002/src/execution"
	"github.com/davidgonveg/trading-advisor-sub002/src/metrics"
	"github.com/davidgonveg/trading-advisor-sub002/src/model"
	"github.com/davidgonveg/trading-advisor-sub002/src/portfolio"
	"github.com/davidgonveg/trading-advisor-sub002/src/strategy"
	"github.com/davidgonveg/trading-advisor-sub002/src/telemetry"
)

const (
	// cashBufferFactor holds back 1% of free cash on inferred entries so
	// commission and slippage on the next bar cannot overdraw the account.
	cashBufferFactor = 0.99
	// qtyDecimals rounds order quantities to exchange-realistic precision.
	qtyDecimals = 1e4
	// orderIDLen truncates the uuid for readable order ids.
	orderIDLen = 8
)

var ErrStrategyNotSet = errors.New("engine: strategy not set")

// AdmissionGate scores a non-HOLD signal before it becomes orders. It must
// be side-effect-free so a run replays identically with or without audit.
type AdmissionGate interface {
	Enabled() bool
	Threshold() float64
	Lookback() int
	Predict(current map[string]float64, recent []map[string]float64, symbol string) float64
}

// Config carries the run parameters of one engine instance.
type Config struct {
	InitialCapital float64
	CommissionPct  float64
	SlippagePct    float64
}

// Result is everything a finished run produces.
type Result struct {
	Symbol      string
	Trades      []model.Trade
	EquityCurve []model.EquitySnapshot
	Report      metrics.Report
}

// Engine replays a bar series through a strategy. Per bar, in order: pending
// orders from earlier bars are matched against this bar's range, fills are
// applied to the ledger, equity is snapshotted at the close, and only then
// does the strategy see the bar. Orders born from its signal wait for the
// next bar, so a decision can never execute inside the bar that produced it.
type Engine struct {
	cfg       Config
	log       *logger.Entry
	portfolio *portfolio.Portfolio
	executor  *execution.Executor
	strategy  strategy.Strategy
	gate      AdmissionGate
	sink      audit.Sink

	// indicatorHistory holds prior bars' indicators newest-first for the
	// admission gate's lagged features.
	indicatorHistory []map[string]float64
}

func New(cfg Config, log *logger.Entry) *Engine {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	return &Engine{
		cfg:       cfg,
		log:       log,
		portfolio: portfolio.NewPortfolio(cfg.InitialCapital, log),
		executor:  execution.NewExecutor(cfg.CommissionPct, cfg.SlippagePct, log),
		sink:      audit.Noop{},
	}
}

// SetStrategy installs and configures the decision layer. Must be called
// before Run.
func (e *Engine) SetStrategy(s strategy.Strategy, params map[string]any) error {
	if err := s.Setup(params); err != nil {
		return fmt.Errorf("strategy setup: %w", err)
	}
	e.strategy = s
	return nil
}

// SetGate installs the optional signal admission gate.
func (e *Engine) SetGate(gate AdmissionGate) { e.gate = gate }

// SetAuditSink replaces the default no-op sink.
func (e *Engine) SetAuditSink(sink audit.Sink) {
	if sink != nil {
		e.sink = sink
	}
}

// Run replays bars for one symbol and returns the full result. The engine is
// single-use: a second Run would continue from the first run's ledger.
func (e *Engine) Run(symbol string, bars []model.Bar) (*Result, error) {
	if e.strategy == nil {
		return nil, ErrStrategyNotSet
	}
	if err := model.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("bar series: %w", err)
	}

	e.sink.SetMetadata(map[string]any{
		"symbol":          symbol,
		"bars":            len(bars),
		"initial_capital": e.cfg.InitialCapital,
		"commission_pct":  e.cfg.CommissionPct,
		"slippage_pct":    e.cfg.SlippagePct,
		"params":          e.strategy.Params(),
	})

	for i := range bars {
		bar := bars[i]

		trades, err := e.executor.ProcessBar(bar, symbol)
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		for _, trade := range trades {
			if err := e.portfolio.ApplyTrade(trade); err != nil {
				return nil, fmt.Errorf("bar %d: %w", i, err)
			}
			e.sink.LogTrade(trade)
			telemetry.OrdersFilledTotal.WithLabelValues(symbol, string(trade.Side)).Inc()
		}

		e.portfolio.RecordSnapshot(bar.Timestamp, map[string]float64{symbol: bar.Close})

		// The strategy sees history up to and including this bar, nothing
		// beyond it.
		ctx := e.portfolio.Context()
		sig, err := e.strategy.OnBar(bars[:i+1], ctx)
		if err != nil {
			return nil, fmt.Errorf("strategy at bar %d: %w", i, err)
		}

		// Gate features come from the bar's own indicator columns plus
		// whatever the strategy computed for this decision.
		indicators := bar.Indicators
		if rep, ok := e.strategy.(strategy.IndicatorReporter); ok {
			indicators = mergeIndicators(indicators, rep.LastIndicators())
		}

		rec := audit.BarRecord{
			Index:       i,
			Timestamp:   bar.Timestamp,
			Open:        bar.Open,
			High:        bar.High,
			Low:         bar.Low,
			Close:       bar.Close,
			Indicators:  indicators,
			Signal:      string(sig.Side),
			SignalTag:   sig.Tag,
			TotalEquity: ctx.TotalEquity,
		}

		if sig.Side != model.SignalSideHold {
			admitted := true
			if e.gate != nil && e.gate.Enabled() {
				prob := e.gate.Predict(indicators, e.indicatorHistory, symbol)
				rec.GateProbability = &prob
				admitted = prob >= e.gate.Threshold()
				rec.GateAdmitted = &admitted
				if !admitted {
					e.log.WithFields(logger.Fields{
						"symbol":      symbol,
						"probability": prob,
						"threshold":   e.gate.Threshold(),
						"tag":         sig.Tag,
					}).Info("signal rejected by admission gate")
					telemetry.SignalsRejectedTotal.WithLabelValues(symbol).Inc()
				}
			}
			if admitted {
				e.submitSignal(symbol, sig, bar)
			}
		}

		e.pushIndicators(indicators)
		e.sink.LogBar(rec)
		telemetry.BarsProcessedTotal.WithLabelValues(symbol).Inc()
	}

	result := &Result{
		Symbol:      symbol,
		Trades:      e.portfolio.Trades(),
		EquityCurve: e.portfolio.EquityCurve(),
	}
	result.Report = metrics.Calculate(result.Trades, result.EquityCurve, e.cfg.InitialCapital)

	e.log.WithFields(logger.Fields{
		"symbol":       symbol,
		"trades":       len(result.Trades),
		"final_equity": result.Report.FinalEquity,
		"return_pct":   result.Report.TotalReturnPct,
	}).Info("run finished")

	return result, nil
}

// submitSignal resolves a signal into orders for the next bar: a market
// order for the resolved quantity plus, on request, a protective stop and a
// take-profit limit sized to the entry. The stop goes in before the limit so
// a bar touching both levels resolves the stop first.
func (e *Engine) submitSignal(symbol string, sig model.Signal, bar model.Bar) {
	side := model.OrderSideBuy
	if sig.Side == model.SignalSideSell {
		side = model.OrderSideSell
	}

	qty, ok := e.resolveQuantity(symbol, sig, side, bar.Close)
	if !ok {
		return
	}

	entry := &model.Order{
		ID:        uuid.NewString()[:orderIDLen],
		Symbol:    symbol,
		Side:      side,
		Type:      model.OrderTypeMarket,
		Quantity:  qty,
		Tag:       sig.Tag,
		CreatedAt: bar.Timestamp,
	}
	e.executor.SubmitOrder(entry)
	telemetry.OrdersSubmittedTotal.WithLabelValues(symbol, string(side)).Inc()

	if sig.StopLoss != nil {
		stop := *sig.StopLoss
		e.executor.SubmitOrder(&model.Order{
			ID:        "SL-" + entry.ID,
			Symbol:    symbol,
			Side:      side.Opposite(),
			Type:      model.OrderTypeStop,
			Quantity:  qty,
			StopPrice: &stop,
			Tag:       "stop_loss",
			CreatedAt: bar.Timestamp,
		})
		telemetry.OrdersSubmittedTotal.WithLabelValues(symbol, string(side.Opposite())).Inc()
	}
	if sig.TakeProfit != nil {
		limit := *sig.TakeProfit
		e.executor.SubmitOrder(&model.Order{
			ID:        "TP-" + entry.ID,
			Symbol:    symbol,
			Side:      side.Opposite(),
			Type:      model.OrderTypeLimit,
			Quantity:  qty,
			Price:     &limit,
			Tag:       "take_profit",
			CreatedAt: bar.Timestamp,
		})
		telemetry.OrdersSubmittedTotal.WithLabelValues(symbol, string(side.Opposite())).Inc()
	}
}

// resolveQuantity turns a signal's sizing hints into a concrete order size.
// Precedence: explicit quantity, then position/cash fraction, then the
// default of closing the full opposite position or deploying buffered free
// cash. Sizes that come out non-positive drop the signal with a log line.
func (e *Engine) resolveQuantity(symbol string, sig model.Signal, side model.OrderSide, closePrice float64) (float64, bool) {
	currentPos := e.portfolio.Position(symbol)
	isClosing := (side == model.OrderSideSell && currentPos > 0) ||
		(side == model.OrderSideBuy && currentPos < 0)

	var qty float64
	switch {
	case sig.Quantity != nil:
		qty = math.Abs(*sig.Quantity)

	case sig.QuantityPct != nil:
		if isClosing {
			qty = math.Abs(currentPos) * *sig.QuantityPct
		} else {
			available := e.portfolio.Cash() * *sig.QuantityPct
			qty = available * cashBufferFactor / closePrice
		}

	default:
		if isClosing {
			qty = math.Abs(currentPos)
		} else {
			qty = e.portfolio.Cash() * cashBufferFactor / closePrice
		}
	}

	qty = math.Round(qty*qtyDecimals) / qtyDecimals
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		e.log.WithFields(logger.Fields{
			"symbol": symbol,
			"side":   side,
			"tag":    sig.Tag,
		}).Warn("signal dropped: resolved quantity is not positive")
		return 0, false
	}
	return qty, true
}

func mergeIndicators(fromBar, fromStrategy map[string]float64) map[string]float64 {
	if len(fromStrategy) == 0 {
		return fromBar
	}
	merged := make(map[string]float64, len(fromBar)+len(fromStrategy))
	for k, v := range fromBar {
		merged[k] = v
	}
	for k, v := range fromStrategy {
		merged[k] = v
	}
	return merged
}

func (e *Engine) pushIndicators(indicators map[string]float64) {
	lookback := 0
	if e.gate != nil {
		lookback = e.gate.Lookback()
	}
	if lookback <= 0 {
		return
	}

	row := make(map[string]float64, len(indicators))
	for k, v := range indicators {
		row[k] = v
	}
	e.indicatorHistory = append([]map[string]float64{row}, e.indicatorHistory...)
	if len(e.indicatorHistory) > lookback {
		e.indicatorHistory = e.indicatorHistory[:lookback]
	}
}

// FlushAudit finalizes the audit sink; call once after Run.
func (e *Engine) FlushAudit() error { return e.sink.Flush() }
