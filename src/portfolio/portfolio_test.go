package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

func nullLogger() *logrus.Entry {
	log, _ := logrustest.NewNullLogger()
	return logrus.NewEntry(log)
}

func fill(side model.OrderSide, qty, price float64) model.Trade {
	return model.Trade{
		ID:        "t-" + string(side),
		Symbol:    "AAPL",
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Timestamp: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
	}
}

func TestCashRoundTrip(t *testing.T) {
	p := NewPortfolio(10000, nullLogger())

	if err := p.ApplyTrade(fill(model.OrderSideBuy, 10, 100)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if p.Cash() != 10000-1000 {
		t.Fatalf("cash after buy: want 9000, got %.4f", p.Cash())
	}

	if err := p.ApplyTrade(fill(model.OrderSideSell, 10, 110)); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	// cash_after = cash_before - buy_notional + sell_notional, exactly.
	if p.Cash() != 10000-1000+1100 {
		t.Fatalf("cash after round trip: want 10100, got %.4f", p.Cash())
	}
	if p.Position("AAPL") != 0 {
		t.Fatalf("position must be deleted after flat close, got %.9f", p.Position("AAPL"))
	}
}

func TestFIFOPartialClose(t *testing.T) {
	p := NewPortfolio(100000, nullLogger())

	if err := p.ApplyTrade(fill(model.OrderSideBuy, 10, 100)); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyTrade(fill(model.OrderSideBuy, 10, 110)); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyTrade(fill(model.OrderSideSell, 15, 120)); err != nil {
		t.Fatal(err)
	}

	ctx := p.Context()
	if len(ctx.OpenLots) != 1 {
		t.Fatalf("expected a single remaining lot, got %d", len(ctx.OpenLots))
	}
	lot := ctx.OpenLots[0]
	if lot.Quantity != 5 || lot.Price != 110 {
		t.Fatalf("FIFO must leave 5@110, got %.4f@%.4f", lot.Quantity, lot.Price)
	}
	if got := p.Position("AAPL"); got != 5 {
		t.Fatalf("position after partial close: want 5, got %.4f", got)
	}
}

func TestReversalOpensFlippedLot(t *testing.T) {
	p := NewPortfolio(100000, nullLogger())

	if err := p.ApplyTrade(fill(model.OrderSideBuy, 10, 100)); err != nil {
		t.Fatal(err)
	}
	// Sell 15 against a long 10: closes the long and opens a 5-unit short.
	if err := p.ApplyTrade(fill(model.OrderSideSell, 15, 105)); err != nil {
		t.Fatal(err)
	}

	if got := p.Position("AAPL"); got != -5 {
		t.Fatalf("expected short 5 after reversal, got %.4f", got)
	}

	ctx := p.Context()
	if len(ctx.OpenLots) != 1 || ctx.OpenLots[0].Quantity != 5 || ctx.OpenLots[0].Price != 105 {
		t.Fatalf("reversal must leave one 5@105 lot, got %+v", ctx.OpenLots)
	}
}

func TestLotQuantityMatchesPosition(t *testing.T) {
	p := NewPortfolio(100000, nullLogger())

	steps := []model.Trade{
		fill(model.OrderSideBuy, 7, 100),
		fill(model.OrderSideBuy, 3, 101),
		fill(model.OrderSideSell, 4, 102),
		fill(model.OrderSideBuy, 2, 99),
	}
	for _, tr := range steps {
		if err := p.ApplyTrade(tr); err != nil {
			t.Fatal(err)
		}
	}

	var lotQty float64
	for _, lot := range p.Context().OpenLots {
		lotQty += lot.Quantity
	}
	if math.Abs(lotQty-math.Abs(p.Position("AAPL"))) > 1e-9 {
		t.Fatalf("open-lot quantity %.6f must equal |position| %.6f", lotQty, math.Abs(p.Position("AAPL")))
	}
}

func TestRecordSnapshot(t *testing.T) {
	p := NewPortfolio(10000, nullLogger())
	ts := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	p.RecordSnapshot(ts, map[string]float64{"AAPL": 100})
	if err := p.ApplyTrade(fill(model.OrderSideBuy, 10, 100)); err != nil {
		t.Fatal(err)
	}
	p.RecordSnapshot(ts.Add(time.Hour), map[string]float64{"AAPL": 90})
	p.RecordSnapshot(ts.Add(2*time.Hour), map[string]float64{"AAPL": 110})

	curve := p.EquityCurve()
	if len(curve) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(curve))
	}

	for i, snap := range curve {
		if snap.TotalEquity != snap.Cash+snap.PositionValue {
			t.Fatalf("snapshot %d violates equity identity: %+v", i, snap)
		}
	}

	if curve[1].TotalEquity != 9900 {
		t.Fatalf("marked-down equity: want 9900, got %.4f", curve[1].TotalEquity)
	}
	if curve[1].Drawdown >= 0 {
		t.Fatalf("drawdown must be negative after mark-down, got %.6f", curve[1].Drawdown)
	}
	// Running max is monotone: recovery above it resets drawdown to zero.
	if curve[2].Drawdown != 0 {
		t.Fatalf("new equity high must have zero drawdown, got %.6f", curve[2].Drawdown)
	}
}

func TestContextIsACopy(t *testing.T) {
	p := NewPortfolio(10000, nullLogger())
	if err := p.ApplyTrade(fill(model.OrderSideBuy, 10, 100)); err != nil {
		t.Fatal(err)
	}

	ctx := p.Context()
	ctx.Positions["AAPL"] = 999
	if len(ctx.OpenLots) > 0 {
		ctx.OpenLots[0].Quantity = 999
	}

	if p.Position("AAPL") != 10 {
		t.Fatal("mutating the context must not touch the ledger")
	}
	if p.Context().OpenLots[0].Quantity != 10 {
		t.Fatal("mutating context lots must not touch the ledger")
	}
}

func TestContextTotalPnLSinceInception(t *testing.T) {
	p := NewPortfolio(10000, nullLogger())
	ts := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	if err := p.ApplyTrade(fill(model.OrderSideBuy, 10, 100)); err != nil {
		t.Fatal(err)
	}
	p.RecordSnapshot(ts, map[string]float64{"AAPL": 120})

	ctx := p.Context()
	if ctx.UnrealizedPnL != ctx.TotalEquity-10000 {
		t.Fatalf("UnrealizedPnL must be equity-initial, got %.4f", ctx.UnrealizedPnL)
	}
}

func TestApplyTradeRejectsAnomalies(t *testing.T) {
	p := NewPortfolio(10000, nullLogger())

	bad := fill(model.OrderSideBuy, 10, math.NaN())
	if err := p.ApplyTrade(bad); err == nil {
		t.Fatal("expected error for non-finite price")
	}

	zero := fill(model.OrderSideBuy, 0, 100)
	if err := p.ApplyTrade(zero); err == nil {
		t.Fatal("expected error for non-positive quantity")
	}
}
