package execution

import (
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

func ptrFloat(v float64) *float64 {
	return &v
}

func testBar(open, high, low, closeP float64) model.Bar {
	return model.Bar{
		Timestamp: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		Open:      open, High: high, Low: low, Close: closeP,
	}
}

func TestProcessBarFillRules(t *testing.T) {
	tests := []struct {
		name      string
		order     model.Order
		bar       model.Bar
		wantFill  bool
		wantPrice float64
	}{
		{
			name:      "market fills at open",
			order:     model.Order{ID: "o1", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderTypeMarket, Quantity: 10},
			bar:       testBar(101, 105, 99, 103),
			wantFill:  true,
			wantPrice: 101,
		},
		{
			name:      "limit buy fills at min(open, limit)",
			order:     model.Order{ID: "o2", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Quantity: 10, Price: ptrFloat(100)},
			bar:       testBar(102, 105, 99, 103),
			wantFill:  true,
			wantPrice: 100,
		},
		{
			name:      "limit buy gap through open fills at open",
			order:     model.Order{ID: "o3", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Quantity: 10, Price: ptrFloat(100)},
			bar:       testBar(97, 99, 95, 98),
			wantFill:  true,
			wantPrice: 97,
		},
		{
			name:      "limit buy boundary touch is inclusive",
			order:     model.Order{ID: "o4", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Quantity: 10, Price: ptrFloat(100)},
			bar:       testBar(102, 105, 100.0, 103),
			wantFill:  true,
			wantPrice: 100,
		},
		{
			name:     "limit buy misses when low stays above",
			order:    model.Order{ID: "o5", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Quantity: 10, Price: ptrFloat(100)},
			bar:      testBar(102, 105, 100.01, 103),
			wantFill: false,
		},
		{
			name:      "limit sell fills at max(open, limit)",
			order:     model.Order{ID: "o6", Symbol: "AAPL", Side: model.OrderSideSell, Type: model.OrderTypeLimit, Quantity: 10, Price: ptrFloat(104)},
			bar:       testBar(102, 105, 99, 103),
			wantFill:  true,
			wantPrice: 104,
		},
		{
			name:      "stop buy triggers on high",
			order:     model.Order{ID: "o7", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderTypeStop, Quantity: 10, StopPrice: ptrFloat(104)},
			bar:       testBar(102, 105, 99, 103),
			wantFill:  true,
			wantPrice: 104,
		},
		{
			name:      "stop sell triggers on low",
			order:     model.Order{ID: "o8", Symbol: "AAPL", Side: model.OrderSideSell, Type: model.OrderTypeStop, Quantity: 10, StopPrice: ptrFloat(100)},
			bar:       testBar(102, 105, 99, 103),
			wantFill:  true,
			wantPrice: 100,
		},
		{
			name:      "stop sell gapped below fills at open",
			order:     model.Order{ID: "o9", Symbol: "AAPL", Side: model.OrderSideSell, Type: model.OrderTypeStop, Quantity: 10, StopPrice: ptrFloat(100)},
			bar:       testBar(96, 98, 94, 97),
			wantFill:  true,
			wantPrice: 96,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(0, 0, nullLogger())
			order := tt.order
			exec.SubmitOrder(&order)

			trades, err := exec.ProcessBar(tt.bar, "AAPL")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !tt.wantFill {
				if len(trades) != 0 {
					t.Fatalf("expected no fill, got %d trades", len(trades))
				}
				if exec.PendingCount() != 1 {
					t.Fatalf("unmatched order must stay pending, pending=%d", exec.PendingCount())
				}
				return
			}

			if len(trades) != 1 {
				t.Fatalf("expected one trade, got %d", len(trades))
			}
			if trades[0].Price != tt.wantPrice {
				t.Fatalf("expected fill price %.4f, got %.4f", tt.wantPrice, trades[0].Price)
			}
			if trades[0].Side != tt.order.Side || trades[0].Quantity != tt.order.Quantity {
				t.Fatalf("trade does not mirror order: %+v", trades[0])
			}
			if order.Status != model.OrderStatusFilled {
				t.Fatalf("expected order status FILLED, got %s", order.Status)
			}
			if exec.PendingCount() != 0 {
				t.Fatalf("filled order must leave pending set, pending=%d", exec.PendingCount())
			}
		})
	}
}

func TestProcessBarSlippageAndCommission(t *testing.T) {
	exec := NewExecutor(0.001, 0.0005, nullLogger())

	buy := model.Order{ID: "b", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderTypeMarket, Quantity: 10}
	sell := model.Order{ID: "s", Symbol: "AAPL", Side: model.OrderSideSell, Type: model.OrderTypeMarket, Quantity: 10}
	exec.SubmitOrder(&buy)
	exec.SubmitOrder(&sell)

	trades, err := exec.ProcessBar(testBar(100, 105, 95, 102), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected two trades, got %d", len(trades))
	}

	wantBuy := 100 * 1.0005
	if trades[0].Price != wantBuy {
		t.Fatalf("buy should pay slippage: want %.6f, got %.6f", wantBuy, trades[0].Price)
	}
	wantSell := 100 * 0.9995
	if trades[1].Price != wantSell {
		t.Fatalf("sell should give up slippage: want %.6f, got %.6f", wantSell, trades[1].Price)
	}

	wantComm := wantBuy * 10 * 0.001
	if trades[0].Commission != wantComm {
		t.Fatalf("commission mismatch: want %.6f, got %.6f", wantComm, trades[0].Commission)
	}
	if trades[1].Commission <= 0 {
		t.Fatal("commission must always be a cost")
	}
}

func TestProcessBarIgnoresOtherSymbols(t *testing.T) {
	exec := NewExecutor(0, 0, nullLogger())
	order := model.Order{ID: "o", Symbol: "MSFT", Side: model.OrderSideBuy, Type: model.OrderTypeMarket, Quantity: 1}
	exec.SubmitOrder(&order)

	trades, err := exec.ProcessBar(testBar(100, 105, 95, 102), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 || exec.PendingCount() != 1 {
		t.Fatalf("order for another symbol must be untouched, trades=%d pending=%d", len(trades), exec.PendingCount())
	}
}

func TestProcessBarFillsInSubmissionOrder(t *testing.T) {
	// Stop-loss submitted before take-profit: when both levels are touched in
	// the same bar, the stop's trade must come first.
	exec := NewExecutor(0, 0, nullLogger())
	sl := model.Order{ID: "sl", Symbol: "AAPL", Side: model.OrderSideSell, Type: model.OrderTypeStop, Quantity: 5, StopPrice: ptrFloat(98)}
	tp := model.Order{ID: "tp", Symbol: "AAPL", Side: model.OrderSideSell, Type: model.OrderTypeLimit, Quantity: 5, Price: ptrFloat(104)}
	exec.SubmitOrder(&sl)
	exec.SubmitOrder(&tp)

	trades, err := exec.ProcessBar(testBar(100, 105, 95, 102), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("both orders touch this bar, expected 2 trades, got %d", len(trades))
	}
	if trades[0].OrderID != "sl" || trades[1].OrderID != "tp" {
		t.Fatalf("expected stop before take-profit, got %s then %s", trades[0].OrderID, trades[1].OrderID)
	}
}

func TestCancelOrder(t *testing.T) {
	exec := NewExecutor(0, 0, nullLogger())
	order := model.Order{ID: "o", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderTypeMarket, Quantity: 1}
	exec.SubmitOrder(&order)

	if !exec.CancelOrder("o") {
		t.Fatal("expected cancel to succeed")
	}
	if order.Status != model.OrderStatusCanceled {
		t.Fatalf("expected status CANCELED, got %s", order.Status)
	}
	if exec.CancelOrder("o") {
		t.Fatal("second cancel must report not pending")
	}
}

func TestProcessBarUnknownOrderType(t *testing.T) {
	exec := NewExecutor(0, 0, nullLogger())
	order := model.Order{ID: "o", Symbol: "AAPL", Side: model.OrderSideBuy, Type: model.OrderType("ICEBERG"), Quantity: 1}
	exec.SubmitOrder(&order)

	if _, err := exec.ProcessBar(testBar(100, 105, 95, 102), "AAPL"); err == nil {
		t.Fatal("expected error for unknown order type")
	}
}
