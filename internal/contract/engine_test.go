package contract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/account"
	"github.com/tradesim/venue-engine/internal/errs"
	"github.com/tradesim/venue-engine/internal/ledger"
	"github.com/tradesim/venue-engine/internal/model"
	"github.com/tradesim/venue-engine/internal/pricing"
	"github.com/tradesim/venue-engine/internal/risk"
	"github.com/tradesim/venue-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type fixedSource struct{ v float64 }

func (s fixedSource) Float64() float64 { return s.v }

type testEnv struct {
	engine *Engine
	sink   *store.MemoryStore
	gate   *risk.Gate
}

// Tuesday 10:00 UTC keeps the clock clear of any maintenance window.
var testNow = time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog := NewCatalog()
	if err := catalog.Add(model.Instrument{
		Symbol:      "BTCUSDT",
		Name:        "BTC/USDT perpetual",
		BasePrice:   d(100),
		MaxLeverage: 50,
		MarginRate:  d(0.1),
		Volatility:  0.02,
	}); err != nil {
		t.Fatalf("add instrument: %v", err)
	}

	prices := pricing.New(fixedSource{v: 0.5}, time.Time{}, 0)
	if err := prices.Register("BTCUSDT", d(100), 0.02); err != nil {
		t.Fatalf("register series: %v", err)
	}

	accounts := account.NewMemoryService()
	accounts.Set("u1", d(1_000_000))

	book := ledger.NewBook()
	gate := risk.NewGate(model.RiskConfig{
		MinTradeAmount:     d(1),
		MaxTradeAmount:     d(10_000_000),
		MaxLeverage:        100,
		MaxTotalPosition:   d(100_000_000),
		MaxTradesPerMinute: 100,
	}, accounts, book)
	gate.SetClock(func() time.Time { return testNow })

	sink := store.NewMemoryStore()
	engine := NewEngine(catalog, prices, gate, book, sink)
	engine.SetClock(func() time.Time { return testNow })

	return &testEnv{engine: engine, sink: sink, gate: gate}
}

func TestPlaceOrder_FillsAtCurrentPrice(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.engine.PlaceOrder(context.Background(), "u1", "BTCUSDT", model.DirectionBuy, d(2), 10)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !order.Price.Equal(d(100)) {
		t.Errorf("fill price = %s, want 100", order.Price)
	}
	if order.Status != model.StatusFilled {
		t.Errorf("status = %s, want %s", order.Status, model.StatusFilled)
	}
	// margin = 2×100/10 × 0.1 = 2
	if !order.Margin.Equal(d(2)) {
		t.Errorf("margin = %s, want 2", order.Margin)
	}
}

func TestPlaceOrder_MarginInvariant(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.engine.PlaceOrder(context.Background(), "u1", "BTCUSDT", model.DirectionBuy, d(3), 25)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	notional := d(3).Mul(d(100))
	if order.Margin.Sign() <= 0 {
		t.Errorf("margin must be positive, got %s", order.Margin)
	}
	if order.Margin.GreaterThan(notional) {
		t.Errorf("margin %s exceeds notional %s", order.Margin, notional)
	}
}

func TestPlaceOrder_ValidationFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		symbol    string
		direction string
		qty       decimal.Decimal
		leverage  int
	}{
		{"unknown symbol", "NOPE", model.DirectionBuy, d(1), 10},
		{"bad direction", "BTCUSDT", "hold", d(1), 10},
		{"zero quantity", "BTCUSDT", model.DirectionBuy, decimal.Zero, 10},
		{"zero leverage", "BTCUSDT", model.DirectionBuy, d(1), 0},
		{"over instrument cap", "BTCUSDT", model.DirectionBuy, d(1), 51},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.PlaceOrder(ctx, "u1", tc.symbol, tc.direction, tc.qty, tc.leverage)
			if !errs.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPlaceOrder_InstrumentCapBoundary(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.engine.PlaceOrder(context.Background(), "u1", "BTCUSDT", model.DirectionBuy, d(1), 50); err != nil {
		t.Errorf("leverage at instrument cap should fill, got %v", err)
	}
}

func TestPlaceOrder_RiskRejectionIsBusiness(t *testing.T) {
	env := newTestEnv(t)

	cfg := env.gate.Config()
	cfg.MinTradeAmount = d(10_000)
	env.gate.UpdateConfig(cfg)

	_, err := env.engine.PlaceOrder(context.Background(), "u1", "BTCUSDT", model.DirectionBuy, d(1), 10)
	if !errs.IsBusiness(err) {
		t.Fatalf("expected business error, got %v", err)
	}
	if !errors.Is(err, risk.ErrBelowMinAmount) {
		t.Errorf("business error should wrap the risk sentinel, got %v", err)
	}
	if got := len(env.engine.Positions("u1")); got != 0 {
		t.Errorf("rejected order must not touch the ledger, got %d rows", got)
	}
}

func TestPlaceOrder_UpdatesPositionAndSink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.PlaceOrder(ctx, "u1", "BTCUSDT", model.DirectionBuy, d(2), 10); err != nil {
		t.Fatalf("first order: %v", err)
	}
	if _, err := env.engine.PlaceOrder(ctx, "u1", "BTCUSDT", model.DirectionBuy, d(2), 10); err != nil {
		t.Fatalf("second order: %v", err)
	}

	views := env.engine.Positions("u1")
	if len(views) != 1 {
		t.Fatalf("expected one merged row, got %d", len(views))
	}
	if !views[0].Quantity.Equal(d(4)) {
		t.Errorf("quantity = %s, want 4", views[0].Quantity)
	}
	if !views[0].UnrealizedPnL.IsZero() {
		t.Errorf("pnl at entry price should be zero, got %s", views[0].UnrealizedPnL)
	}

	orders, err := env.engine.Orders(ctx, "u1")
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("sink should hold 2 orders, got %d", len(orders))
	}
}

func TestValidateSymbol(t *testing.T) {
	for _, ok := range []string{"BTCUSDT", "GOLD-2412", "IDX-A50"} {
		if err := ValidateSymbol(ok); err != nil {
			t.Errorf("%s should be valid: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "btc", "B", "1BTC", "BTC_USD", "TOOLONGSYMBOLNAME"} {
		if err := ValidateSymbol(bad); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("%s should be invalid, got %v", bad, err)
		}
	}
}
