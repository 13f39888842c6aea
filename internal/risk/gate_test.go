package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/account"
	"github.com/tradesim/venue-engine/internal/errs"
	"github.com/tradesim/venue-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// stubPositions returns a fixed aggregate notional for every user.
type stubPositions struct {
	notional decimal.Decimal
}

func (s stubPositions) AggregateNotional(string) decimal.Decimal { return s.notional }

func baseConfig() model.RiskConfig {
	return model.RiskConfig{
		MinTradeAmount:     d(100),
		MaxTradeAmount:     d(1_000_000),
		MaxLeverage:        100,
		MaxTotalPosition:   d(5_000_000),
		MaxTradesPerMinute: 5,
	}
}

// Tuesday 10:00 UTC, outside any maintenance window used below.
var tradingHour = time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

func newTestGate(t *testing.T, accounts account.Service, positions PositionSource) *Gate {
	t.Helper()
	if positions == nil {
		positions = stubPositions{notional: decimal.Zero}
	}
	g := NewGate(baseConfig(), accounts, positions)
	g.SetClock(func() time.Time { return tradingHour })
	return g
}

func okCheck() Check {
	return Check{
		UserID:   "u1",
		Symbol:   "BTCUSDT",
		Quantity: d(10),
		Price:    d(100),
		Leverage: 10,
	}
}

func TestEvaluate_Allows(t *testing.T) {
	g := newTestGate(t, nil, nil)
	if err := g.Evaluate(context.Background(), okCheck()); err != nil {
		t.Errorf("expected order allowed, got %v", err)
	}
}

func TestEvaluate_BelowMinAmount(t *testing.T) {
	g := newTestGate(t, nil, nil)
	c := okCheck()
	c.Quantity = d(0.5) // 0.5 × 100 = 50 < 100
	if err := g.Evaluate(context.Background(), c); !errors.Is(err, ErrBelowMinAmount) {
		t.Errorf("expected ErrBelowMinAmount, got %v", err)
	}
}

func TestEvaluate_AboveMaxAmount(t *testing.T) {
	g := newTestGate(t, nil, nil)
	c := okCheck()
	c.Quantity = d(20000) // 2,000,000 > 1,000,000
	if err := g.Evaluate(context.Background(), c); !errors.Is(err, ErrAboveMaxAmount) {
		t.Errorf("expected ErrAboveMaxAmount, got %v", err)
	}
}

func TestEvaluate_LeverageBoundary(t *testing.T) {
	g := newTestGate(t, nil, nil)

	c := okCheck()
	c.Leverage = 100
	if err := g.Evaluate(context.Background(), c); err != nil {
		t.Errorf("leverage at the cap should pass, got %v", err)
	}

	c.Leverage = 101
	if err := g.Evaluate(context.Background(), c); !errors.Is(err, ErrLeverageExceeded) {
		t.Errorf("expected ErrLeverageExceeded, got %v", err)
	}
}

func TestEvaluate_InsufficientBalance(t *testing.T) {
	accounts := account.NewMemoryService()
	accounts.Set("u1", d(50)) // required margin notional is 1000/10 = 100
	g := newTestGate(t, accounts, nil)

	if err := g.Evaluate(context.Background(), okCheck()); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestEvaluate_BalanceCovers(t *testing.T) {
	accounts := account.NewMemoryService()
	accounts.Set("u1", d(100))
	g := newTestGate(t, accounts, nil)

	if err := g.Evaluate(context.Background(), okCheck()); err != nil {
		t.Errorf("balance exactly covering margin should pass, got %v", err)
	}
}

func TestEvaluate_UnresolvableAccountIsFatal(t *testing.T) {
	g := newTestGate(t, account.NewMemoryService(), nil)

	err := g.Evaluate(context.Background(), okCheck())
	if !errs.IsResolution(err) {
		t.Fatalf("expected a resolution error, got %v", err)
	}
	if !errors.Is(err, account.ErrNotFound) {
		t.Errorf("resolution error should wrap account.ErrNotFound, got %v", err)
	}
}

func TestEvaluate_PositionCap(t *testing.T) {
	g := newTestGate(t, nil, stubPositions{notional: d(4_999_500)})

	// 4,999,500 + 1,000 > 5,000,000
	if err := g.Evaluate(context.Background(), okCheck()); !errors.Is(err, ErrPositionCapExceeded) {
		t.Errorf("expected ErrPositionCapExceeded, got %v", err)
	}
}

func TestEvaluate_FrequencyThrottle(t *testing.T) {
	g := newTestGate(t, nil, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := g.Evaluate(ctx, okCheck()); err != nil {
			t.Fatalf("order %d should pass, got %v", i+1, err)
		}
	}

	if err := g.Evaluate(ctx, okCheck()); !errors.Is(err, ErrTradeFrequency) {
		t.Errorf("6th order within window should be throttled, got %v", err)
	}

	// A different user has an independent window.
	other := okCheck()
	other.UserID = "u2"
	if err := g.Evaluate(ctx, other); err != nil {
		t.Errorf("different user should be unaffected, got %v", err)
	}
}

func TestEvaluate_FrequencyWindowSlides(t *testing.T) {
	g := newTestGate(t, nil, nil)
	ctx := context.Background()

	now := tradingHour
	g.SetClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		if err := g.Evaluate(ctx, okCheck()); err != nil {
			t.Fatalf("order %d should pass, got %v", i+1, err)
		}
	}

	now = tradingHour.Add(61 * time.Second)
	if err := g.Evaluate(ctx, okCheck()); err != nil {
		t.Errorf("order after the window slid should pass, got %v", err)
	}
}

func TestEvaluate_FrequencyConsumedByLaterRejection(t *testing.T) {
	// Orders rejected by a check after the frequency record still consume
	// the window.
	g := newTestGate(t, nil, nil)
	ctx := context.Background()

	blocked := baseConfig()
	blocked.MaintenanceWindows = []model.HourRange{{Start: 9, End: 12}}
	g.UpdateConfig(blocked)

	for i := 0; i < 5; i++ {
		if err := g.Evaluate(ctx, okCheck()); !errors.Is(err, ErrMaintenanceWindow) {
			t.Fatalf("expected ErrMaintenanceWindow, got %v", err)
		}
	}

	g.UpdateConfig(baseConfig())
	if err := g.Evaluate(ctx, okCheck()); !errors.Is(err, ErrTradeFrequency) {
		t.Errorf("window should have been consumed by rejected attempts, got %v", err)
	}
}

func TestEvaluate_MaintenanceWindowWraps(t *testing.T) {
	g := newTestGate(t, nil, nil)

	cfg := baseConfig()
	cfg.MaintenanceWindows = []model.HourRange{{Start: 22, End: 2}}
	g.UpdateConfig(cfg)

	g.SetClock(func() time.Time {
		return time.Date(2025, 6, 3, 23, 30, 0, 0, time.UTC)
	})
	if err := g.Evaluate(context.Background(), okCheck()); !errors.Is(err, ErrMaintenanceWindow) {
		t.Errorf("23:30 should fall inside a 22–02 window, got %v", err)
	}

	g.SetClock(func() time.Time {
		return time.Date(2025, 6, 3, 3, 0, 0, 0, time.UTC)
	})
	if err := g.Evaluate(context.Background(), okCheck()); err != nil {
		t.Errorf("03:00 should be outside a 22–02 window, got %v", err)
	}
}

func TestEvaluate_VolatilityCheckPluggable(t *testing.T) {
	g := newTestGate(t, nil, nil)

	halted := errors.New("volatility halt")
	g.SetVolatilityCheck(func(string, decimal.Decimal) error { return halted })

	if err := g.Evaluate(context.Background(), okCheck()); !errors.Is(err, halted) {
		t.Errorf("expected the plugged check's error, got %v", err)
	}
}

func TestUpdateConfig_VisibleToSubsequentChecks(t *testing.T) {
	g := newTestGate(t, nil, nil)

	cfg := baseConfig()
	cfg.MinTradeAmount = d(10_000)
	g.UpdateConfig(cfg)

	if err := g.Evaluate(context.Background(), okCheck()); !errors.Is(err, ErrBelowMinAmount) {
		t.Errorf("updated minimum should apply, got %v", err)
	}
}
