// Package binary implements fixed-duration, fixed-payout contracts: entry
// price capture, the timed active→settled state machine, win/lose payout
// computation, and per-user running statistics.
package binary

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/errs"
	"github.com/tradesim/venue-engine/internal/metrics"
	"github.com/tradesim/venue-engine/internal/model"
	"github.com/tradesim/venue-engine/internal/pricing"
	"github.com/tradesim/venue-engine/internal/store"
)

const (
	// entryJitter is the relative half-width of the entry-price perturbation
	// around the live base price.
	entryJitter = 0.001

	// settleJitter is the wider half-width used for settlement prices.
	settleJitter = 0.005
)

// Engine owns the active order set and settled history. Safe for concurrent
// use; order placement and the settlement sweep serialize on one mutex, and
// the sweep is bounded by the active set size.
type Engine struct {
	mu         sync.Mutex
	strategies map[string]model.BinaryStrategy
	base       decimal.Decimal // live reference price, pushed in per tick
	active     map[string]*model.BinaryOrder
	history    []model.BinaryOrder
	src        pricing.Source
	sink       store.Store
	now        func() time.Time
}

// NewEngine creates a binary option engine with the given strategy set and
// initial reference price.
func NewEngine(strategies []model.BinaryStrategy, base decimal.Decimal, src pricing.Source, sink store.Store) *Engine {
	byID := make(map[string]model.BinaryStrategy, len(strategies))
	for _, s := range strategies {
		byID[s.ID] = s
	}
	return &Engine{
		strategies: byID,
		base:       base,
		active:     make(map[string]*model.BinaryOrder),
		src:        src,
		sink:       sink,
		now:        time.Now,
	}
}

// SetClock overrides the wall clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// SetReferencePrice replaces the base price entry/settlement draws perturb.
// Called by the facade on every market tick (one-way propagation from the
// contract reference instrument).
func (e *Engine) SetReferencePrice(p decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.base = p
}

// Strategies returns the configured strategy profiles.
func (e *Engine) Strategies() []model.BinaryStrategy {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.BinaryStrategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		out = append(out, s)
	}
	return out
}

// PlaceOrder opens an active contract: entry price is a narrow random
// perturbation of the live base price, expiry is now plus the strategy
// duration. There is no cancellation path; the order runs to expiry.
func (e *Engine) PlaceOrder(ctx context.Context, userID, strategyID, direction string, stake decimal.Decimal) (*model.BinaryOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	strat, ok := e.strategies[strategyID]
	if !ok {
		return nil, errs.Validation("strategy_id", "unknown strategy %q", strategyID)
	}
	if direction != model.DirectionCall && direction != model.DirectionPut {
		return nil, errs.Validation("direction", "must be %q or %q", model.DirectionCall, model.DirectionPut)
	}
	if stake.Sign() <= 0 {
		return nil, errs.Validation("stake", "must be positive")
	}
	if stake.GreaterThan(strat.MaxStake) {
		return nil, errs.Business("stake %s exceeds strategy maximum %s", stake, strat.MaxStake)
	}

	now := e.now().UTC()
	order := &model.BinaryOrder{
		ID:         uuid.New().String(),
		UserID:     userID,
		StrategyID: strategyID,
		Direction:  direction,
		Stake:      stake,
		EntryPrice: e.perturb(e.base, entryJitter),
		Payout:     stake.Mul(strat.PayoutRate),
		CreatedAt:  now,
		ExpiresAt:  now.Add(strat.Duration),
		Status:     model.StatusActive,
	}

	if err := e.sink.InsertBinaryOrder(ctx, order); err != nil {
		return nil, err
	}
	e.active[order.ID] = order

	slog.Info("binary order placed",
		"order_id", order.ID,
		"user", userID,
		"strategy", strategyID,
		"direction", direction,
		"stake", stake.String(),
		"entry_price", order.EntryPrice.String(),
		"expires_at", order.ExpiresAt,
	)
	return order, nil
}

// Sweep settles every active order whose expiry has passed and returns the
// number settled. Settlement is all-or-nothing per order and happens exactly
// once; a sink failure on one order is logged and does not halt the sweep.
func (e *Engine) Sweep(ctx context.Context, now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	settled := 0
	for id, order := range e.active {
		if order.ExpiresAt.After(now) {
			continue
		}
		e.settle(ctx, order, now)
		delete(e.active, id)
		settled++
	}
	return settled
}

// settle applies the single active→settled transition. Caller holds e.mu.
func (e *Engine) settle(ctx context.Context, order *model.BinaryOrder, now time.Time) {
	settlePrice := e.perturb(e.base, settleJitter)

	win := (order.Direction == model.DirectionCall && settlePrice.GreaterThan(order.EntryPrice)) ||
		(order.Direction == model.DirectionPut && settlePrice.LessThan(order.EntryPrice))

	order.SettlePrice = settlePrice
	order.SettledAt = now.UTC()
	order.Status = model.StatusSettled
	if win {
		order.Result = model.ResultWin
		order.PaidOut = order.Payout
	} else {
		order.Result = model.ResultLose
		order.PaidOut = decimal.Zero
	}
	order.Profit = order.PaidOut.Sub(order.Stake)

	e.history = append(e.history, *order)
	metrics.BinarySettlements.WithLabelValues(order.Result).Inc()

	if err := e.sink.MarkBinaryOrderSettled(ctx, order); err != nil {
		slog.Error("binary settlement audit write failed",
			"order_id", order.ID, "err", err)
	}

	slog.Info("binary order settled",
		"order_id", order.ID,
		"user", order.UserID,
		"result", order.Result,
		"entry_price", order.EntryPrice.String(),
		"settle_price", settlePrice.String(),
		"paid_out", order.PaidOut.String(),
		"profit", order.Profit.String(),
	)
}

// ActiveCount returns the number of unsettled orders.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// ActiveOrders returns copies of a user's unsettled orders.
func (e *Engine) ActiveOrders(userID string) []model.BinaryOrder {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []model.BinaryOrder
	for _, o := range e.active {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out
}

// Restore seeds the settled history, e.g. from the audit sink on restart.
// Active (unsettled) records are ignored.
func (e *Engine) Restore(orders []model.BinaryOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, o := range orders {
		if o.Status == model.StatusSettled {
			e.history = append(e.history, o)
		}
	}
}

// Statistics aggregates a user's settled orders: win/lose counts, win rate,
// total stake, total payout, and net profit. Purely derived from history.
func (e *Engine) Statistics(userID string) model.BinaryStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := model.BinaryStats{
		UserID:      userID,
		WinRate:     decimal.Zero,
		TotalStake:  decimal.Zero,
		TotalPayout: decimal.Zero,
		NetProfit:   decimal.Zero,
	}
	for _, o := range e.history {
		if o.UserID != userID {
			continue
		}
		stats.Total++
		if o.Result == model.ResultWin {
			stats.Wins++
		} else {
			stats.Losses++
		}
		stats.TotalStake = stats.TotalStake.Add(o.Stake)
		stats.TotalPayout = stats.TotalPayout.Add(o.PaidOut)
		stats.NetProfit = stats.NetProfit.Add(o.Profit)
	}
	if stats.Total > 0 {
		stats.WinRate = decimal.NewFromInt(int64(stats.Wins)).
			Div(decimal.NewFromInt(int64(stats.Total))).
			Round(4)
	}
	return stats
}

// perturb returns p shifted by a uniform relative offset in ±jitter.
func (e *Engine) perturb(p decimal.Decimal, jitter float64) decimal.Decimal {
	offset := (2*e.src.Float64() - 1) * jitter
	return decimal.NewFromFloat(p.InexactFloat64() * (1 + offset)).Round(pricing.PriceScale)
}
