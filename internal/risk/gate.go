// Package risk implements pre-trade validation for the contract engine:
// amount bounds, leverage bounds, balance cover, an aggregate position cap,
// a per-user trade-frequency throttle, maintenance blackout windows, and a
// pluggable market-volatility check.
//
// Checks run in a fixed order and short-circuit on the first failure. The
// trade-frequency window is consumed at its check regardless of whether a
// later check rejects.
package risk

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/account"
	"github.com/tradesim/venue-engine/internal/errs"
	"github.com/tradesim/venue-engine/internal/model"
)

var (
	// ErrBelowMinAmount is returned when quantity×price is under the minimum.
	ErrBelowMinAmount = errors.New("risk: trade amount below minimum")

	// ErrAboveMaxAmount is returned when quantity×price exceeds the maximum.
	ErrAboveMaxAmount = errors.New("risk: trade amount above maximum")

	// ErrLeverageExceeded is returned when leverage is over the global cap.
	ErrLeverageExceeded = errors.New("risk: leverage exceeds maximum")

	// ErrInsufficientBalance is returned when the account cannot cover the
	// required margin notional.
	ErrInsufficientBalance = errors.New("risk: insufficient balance")

	// ErrPositionCapExceeded is returned when the aggregate position value
	// would exceed the configured cap.
	ErrPositionCapExceeded = errors.New("risk: aggregate position cap exceeded")

	// ErrTradeFrequency is returned when the per-user order rate inside the
	// trailing window exceeds the configured maximum.
	ErrTradeFrequency = errors.New("risk: trade frequency limit exceeded")

	// ErrMaintenanceWindow is returned during configured blackout hours.
	ErrMaintenanceWindow = errors.New("risk: market in maintenance window")
)

// frequencySpan is the trailing window for the trade-frequency throttle.
const frequencySpan = 60 * time.Second

// PositionSource reports a user's current aggregate position notional.
type PositionSource interface {
	AggregateNotional(user string) decimal.Decimal
}

// VolatilityCheck is the pluggable market-volatility gate. A nil check
// always passes.
type VolatilityCheck func(symbol string, price decimal.Decimal) error

// Check is one pre-trade evaluation request.
type Check struct {
	UserID   string
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Leverage int
}

// Gate evaluates orders against the process-wide RiskConfig. Config reads
// are lock-free; updates replace the config atomically and are visible to
// all subsequent checks.
type Gate struct {
	cfg       atomic.Pointer[model.RiskConfig]
	accounts  account.Service // nil disables the balance check
	positions PositionSource
	volCheck  VolatilityCheck
	window    *frequencyWindow
	now       func() time.Time
}

// NewGate creates a Gate. accounts may be nil when no account service is
// resolvable (the balance check is then skipped); positions must not be nil.
func NewGate(cfg model.RiskConfig, accounts account.Service, positions PositionSource) *Gate {
	g := &Gate{
		accounts:  accounts,
		positions: positions,
		window:    newFrequencyWindow(frequencySpan),
		now:       time.Now,
	}
	g.cfg.Store(&cfg)
	return g
}

// SetVolatilityCheck installs the pluggable market-volatility check.
func (g *Gate) SetVolatilityCheck(check VolatilityCheck) {
	g.volCheck = check
}

// SetClock overrides the wall clock. Tests only.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Config returns the current risk configuration.
func (g *Gate) Config() model.RiskConfig {
	return *g.cfg.Load()
}

// UpdateConfig atomically replaces the risk configuration.
func (g *Gate) UpdateConfig(cfg model.RiskConfig) {
	g.cfg.Store(&cfg)
}

// Evaluate runs the ordered checks and returns nil when the order is
// allowed, a sentinel error describing the rejection, or a ResolutionError
// when the account lookup itself fails.
func (g *Gate) Evaluate(ctx context.Context, c Check) error {
	cfg := g.cfg.Load()
	notional := c.Quantity.Mul(c.Price)

	// 1–2. Amount bounds.
	if notional.LessThan(cfg.MinTradeAmount) {
		return ErrBelowMinAmount
	}
	if notional.GreaterThan(cfg.MaxTradeAmount) {
		return ErrAboveMaxAmount
	}

	// 3. Global leverage cap.
	if c.Leverage > cfg.MaxLeverage {
		return ErrLeverageExceeded
	}

	// 4. Balance cover: quantity × price / leverage.
	if g.accounts != nil {
		acct, err := g.accounts.Lookup(ctx, c.UserID)
		if err != nil {
			return errs.Resolution("account lookup for "+c.UserID, err)
		}
		required := notional.Div(decimal.NewFromInt(int64(c.Leverage)))
		if acct.Balance.LessThan(required) {
			return ErrInsufficientBalance
		}
	}

	// 5. Aggregate position cap.
	if g.positions.AggregateNotional(c.UserID).Add(notional).GreaterThan(cfg.MaxTotalPosition) {
		return ErrPositionCapExceeded
	}

	now := g.now()

	// 6. Trade frequency. The attempt is recorded before the remaining
	// checks run, so the window is consumed even if they reject.
	if g.window.record(c.UserID, now) > cfg.MaxTradesPerMinute {
		return ErrTradeFrequency
	}

	// 7. Maintenance blackout.
	hour := now.Hour()
	for _, w := range cfg.MaintenanceWindows {
		if w.Contains(hour) {
			return ErrMaintenanceWindow
		}
	}

	// 8. Market volatility (pluggable; default passes).
	if g.volCheck != nil {
		if err := g.volCheck(c.Symbol, c.Price); err != nil {
			return err
		}
	}

	return nil
}
