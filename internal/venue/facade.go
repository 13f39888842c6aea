// Package venue composes the contract, binary option, and fund engines with
// the shared price generator and the periodic market-tick driver. External
// callers (HTTP handlers, schedulers) go through the Facade; it forwards to
// the engines and never translates or swallows their errors.
package venue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/binary"
	"github.com/tradesim/venue-engine/internal/contract"
	"github.com/tradesim/venue-engine/internal/errs"
	"github.com/tradesim/venue-engine/internal/fund"
	"github.com/tradesim/venue-engine/internal/metrics"
	"github.com/tradesim/venue-engine/internal/model"
	"github.com/tradesim/venue-engine/internal/pricing"
	"github.com/tradesim/venue-engine/internal/risk"
	"github.com/tradesim/venue-engine/internal/store"
)

// Broadcaster receives the points produced by each market tick.
// Implementations must not block.
type Broadcaster interface {
	BroadcastTick(points []model.PricePoint)
}

// MarketQuote is an instrument with its live price.
type MarketQuote struct {
	model.Instrument
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// FundQuote is a fund with its live NAV and period returns.
type FundQuote struct {
	model.Fund
	CurrentNav  decimal.Decimal       `json:"current_nav"`
	Performance model.FundPerformance `json:"performance"`
}

// Facade is the single entry point into the trading core.
type Facade struct {
	Catalog   *contract.Catalog
	Contracts *contract.Engine
	Binary    *binary.Engine
	Funds     *fund.Engine

	prices    *pricing.Generator
	sink      store.Store
	refSymbol string // contract instrument whose price feeds the binary base
	hub       Broadcaster

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a Facade. refSymbol names the instrument whose live price is
// copied into the binary engine on every tick; hub may be nil.
func New(catalog *contract.Catalog, contracts *contract.Engine, bin *binary.Engine, funds *fund.Engine,
	prices *pricing.Generator, sink store.Store, refSymbol string, hub Broadcaster) *Facade {
	return &Facade{
		Catalog:   catalog,
		Contracts: contracts,
		Binary:    bin,
		Funds:     funds,
		prices:    prices,
		sink:      sink,
		refSymbol: refSymbol,
		hub:       hub,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// --- Order placement ---

// PlaceContractOrder forwards to the contract engine and records metrics.
func (f *Facade) PlaceContractOrder(ctx context.Context, userID, symbol, direction string, quantity decimal.Decimal, leverage int) (*model.ContractOrder, error) {
	order, err := f.Contracts.PlaceOrder(ctx, userID, symbol, direction, quantity, leverage)
	if err != nil {
		if errs.IsBusiness(err) {
			metrics.RiskRejections.WithLabelValues(riskReason(err)).Inc()
		}
		return nil, err
	}
	metrics.OrdersTotal.WithLabelValues("contract", direction).Inc()
	return order, nil
}

// ContractPositions returns a user's open positions with live floating P&L.
func (f *Facade) ContractPositions(userID string) []model.PositionView {
	return f.Contracts.Positions(userID)
}

// PlaceBinaryOrder forwards to the binary option engine.
func (f *Facade) PlaceBinaryOrder(ctx context.Context, userID, strategyID, direction string, stake decimal.Decimal) (*model.BinaryOrder, error) {
	order, err := f.Binary.PlaceOrder(ctx, userID, strategyID, direction, stake)
	if err != nil {
		return nil, err
	}
	metrics.OrdersTotal.WithLabelValues("binary", direction).Inc()
	metrics.ActiveBinaryOrders.Set(float64(f.Binary.ActiveCount()))
	return order, nil
}

// BinaryStatistics aggregates a user's settled binary orders.
func (f *Facade) BinaryStatistics(userID string) model.BinaryStats {
	return f.Binary.Statistics(userID)
}

// SubscribeFund forwards to the fund engine.
func (f *Facade) SubscribeFund(ctx context.Context, userID, code string, amount decimal.Decimal) (*model.FundTransaction, error) {
	tx, err := f.Funds.Subscribe(ctx, userID, code, amount)
	if err != nil {
		return nil, err
	}
	metrics.FundTransactions.WithLabelValues(model.TxSubscribe).Inc()
	return tx, nil
}

// RedeemFund forwards to the fund engine.
func (f *Facade) RedeemFund(ctx context.Context, userID, code string, shares decimal.Decimal) (*fund.RedemptionResult, error) {
	res, err := f.Funds.Redeem(ctx, userID, code, shares)
	if err != nil {
		return nil, err
	}
	metrics.FundTransactions.WithLabelValues(model.TxRedeem).Inc()
	return res, nil
}

// --- Read-only snapshots ---

// MarketData returns every instrument with its live price.
func (f *Facade) MarketData() []MarketQuote {
	instruments := f.Catalog.List()
	out := make([]MarketQuote, 0, len(instruments))
	for _, inst := range instruments {
		price, err := f.prices.Current(inst.Symbol)
		if err != nil {
			price = inst.BasePrice
		}
		out = append(out, MarketQuote{Instrument: inst, CurrentPrice: price})
	}
	return out
}

// FundInfo returns one fund with its live NAV and period returns.
func (f *Facade) FundInfo(code string) (*FundQuote, error) {
	fd, err := f.Funds.Get(code)
	if err != nil {
		return nil, err
	}
	nav, err := f.prices.Current(code)
	if err != nil {
		nav = fd.BaseNav
	}
	perf, err := f.Funds.Performance(code)
	if err != nil {
		return nil, err
	}
	return &FundQuote{Fund: fd, CurrentNav: nav, Performance: perf}, nil
}

// PriceHistory returns the retained live price points for an instrument.
func (f *Facade) PriceHistory(symbol string, from, to time.Time) ([]model.PricePoint, error) {
	return f.prices.History(symbol, from, to)
}

// NavHistory returns the retained NAV points for a fund.
func (f *Facade) NavHistory(code string, from, to time.Time) ([]model.PricePoint, error) {
	return f.prices.History(code, from, to)
}

// --- Tick driver ---

// Tick advances every registered series by one step, copies the reference
// price into the binary engine, and sweeps expired binary orders. A failure
// on one series is logged and does not halt the others.
func (f *Facade) Tick(ctx context.Context) {
	start := time.Now()
	now := start.UTC()

	var points []model.PricePoint
	for _, symbol := range f.prices.Symbols() {
		point, err := f.prices.Tick(symbol, now)
		if err != nil {
			slog.Error("tick failed", "symbol", symbol, "err", err)
			continue
		}
		points = append(points, point)
		if err := f.sink.InsertPricePoint(ctx, point); err != nil {
			slog.Error("price point audit write failed", "symbol", symbol, "err", err)
		}
	}

	if ref, err := f.prices.Current(f.refSymbol); err == nil {
		f.Binary.SetReferencePrice(ref)
	}

	if settled := f.Binary.Sweep(ctx, now); settled > 0 {
		slog.Info("settlement sweep", "settled", settled, "remaining", f.Binary.ActiveCount())
	}
	metrics.ActiveBinaryOrders.Set(float64(f.Binary.ActiveCount()))
	metrics.TickDuration.Observe(time.Since(start).Seconds())

	if f.hub != nil && len(points) > 0 {
		f.hub.BroadcastTick(points)
	}
}

// Start launches the background tick loop. Stop cancels it; calling Start
// after Stop is not supported.
func (f *Facade) Start(interval time.Duration) {
	f.started = true
	go func() {
		defer close(f.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.Tick(context.Background())
			case <-f.stop:
				return
			}
		}
	}()
}

// Stop terminates the background tick loop and waits for it to exit.
// A no-op when Start was never called.
func (f *Facade) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
	if f.started {
		<-f.done
	}
}

// riskReason maps gate sentinels to low-cardinality metric labels.
func riskReason(err error) string {
	switch {
	case errors.Is(err, risk.ErrBelowMinAmount):
		return "below_min_amount"
	case errors.Is(err, risk.ErrAboveMaxAmount):
		return "above_max_amount"
	case errors.Is(err, risk.ErrLeverageExceeded):
		return "leverage"
	case errors.Is(err, risk.ErrInsufficientBalance):
		return "balance"
	case errors.Is(err, risk.ErrPositionCapExceeded):
		return "position_cap"
	case errors.Is(err, risk.ErrTradeFrequency):
		return "frequency"
	case errors.Is(err, risk.ErrMaintenanceWindow):
		return "maintenance"
	default:
		return "other"
	}
}
