package contract

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/errs"
	"github.com/tradesim/venue-engine/internal/ledger"
	"github.com/tradesim/venue-engine/internal/model"
	"github.com/tradesim/venue-engine/internal/pricing"
	"github.com/tradesim/venue-engine/internal/risk"
	"github.com/tradesim/venue-engine/internal/store"
)

// Engine places leveraged contract orders. Uses a mutex for serialized
// order execution (single-instance): the risk gate's aggregate read and the
// ledger write must not interleave across concurrent orders.
type Engine struct {
	mu      sync.Mutex
	catalog *Catalog
	prices  *pricing.Generator
	gate    *risk.Gate
	book    *ledger.Book
	sink    store.Store
	now     func() time.Time
}

// NewEngine creates a contract trading engine. The book is exposed through
// Book so the risk gate can be wired to it as its position source.
func NewEngine(catalog *Catalog, prices *pricing.Generator, gate *risk.Gate, book *ledger.Book, sink store.Store) *Engine {
	return &Engine{
		catalog: catalog,
		prices:  prices,
		gate:    gate,
		book:    book,
		sink:    sink,
		now:     time.Now,
	}
}

// SetClock overrides the wall clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Book returns the engine's position book.
func (e *Engine) Book() *ledger.Book { return e.book }

// PlaceOrder validates, margins, risk-checks, and immediately fills an order
// at the current simulated price. Either every derived update happens
// (order log, ledger) or none does.
func (e *Engine) PlaceOrder(ctx context.Context, userID, symbol, direction string, quantity decimal.Decimal, leverage int) (*model.ContractOrder, error) {
	inst, err := e.catalog.Get(symbol)
	if err != nil {
		return nil, errs.Validation("symbol", "unknown instrument %q", symbol)
	}
	if direction != model.DirectionBuy && direction != model.DirectionSell {
		return nil, errs.Validation("direction", "must be %q or %q", model.DirectionBuy, model.DirectionSell)
	}
	if quantity.Sign() <= 0 {
		return nil, errs.Validation("quantity", "must be positive")
	}
	if leverage <= 0 {
		return nil, errs.Validation("leverage", "must be positive")
	}
	if leverage > inst.MaxLeverage {
		return nil, errs.Validation("leverage", "exceeds instrument cap %d", inst.MaxLeverage)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	price, err := e.prices.Current(symbol)
	if err != nil {
		return nil, errs.Validation("symbol", "no price series for %q", symbol)
	}

	// margin = (quantity × price / leverage) × marginRate
	margin := quantity.Mul(price).
		Div(decimal.NewFromInt(int64(leverage))).
		Mul(inst.MarginRate)

	if err := e.gate.Evaluate(ctx, risk.Check{
		UserID:   userID,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		Leverage: leverage,
	}); err != nil {
		if errs.IsResolution(err) {
			return nil, err
		}
		return nil, errs.BusinessFrom(err)
	}

	order := &model.ContractOrder{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    symbol,
		Direction: direction,
		Quantity:  quantity,
		Leverage:  leverage,
		Price:     price,
		Margin:    margin,
		Status:    model.StatusFilled,
		CreatedAt: e.now().UTC(),
	}

	// Audit append first: a sink failure aborts the order before the
	// ledger mutates, keeping the operation all-or-nothing.
	if err := e.sink.InsertContractOrder(ctx, order); err != nil {
		return nil, err
	}
	e.book.Apply(userID, symbol, direction, quantity, price)

	slog.Info("contract order filled",
		"order_id", order.ID,
		"user", userID,
		"symbol", symbol,
		"direction", direction,
		"qty", quantity.String(),
		"leverage", leverage,
		"price", price.String(),
		"margin", margin.String(),
	)
	return order, nil
}

// Positions returns a user's open rows marked to the live price.
func (e *Engine) Positions(userID string) []model.PositionView {
	positions := e.book.Positions(userID)
	out := make([]model.PositionView, 0, len(positions))
	for _, pos := range positions {
		current, err := e.prices.Current(pos.Symbol)
		if err != nil {
			current = pos.AvgPrice
		}
		out = append(out, model.PositionView{
			Position:      pos,
			CurrentPrice:  current,
			UnrealizedPnL: ledger.UnrealizedPnL(pos, current),
		})
	}
	return out
}

// Orders returns a user's order log from the audit sink.
func (e *Engine) Orders(ctx context.Context, userID string) ([]model.ContractOrder, error) {
	return e.sink.ListContractOrdersByUser(ctx, userID)
}
