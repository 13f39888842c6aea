// Package ledger implements per-user, per-instrument, per-direction
// weighted-average position accounting for the contract engine.
//
// Rows are keyed by (user, instrument, direction); opposing directions are
// never netted against each other. A row whose quantity reaches zero is
// deleted, never retained as a zero row.
package ledger

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/model"
)

type key struct {
	user      string
	symbol    string
	direction string
}

// Book is a mutex-guarded position book. Safe for concurrent use; all
// mutations for a given key are linearized behind the lock.
type Book struct {
	mu        sync.RWMutex
	positions map[key]*model.Position
}

// NewBook creates an empty position book.
func NewBook() *Book {
	return &Book{positions: make(map[key]*model.Position)}
}

// Apply records a fill of quantity at price against the (user, symbol,
// direction) row. Same-direction adds recompute the volume-weighted average
// entry price; a row driven to zero or below is deleted.
func (b *Book) Apply(user, symbol, direction string, quantity, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{user: user, symbol: symbol, direction: direction}
	pos, ok := b.positions[k]
	if !ok {
		if quantity.Sign() <= 0 {
			return
		}
		b.positions[k] = &model.Position{
			UserID:    user,
			Symbol:    symbol,
			Direction: direction,
			Quantity:  quantity,
			AvgPrice:  price,
		}
		return
	}

	newQty := pos.Quantity.Add(quantity)
	if newQty.Sign() <= 0 {
		delete(b.positions, k)
		return
	}

	// (oldQty·oldAvg + newQty·execPrice) / (oldQty+newQty)
	notional := pos.Quantity.Mul(pos.AvgPrice).Add(quantity.Mul(price))
	pos.AvgPrice = notional.Div(newQty)
	pos.Quantity = newQty
}

// Positions returns copies of all rows for a user.
func (b *Book) Positions(user string) []model.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []model.Position
	for k, pos := range b.positions {
		if k.user == user {
			out = append(out, *pos)
		}
	}
	return out
}

// AggregateNotional returns the sum of quantity×avgPrice across all of a
// user's rows. Used by the risk gate's aggregate position cap.
func (b *Book) AggregateNotional(user string) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := decimal.Zero
	for k, pos := range b.positions {
		if k.user == user {
			total = total.Add(pos.Quantity.Mul(pos.AvgPrice))
		}
	}
	return total
}

// UnrealizedPnL computes the floating profit of a position at the current
// price: (current − avg) × qty for buys, sign-flipped for sells.
func UnrealizedPnL(pos model.Position, current decimal.Decimal) decimal.Decimal {
	pnl := current.Sub(pos.AvgPrice).Mul(pos.Quantity)
	if pos.Direction == model.DirectionSell {
		return pnl.Neg()
	}
	return pnl
}
