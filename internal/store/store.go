// Package store defines the durable audit sink for the venue engine.
// The engines' in-memory state is the source of truth for the live
// simulation; the store keeps the order/transaction trail and price history.
// Implementations include PostgreSQL, a Redis read-through cache wrapper,
// and in-memory (for testing and single-process demos).
package store

import (
	"context"
	"time"

	"github.com/tradesim/venue-engine/internal/model"
)

// Store is the audit-sink interface.
type Store interface {
	// --- Contract order log ---

	// InsertContractOrder appends an immutable filled-order record.
	InsertContractOrder(ctx context.Context, order *model.ContractOrder) error

	// ListContractOrdersByUser returns all contract orders for a user.
	ListContractOrdersByUser(ctx context.Context, userID string) ([]model.ContractOrder, error)

	// --- Binary order log ---

	// InsertBinaryOrder records a newly placed active binary order.
	InsertBinaryOrder(ctx context.Context, order *model.BinaryOrder) error

	// MarkBinaryOrderSettled records the settlement fields of an order.
	MarkBinaryOrderSettled(ctx context.Context, order *model.BinaryOrder) error

	// ListBinaryOrdersByUser returns all binary orders for a user.
	ListBinaryOrdersByUser(ctx context.Context, userID string) ([]model.BinaryOrder, error)

	// --- Fund transaction log ---

	// InsertFundTransaction appends an immutable fund transaction.
	InsertFundTransaction(ctx context.Context, tx *model.FundTransaction) error

	// ListFundTransactionsByUser returns all fund transactions for a user.
	ListFundTransactionsByUser(ctx context.Context, userID string) ([]model.FundTransaction, error)

	// --- Price history ---

	// InsertPricePoint appends one price/NAV sample.
	InsertPricePoint(ctx context.Context, point model.PricePoint) error

	// GetPriceHistory returns samples for a symbol within [from, to].
	// Zero bounds are treated as unbounded.
	GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error)
}
