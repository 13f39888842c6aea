package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tradesim/venue-engine/internal/model"
)

// MemoryStore implements Store with in-memory slices. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu             sync.RWMutex
	contractOrders []model.ContractOrder
	binaryOrders   map[string]*model.BinaryOrder
	binaryInsert   []string // preserves insertion order for listings
	fundTxns       []model.FundTransaction
	pricePoints    []model.PricePoint
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{binaryOrders: make(map[string]*model.BinaryOrder)}
}

func (s *MemoryStore) InsertContractOrder(_ context.Context, order *model.ContractOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contractOrders = append(s.contractOrders, *order)
	return nil
}

func (s *MemoryStore) ListContractOrdersByUser(_ context.Context, userID string) ([]model.ContractOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ContractOrder
	for _, o := range s.contractOrders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertBinaryOrder(_ context.Context, order *model.BinaryOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.binaryOrders[order.ID]; ok {
		return fmt.Errorf("binary order %s already exists", order.ID)
	}
	copy := *order
	s.binaryOrders[order.ID] = &copy
	s.binaryInsert = append(s.binaryInsert, order.ID)
	return nil
}

func (s *MemoryStore) MarkBinaryOrderSettled(_ context.Context, order *model.BinaryOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.binaryOrders[order.ID]
	if !ok {
		return fmt.Errorf("binary order %s not found", order.ID)
	}
	*existing = *order
	return nil
}

func (s *MemoryStore) ListBinaryOrdersByUser(_ context.Context, userID string) ([]model.BinaryOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.BinaryOrder
	for _, id := range s.binaryInsert {
		if o := s.binaryOrders[id]; o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertFundTransaction(_ context.Context, tx *model.FundTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundTxns = append(s.fundTxns, *tx)
	return nil
}

func (s *MemoryStore) ListFundTransactionsByUser(_ context.Context, userID string) ([]model.FundTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.FundTransaction
	for _, tx := range s.fundTxns {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertPricePoint(_ context.Context, point model.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pricePoints = append(s.pricePoints, point)
	return nil
}

func (s *MemoryStore) GetPriceHistory(_ context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.PricePoint
	for _, p := range s.pricePoints {
		if p.Symbol != symbol {
			continue
		}
		if !from.IsZero() && p.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && p.Timestamp.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
