package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradesim/venue-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache over the per-user listings. Writes go to the primary store and
// invalidate the affected key; reads check Redis first then fall back.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) InsertContractOrder(ctx context.Context, o *model.ContractOrder) error {
	if err := s.primary.InsertContractOrder(ctx, o); err != nil {
		return err
	}
	s.rdb.Del(ctx, contractOrdersKey(o.UserID))
	return nil
}

func (s *CachedStore) InsertBinaryOrder(ctx context.Context, o *model.BinaryOrder) error {
	if err := s.primary.InsertBinaryOrder(ctx, o); err != nil {
		return err
	}
	s.rdb.Del(ctx, binaryOrdersKey(o.UserID))
	return nil
}

func (s *CachedStore) MarkBinaryOrderSettled(ctx context.Context, o *model.BinaryOrder) error {
	if err := s.primary.MarkBinaryOrderSettled(ctx, o); err != nil {
		return err
	}
	s.rdb.Del(ctx, binaryOrdersKey(o.UserID))
	return nil
}

func (s *CachedStore) InsertFundTransaction(ctx context.Context, tx *model.FundTransaction) error {
	if err := s.primary.InsertFundTransaction(ctx, tx); err != nil {
		return err
	}
	s.rdb.Del(ctx, fundTxnsKey(tx.UserID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) ListContractOrdersByUser(ctx context.Context, userID string) ([]model.ContractOrder, error) {
	var cached []model.ContractOrder
	if hit := s.readCache(ctx, contractOrdersKey(userID), &cached); hit {
		return cached, nil
	}

	orders, err := s.primary.ListContractOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, contractOrdersKey(userID), orders)
	return orders, nil
}

func (s *CachedStore) ListBinaryOrdersByUser(ctx context.Context, userID string) ([]model.BinaryOrder, error) {
	var cached []model.BinaryOrder
	if hit := s.readCache(ctx, binaryOrdersKey(userID), &cached); hit {
		return cached, nil
	}

	orders, err := s.primary.ListBinaryOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, binaryOrdersKey(userID), orders)
	return orders, nil
}

func (s *CachedStore) ListFundTransactionsByUser(ctx context.Context, userID string) ([]model.FundTransaction, error) {
	var cached []model.FundTransaction
	if hit := s.readCache(ctx, fundTxnsKey(userID), &cached); hit {
		return cached, nil
	}

	txns, err := s.primary.ListFundTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, fundTxnsKey(userID), txns)
	return txns, nil
}

// --- Passthrough (not cached: high write rate, low read rate) ---

func (s *CachedStore) InsertPricePoint(ctx context.Context, p model.PricePoint) error {
	return s.primary.InsertPricePoint(ctx, p)
}

func (s *CachedStore) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error) {
	return s.primary.GetPriceHistory(ctx, symbol, from, to)
}

// --- Cache helpers ---

func (s *CachedStore) readCache(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) writeCache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func contractOrdersKey(uid string) string { return fmt.Sprintf("orders:contract:%s", uid) }
func binaryOrdersKey(uid string) string   { return fmt.Sprintf("orders:binary:%s", uid) }
func fundTxnsKey(uid string) string       { return fmt.Sprintf("txns:fund:%s", uid) }
