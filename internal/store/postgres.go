package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the durable audit
// trail. All monetary values are stored as NUMERIC for exact decimal
// precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertContractOrder(ctx context.Context, o *model.ContractOrder) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contract_orders (id, user_id, symbol, direction, quantity, leverage, price, margin, status, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7::NUMERIC, $8::NUMERIC, $9, $10)`,
		o.ID, o.UserID, o.Symbol, o.Direction,
		o.Quantity.String(), o.Leverage,
		o.Price.String(), o.Margin.String(),
		o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contract order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListContractOrdersByUser(ctx context.Context, userID string) ([]model.ContractOrder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, direction,
		        quantity::TEXT, leverage, price::TEXT, margin::TEXT,
		        status, created_at
		 FROM contract_orders WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ContractOrder
	for rows.Next() {
		var o model.ContractOrder
		var qty, price, margin string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Symbol, &o.Direction,
			&qty, &o.Leverage, &price, &margin,
			&o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Quantity, _ = decimal.NewFromString(qty)
		o.Price, _ = decimal.NewFromString(price)
		o.Margin, _ = decimal.NewFromString(margin)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertBinaryOrder(ctx context.Context, o *model.BinaryOrder) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO binary_orders (id, user_id, strategy_id, direction, stake, entry_price, payout, created_at, expires_at, status)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8, $9, $10)`,
		o.ID, o.UserID, o.StrategyID, o.Direction,
		o.Stake.String(), o.EntryPrice.String(), o.Payout.String(),
		o.CreatedAt, o.ExpiresAt, o.Status,
	)
	if err != nil {
		return fmt.Errorf("insert binary order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) MarkBinaryOrderSettled(ctx context.Context, o *model.BinaryOrder) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE binary_orders
		 SET status = $2, settle_price = $3::NUMERIC, paid_out = $4::NUMERIC,
		     profit = $5::NUMERIC, result = $6, settled_at = $7
		 WHERE id = $1 AND status = 'active'`,
		o.ID, o.Status,
		o.SettlePrice.String(), o.PaidOut.String(), o.Profit.String(),
		o.Result, o.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("settle binary order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("settle binary order %s: not active", o.ID)
	}
	return nil
}

func (s *PostgresStore) ListBinaryOrdersByUser(ctx context.Context, userID string) ([]model.BinaryOrder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, strategy_id, direction,
		        stake::TEXT, entry_price::TEXT, payout::TEXT,
		        created_at, expires_at, status,
		        COALESCE(settle_price::TEXT, '0'), COALESCE(paid_out::TEXT, '0'),
		        COALESCE(profit::TEXT, '0'), COALESCE(result, ''),
		        COALESCE(settled_at, 'epoch'::TIMESTAMPTZ)
		 FROM binary_orders WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BinaryOrder
	for rows.Next() {
		var o model.BinaryOrder
		var stake, entry, payout, settle, paid, profit string
		if err := rows.Scan(&o.ID, &o.UserID, &o.StrategyID, &o.Direction,
			&stake, &entry, &payout,
			&o.CreatedAt, &o.ExpiresAt, &o.Status,
			&settle, &paid, &profit, &o.Result, &o.SettledAt); err != nil {
			return nil, err
		}
		o.Stake, _ = decimal.NewFromString(stake)
		o.EntryPrice, _ = decimal.NewFromString(entry)
		o.Payout, _ = decimal.NewFromString(payout)
		o.SettlePrice, _ = decimal.NewFromString(settle)
		o.PaidOut, _ = decimal.NewFromString(paid)
		o.Profit, _ = decimal.NewFromString(profit)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertFundTransaction(ctx context.Context, tx *model.FundTransaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fund_transactions (id, user_id, fund_code, type, amount, nav, shares, fee, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9)`,
		tx.ID, tx.UserID, tx.FundCode, tx.Type,
		tx.Amount.String(), tx.Nav.String(), tx.Shares.String(), tx.Fee.String(),
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fund transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListFundTransactionsByUser(ctx context.Context, userID string) ([]model.FundTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, fund_code, type,
		        amount::TEXT, nav::TEXT, shares::TEXT, fee::TEXT, created_at
		 FROM fund_transactions WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FundTransaction
	for rows.Next() {
		var tx model.FundTransaction
		var amount, nav, shares, fee string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.FundCode, &tx.Type,
			&amount, &nav, &shares, &fee, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Amount, _ = decimal.NewFromString(amount)
		tx.Nav, _ = decimal.NewFromString(nav)
		tx.Shares, _ = decimal.NewFromString(shares)
		tx.Fee, _ = decimal.NewFromString(fee)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertPricePoint(ctx context.Context, p model.PricePoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_points (symbol, price, ts) VALUES ($1, $2::NUMERIC, $3)`,
		p.Symbol, p.Price.String(), p.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert price point %s: %w", p.Symbol, err)
	}
	return nil
}

func (s *PostgresStore) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error) {
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT symbol, price::TEXT, ts
		 FROM price_points
		 WHERE symbol = $1 AND ts BETWEEN $2 AND $3
		 ORDER BY ts`, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		var price string
		if err := rows.Scan(&p.Symbol, &price, &p.Timestamp); err != nil {
			return nil, err
		}
		p.Price, _ = decimal.NewFromString(price)
		out = append(out, p)
	}
	return out, rows.Err()
}
