// Package model defines the core domain types shared across the venue engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Directions for leveraged contract orders.
const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

// Directions for binary option orders.
const (
	DirectionCall = "call"
	DirectionPut  = "put"
)

// Order lifecycle statuses.
const (
	StatusFilled  = "filled"
	StatusActive  = "active"
	StatusSettled = "settled"
)

// Binary settlement results.
const (
	ResultWin  = "win"
	ResultLose = "lose"
)

// Fund transaction types.
const (
	TxSubscribe = "subscribe"
	TxRedeem    = "redeem"
)

// Instrument describes one leveraged contract market.
type Instrument struct {
	Symbol      string          `json:"symbol" db:"symbol"`
	Name        string          `json:"name" db:"name"`
	BasePrice   decimal.Decimal `json:"base_price" db:"base_price"`
	MaxLeverage int             `json:"max_leverage" db:"max_leverage"`
	MarginRate  decimal.Decimal `json:"margin_rate" db:"margin_rate"`
	Volatility  float64         `json:"volatility" db:"volatility"` // per-step stddev class
	RiskTier    string          `json:"risk_tier" db:"risk_tier"`
}

// Fund describes one open-ended fund product.
type Fund struct {
	Code               string          `json:"code" db:"code"`
	Name               string          `json:"name" db:"name"`
	BaseNav            decimal.Decimal `json:"base_nav" db:"base_nav"`
	MinInvestment      decimal.Decimal `json:"min_investment" db:"min_investment"`
	ManagementFeeRate  decimal.Decimal `json:"management_fee_rate" db:"management_fee_rate"`
	PerformanceFeeRate decimal.Decimal `json:"performance_fee_rate" db:"performance_fee_rate"`
	Volatility         float64         `json:"volatility" db:"volatility"`
	RiskTier           string          `json:"risk_tier" db:"risk_tier"`
}

// PricePoint is one sample of a simulated price or NAV path. Append-only.
type PricePoint struct {
	Symbol    string          `json:"symbol" db:"symbol"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// ContractOrder is an immutable record of a filled leveraged order.
// Every accepted order fills immediately at the simulated price; there are
// no partial fills and no pending state.
type ContractOrder struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Direction string          `json:"direction" db:"direction"` // "buy" or "sell"
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
	Leverage  int             `json:"leverage" db:"leverage"`
	Price     decimal.Decimal `json:"price" db:"price"`   // execution price
	Margin    decimal.Decimal `json:"margin" db:"margin"` // capital held against the position
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// BinaryStrategy defines one fixed-duration, fixed-payout contract profile.
type BinaryStrategy struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Duration   time.Duration   `json:"duration"`
	PayoutRate decimal.Decimal `json:"payout_rate"` // multiplier applied to a winning stake
	MaxStake   decimal.Decimal `json:"max_stake"`
}

/// BinaryOrder is a timed binary option contract. Lifecycle: created active,
// exactly one settlement transition, then terminal. No cancellation path.
type BinaryOrder struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	StrategyID string          `json:"strategy_id" db:"strategy_id"`
	Direction  string          `json:"direction" db:"direction"` // "call" or "put"
	Stake      decimal.Decimal `json:"stake" db:"stake"`
	EntryPrice decimal.Decimal `json:"entry_price" db:"entry_price"`
	Payout     decimal.Decimal `json:"payout" db:"payout"` // potential payout on win
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at" db:"expires_at"`
	Status     string          `json:"status" db:"status"` // "active" or "settled"

	// Set on settlement only.
	SettlePrice decimal.Decimal `json:"settle_price" db:"settle_price"`
	PaidOut     decimal.Decimal `json:"paid_out" db:"paid_out"`
	Profit      decimal.Decimal `json:"profit" db:"profit"`
	Result      string          `json:"result" db:"result"` // "win" or "lose"
	SettledAt   time.Time       `json:"settled_at" db:"settled_at"`
}

// Position is one side of a trader's contract holdings, keyed by
// (user, instrument, direction). Opposing directions are kept as separate
// rows and never netted against each other.
type Position struct {
	UserID    string          `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Direction string          `json:"direction"`
	Quantity  decimal.Decimal `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"avg_price"` // volume-weighted entry price
}

// PositionView is a Position marked to the live price.
type PositionView struct {
	Position
	CurrentPrice  decimal.Decimal `json:"current_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// FundPosition is a user's holding in one fund.
type FundPosition struct {
	UserID   string          `json:"user_id"`
	FundCode string          `json:"fund_code"`
	Shares   decimal.Decimal `json:"shares"`
	Cost     decimal.Decimal `json:"cost"` // total cost basis
}

// AvgCost returns the average cost per share, or zero when no shares are held.
func (p FundPosition) AvgCost() decimal.Decimal {
	if p.Shares.IsZero() {
		return decimal.Zero
	}
	return p.Cost.Div(p.Shares)
}

// FundTransaction is an immutable record of a subscription or redemption.
type FundTransaction struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	FundCode  string          `json:"fund_code" db:"fund_code"`
	Type      string          `json:"type" db:"type"` // "subscribe" or "redeem"
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Nav       decimal.Decimal `json:"nav" db:"nav"` // NAV at execution
	Shares    decimal.Decimal `json:"shares" db:"shares"`
	Fee       decimal.Decimal `json:"fee" db:"fee"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// BinaryStats aggregates a user's settled binary orders. Purely derived from
// history; no counters are stored separately.
type BinaryStats struct {
	UserID      string          `json:"user_id"`
	Total       int             `json:"total"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	WinRate     decimal.Decimal `json:"win_rate"` // wins / total, 4 dp
	TotalStake  decimal.Decimal `json:"total_stake"`
	TotalPayout decimal.Decimal `json:"total_payout"`
	NetProfit   decimal.Decimal `json:"net_profit"`
}

// HourRange is a maintenance blackout window in wall-clock hours,
// inclusive of Start and exclusive of End. Start > End wraps past midnight.
type HourRange struct {
	Start int `json:"start" toml:"start"`
	End   int `json:"end" toml:"end"`
}

// Contains reports whether hour falls inside the range.
func (r HourRange) Contains(hour int) bool {
	if r.Start <= r.End {
		return hour >= r.Start && hour < r.End
	}
	return hour >= r.Start || hour < r.End
}

// RiskConfig holds the process-wide pre-trade limits. Read by every order;
// replaced atomically on configuration updates.
type RiskConfig struct {
	MinTradeAmount     decimal.Decimal `json:"min_trade_amount"`
	MaxTradeAmount     decimal.Decimal `json:"max_trade_amount"`
	MaxLeverage        int             `json:"max_leverage"`
	MaxTotalPosition   decimal.Decimal `json:"max_total_position"`
	MaxTradesPerMinute int             `json:"max_trades_per_minute"`
	MaintenanceWindows []HourRange     `json:"maintenance_windows"`
}

// FundPerformance holds period returns derived from the NAV history.
// Returns are fractions (0.05 = +5%).
type FundPerformance struct {
	FundCode string          `json:"fund_code"`
	Daily    decimal.Decimal `json:"daily"`
	Weekly   decimal.Decimal `json:"weekly"`
	Monthly  decimal.Decimal `json:"monthly"`
	Total    decimal.Decimal `json:"total"`
}
