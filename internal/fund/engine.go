// Package fund implements open-ended fund subscription and redemption:
// share issuance at the live NAV, average-cost tracking, management and
// performance fee computation, and period returns from the NAV history.
package fund

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/errs"
	"github.com/tradesim/venue-engine/internal/model"
	"github.com/tradesim/venue-engine/internal/pricing"
	"github.com/tradesim/venue-engine/internal/store"
)

// Sample offsets for period returns, in NAV history samples back from the
// latest (one sample per backfill day / live tick).
const (
	dailyOffset   = 1
	weeklyOffset  = 7
	monthlyOffset = 30
)

type positionKey struct {
	user string
	code string
}

// RedemptionResult reports the money movement of one redemption.
type RedemptionResult struct {
	Transaction *model.FundTransaction
	GrossAmount decimal.Decimal
	Fee         decimal.Decimal
	NetAmount   decimal.Decimal
}

// Engine owns fund share/cost accounting. NAV paths come from the shared
// price series generator; each fund code is registered there as a series.
type Engine struct {
	mu        sync.Mutex
	funds     map[string]model.Fund
	navs      *pricing.Generator
	positions map[positionKey]*model.FundPosition
	sink      store.Store
	now       func() time.Time
}

// NewEngine creates a fund engine over the given NAV generator.
func NewEngine(funds []model.Fund, navs *pricing.Generator, sink store.Store) *Engine {
	byCode := make(map[string]model.Fund, len(funds))
	for _, f := range funds {
		byCode[f.Code] = f
	}
	return &Engine{
		funds:     byCode,
		navs:      navs,
		positions: make(map[positionKey]*model.FundPosition),
		sink:      sink,
		now:       time.Now,
	}
}

// SetClock overrides the wall clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Funds returns the configured funds.
func (e *Engine) Funds() []model.Fund {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Fund, 0, len(e.funds))
	for _, f := range e.funds {
		out = append(out, f)
	}
	return out
}

// Get returns one fund by code.
func (e *Engine) Get(code string) (model.Fund, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.funds[code]
	if !ok {
		return model.Fund{}, errs.Validation("fund_code", "unknown fund %q", code)
	}
	return f, nil
}

// Subscribe issues amount/NAV shares against the fund. Subscriptions carry
// no fee; the cost basis grows by the full amount.
func (e *Engine) Subscribe(ctx context.Context, userID, code string, amount decimal.Decimal) (*model.FundTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.funds[code]
	if !ok {
		return nil, errs.Validation("fund_code", "unknown fund %q", code)
	}
	if amount.Sign() <= 0 {
		return nil, errs.Validation("amount", "must be positive")
	}
	if amount.LessThan(f.MinInvestment) {
		return nil, errs.Business("amount %s below minimum investment %s", amount, f.MinInvestment)
	}

	nav, err := e.navs.Current(code)
	if err != nil {
		return nil, fmt.Errorf("fund %s: %w", code, err)
	}
	shares := amount.Div(nav)

	tx := &model.FundTransaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		FundCode:  code,
		Type:      model.TxSubscribe,
		Amount:    amount,
		Nav:       nav,
		Shares:    shares,
		Fee:       decimal.Zero,
		CreatedAt: e.now().UTC(),
	}

	// Audit append first; a sink failure leaves the position untouched.
	if err := e.sink.InsertFundTransaction(ctx, tx); err != nil {
		return nil, err
	}

	k := positionKey{user: userID, code: code}
	pos, ok := e.positions[k]
	if !ok {
		pos = &model.FundPosition{UserID: userID, FundCode: code}
		e.positions[k] = pos
	}
	pos.Shares = pos.Shares.Add(shares)
	pos.Cost = pos.Cost.Add(amount)

	slog.Info("fund subscription",
		"tx_id", tx.ID,
		"user", userID,
		"fund", code,
		"amount", amount.String(),
		"nav", nav.String(),
		"shares", shares.String(),
	)
	return tx, nil
}

// Redeem sells shares at the live NAV. The management fee applies to the
// gross redemption amount; the performance fee applies only to the
// profitable portion (NAV above average cost). A position driven to zero
// shares is deleted.
func (e *Engine) Redeem(ctx context.Context, userID, code string, shares decimal.Decimal) (*RedemptionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.funds[code]
	if !ok {
		return nil, errs.Validation("fund_code", "unknown fund %q", code)
	}
	if shares.Sign() <= 0 {
		return nil, errs.Validation("shares", "must be positive")
	}

	k := positionKey{user: userID, code: code}
	pos, ok := e.positions[k]
	if !ok {
		return nil, errs.Business("no position in fund %s", code)
	}
	if shares.GreaterThan(pos.Shares) {
		return nil, errs.Business("redeeming %s shares but only %s held", shares, pos.Shares)
	}

	nav, err := e.navs.Current(code)
	if err != nil {
		return nil, fmt.Errorf("fund %s: %w", code, err)
	}

	gross := shares.Mul(nav)
	avgCost := pos.AvgCost()

	perfFee := decimal.Zero
	if gain := nav.Sub(avgCost); gain.Sign() > 0 {
		perfFee = gain.Mul(shares).Mul(f.PerformanceFeeRate)
	}
	totalFee := gross.Mul(f.ManagementFeeRate).Add(perfFee)
	net := gross.Sub(totalFee)

	tx := &model.FundTransaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		FundCode:  code,
		Type:      model.TxRedeem,
		Amount:    gross,
		Nav:       nav,
		Shares:    shares.Neg(),
		Fee:       totalFee,
		CreatedAt: e.now().UTC(),
	}

	if err := e.sink.InsertFundTransaction(ctx, tx); err != nil {
		return nil, err
	}

	pos.Shares = pos.Shares.Sub(shares)
	pos.Cost = pos.Cost.Sub(avgCost.Mul(shares))
	if pos.Shares.Sign() <= 0 {
		delete(e.positions, k)
	}

	slog.Info("fund redemption",
		"tx_id", tx.ID,
		"user", userID,
		"fund", code,
		"shares", shares.String(),
		"nav", nav.String(),
		"gross", gross.String(),
		"fee", totalFee.String(),
		"net", net.String(),
	)
	return &RedemptionResult{
		Transaction: tx,
		GrossAmount: gross,
		Fee:         totalFee,
		NetAmount:   net,
	}, nil
}

// Position returns a copy of a user's holding in one fund, and whether one
// exists.
func (e *Engine) Position(userID, code string) (model.FundPosition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionKey{user: userID, code: code}]
	if !ok {
		return model.FundPosition{}, false
	}
	return *pos, true
}

// Positions returns copies of all of a user's fund holdings.
func (e *Engine) Positions(userID string) []model.FundPosition {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []model.FundPosition
	for k, pos := range e.positions {
		if k.user == userID {
			out = append(out, *pos)
		}
	}
	return out
}

// Transactions returns a user's transaction log from the audit sink.
func (e *Engine) Transactions(ctx context.Context, userID string) ([]model.FundTransaction, error) {
	return e.sink.ListFundTransactionsByUser(ctx, userID)
}

// Performance computes daily/weekly/monthly/total returns by comparing the
// latest NAV to the sample N back, or the earliest sample when the history
// is shorter than N.
func (e *Engine) Performance(code string) (model.FundPerformance, error) {
	if _, err := e.Get(code); err != nil {
		return model.FundPerformance{}, err
	}

	history, err := e.navs.History(code, time.Time{}, time.Time{})
	if err != nil {
		return model.FundPerformance{}, err
	}

	perf := model.FundPerformance{
		FundCode: code,
		Daily:    decimal.Zero,
		Weekly:   decimal.Zero,
		Monthly:  decimal.Zero,
		Total:    decimal.Zero,
	}
	if len(history) < 2 {
		return perf, nil
	}

	latest := history[len(history)-1].Price
	perf.Daily = periodReturn(history, latest, dailyOffset)
	perf.Weekly = periodReturn(history, latest, weeklyOffset)
	perf.Monthly = periodReturn(history, latest, monthlyOffset)
	perf.Total = changeRatio(history[0].Price, latest)
	return perf, nil
}

// periodReturn compares latest to the sample n back, clamping to the
// earliest sample.
func periodReturn(history []model.PricePoint, latest decimal.Decimal, n int) decimal.Decimal {
	idx := len(history) - 1 - n
	if idx < 0 {
		idx = 0
	}
	return changeRatio(history[idx].Price, latest)
}

func changeRatio(from, to decimal.Decimal) decimal.Decimal {
	if from.IsZero() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Round(6)
}
