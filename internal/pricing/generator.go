// Package pricing implements the synthetic price/NAV path generator shared
// by the contract markets and the fund NAV simulator.
//
// Each registered series performs a drift+volatility random walk: per-step
// deltas are normal draws (Box-Muller), days strictly before a fixed
// "policy boost" cutoff receive an additive upward bias, weekend steps are
// dampened, and the running price never falls below half the series base.
//
// All monetary values use shopspring/decimal — never float64 for money.
// The stochastic math runs in float64 and is converted to decimal
// immediately at the boundary.
package pricing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/model"
)

var (
	// ErrUnknownSymbol is returned when a series has not been registered.
	ErrUnknownSymbol = errors.New("pricing: unknown symbol")

	// ErrAlreadyRegistered is returned when a symbol is registered twice.
	ErrAlreadyRegistered = errors.New("pricing: symbol already registered")
)

const (
	// PriceScale is the number of decimal places for generated prices.
	PriceScale int32 = 4

	// weekendDamping scales deltas drawn on Saturday and Sunday.
	weekendDamping = 0.7

	// floorRatio is the lowest allowed price as a fraction of the base.
	floorRatio = 0.5

	// backfillVolScale scales the series volatility for per-day backfill
	// steps (daily moves are coarser than live ticks of the same class).
	backfillVolScale = 0.1

	// defaultHistoryLimit bounds live history retention after backfill.
	defaultHistoryLimit = 100
)

// series holds the walk state for one instrument or fund.
type series struct {
	base       decimal.Decimal
	volatility float64
	current    decimal.Decimal
	history    []model.PricePoint
}

// Generator produces synthetic price paths for a set of registered series.
// Safe for concurrent use.
type Generator struct {
	mu           sync.Mutex
	src          Source
	boostCutoff  time.Time
	boostBias    float64
	historyLimit int
	series       map[string]*series
}

// New creates a Generator. Days strictly before boostCutoff receive the
// additive boostBias drift during backfill (e.g. 0.0015 for +0.15%/day).
func New(src Source, boostCutoff time.Time, boostBias float64) *Generator {
	return &Generator{
		src:          src,
		boostCutoff:  boostCutoff,
		boostBias:    boostBias,
		historyLimit: defaultHistoryLimit,
		series:       make(map[string]*series),
	}
}

// Register adds a series starting at base with the given volatility class.
func (g *Generator) Register(symbol string, base decimal.Decimal, volatility float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.series[symbol]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, symbol)
	}
	g.series[symbol] = &series{
		base:       base,
		volatility: volatility,
		current:    base,
	}
	return nil
}

// Backfill walks day-by-day from start to end (inclusive), applying the full
// delta formula: normal step at dampened daily volatility, the policy-boost
// bias on days before the cutoff, and weekend damping. Each resulting price
// is appended as a PricePoint; the final price becomes the live price.
func (g *Generator) Backfill(symbol string, start, end time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.series[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	price := s.base.InexactFloat64()
	floor := s.base.InexactFloat64() * floorRatio

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		delta := normal(g.src, s.volatility*backfillVolScale)
		if day.Before(g.boostCutoff) {
			delta += g.boostBias
		}
		if isWeekend(day) {
			delta *= weekendDamping
		}

		price *= 1 + delta
		if price < floor {
			price = floor
		}

		s.history = append(s.history, model.PricePoint{
			Symbol:    symbol,
			Price:     decimal.NewFromFloat(price).Round(PriceScale),
			Timestamp: day,
		})
	}

	if n := len(s.history); n > 0 {
		s.current = s.history[n-1].Price
	}
	return nil
}

// Tick advances the series by one live step: the same delta formula without
// the date-based bias window. History is truncated to the most recent
// retention window. Returns the appended point.
func (g *Generator) Tick(symbol string, now time.Time) (model.PricePoint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.series[symbol]
	if !ok {
		return model.PricePoint{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	delta := normal(g.src, s.volatility*backfillVolScale)
	if isWeekend(now) {
		delta *= weekendDamping
	}

	price := s.current.InexactFloat64() * (1 + delta)
	if floor := s.base.InexactFloat64() * floorRatio; price < floor {
		price = floor
	}

	point := model.PricePoint{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(price).Round(PriceScale),
		Timestamp: now,
	}
	s.current = point.Price
	s.history = append(s.history, point)
	if len(s.history) > g.historyLimit {
		s.history = s.history[len(s.history)-g.historyLimit:]
	}
	return point, nil
}

// Current returns the live price for a series.
func (g *Generator) Current(symbol string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.series[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return s.current, nil
}

// History returns the retained points for a series within [from, to].
// Zero bounds are treated as unbounded.
func (g *Generator) History(symbol string, from, to time.Time) ([]model.PricePoint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.series[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	out := make([]model.PricePoint, 0, len(s.history))
	for _, p := range s.history {
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

// Symbols returns the registered symbols.
func (g *Generator) Symbols() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, 0, len(g.series))
	for sym := range g.series {
		out = append(out, sym)
	}
	return out
}

// isWeekend reports whether t falls on Saturday or Sunday.
func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
