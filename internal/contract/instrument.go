// Package contract implements the leveraged contract market: the instrument
// catalog with symbol validation, and the trading engine that computes
// margin, invokes the risk gate, and maintains the position ledger.
package contract

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/tradesim/venue-engine/internal/model"
)

// symbolRegex matches venue contract symbols: an uppercase base asset code
// with an optional uppercase/numeric suffix segment.
// Examples: BTCUSDT, GOLD-2409, IDX-A50
var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,11}(-[A-Z0-9]{1,8})?$`)

var (
	// ErrInvalidSymbol is returned when a symbol fails format validation.
	ErrInvalidSymbol = errors.New("contract: invalid symbol format")

	// ErrUnknownInstrument is returned when a symbol is not in the catalog.
	ErrUnknownInstrument = errors.New("contract: unknown instrument")
)

// ValidateSymbol checks the symbol format.
func ValidateSymbol(symbol string) error {
	if !symbolRegex.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// Catalog is the set of tradable instruments.
type Catalog struct {
	mu          sync.RWMutex
	instruments map[string]model.Instrument
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{instruments: make(map[string]model.Instrument)}
}

// Add registers an instrument after validating its symbol.
func (c *Catalog) Add(inst model.Instrument) error {
	if err := ValidateSymbol(inst.Symbol); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.instruments[inst.Symbol]; ok {
		return fmt.Errorf("contract: instrument %s already registered", inst.Symbol)
	}
	c.instruments[inst.Symbol] = inst
	return nil
}

// Get returns an instrument by symbol.
func (c *Catalog) Get(symbol string) (model.Instrument, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	inst, ok := c.instruments[symbol]
	if !ok {
		return model.Instrument{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
	}
	return inst, nil
}

// List returns all instruments.
func (c *Catalog) List() []model.Instrument {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Instrument, 0, len(c.instruments))
	for _, inst := range c.instruments {
		out = append(out, inst)
	}
	return out
}
