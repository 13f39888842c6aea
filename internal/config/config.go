// Package config defines the top-level configuration for the venue engine
// and provides validation helpers.
package config

import (
	"fmt"
	"time"

	"github.com/tradesim/venue-engine/internal/model"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by VENUE_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Market   MarketConfig   `toml:"market"`
	Risk     RiskConfig     `toml:"risk"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds the HTTP listener parameters.
type ServerConfig struct {
	Port            string        `toml:"port"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// DatabaseConfig holds the PostgreSQL audit-sink connection.
type DatabaseConfig struct {
	URL string `toml:"url"` // empty falls back to the in-memory sink
}

// RedisConfig holds the optional read-through cache connection.
type RedisConfig struct {
	URL string        `toml:"url"` // empty disables the cache layer
	TTL time.Duration `toml:"ttl"`
}

// MarketConfig holds the simulation parameters.
type MarketConfig struct {
	TickInterval    time.Duration `toml:"tick_interval"`
	BackfillDays    int           `toml:"backfill_days"`
	BoostCutoff     string        `toml:"boost_cutoff"` // YYYY-MM-DD, UTC
	BoostBias       float64       `toml:"boost_bias"`   // additive daily drift before the cutoff
	ReferenceSymbol string        `toml:"reference_symbol"`
	Seed            uint64        `toml:"seed"` // 0 → time-based
}

// RiskConfig mirrors model.RiskConfig with TOML-friendly types.
type RiskConfig struct {
	MinTradeAmount     float64           `toml:"min_trade_amount"`
	MaxTradeAmount     float64           `toml:"max_trade_amount"`
	MaxLeverage        int               `toml:"max_leverage"`
	MaxTotalPosition   float64           `toml:"max_total_position"`
	MaxTradesPerMinute int               `toml:"max_trades_per_minute"`
	MaintenanceWindows []model.HourRange `toml:"maintenance_windows"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			TTL: 30 * time.Second,
		},
		Market: MarketConfig{
			TickInterval:    2 * time.Second,
			BackfillDays:    90,
			BoostCutoff:     "2024-10-01",
			BoostBias:       0.0015,
			ReferenceSymbol: "BTCUSDT",
		},
		Risk: RiskConfig{
			MinTradeAmount:     100,
			MaxTradeAmount:     1_000_000,
			MaxLeverage:        100,
			MaxTotalPosition:   5_000_000,
			MaxTradesPerMinute: 10,
		},
		LogLevel: "info",
	}
}

// BoostCutoffTime parses the policy-boost cutoff date.
func (c MarketConfig) BoostCutoffTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.BoostCutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: invalid boost_cutoff %q: %w", c.BoostCutoff, err)
	}
	return t.UTC(), nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Market.TickInterval <= 0 {
		return fmt.Errorf("config: tick_interval must be positive")
	}
	if c.Market.BackfillDays < 0 {
		return fmt.Errorf("config: backfill_days must not be negative")
	}
	if _, err := c.Market.BoostCutoffTime(); err != nil {
		return err
	}
	if c.Risk.MinTradeAmount < 0 || c.Risk.MaxTradeAmount < c.Risk.MinTradeAmount {
		return fmt.Errorf("config: trade amount bounds are inverted")
	}
	if c.Risk.MaxLeverage <= 0 {
		return fmt.Errorf("config: max_leverage must be positive")
	}
	if c.Risk.MaxTradesPerMinute <= 0 {
		return fmt.Errorf("config: max_trades_per_minute must be positive")
	}
	for _, w := range c.Risk.MaintenanceWindows {
		if w.Start < 0 || w.Start > 23 || w.End < 0 || w.End > 24 {
			return fmt.Errorf("config: maintenance window hours out of range")
		}
	}
	return nil
}
