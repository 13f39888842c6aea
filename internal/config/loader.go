package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is empty
// or missing), merges it on top of the built-in defaults, applies VENUE_*
// environment variable overrides, and returns the final Config. The caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known VENUE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject connection strings at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Port, "VENUE_PORT")
	setStr(&cfg.Database.URL, "VENUE_DATABASE_URL")
	setStr(&cfg.Redis.URL, "VENUE_REDIS_URL")
	setStr(&cfg.Market.ReferenceSymbol, "VENUE_REFERENCE_SYMBOL")
	setStr(&cfg.Market.BoostCutoff, "VENUE_BOOST_CUTOFF")
	setStr(&cfg.LogLevel, "VENUE_LOG_LEVEL")

	setDuration(&cfg.Market.TickInterval, "VENUE_TICK_INTERVAL")
	setInt(&cfg.Market.BackfillDays, "VENUE_BACKFILL_DAYS")
	setUint64(&cfg.Market.Seed, "VENUE_SEED")
	setFloat(&cfg.Market.BoostBias, "VENUE_BOOST_BIAS")

	setFloat(&cfg.Risk.MinTradeAmount, "VENUE_RISK_MIN_TRADE_AMOUNT")
	setFloat(&cfg.Risk.MaxTradeAmount, "VENUE_RISK_MAX_TRADE_AMOUNT")
	setInt(&cfg.Risk.MaxLeverage, "VENUE_RISK_MAX_LEVERAGE")
	setFloat(&cfg.Risk.MaxTotalPosition, "VENUE_RISK_MAX_TOTAL_POSITION")
	setInt(&cfg.Risk.MaxTradesPerMinute, "VENUE_RISK_MAX_TRADES_PER_MINUTE")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
