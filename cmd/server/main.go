package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tradesim/venue-engine/internal/account"
	"github.com/tradesim/venue-engine/internal/api"
	"github.com/tradesim/venue-engine/internal/binary"
	"github.com/tradesim/venue-engine/internal/config"
	"github.com/tradesim/venue-engine/internal/contract"
	"github.com/tradesim/venue-engine/internal/fund"
	"github.com/tradesim/venue-engine/internal/ledger"
	"github.com/tradesim/venue-engine/internal/metrics"
	"github.com/tradesim/venue-engine/internal/model"
	"github.com/tradesim/venue-engine/internal/pricing"
	"github.com/tradesim/venue-engine/internal/risk"
	"github.com/tradesim/venue-engine/internal/store"
	"github.com/tradesim/venue-engine/internal/venue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfgPath := os.Getenv("VENUE_CONFIG")
	if cfgPath == "" {
		cfgPath = "venue.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config load failed", "path", cfgPath, "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", "err", err)
		os.Exit(1)
	}

	// --- Audit sink ---
	var sink store.Store
	var cleanup []func()

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		sink = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.Redis.URL != "" {
			opt, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				slog.Error("invalid redis url", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			sink = store.NewCachedStore(sink, rdb, cfg.Redis.TTL)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("database url not set, using in-memory audit sink (data will not persist)")
		sink = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Price generator + product catalog ---
	seed := cfg.Market.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	boostCutoff, _ := cfg.Market.BoostCutoffTime()
	prices := pricing.New(pricing.NewSource(seed), boostCutoff, cfg.Market.BoostBias)

	catalog := contract.NewCatalog()
	instruments := demoInstruments()
	for _, inst := range instruments {
		if err := catalog.Add(inst); err != nil {
			slog.Error("instrument registration failed", "symbol", inst.Symbol, "err", err)
			os.Exit(1)
		}
		if err := prices.Register(inst.Symbol, inst.BasePrice, inst.Volatility); err != nil {
			slog.Error("series registration failed", "symbol", inst.Symbol, "err", err)
			os.Exit(1)
		}
	}

	funds := demoFunds()
	for _, f := range funds {
		if err := prices.Register(f.Code, f.BaseNav, f.Volatility); err != nil {
			slog.Error("nav series registration failed", "fund", f.Code, "err", err)
			os.Exit(1)
		}
	}

	// Backfill history so charts and period returns have data on day one.
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -cfg.Market.BackfillDays)
	for _, symbol := range prices.Symbols() {
		if err := prices.Backfill(symbol, start, end); err != nil {
			slog.Error("backfill failed", "symbol", symbol, "err", err)
			os.Exit(1)
		}
	}
	slog.Info("series backfilled", "series", len(prices.Symbols()), "days", cfg.Market.BackfillDays)

	// --- Engines ---
	accounts := account.NewMemoryService()
	for _, u := range []string{"demo-1", "demo-2", "demo-3"} {
		accounts.Set(u, decimal.NewFromInt(1_000_000))
	}
	book := ledger.NewBook()
	gate := risk.NewGate(model.RiskConfig{
		MinTradeAmount:     decimal.NewFromFloat(cfg.Risk.MinTradeAmount),
		MaxTradeAmount:     decimal.NewFromFloat(cfg.Risk.MaxTradeAmount),
		MaxLeverage:        cfg.Risk.MaxLeverage,
		MaxTotalPosition:   decimal.NewFromFloat(cfg.Risk.MaxTotalPosition),
		MaxTradesPerMinute: cfg.Risk.MaxTradesPerMinute,
		MaintenanceWindows: cfg.Risk.MaintenanceWindows,
	}, accounts, book)

	contracts := contract.NewEngine(catalog, prices, gate, book, sink)

	refPrice, err := prices.Current(cfg.Market.ReferenceSymbol)
	if err != nil {
		slog.Error("reference symbol has no series", "symbol", cfg.Market.ReferenceSymbol, "err", err)
		os.Exit(1)
	}
	bin := binary.NewEngine(demoStrategies(), refPrice, pricing.NewSource(seed+1), sink)
	fundEngine := fund.NewEngine(funds, prices, sink)

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run()

	// --- Facade + background ticker ---
	facade := venue.New(catalog, contracts, bin, fundEngine, prices, sink, cfg.Market.ReferenceSymbol, wsHub)
	facade.Start(cfg.Market.TickInterval)
	defer facade.Stop()

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"venue-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	handlers := api.NewHandlers(facade)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", wsHub.HandleWS)
		handlers.Register(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("venue-engine listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down venue-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("venue-engine stopped")
}

// demoInstruments seeds the contract catalog for the training venue.
func demoInstruments() []model.Instrument {
	return []model.Instrument{
		{
			Symbol:      "BTCUSDT",
			Name:        "Bitcoin Perpetual",
			BasePrice:   decimal.NewFromInt(68000),
			MaxLeverage: 100,
			MarginRate:  decimal.NewFromFloat(0.1),
			Volatility:  0.03,
			RiskTier:    "high",
		},
		{
			Symbol:      "ETHUSDT",
			Name:        "Ethereum Perpetual",
			BasePrice:   decimal.NewFromInt(3500),
			MaxLeverage: 75,
			MarginRate:  decimal.NewFromFloat(0.1),
			Volatility:  0.04,
			RiskTier:    "high",
		},
		{
			Symbol:      "GOLD-2412",
			Name:        "Gold Futures Dec 24",
			BasePrice:   decimal.NewFromInt(2400),
			MaxLeverage: 20,
			MarginRate:  decimal.NewFromFloat(0.08),
			Volatility:  0.01,
			RiskTier:    "medium",
		},
	}
}

// demoFunds seeds the fund shelf.
func demoFunds() []model.Fund {
	return []model.Fund{
		{
			Code:               "FD-ALPHA",
			Name:               "Alpha Growth Fund",
			BaseNav:            decimal.NewFromInt(1),
			MinInvestment:      decimal.NewFromInt(1000),
			ManagementFeeRate:  decimal.NewFromFloat(0.005),
			PerformanceFeeRate: decimal.NewFromFloat(0.2),
			Volatility:         0.015,
			RiskTier:           "medium",
		},
		{
			Code:               "FD-STABLE",
			Name:               "Stable Income Fund",
			BaseNav:            decimal.NewFromInt(1),
			MinInvestment:      decimal.NewFromInt(100),
			ManagementFeeRate:  decimal.NewFromFloat(0.002),
			PerformanceFeeRate: decimal.NewFromFloat(0.1),
			Volatility:         0.004,
			RiskTier:           "low",
		},
	}
}

// demoStrategies seeds the binary option profiles.
func demoStrategies() []model.BinaryStrategy {
	return []model.BinaryStrategy{
		{ID: "B60", Name: "60 second", Duration: time.Minute, PayoutRate: decimal.NewFromFloat(1.85), MaxStake: decimal.NewFromInt(5000)},
		{ID: "B300", Name: "5 minute", Duration: 5 * time.Minute, PayoutRate: decimal.NewFromFloat(1.9), MaxStake: decimal.NewFromInt(10000)},
		{ID: "B900", Name: "15 minute", Duration: 15 * time.Minute, PayoutRate: decimal.NewFromFloat(1.95), MaxStake: decimal.NewFromInt(20000)},
	}
}
