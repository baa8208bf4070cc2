package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bot-dashboard/internal/botmanager"
	"bot-dashboard/internal/cfg"
	"bot-dashboard/internal/common"
	"bot-dashboard/internal/dashboard"
	"bot-dashboard/internal/exchange/bitunix"
	"bot-dashboard/internal/logbook"
	"bot-dashboard/internal/market"
	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/query"
	"bot-dashboard/internal/realtime"
	"bot-dashboard/internal/sse"
	"bot-dashboard/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	logs := logbook.New(c.LogBufferSize, nil)
	setupLogging(c, logs)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store, err := initializeStorage(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("storage initialization failed")
	}
	defer store.Close()

	exchange := initializeExchange(c, mw)
	manager := initializeBotManager(c, mw)

	// The stream snapshot reads the query service, which is built after
	// the hub it forwards from
	var snapshot sse.SnapshotFunc
	relay := sse.NewRelay(func(ctx context.Context) any { return snapshot(ctx) }, c.StreamInterval, nil)
	hub := realtime.NewHub(realtime.WithForwarder(relay), realtime.WithMetrics(mw))
	logs.SetPublisher(hub)

	refresher := realtime.NewRefresher(hub, manager, realtime.RefresherConfig{
		Interval: c.RefreshInterval,
		Backoff:  c.RefreshBackoff,
		Metrics:  mw,
	})

	tickers := market.NewCache(hub, nil)
	var fetcher market.Fetcher
	if exchange != nil {
		fetcher = exchange
	}
	watcher := market.NewWatcher(tickers, fetcher, c.Symbols, c.TickerInterval, nil)

	opts := []query.Option{
		query.WithTickers(tickers),
		query.WithConnections(hub.Len),
	}
	if exchange != nil {
		opts = append(opts, query.WithExchange(exchange))
	}
	if manager != nil {
		opts = append(opts, query.WithManager(manager))
	}
	queries := query.New(store, query.Config{
		Symbols:         c.Symbols,
		StrategyWeights: c.StrategyWeights,
		PaperTrading:    c.PaperTrading,
		MaxPositions:    c.MaxPositions,
		TelegramEnabled: c.TelegramEnabled,
	}, opts...)
	snapshot = dashboard.StreamSnapshot(queries, func() int { return len(hub.Snapshot().Positions) })

	server := dashboard.New(dashboard.Config{
		Port:           c.HTTPPort,
		AllowedOrigins: c.AllowedOrigins,
		WSWriteTimeout: c.WSWriteTimeout,
	}, dashboard.Deps{
		Queries:   queries,
		Hub:       hub,
		Refresher: refresher,
		Watcher:   watcher,
		Relay:     relay,
		Logs:      logs,
		Metrics:   mw,
		Metricz:   promhttp.Handler(),
	})

	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("dashboard start failed")
	}
	logs.Add("INFO", "Dashboard started", "dashboard")

	waitForShutdown(ctx)

	log.Info().Msg("shutting down gracefully...")
	if err := server.Stop(context.Background()); err != nil {
		log.Error().Err(err).Msg("dashboard shutdown failed")
	}
}

// setupLogging configures the global logger and mirrors its entries into
// the log book.
func setupLogging(c cfg.Settings, logs *logbook.Book) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stdout)
	if c.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly})
	}
	log.Logger = logger.With().Timestamp().Logger().
		Hook(logbook.Hook{Book: logs, MinLevel: zerolog.InfoLevel, Source: "dashboard"})
}

// initializeStorage opens the configured store.
func initializeStorage(ctx context.Context, c cfg.Settings) (storage.Store, error) {
	switch c.StoreDriver {
	case common.StorePostgres:
		store, err := storage.NewPG(ctx, c.PostgresDSN, c.PGMaxConns)
		if err != nil {
			return nil, err
		}
		log.Info().Int("max_conns", c.PGMaxConns).Msg("Using PostgreSQL store")
		return store, nil
	default:
		if err := os.MkdirAll(c.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data path: %w", err)
		}
		store, err := storage.NewBolt(c.DataPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", c.DataPath).Msg("Using bbolt store")
		return store, nil
	}
}

// initializeExchange returns the Bitunix client, or nil when disabled.
func initializeExchange(c cfg.Settings, mw *metrics.MetricsWrapper) *bitunix.Client {
	if !c.ExchangeEnabled {
		log.Info().Msg("Exchange client disabled, serving demo market data")
		return nil
	}
	client := bitunix.NewREST(c.Key, c.Secret, c.BaseURL, c.RESTTimeout)
	client.SetMetrics(mw)
	if !c.HasCredentials() {
		log.Warn().Msg("No API credentials, exchange balance fallback disabled")
	}
	return client
}

// initializeBotManager returns the bot manager client, or nil when no URL
// is configured. The nil is untyped so interface checks see it as absent.
func initializeBotManager(c cfg.Settings, mw *metrics.MetricsWrapper) botmanager.Manager {
	if c.BotManagerURL == "" {
		log.Warn().Msg("BOT_MANAGER_URL not set, bot control disabled")
		return nil
	}
	client := botmanager.NewClient(c.BotManagerURL, c.BotManagerTimeout)
	client.SetMetrics(mw)
	return client
}

// waitForShutdown blocks until a signal arrives or ctx ends.
func waitForShutdown(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}
}
