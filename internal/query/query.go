// Package query computes the read-only views served by the dashboard: bot
// status, balances, positions, strategy and trade statistics, market data
// and system health.
//
// Every query returns a Result. On failure Result.Value holds the query's
// documented default and Result.Err says what went wrong, so handlers can
// always render something.
package query

import (
	"context"
	"time"

	"bot-dashboard/internal/botmanager"
	"bot-dashboard/internal/model"
	"bot-dashboard/internal/storage"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultVersion = "3.0.0"
	usdt           = "USDT"
)

// Exchange is the market data and account API.
type Exchange interface {
	FetchTicker(ctx context.Context, symbol string) (model.Ticker, error)
	FetchOHLCV(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	FetchBalance(ctx context.Context) (map[string]model.AssetBalance, error)
}

// TickerSource is the realtime ticker cache.
type TickerSource interface {
	Get(symbol string) (model.Ticker, bool)
	All() map[string]model.Ticker
}

// Config is the static part of the bot configuration the views report.
type Config struct {
	Symbols         []string
	StrategyWeights map[string]float64
	PaperTrading    bool
	MaxPositions    int
	TelegramEnabled bool
	Version         string
}

// Result carries a query's value, which is the query's default when Err is
// set.
type Result[T any] struct {
	Value T
	Err   error
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fail[T any](query string, def T, err error) Result[T] {
	log.Error().Err(err).Str("query", query).Msg("Query failed")
	return Result[T]{Value: def, Err: err}
}

// Option configures a Service.
type Option func(*Service)

func WithExchange(e Exchange) Option {
	return func(s *Service) { s.exchange = e }
}

func WithManager(m botmanager.Manager) Option {
	return func(s *Service) { s.manager = m }
}

func WithTickers(t TickerSource) Option {
	return func(s *Service) { s.tickers = t }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithConnections reports the number of live push connections.
func WithConnections(count func() int) Option {
	return func(s *Service) { s.conns = count }
}

// Service runs the queries. Exchange, manager and tickers are optional.
type Service struct {
	store    storage.Store
	exchange Exchange
	manager  botmanager.Manager
	tickers  TickerSource
	conns    func() int
	cfg      Config
	clock    clockwork.Clock

	flight singleflight.Group
	cpu    cpuSampler
}

func New(store storage.Store, cfg Config, opts ...Option) *Service {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	s := &Service{
		store: store,
		cfg:   cfg,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Manager returns the bot manager, or nil.
func (s *Service) Manager() botmanager.Manager {
	return s.manager
}

// HasExchange reports whether an exchange client is configured.
func (s *Service) HasExchange() bool {
	return s.exchange != nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Service) view(ctx context.Context, fn func(tx storage.Tx) error) error {
	if s.store == nil {
		return ErrUnavailable
	}
	return s.store.View(ctx, fn)
}

// currentPrice looks in the ticker cache, then asks the exchange, then
// gives up with 0.
func (s *Service) currentPrice(ctx context.Context, symbol string) float64 {
	if s.tickers != nil {
		if t, ok := s.tickers.Get(symbol); ok {
			return t.Price
		}
	}
	if s.exchange != nil {
		t, err := s.exchange.FetchTicker(ctx, symbol)
		if err == nil {
			return t.Price
		}
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch current price")
	}
	return 0
}
