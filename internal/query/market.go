package query

import (
	"context"
	"fmt"

	"bot-dashboard/internal/market"
	"bot-dashboard/internal/model"

	"github.com/rs/zerolog/log"
)

const (
	SourceExchange = "exchange"
	SourceCache    = "cache"

	DefaultChartInterval = "5m"
	DefaultChartLimit    = 100
	MaxChartLimit        = 1000
)

// Candles returns chart data from the exchange. Without an exchange it
// generates demo candles; when the exchange fails the series is empty and
// marked as coming from the cache.
func (s *Service) Candles(ctx context.Context, symbol, interval string, limit int) Result[ChartData] {
	if interval == "" {
		interval = DefaultChartInterval
	}
	if limit <= 0 {
		limit = DefaultChartLimit
	}
	limit = min(limit, MaxChartLimit)
	data := ChartData{Symbol: symbol, Interval: interval}

	if s.exchange == nil {
		data.Candles = market.DemoCandles(symbol, interval, limit, s.now(), nil)
		data.Source = market.SourceDemo
		return ok(data)
	}

	candles, err := s.exchange.FetchOHLCV(ctx, symbol, interval, limit)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch candles")
		data.Candles = []model.Candle{}
		data.Source = SourceCache
		return ok(data)
	}
	data.Candles = candles
	data.Source = SourceExchange
	return ok(data)
}

// Ticker asks the exchange for symbol, then falls back to demo prices.
func (s *Service) Ticker(ctx context.Context, symbol string) Result[model.Ticker] {
	if s.exchange != nil {
		t, err := s.exchange.FetchTicker(ctx, symbol)
		if err == nil {
			return ok(t)
		}
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch ticker")
	}
	if t, found := market.DemoTicker(symbol, s.now()); found {
		return ok(t)
	}
	return Result[model.Ticker]{Err: fmt.Errorf("symbol %s: %w", symbol, ErrNotFound)}
}

// CachedTicker reads symbol from the realtime cache only.
func (s *Service) CachedTicker(symbol string) Result[model.Ticker] {
	if s.tickers != nil {
		if t, found := s.tickers.Get(symbol); found {
			return ok(t)
		}
	}
	return Result[model.Ticker]{Err: fmt.Errorf("ticker %s: %w", symbol, ErrNotFound)}
}

// CachedTickers returns the whole realtime cache.
func (s *Service) CachedTickers() map[string]model.Ticker {
	if s.tickers == nil {
		return map[string]model.Ticker{}
	}
	return s.tickers.All()
}

// BotBalance returns the bot manager's balance, or demo figures when it is
// missing or failing.
func (s *Service) BotBalance(ctx context.Context) Result[model.BalanceInfo] {
	if s.manager == nil {
		return ok(market.DemoBalance())
	}
	b, err := s.manager.BalanceInfo(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Bot manager balance unavailable, serving demo balance")
		return Result[model.BalanceInfo]{Value: market.DemoBalance(), Err: err}
	}
	return ok(b)
}

// BotPositions returns the bot manager's positions, or an empty demo list.
func (s *Service) BotPositions(ctx context.Context) Result[model.PositionsInfo] {
	if s.manager == nil {
		return ok(market.DemoPositions())
	}
	p, err := s.manager.PositionsInfo(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Bot manager positions unavailable, serving demo positions")
		return Result[model.PositionsInfo]{Value: market.DemoPositions(), Err: err}
	}
	if p.Positions == nil {
		p.Positions = []model.PositionView{}
	}
	return ok(p)
}
