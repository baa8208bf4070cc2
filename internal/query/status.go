package query

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"bot-dashboard/internal/model"
	"bot-dashboard/internal/storage"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	trendThreshold  = 5.0
	marketSymbolCap = 10
)

// BotInfo returns the bot status with uptime and run mode filled in.
func (s *Service) BotInfo(ctx context.Context) Result[model.BotStatus] {
	if s.manager == nil {
		return ok(model.BotStatus{Status: "not_initialized", Uptime: FormatUptime(0)})
	}

	status, err := s.manager.Status(ctx)
	if err != nil {
		return fail("bot_info", model.BotStatus{Status: "error", Error: err.Error()}, err)
	}

	status.Uptime = FormatUptime(0)
	if status.StartTime != nil {
		status.Uptime = FormatUptime(s.now().Sub(*status.StartTime))
	}
	if status.Status == "" {
		status.Status = "unknown"
	}
	status.Mode = "LIVE"
	if s.cfg.PaperTrading {
		status.Mode = "TESTNET"
	}
	status.MaxPositions = s.cfg.MaxPositions
	return ok(status)
}

// BalanceInfo reads the latest USDT balance from the store, falling back to
// the exchange and finally to zeros.
func (s *Service) BalanceInfo(ctx context.Context) Result[model.BalanceInfo] {
	now := s.now()
	var latest, dayAgo *model.Balance
	err := s.view(ctx, func(tx storage.Tx) error {
		var err error
		if latest, err = tx.LatestBalance(ctx, usdt, time.Time{}); err != nil || latest == nil {
			return err
		}
		dayAgo, err = tx.LatestBalance(ctx, usdt, now.Add(-day))
		return err
	})
	if err != nil && !errors.Is(err, ErrUnavailable) {
		return fail("balance", model.BalanceInfo{}, err)
	}

	if latest != nil {
		updated := latest.UpdatedAt
		return ok(model.BalanceInfo{
			TotalUSDT:     latest.Total,
			AvailableUSDT: latest.Free,
			InPositions:   latest.Locked,
			Change24h:     round2(Change24h(latest.Total, dayAgo)),
			LastUpdate:    &updated,
		})
	}

	if s.exchange != nil {
		balances, err := s.exchange.FetchBalance(ctx)
		if err == nil {
			b := balances[usdt]
			return ok(model.BalanceInfo{
				TotalUSDT:     b.Total,
				AvailableUSDT: b.Free,
				InPositions:   b.Used,
				LastUpdate:    &now,
			})
		}
		log.Warn().Err(err).Msg("Failed to fetch balance from exchange")
	}
	return ok(model.BalanceInfo{})
}

// PositionsInfo values every open position at the current price.
func (s *Service) PositionsInfo(ctx context.Context) Result[model.PositionsInfo] {
	def := model.PositionsInfo{Positions: []model.PositionView{}}

	var open []model.Position
	err := s.view(ctx, func(tx storage.Tx) error {
		var err error
		open, err = tx.OpenPositions(ctx)
		return err
	})
	if err != nil {
		return fail("positions", def, err)
	}

	info := model.PositionsInfo{Positions: make([]model.PositionView, 0, len(open))}
	total := 0.0
	for _, p := range open {
		current := s.currentPrice(ctx, p.Symbol)
		pnl := PositionPnL(p.Side, p.EntryPrice, current, p.Quantity)
		total += pnl
		info.Positions = append(info.Positions, model.PositionView{
			ID:           p.ID,
			Symbol:       p.Symbol,
			Side:         p.Side,
			Size:         p.Quantity,
			EntryPrice:   p.EntryPrice,
			CurrentPrice: current,
			PnL:          round2(pnl),
			PnLPercent:   round2(PositionPnLPercent(p.Side, p.EntryPrice, current)),
			Strategy:     p.Strategy,
			OpenedAt:     p.CreatedAt,
			StopLoss:     p.StopLoss,
			TakeProfit:   p.TakeProfit,
		})
	}
	info.Count = len(info.Positions)
	info.TotalPnL = round2(total)
	return ok(info)
}

// Strategies reports every strategy with a positive weight.
func (s *Service) Strategies(ctx context.Context) Result[map[string]StrategyInfo] {
	since := s.now().Add(-day)
	out := make(map[string]StrategyInfo)

	err := s.view(ctx, func(tx storage.Tx) error {
		for name, weight := range s.cfg.StrategyWeights {
			if weight <= 0 {
				continue
			}
			info := StrategyInfo{Active: true, Weight: weight}

			n, err := tx.CountSignals(ctx, name, since)
			if err != nil {
				return err
			}
			info.SignalsCount = n

			last, err := tx.LastSignal(ctx, name)
			if err != nil {
				return err
			}
			if last != nil {
				info.LastSignal = &SignalBrief{Action: last.Action, Symbol: last.Symbol, Timestamp: last.Timestamp}
			}

			trades, err := tx.FindTrades(ctx, storage.TradeFilter{
				Status:     model.TradeClosed,
				Strategy:   name,
				ClosedFrom: since,
			})
			if err != nil {
				return err
			}
			t := totals(trades)
			info.TradesCount = t.count
			info.WinRate = round1(WinRate(t.winning, t.count))

			out[name] = info
		}
		return nil
	})
	if err != nil {
		return fail("strategies", map[string]StrategyInfo{}, err)
	}
	return ok(out)
}

// Performance reports today's trades and the last seven days of closed
// trades.
func (s *Service) Performance(ctx context.Context) Result[PerformanceInfo] {
	now := s.now()
	var today, week []model.Trade

	err := s.view(ctx, func(tx storage.Tx) error {
		var err error
		if today, err = tx.FindTrades(ctx, storage.TradeFilter{CreatedFrom: startOfDay(now)}); err != nil {
			return err
		}
		week, err = tx.FindTrades(ctx, storage.TradeFilter{
			Status:      model.TradeClosed,
			CreatedFrom: now.Add(-7 * day),
		})
		return err
	})
	if err != nil {
		return fail("performance", PerformanceInfo{}, err)
	}

	var closed []model.Trade
	for _, t := range today {
		if t.Status == model.TradeClosed {
			closed = append(closed, t)
		}
	}
	c := totals(closed)
	w := totals(week)

	return ok(PerformanceInfo{
		Today: TodayStats{
			TradesCount:  len(today),
			ClosedTrades: c.count,
			WinRate:      round1(WinRate(c.winning, c.count)),
			PnL:          round2(c.pnl),
		},
		Week: WeekStats{
			TradesCount: w.count,
			PnL:         round2(w.pnl),
			AvgDailyPnL: round2(w.pnl / 7),
		},
	})
}

// Market summarises the cached tickers of the first ten configured symbols.
func (s *Service) Market(_ context.Context) Result[MarketInfo] {
	symbols := s.cfg.Symbols
	if len(symbols) > marketSymbolCap {
		symbols = symbols[:marketSymbolCap]
	}
	info := MarketInfo{
		ActiveSymbols: append([]string{}, symbols...),
		Trending:      []Trend{},
	}
	if s.tickers == nil {
		return ok(info)
	}

	for _, symbol := range symbols {
		t, found := s.tickers.Get(symbol)
		if !found {
			continue
		}
		info.TotalVolume24h += t.Volume
		if math.Abs(t.Change24h) > trendThreshold {
			info.Trending = append(info.Trending, Trend{Symbol: symbol, Change: t.Change24h, Volume: t.Volume})
		}
	}
	sort.SliceStable(info.Trending, func(i, j int) bool {
		return math.Abs(info.Trending[i].Change) > math.Abs(info.Trending[j].Change)
	})
	return ok(info)
}

// System reports process load, wired collaborators and the environment.
func (s *Service) System(_ context.Context) Result[SystemInfo] {
	usage := s.cpu.sample()
	env := "production"
	if s.cfg.PaperTrading {
		env = "testnet"
	}
	return ok(SystemInfo{
		CPUUsage:    round1(usage.cpuPercent),
		MemoryUsage: round1(usage.memPercent),
		MemoryMB:    round1(usage.memMB),
		Goroutines:  usage.goroutines,
		Connections: map[string]bool{
			"exchange":  s.exchange != nil,
			"database":  s.store != nil,
			"websocket": s.conns != nil,
			"telegram":  s.cfg.TelegramEnabled,
		},
		Version:     s.cfg.Version,
		Environment: env,
	})
}

// FullStatus runs every status query concurrently. Concurrent callers share
// one computation. Err is the first part that failed; the value is always
// complete.
func (s *Service) FullStatus(ctx context.Context) Result[FullStatus] {
	v, err, _ := s.flight.Do("full_status", func() (any, error) {
		var st FullStatus
		var g errgroup.Group
		run := func(fn func(context.Context) error) {
			g.Go(func() error { return fn(ctx) })
		}

		run(func(ctx context.Context) error { r := s.BotInfo(ctx); st.Bot = r.Value; return r.Err })
		run(func(ctx context.Context) error { r := s.BalanceInfo(ctx); st.Balance = r.Value; return r.Err })
		run(func(ctx context.Context) error { r := s.PositionsInfo(ctx); st.Positions = r.Value; return r.Err })
		run(func(ctx context.Context) error { r := s.Strategies(ctx); st.Strategies = r.Value; return r.Err })
		run(func(ctx context.Context) error { r := s.Performance(ctx); st.Performance = r.Value; return r.Err })
		run(func(ctx context.Context) error { r := s.Market(ctx); st.Market = r.Value; return r.Err })
		run(func(ctx context.Context) error { r := s.System(ctx); st.System = r.Value; return r.Err })

		err := g.Wait()
		st.Timestamp = s.now()
		return st, err
	})
	return Result[FullStatus]{Value: v.(FullStatus), Err: err}
}

// SystemStats reports which collaborators are wired, with a bot summary when
// a bot manager is present.
func (s *Service) SystemStats(ctx context.Context) Result[ServiceStats] {
	stats := ServiceStats{
		BotManager:     s.manager != nil,
		ExchangeClient: s.exchange != nil,
		WebSocket:      s.conns != nil,
	}
	if s.manager == nil {
		return ok(stats)
	}

	bot := s.BotInfo(ctx)
	if bot.Err != nil {
		return Result[ServiceStats]{Value: stats, Err: bot.Err}
	}
	stats.Bot = &BotSummary{
		IsRunning: bot.Value.IsRunning,
		Uptime:    bot.Value.Uptime,
		Cycles:    bot.Value.CyclesCompleted,
	}
	return ok(stats)
}
