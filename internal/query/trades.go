package query

import (
	"context"
	"time"

	"bot-dashboard/internal/market"
	"bot-dashboard/internal/model"
	"bot-dashboard/internal/storage"
)

const (
	DefaultTradesLimit  = 50
	DefaultSignalsLimit = 20
	DefaultPeriodDays   = 7

	// Upper bounds; larger requests are clamped
	MaxTradesLimit  = 500
	MaxSignalsLimit = 500
	MaxPageLimit    = 100
	MaxPage         = 100_000
	MaxPeriodDays   = 365
)

// RecentTrades returns the newest trades first.
func (s *Service) RecentTrades(ctx context.Context, limit int) Result[[]model.TradeView] {
	if limit <= 0 {
		limit = DefaultTradesLimit
	}
	limit = min(limit, MaxTradesLimit)

	var trades []model.Trade
	err := s.view(ctx, func(tx storage.Tx) error {
		var err error
		trades, err = tx.RecentTrades(ctx, 0, limit)
		return err
	})
	if err != nil {
		return fail("recent_trades", []model.TradeView{}, err)
	}
	return ok(toViews(trades))
}

// TradesPage returns one page of trades, newest first, with page counts.
// Pages are numbered from 1.
func (s *Service) TradesPage(ctx context.Context, page, limit int) Result[TradesPage] {
	page = max(1, min(page, MaxPage))
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, MaxPageLimit)
	def := TradesPage{Trades: []model.TradeView{}, Pagination: Pagination{Page: page, Limit: limit}}

	var (
		trades []model.Trade
		total  int
	)
	err := s.view(ctx, func(tx storage.Tx) error {
		var err error
		if trades, err = tx.RecentTrades(ctx, (page-1)*limit, limit); err != nil {
			return err
		}
		total, err = tx.CountTrades(ctx)
		return err
	})
	if err != nil {
		return fail("trades_page", def, err)
	}

	return ok(TradesPage{
		Trades: toViews(trades),
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

// RecentTradesBrief returns compact trade rows, or demo rows while the store
// has no trades or cannot be read.
func (s *Service) RecentTradesBrief(ctx context.Context, limit int) Result[[]model.TradeBrief] {
	if limit <= 0 {
		limit = 10
	}
	limit = min(limit, MaxTradesLimit)

	var trades []model.Trade
	err := s.view(ctx, func(tx storage.Tx) error {
		var err error
		trades, err = tx.RecentTrades(ctx, 0, limit)
		return err
	})
	if err != nil || len(trades) == 0 {
		return Result[[]model.TradeBrief]{Value: market.DemoTrades(s.now()), Err: err}
	}

	out := make([]model.TradeBrief, 0, len(trades))
	for _, t := range trades {
		v := model.TradeToView(t)
		out = append(out, model.TradeBrief{
			ID:        t.ID,
			Symbol:    t.Symbol,
			Side:      t.Side,
			Price:     t.Price,
			Quantity:  t.Quantity,
			Profit:    t.ProfitLoss,
			Timestamp: v.Timestamp,
		})
	}
	return ok(out)
}

// RecentSignals returns the newest signals first.
func (s *Service) RecentSignals(ctx context.Context, limit int) Result[[]model.SignalView] {
	if limit <= 0 {
		limit = DefaultSignalsLimit
	}
	limit = min(limit, MaxSignalsLimit)

	var signals []model.Signal
	err := s.view(ctx, func(tx storage.Tx) error {
		var err error
		signals, err = tx.RecentSignals(ctx, limit)
		return err
	})
	if err != nil {
		return fail("recent_signals", []model.SignalView{}, err)
	}

	out := make([]model.SignalView, 0, len(signals))
	for _, sig := range signals {
		out = append(out, model.SignalToView(sig))
	}
	return ok(out)
}

// StrategyPerformance groups trades closed in the last days by strategy.
// An empty strategy means all of them.
func (s *Service) StrategyPerformance(ctx context.Context, strategy string, days int) Result[StrategyReport] {
	if days <= 0 {
		days = DefaultPeriodDays
	}
	days = min(days, MaxPeriodDays)
	def := StrategyReport{Performance: map[string]StrategyStats{}, PeriodDays: days}

	trades, err := s.closedTrades(ctx, storage.TradeFilter{
		Strategy:   strategy,
		ClosedFrom: s.now().Add(-time.Duration(days) * day),
	})
	if err != nil {
		return fail("strategy_performance", def, err)
	}

	groups := make(map[string][]model.Trade)
	for _, t := range trades {
		groups[t.Strategy] = append(groups[t.Strategy], t)
	}

	report := StrategyReport{Performance: make(map[string]StrategyStats, len(groups)), PeriodDays: days}
	for name, group := range groups {
		t := totals(group)
		pct := 0.0
		for _, tr := range group {
			pct += tr.ProfitLossPercent
		}
		report.Performance[name] = StrategyStats{
			TotalTrades:   t.count,
			TotalPnL:      round2(t.pnl),
			AvgPnLPercent: round2(pct / float64(t.count)),
			WinRate:       round1(WinRate(t.winning, t.count)),
			WinningTrades: t.winning,
		}
	}
	return ok(report)
}

// DailyPerformance summarises trades created and closed in the last days,
// with one row per calendar day, oldest first.
func (s *Service) DailyPerformance(ctx context.Context, days int) Result[DailyReport] {
	if days <= 0 {
		days = DefaultPeriodDays
	}
	days = min(days, MaxPeriodDays)
	now := s.now()
	today := startOfDay(now)

	daily := make([]DayStats, days)
	for i := range daily {
		daily[i].Date = today.Add(-time.Duration(days-1-i) * day).Format(time.DateOnly)
	}
	def := DailyReport{PeriodDays: days, Daily: daily}

	trades, err := s.closedTrades(ctx, storage.TradeFilter{CreatedFrom: now.Add(-time.Duration(days) * day)})
	if err != nil {
		return fail("daily_performance", def, err)
	}

	t := totals(trades)
	report := DailyReport{
		PeriodDays: days,
		Summary: PerformanceSummary{
			TotalTrades:      t.count,
			ProfitableTrades: t.winning,
			WinRate:          round1(WinRate(t.winning, t.count)),
			TotalPnL:         round2(t.pnl),
		},
		Daily: daily,
	}

	pnl := make([]float64, days)
	for _, tr := range trades {
		age := int(today.Sub(startOfDay(tr.CreatedAt.UTC())) / day)
		if age < 0 || age >= days {
			continue
		}
		idx := days - 1 - age
		daily[idx].Trades++
		pnl[idx] += tr.ProfitLoss
	}
	for i := range daily {
		daily[i].PnL = round2(pnl[i])
	}
	return ok(report)
}

// TradingStats reports totals over every closed trade. Profit figures only
// count trades with a recorded result.
func (s *Service) TradingStats(ctx context.Context) Result[TradingStats] {
	trades, err := s.closedTrades(ctx, storage.TradeFilter{})
	if err != nil {
		return fail("trading_stats", TradingStats{}, err)
	}

	t := totals(trades)
	stats := TradingStats{
		TotalTrades:      t.count,
		ProfitableTrades: t.winning,
		WinRate:          round1(WinRate(t.winning, t.count)),
	}

	var profits []float64
	for _, tr := range trades {
		if tr.ProfitLoss != 0 {
			profits = append(profits, tr.ProfitLoss)
		}
	}
	if len(profits) == 0 {
		return ok(stats)
	}

	sum, best, worst := 0.0, profits[0], profits[0]
	for _, p := range profits {
		sum += p
		best = max(best, p)
		worst = min(worst, p)
	}
	stats.TotalProfit = round2(sum)
	stats.AvgProfit = round2(sum / float64(len(profits)))
	stats.BestTrade = round2(best)
	stats.WorstTrade = round2(worst)
	return ok(stats)
}

func (s *Service) closedTrades(ctx context.Context, f storage.TradeFilter) ([]model.Trade, error) {
	f.Status = model.TradeClosed
	var trades []model.Trade
	err := s.view(ctx, func(tx storage.Tx) error {
		var err error
		trades, err = tx.FindTrades(ctx, f)
		return err
	})
	return trades, err
}

func toViews(trades []model.Trade) []model.TradeView {
	out := make([]model.TradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, model.TradeToView(t))
	}
	return out
}
