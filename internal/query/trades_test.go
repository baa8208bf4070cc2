package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bot-dashboard/internal/market"
	"bot-dashboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentTrades(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		saveTrade(t, store, model.Trade{Symbol: fmt.Sprintf("T%d", i), Status: model.TradeOpen, CreatedAt: testNow.Add(time.Duration(i) * time.Minute)})
	}
	svc := newTestService(t, store, Config{})

	res := svc.RecentTrades(context.Background(), 2)
	require.NoError(t, res.Err)
	require.Len(t, res.Value, 2)
	assert.Equal(t, "T4", res.Value[0].Symbol)
	assert.Equal(t, "T3", res.Value[1].Symbol)

	res = svc.RecentTrades(context.Background(), 0)
	assert.Len(t, res.Value, 5)

	res = newTestService(t, failingStore{}, Config{}).RecentTrades(context.Background(), 10)
	assert.Error(t, res.Err)
	assert.NotNil(t, res.Value)
}

func TestTradesPage(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 45; i++ {
		saveTrade(t, store, model.Trade{Symbol: "BTCUSDT", Status: model.TradeOpen, CreatedAt: testNow.Add(time.Duration(i) * time.Second)})
	}
	svc := newTestService(t, store, Config{})

	res := svc.TradesPage(context.Background(), 3, 20)
	require.NoError(t, res.Err)
	assert.Len(t, res.Value.Trades, 5)
	assert.Equal(t, Pagination{Page: 3, Limit: 20, Total: 45, Pages: 3}, res.Value.Pagination)

	res = svc.TradesPage(context.Background(), 0, 0)
	assert.Equal(t, 1, res.Value.Pagination.Page)
	assert.Equal(t, 20, res.Value.Pagination.Limit)

	res = newTestService(t, newTestStore(t), Config{}).TradesPage(context.Background(), 1, 20)
	assert.Equal(t, 0, res.Value.Pagination.Pages)
	assert.NotNil(t, res.Value.Trades)

	const huge = int(^uint(0) >> 1)
	res = svc.TradesPage(context.Background(), huge, huge)
	require.NoError(t, res.Err)
	assert.Equal(t, Pagination{Page: MaxPage, Limit: MaxPageLimit, Total: 45, Pages: 1}, res.Value.Pagination)
	assert.Empty(t, res.Value.Trades)
}

func TestRecentTradesBrief(t *testing.T) {
	store := newTestStore(t)
	svc := newTestService(t, store, Config{})

	res := svc.RecentTradesBrief(context.Background(), 10)
	require.NoError(t, res.Err)
	assert.Equal(t, market.DemoTrades(testNow), res.Value)

	saveTrade(t, store, closedTrade("momentum", 12.5, 1, testNow))
	res = svc.RecentTradesBrief(context.Background(), 10)
	require.Len(t, res.Value, 1)
	assert.Equal(t, 12.5, res.Value[0].Profit)
	assert.Equal(t, 0.1, res.Value[0].Quantity)

	res = newTestService(t, failingStore{}, Config{}).RecentTradesBrief(context.Background(), 10)
	assert.Error(t, res.Err)
	assert.Len(t, res.Value, 2)
}

func TestRecentSignals(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 25; i++ {
		require.NoError(t, store.SaveSignal(&model.Signal{Symbol: "BTCUSDT", Action: model.ActionBuy, Strategy: "momentum",
			Confidence: float64(i) / 25, Timestamp: testNow.Add(time.Duration(i) * time.Minute)}))
	}

	res := newTestService(t, store, Config{}).RecentSignals(context.Background(), 0)
	require.NoError(t, res.Err)
	require.Len(t, res.Value, DefaultSignalsLimit)
	assert.Equal(t, testNow.Add(24*time.Minute), res.Value[0].Timestamp.UTC())
}

func TestStrategyPerformance(t *testing.T) {
	store := newTestStore(t)
	saveTrade(t, store, closedTrade("momentum", 10, 2, testNow.Add(-24*time.Hour)))
	saveTrade(t, store, closedTrade("momentum", -4, -1, testNow.Add(-48*time.Hour)))
	saveTrade(t, store, closedTrade("swing", 7.556, 1.5, testNow.Add(-2*time.Hour)))
	saveTrade(t, store, closedTrade("swing", 50, 5, testNow.Add(-10*24*time.Hour)))
	saveTrade(t, store, model.Trade{Strategy: "swing", Status: model.TradeOpen, CreatedAt: testNow})
	svc := newTestService(t, store, Config{})

	res := svc.StrategyPerformance(context.Background(), "", 0)
	require.NoError(t, res.Err)
	assert.Equal(t, 7, res.Value.PeriodDays)
	require.Len(t, res.Value.Performance, 2)
	assert.Equal(t, StrategyStats{TotalTrades: 2, TotalPnL: 6, AvgPnLPercent: 0.5, WinRate: 50, WinningTrades: 1}, res.Value.Performance["momentum"])
	assert.Equal(t, StrategyStats{TotalTrades: 1, TotalPnL: 7.56, AvgPnLPercent: 1.5, WinRate: 100, WinningTrades: 1}, res.Value.Performance["swing"])

	res = svc.StrategyPerformance(context.Background(), "swing", 30)
	require.Len(t, res.Value.Performance, 1)
	assert.Equal(t, 2, res.Value.Performance["swing"].TotalTrades)
	assert.Equal(t, 30, res.Value.PeriodDays)
}

func TestDailyPerformance(t *testing.T) {
	store := newTestStore(t)
	saveTrade(t, store, closedTrade("momentum", 10, 1, testNow.Add(-time.Hour)))
	saveTrade(t, store, closedTrade("momentum", -3, 1, testNow.Add(-2*time.Hour)))
	saveTrade(t, store, closedTrade("momentum", 5, 1, testNow.Add(-48*time.Hour)))
	saveTrade(t, store, closedTrade("momentum", 99, 1, testNow.Add(-30*24*time.Hour)))

	res := newTestService(t, store, Config{}).DailyPerformance(context.Background(), 3)
	require.NoError(t, res.Err)
	assert.Equal(t, PerformanceSummary{TotalTrades: 3, ProfitableTrades: 2, WinRate: 66.7, TotalPnL: 12}, res.Value.Summary)
	assert.Equal(t, []DayStats{
		{Date: "2025-02-27", Trades: 1, PnL: 5},
		{Date: "2025-02-28", Trades: 0, PnL: 0},
		{Date: "2025-03-01", Trades: 2, PnL: 7},
	}, res.Value.Daily)
}

func TestDailyPerformance_StoreError(t *testing.T) {
	res := newTestService(t, failingStore{}, Config{}).DailyPerformance(context.Background(), 0)
	assert.Error(t, res.Err)
	assert.Len(t, res.Value.Daily, DefaultPeriodDays)
	assert.Equal(t, "2025-03-01", res.Value.Daily[DefaultPeriodDays-1].Date)
}

func TestDailyPerformance_ClampsDays(t *testing.T) {
	res := newTestService(t, newTestStore(t), Config{}).DailyPerformance(context.Background(), 1_000_000_000_000)
	require.NoError(t, res.Err)
	assert.Equal(t, MaxPeriodDays, res.Value.PeriodDays)
	assert.Len(t, res.Value.Daily, MaxPeriodDays)
	assert.Equal(t, "2025-03-01", res.Value.Daily[MaxPeriodDays-1].Date)

	perf := newTestService(t, newTestStore(t), Config{}).StrategyPerformance(context.Background(), "", 1_000_000_000_000)
	require.NoError(t, perf.Err)
	assert.Equal(t, MaxPeriodDays, perf.Value.PeriodDays)
}

func TestTradingStats(t *testing.T) {
	store := newTestStore(t)
	saveTrade(t, store, closedTrade("a", 30, 1, testNow))
	saveTrade(t, store, closedTrade("a", -10, 1, testNow))
	saveTrade(t, store, closedTrade("a", 0, 0, testNow))
	saveTrade(t, store, model.Trade{ProfitLoss: 500, Status: model.TradeOpen, CreatedAt: testNow})

	res := newTestService(t, store, Config{}).TradingStats(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, TradingStats{
		TotalTrades:      3,
		ProfitableTrades: 1,
		WinRate:          33.3,
		TotalProfit:      20,
		AvgProfit:        10,
		BestTrade:        30,
		WorstTrade:       -10,
	}, res.Value)

	empty := newTestService(t, newTestStore(t), Config{}).TradingStats(context.Background())
	assert.Equal(t, TradingStats{}, empty.Value)
}
