package storage

import (
	"context"
	"testing"
	"time"

	"bot-dashboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowWriter inserts fixture rows into a backend. BoltStore is one; the
// PostgreSQL tests insert with plain SQL.
type rowWriter interface {
	SaveTrade(t *model.Trade) error
	SaveSignal(s *model.Signal) error
	SaveBalance(b *model.Balance) error
	SavePosition(p *model.Position) error
}

// openFunc returns an empty store and a writer for its rows.
type openFunc func(t *testing.T) (Store, rowWriter)

// testTxContract runs the read cases every Store backend must pass.
func testTxContract(t *testing.T, open openFunc) {
	t.Run("Trades", func(t *testing.T) { testContractTrades(t, open) })
	t.Run("FindTradesFilter", func(t *testing.T) { testContractFindTrades(t, open) })
	t.Run("Signals", func(t *testing.T) { testContractSignals(t, open) })
	t.Run("LatestBalance", func(t *testing.T) { testContractLatestBalance(t, open) })
	t.Run("OpenPositions", func(t *testing.T) { testContractOpenPositions(t, open) })
	t.Run("Empty", func(t *testing.T) { testContractEmpty(t, open) })
}

func testContractTrades(t *testing.T, open openFunc) {
	store, w := open(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]int64, 5)
	for i := range ids {
		trade := &model.Trade{
			Symbol:     "BTCUSDT",
			Side:       model.SideBuy,
			Price:      50000 + float64(i),
			Quantity:   0.01,
			ProfitLoss: float64(i) - 2,
			Strategy:   "ema_cross",
			Status:     model.TradeClosed,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, w.SaveTrade(trade))
		ids[i] = trade.ID
	}

	err := store.View(ctx, func(tx Tx) error {
		count, err := tx.CountTrades(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, count)

		recent, err := tx.RecentTrades(ctx, 0, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, []int64{ids[4], ids[3], ids[2]}, []int64{recent[0].ID, recent[1].ID, recent[2].ID})
		assert.Equal(t, 50004.0, recent[0].Price)
		assert.Equal(t, 2.0, recent[0].ProfitLoss)
		assert.Equal(t, model.SideBuy, recent[0].Side)
		assert.Equal(t, model.TradeClosed, recent[0].Status)
		assert.True(t, recent[0].CreatedAt.Equal(base.Add(4*time.Minute)))
		assert.Nil(t, recent[0].CloseTime)

		page, err := tx.RecentTrades(ctx, 3, 3)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[1], page[0].ID)
		assert.Equal(t, ids[0], page[1].ID)

		beyond, err := tx.RecentTrades(ctx, 10, 3)
		require.NoError(t, err)
		assert.Empty(t, beyond)

		found, err := tx.FindTrades(ctx, TradeFilter{CreatedFrom: base.Add(2 * time.Minute)})
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, ids[2], found[0].ID, "oldest first")

		all, err := tx.FindTrades(ctx, TradeFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 5)
		return nil
	})
	require.NoError(t, err)
}

func testContractFindTrades(t *testing.T, open openFunc) {
	store, w := open(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	closedAt := now.Add(-time.Hour)
	oldClose := now.Add(-48 * time.Hour)
	bound := now.Add(-24 * time.Hour)

	trades := []*model.Trade{
		{Symbol: "BTCUSDT", Side: model.SideBuy, Strategy: "ema_cross", Status: model.TradeClosed, CreatedAt: now.Add(-2 * time.Hour), CloseTime: &closedAt},
		{Symbol: "ETHUSDT", Side: model.SideSell, Strategy: "rsi", Status: model.TradeClosed, CreatedAt: now.Add(-3 * time.Hour), CloseTime: &closedAt},
		{Symbol: "BTCUSDT", Side: model.SideBuy, Strategy: "ema_cross", Status: model.TradeOpen, CreatedAt: now.Add(-30 * time.Minute)},
		{Symbol: "BTCUSDT", Side: model.SideBuy, Strategy: "ema_cross", Status: model.TradeClosed, CreatedAt: now.Add(-72 * time.Hour), CloseTime: &oldClose},
		{Symbol: "BTCUSDT", Side: model.SideBuy, Strategy: "ema_cross", Status: model.TradeClosed, CreatedAt: now.Add(-25 * time.Hour), CloseTime: &bound},
	}
	for _, trade := range trades {
		require.NoError(t, w.SaveTrade(trade))
	}

	err := store.View(ctx, func(tx Tx) error {
		found, err := tx.FindTrades(ctx, TradeFilter{
			Status:     model.TradeClosed,
			Strategy:   "ema_cross",
			ClosedFrom: bound,
		})
		require.NoError(t, err)
		require.Len(t, found, 2, "close time at the bound is included")
		assert.Equal(t, trades[4].ID, found[0].ID)
		assert.Equal(t, trades[0].ID, found[1].ID)
		require.NotNil(t, found[1].CloseTime)
		assert.True(t, found[1].CloseTime.Equal(closedAt))

		openTrades, err := tx.FindTrades(ctx, TradeFilter{Status: model.TradeOpen})
		require.NoError(t, err)
		require.Len(t, openTrades, 1)
		assert.Equal(t, trades[2].ID, openTrades[0].ID)

		rsi, err := tx.FindTrades(ctx, TradeFilter{Strategy: "rsi"})
		require.NoError(t, err)
		require.Len(t, rsi, 1)
		assert.Equal(t, model.SideSell, rsi[0].Side)
		return nil
	})
	require.NoError(t, err)
}

func testContractSignals(t *testing.T, open openFunc) {
	store, w := open(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	signals := []*model.Signal{
		{Symbol: "BTCUSDT", Action: model.ActionBuy, Strategy: "ema_cross", Timestamp: base.Add(-48 * time.Hour)},
		{Symbol: "BTCUSDT", Action: model.ActionSell, Strategy: "ema_cross", Confidence: 0.8, Price: 50100, Timestamp: base.Add(-time.Hour)},
		{Symbol: "ETHUSDT", Action: model.ActionHold, Strategy: "rsi", Timestamp: base.Add(-30 * time.Minute),
			Metadata: map[string]any{"rsi": 51.5}},
	}
	for _, sig := range signals {
		require.NoError(t, w.SaveSignal(sig))
	}

	err := store.View(ctx, func(tx Tx) error {
		n, err := tx.CountSignals(ctx, "ema_cross", base.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		all, err := tx.CountSignals(ctx, "", base.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, all)

		last, err := tx.LastSignal(ctx, "ema_cross")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, model.ActionSell, last.Action)
		assert.Equal(t, 0.8, last.Confidence)
		assert.Equal(t, 50100.0, last.Price)
		assert.Nil(t, last.Metadata)

		none, err := tx.LastSignal(ctx, "macd")
		require.NoError(t, err)
		assert.Nil(t, none)

		recent, err := tx.RecentSignals(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, "rsi", recent[0].Strategy)
		assert.Equal(t, 51.5, recent[0].Metadata["rsi"])
		assert.Equal(t, signals[0].ID, recent[2].ID)

		limited, err := tx.RecentSignals(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
		return nil
	})
	require.NoError(t, err)
}

func testContractLatestBalance(t *testing.T, open openFunc) {
	store, w := open(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	balances := []*model.Balance{
		{Asset: "USDT", Total: 900, Free: 800, Locked: 100, UpdatedAt: now.Add(-30 * time.Hour)},
		{Asset: "USDT", Total: 1000, UpdatedAt: now.Add(-25 * time.Hour)},
		{Asset: "BTC", Total: 0.5, UpdatedAt: now.Add(-2 * time.Hour)},
		{Asset: "USDT", Total: 1100, UpdatedAt: now.Add(-time.Hour)},
	}
	for _, b := range balances {
		require.NoError(t, w.SaveBalance(b))
	}

	err := store.View(ctx, func(tx Tx) error {
		latest, err := tx.LatestBalance(ctx, "USDT", time.Time{})
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 1100.0, latest.Total)

		dayAgo, err := tx.LatestBalance(ctx, "USDT", now.Add(-24*time.Hour))
		require.NoError(t, err)
		require.NotNil(t, dayAgo)
		assert.Equal(t, 1000.0, dayAgo.Total)

		exact, err := tx.LatestBalance(ctx, "USDT", now.Add(-30*time.Hour))
		require.NoError(t, err)
		require.NotNil(t, exact, "a row exactly at the bound counts")
		assert.Equal(t, 900.0, exact.Total)
		assert.Equal(t, 800.0, exact.Free)
		assert.Equal(t, 100.0, exact.Locked)

		tooOld, err := tx.LatestBalance(ctx, "USDT", now.Add(-31*time.Hour))
		require.NoError(t, err)
		assert.Nil(t, tooOld)

		missing, err := tx.LatestBalance(ctx, "ETH", time.Time{})
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func testContractOpenPositions(t *testing.T, open openFunc) {
	store, w := open(t)
	ctx := context.Background()
	stop := 48000.0
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	openPos := &model.Position{Symbol: "BTCUSDT", Side: model.SideBuy, Quantity: 0.1, EntryPrice: 50000,
		StopLoss: &stop, Strategy: "ema_cross", Status: model.PositionOpen, CreatedAt: created}
	closed := &model.Position{Symbol: "ETHUSDT", Side: model.SideSell, Quantity: 1, EntryPrice: 3000,
		Status: model.PositionClosed, CreatedAt: created}
	require.NoError(t, w.SavePosition(openPos))
	require.NoError(t, w.SavePosition(closed))

	err := store.View(ctx, func(tx Tx) error {
		positions, err := tx.OpenPositions(ctx)
		require.NoError(t, err)
		require.Len(t, positions, 1)
		p := positions[0]
		assert.Equal(t, openPos.ID, p.ID)
		assert.Equal(t, 0.1, p.Quantity)
		assert.Equal(t, model.SideBuy, p.Side)
		assert.Equal(t, "ema_cross", p.Strategy)
		require.NotNil(t, p.StopLoss)
		assert.Equal(t, stop, *p.StopLoss)
		assert.Nil(t, p.TakeProfit)
		return nil
	})
	require.NoError(t, err)
}

func testContractEmpty(t *testing.T, open openFunc) {
	store, _ := open(t)
	ctx := context.Background()

	err := store.View(ctx, func(tx Tx) error {
		n, err := tx.CountTrades(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		trades, err := tx.RecentTrades(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, trades)

		last, err := tx.LastSignal(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, last)

		positions, err := tx.OpenPositions(ctx)
		require.NoError(t, err)
		assert.Empty(t, positions)
		return nil
	})
	require.NoError(t, err)
}
