package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bot-dashboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBolt(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewBolt(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewBolt(tempDir)
	require.NoError(t, err)
	defer store.Close()

	// Check if database file was created
	_, err = os.Stat(filepath.Join(tempDir, DBFileName))
	assert.NoError(t, err)
}

func TestNewBolt_InvalidPath(t *testing.T) {
	_, err := NewBolt(filepath.Join(t.TempDir(), "missing", "dir"))
	assert.Error(t, err)
}

func TestBoltStore_CloseTwice(t *testing.T) {
	store, err := NewBolt(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestBoltStore_ViewCancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.View(ctx, func(Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestBoltStore_TxContract(t *testing.T) {
	testTxContract(t, func(t *testing.T) (Store, rowWriter) {
		store := newTestStore(t)
		return store, store
	})
}

func TestBoltStore_SaveAssignsSequentialIDs(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		trade := &model.Trade{Symbol: "BTCUSDT", Status: model.TradeOpen, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.SaveTrade(trade))
		assert.Equal(t, int64(i+1), trade.ID)
	}

	explicit := &model.Signal{ID: 42, Symbol: "BTCUSDT", Action: model.ActionBuy, Timestamp: base}
	require.NoError(t, store.SaveSignal(explicit))
	assert.Equal(t, int64(42), explicit.ID)
}

func TestBoltStore_SavePositionReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := &model.Position{Symbol: "BTCUSDT", Side: model.SideBuy, Quantity: 0.1, EntryPrice: 50000,
		Status: model.PositionOpen}
	require.NoError(t, store.SavePosition(pos))

	pos.Quantity = 0.2
	require.NoError(t, store.SavePosition(pos))

	err := store.View(ctx, func(tx Tx) error {
		positions, err := tx.OpenPositions(ctx)
		require.NoError(t, err)
		require.Len(t, positions, 1)
		assert.Equal(t, 0.2, positions[0].Quantity)
		return nil
	})
	require.NoError(t, err)

	pos.Status = model.PositionClosed
	require.NoError(t, store.SavePosition(pos))
	err = store.View(ctx, func(tx Tx) error {
		positions, err := tx.OpenPositions(ctx)
		require.NoError(t, err)
		assert.Empty(t, positions)
		return nil
	})
	require.NoError(t, err)
}

func TestTradeFilter_Match(t *testing.T) {
	now := time.Now()
	trade := model.Trade{Status: model.TradeClosed, Strategy: "rsi", CreatedAt: now}

	assert.True(t, TradeFilter{}.Match(trade))
	assert.True(t, TradeFilter{Status: model.TradeClosed}.Match(trade))
	assert.False(t, TradeFilter{Status: model.TradeOpen}.Match(trade))
	assert.False(t, TradeFilter{Strategy: "ema_cross"}.Match(trade))
	assert.False(t, TradeFilter{CreatedFrom: now.Add(time.Second)}.Match(trade))
	assert.False(t, TradeFilter{ClosedFrom: now}.Match(trade), "no close time")
}
