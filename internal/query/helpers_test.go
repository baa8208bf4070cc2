package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bot-dashboard/internal/model"
	"bot-dashboard/internal/storage"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var (
	testNow     = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	errUpstream = errors.New("upstream down")
)

type fakeExchange struct {
	mu         sync.Mutex
	prices     map[string]float64
	candles    []model.Candle
	balances   map[string]model.AssetBalance
	err        error
	tickerHits int
}

func (e *fakeExchange) FetchTicker(_ context.Context, symbol string) (model.Ticker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickerHits++
	if e.err != nil {
		return model.Ticker{}, e.err
	}
	price, ok := e.prices[symbol]
	if !ok {
		return model.Ticker{}, errors.New("unknown symbol")
	}
	return model.Ticker{Symbol: symbol, Price: price}, nil
}

func (e *fakeExchange) FetchOHLCV(context.Context, string, string, int) ([]model.Candle, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.candles, nil
}

func (e *fakeExchange) FetchBalance(context.Context) (map[string]model.AssetBalance, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.balances, nil
}

type fakeManager struct {
	status    model.BotStatus
	balance   model.BalanceInfo
	positions model.PositionsInfo
	err       error
}

func (m *fakeManager) Status(context.Context) (model.BotStatus, error) {
	return m.status, m.err
}

func (m *fakeManager) BalanceInfo(context.Context) (model.BalanceInfo, error) {
	return m.balance, m.err
}

func (m *fakeManager) PositionsInfo(context.Context) (model.PositionsInfo, error) {
	return m.positions, m.err
}

func (m *fakeManager) Start(context.Context) (bool, string, error) {
	return true, "started", m.err
}

func (m *fakeManager) Stop(context.Context) (bool, string, error) {
	return true, "stopped", m.err
}

type fakeTickers map[string]model.Ticker

func (f fakeTickers) Get(symbol string) (model.Ticker, bool) {
	t, ok := f[symbol]
	return t, ok
}

func (f fakeTickers) All() map[string]model.Ticker {
	return f
}

// failingStore fails every read.
type failingStore struct{}

func (failingStore) View(context.Context, func(storage.Tx) error) error { return errUpstream }
func (failingStore) Close() error                                       { return nil }

func newTestStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	store, err := storage.NewBolt(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestService(t *testing.T, store storage.Store, cfg Config, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(clockwork.NewFakeClockAt(testNow))}, opts...)
	return New(store, cfg, opts...)
}

func saveTrade(t *testing.T, store *storage.BoltStore, tr model.Trade) {
	t.Helper()
	require.NoError(t, store.SaveTrade(&tr))
}

func closedTrade(strategy string, pnl, pct float64, created time.Time) model.Trade {
	closed := created.Add(30 * time.Minute)
	return model.Trade{
		Symbol:            "BTCUSDT",
		Side:              model.SideBuy,
		Price:             50000,
		Quantity:          0.1,
		ProfitLoss:        pnl,
		ProfitLossPercent: pct,
		Strategy:          strategy,
		Status:            model.TradeClosed,
		CreatedAt:         created,
		CloseTime:         &closed,
	}
}
