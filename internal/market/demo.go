package market

import (
	"math/rand/v2"
	"time"

	"bot-dashboard/internal/model"
)

// SourceDemo marks values generated locally instead of read from the
// exchange or the store.
const SourceDemo = "demo"

// MaxDemoCandles caps one generated series.
const MaxDemoCandles = 1000

type demoQuote struct {
	price, change float64
}

var demoQuotes = map[string]demoQuote{
	"BTCUSDT": {67800, 2.5},
	"ETHUSDT": {3450, -1.2},
	"BNBUSDT": {625, 0.8},
	"SOLUSDT": {145, 5.3},
}

// DemoTicker returns a fixed ticker for the well-known symbols.
func DemoTicker(symbol string, now time.Time) (model.Ticker, bool) {
	q, ok := demoQuotes[symbol]
	if !ok {
		return model.Ticker{}, false
	}
	return model.Ticker{
		Symbol:    symbol,
		Price:     q.price,
		Bid:       q.price - 0.1,
		Ask:       q.price + 0.1,
		Volume:    125000,
		Change24h: q.change,
		Timestamp: now.UTC(),
	}, true
}

var intervalSteps = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// DemoCandles generates limit random candles ending at now, oldest first.
// Unknown intervals step by five minutes; limit is capped at MaxDemoCandles.
func DemoCandles(symbol, interval string, limit int, now time.Time, rng *rand.Rand) []model.Candle {
	if limit <= 0 {
		return []model.Candle{}
	}
	limit = min(limit, MaxDemoCandles)
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(now.UnixNano()), 0))
	}
	step, ok := intervalSteps[interval]
	if !ok {
		step = 5 * time.Minute
	}
	base := 3000.0
	if symbol == "BTCUSDT" {
		base = 50000
	}

	candles := make([]model.Candle, limit)
	for i := 0; i < limit; i++ {
		ts := now.Add(-time.Duration(limit-1-i) * step)
		open := base + spread(rng, 1000)
		closePrice := open + spread(rng, 100)
		high := max(open, closePrice) + rng.Float64()*50
		low := min(open, closePrice) - rng.Float64()*50
		candles[i] = model.Candle{
			Timestamp: ts.UnixMilli(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    100 + rng.Float64()*900,
		}
	}
	return candles
}

// spread returns a uniform value in [-width, width).
func spread(rng *rand.Rand, width float64) float64 {
	return (rng.Float64()*2 - 1) * width
}

// DemoBalance is shown when the bot manager is unreachable.
func DemoBalance() model.BalanceInfo {
	return model.BalanceInfo{
		TotalUSDT:     10000,
		AvailableUSDT: 9500,
		InPositions:   500,
		Change24h:     2.5,
		Source:        SourceDemo,
	}
}

// DemoPositions is shown when the bot manager is unreachable.
func DemoPositions() model.PositionsInfo {
	return model.PositionsInfo{Positions: []model.PositionView{}, Source: SourceDemo}
}

// DemoTrades is shown by the recent trades widget while the store is empty.
func DemoTrades(now time.Time) []model.TradeBrief {
	first := now.Add(-time.Hour).UTC()
	second := now.Add(-2 * time.Hour).UTC()
	return []model.TradeBrief{
		{ID: 1, Symbol: "BTCUSDT", Side: model.SideBuy, Price: 67500, Quantity: 0.01, Profit: 25.5, Timestamp: &first},
		{ID: 2, Symbol: "ETHUSDT", Side: model.SideSell, Price: 3450, Quantity: 0.1, Profit: -12.3, Timestamp: &second},
	}
}
