// Package market keeps the realtime ticker cache that feeds the market
// overview, the positions view and the ticker_update push, plus the demo
// market data served when no exchange is configured.
package market

import (
	"context"
	"sync"

	"bot-dashboard/internal/model"

	"github.com/jonboulle/clockwork"
)

// Publisher receives the full ticker set after every update.
type Publisher interface {
	PublishTickers(tickers model.TickerSet)
}

// Fetcher is the exchange call the watcher polls.
type Fetcher interface {
	FetchTicker(ctx context.Context, symbol string) (model.Ticker, error)
}

// Cache holds the latest ticker per symbol.
type Cache struct {
	mu        sync.RWMutex
	tickers   map[string]model.Ticker
	publisher Publisher
	clock     clockwork.Clock
}

// NewCache creates an empty cache. publisher may be nil.
func NewCache(publisher Publisher, clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		tickers:   make(map[string]model.Ticker),
		publisher: publisher,
		clock:     clock,
	}
}

// Update stores t under its symbol and publishes every cached ticker. A
// missing timestamp is set to now.
func (c *Cache) Update(t model.Ticker) {
	c.UpdateAll([]model.Ticker{t})
}

// UpdateAll stores a batch of tickers and publishes the result once.
func (c *Cache) UpdateAll(tickers []model.Ticker) {
	now := c.clock.Now().UTC()
	stored := 0

	c.mu.Lock()
	for _, t := range tickers {
		if t.Symbol == "" {
			continue
		}
		if t.Timestamp.IsZero() {
			t.Timestamp = now
		}
		c.tickers[t.Symbol] = t
		stored++
	}
	c.mu.Unlock()

	if stored > 0 && c.publisher != nil {
		c.publisher.PublishTickers(model.TickerSet{Tickers: c.All()})
	}
}

// Get returns the cached ticker of symbol.
func (c *Cache) Get(symbol string) (model.Ticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tickers[symbol]
	return t, ok
}

// Price returns the cached last price of symbol, or 0.
func (c *Cache) Price(symbol string) float64 {
	t, _ := c.Get(symbol)
	return t.Price
}

// All returns a copy of every cached ticker.
func (c *Cache) All() map[string]model.Ticker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]model.Ticker, len(c.tickers))
	for k, v := range c.tickers {
		out[k] = v
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tickers)
}
