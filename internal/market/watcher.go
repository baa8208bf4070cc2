package market

import (
	"context"
	"sync"
	"time"

	"bot-dashboard/internal/model"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTickerInterval = 10 * time.Second

	// maxConcurrentFetches bounds the requests one sweep has in flight
	maxConcurrentFetches = 4
)

type tickerResult struct {
	ticker model.Ticker
	err    error
}

// Watcher polls the exchange for the configured symbols and feeds the cache.
type Watcher struct {
	cache    *Cache
	fetcher  Fetcher
	symbols  []string
	interval time.Duration
	clock    clockwork.Clock

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewWatcher creates a stopped watcher. A zero interval takes the default.
func NewWatcher(cache *Cache, fetcher Fetcher, symbols []string, interval time.Duration, clock clockwork.Clock) *Watcher {
	if interval <= 0 {
		interval = DefaultTickerInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Watcher{
		cache:    cache,
		fetcher:  fetcher,
		symbols:  append([]string(nil), symbols...),
		interval: interval,
		clock:    clock,
	}
}

// Start launches the polling goroutine; it is a no-op when already running
// or when there is nothing to poll.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running || w.fetcher == nil || len(w.symbols) == 0 {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})

	go w.run(ctx, w.stopCh, w.done)
	log.Info().Strs("symbols", w.symbols).Dur("interval", w.interval).Msg("Ticker watcher started")
}

// Stop ends polling and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.done
	w.mu.Unlock()

	<-done
	log.Info().Msg("Ticker watcher stopped")
}

func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		w.Poll(ctx)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			w.mu.Lock()
			if w.stopCh == stop {
				w.running = false
			}
			w.mu.Unlock()
			return
		case <-w.clock.After(w.interval):
		}
	}
}

// Poll fetches every symbol once and stores what succeeded. It returns the
// number of tickers updated.
func (w *Watcher) Poll(ctx context.Context) int {
	batch := make([]tickerResult, len(w.symbols))
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, symbol := range w.symbols {
		g.Go(func() error {
			t, err := w.fetcher.FetchTicker(ctx, symbol)
			batch[i] = tickerResult{ticker: t, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var updated []model.Ticker
	for i, r := range batch {
		if r.err != nil {
			log.Warn().Err(r.err).Str("symbol", w.symbols[i]).Msg("Failed to fetch ticker")
			continue
		}
		if r.ticker.Symbol == "" {
			r.ticker.Symbol = w.symbols[i]
		}
		updated = append(updated, r.ticker)
	}
	w.cache.UpdateAll(updated)
	return len(updated)
}
