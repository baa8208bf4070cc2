package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRefreshInterval = 5 * time.Second
	DefaultRefreshBackoff  = 10 * time.Second
)

// Source is the part of the bot manager the refresh loop polls.
type Source interface {
	Status(ctx context.Context) (model.BotStatus, error)
	BalanceInfo(ctx context.Context) (model.BalanceInfo, error)
	PositionsInfo(ctx context.Context) (model.PositionsInfo, error)
}

// RefresherConfig holds the loop timing. Zero durations take the defaults.
type RefresherConfig struct {
	Interval time.Duration
	Backoff  time.Duration
	Clock    clockwork.Clock
	Metrics  *metrics.MetricsWrapper
}

// Refresher periodically broadcasts the bot's status, balance and positions.
// A failed tick is logged and the next wait uses the backoff interval; the
// loop only ends through Stop or context cancellation.
type Refresher struct {
	hub      *Hub
	source   Source
	interval time.Duration
	backoff  time.Duration
	clock    clockwork.Clock
	metrics  *metrics.MetricsWrapper

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewRefresher creates a stopped loop. source may be nil, in which case every
// tick does nothing.
func NewRefresher(hub *Hub, source Source, cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultRefreshBackoff
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	r := &Refresher{
		hub:      hub,
		source:   source,
		interval: cfg.Interval,
		backoff:  cfg.Backoff,
		clock:    cfg.Clock,
		metrics:  cfg.Metrics,
	}
	hub.attachLoop(r)
	return r
}

// Start launches the loop. Calling Start on a running loop does nothing.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})

	go r.run(ctx, r.stopCh, r.done)
	log.Info().
		Dur("interval", r.interval).
		Dur("backoff", r.backoff).
		Msg("Refresh loop started")
}

// Stop ends the loop and waits for it to exit. A tick already in progress
// runs to completion first.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.done
	r.mu.Unlock()

	<-done
	log.Info().Msg("Refresh loop stopped")
}

// Running reports whether the loop is started.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Refresher) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		wait := r.interval
		if err := r.Tick(ctx); err != nil {
			r.metrics.RefreshErrors().Inc()
			log.Error().Err(err).Dur("retry_in", r.backoff).Msg("Refresh tick failed")
			wait = r.backoff
		}

		select {
		case <-stop:
			return
		case <-ctx.Done():
			r.mu.Lock()
			if r.stopCh == stop {
				r.running = false
			}
			r.mu.Unlock()
			return
		case <-r.clock.After(wait):
		}
	}
}

// Tick polls the bot manager once and broadcasts the results. Empty balance
// and position results are not broadcast. A panic in the source is returned
// as an error.
func (r *Refresher) Tick(ctx context.Context) (err error) {
	if r.source == nil {
		return nil
	}

	start := r.clock.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("refresh tick panicked: %v", p)
		}
		r.metrics.RefreshTicks().Inc()
		r.metrics.RefreshDuration().Observe(r.clock.Since(start).Seconds())
	}()

	status, err := r.source.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetch bot status: %w", err)
	}
	r.hub.PublishStatus(status)

	balance, err := r.source.BalanceInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}
	if !balance.IsZero() {
		r.hub.PublishBalance(balance)
	}

	positions, err := r.source.PositionsInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}
	if !positions.IsZero() {
		r.hub.PublishPositions(positions)
	}

	return nil
}
