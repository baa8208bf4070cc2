// Package storage provides read access to the trading bot's persisted state:
// trades, strategy signals, balance history and positions.
//
// Two backends implement Store. BoltStore keeps everything in a local BoltDB
// file and is also writable, which the seed tool and tests use. PGStore reads
// the bot's PostgreSQL database and never writes to it.
//
// Every read goes through View, which opens one short read transaction that
// is released when the callback returns.
package storage

import (
	"context"
	"time"

	"bot-dashboard/internal/model"
)

// TradeFilter narrows FindTrades. Zero fields do not filter.
type TradeFilter struct {
	Status      model.TradeStatus
	Strategy    string
	CreatedFrom time.Time
	// ClosedFrom keeps trades whose close time is at or after the bound;
	// trades without a close time are dropped when it is set.
	ClosedFrom time.Time
}

// Match reports whether the trade passes the filter.
func (f TradeFilter) Match(t model.Trade) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Strategy != "" && t.Strategy != f.Strategy {
		return false
	}
	if !f.CreatedFrom.IsZero() && t.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.ClosedFrom.IsZero() && (t.CloseTime == nil || t.CloseTime.Before(f.ClosedFrom)) {
		return false
	}
	return true
}

// Tx is a read transaction.
type Tx interface {
	// RecentTrades returns trades newest first.
	RecentTrades(ctx context.Context, offset, limit int) ([]model.Trade, error)
	CountTrades(ctx context.Context) (int, error)
	// FindTrades returns matching trades oldest first.
	FindTrades(ctx context.Context, f TradeFilter) ([]model.Trade, error)

	// RecentSignals returns signals newest first.
	RecentSignals(ctx context.Context, limit int) ([]model.Signal, error)
	CountSignals(ctx context.Context, strategy string, since time.Time) (int, error)
	// LastSignal returns nil when the strategy never emitted a signal.
	LastSignal(ctx context.Context, strategy string) (*model.Signal, error)

	// LatestBalance returns the newest balance of asset updated at or before
	// at, or the newest overall when at is zero. It returns nil when there is
	// no such row.
	LatestBalance(ctx context.Context, asset string, at time.Time) (*model.Balance, error)

	OpenPositions(ctx context.Context) ([]model.Position, error)
}

// Store is a source of read transactions.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
