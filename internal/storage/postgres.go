package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bot-dashboard/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PGStore reads the bot's PostgreSQL tables (trades, signals, balances,
// positions). Every View runs in a read-only transaction.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPG connects to dsn and verifies the connection.
func NewPG(ctx context.Context, dsn string, maxConns int) (*PGStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PGStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// View runs fn in a read-only, read-committed transaction and rolls it back
// afterwards; nothing is ever written.
func (s *PGStore) View(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Debug().Err(rbErr).Msg("Read transaction rollback failed")
		}
	}()

	if err = fn(pgTx{tx: tx}); err != nil {
		return err
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

const tradeColumns = `id, symbol, side, price, quantity,
	COALESCE(profit_loss, 0), COALESCE(profit_loss_percent, 0),
	COALESCE(strategy, ''), status, created_at, close_time`

func scanTrade(row pgx.CollectableRow) (model.Trade, error) {
	var (
		t            model.Trade
		side, status string
	)
	err := row.Scan(&t.ID, &t.Symbol, &side, &t.Price, &t.Quantity,
		&t.ProfitLoss, &t.ProfitLossPercent, &t.Strategy, &status, &t.CreatedAt, &t.CloseTime)
	t.Side = model.Side(side)
	t.Status = model.TradeStatus(status)
	return t, err
}

const signalColumns = `id, symbol, action, COALESCE(strategy, ''),
	COALESCE(confidence, 0), COALESCE(price, 0), metadata, timestamp`

func scanSignal(row pgx.CollectableRow) (model.Signal, error) {
	var (
		s      model.Signal
		action string
		meta   []byte
	)
	if err := row.Scan(&s.ID, &s.Symbol, &action, &s.Strategy,
		&s.Confidence, &s.Price, &meta, &s.Timestamp); err != nil {
		return s, err
	}
	s.Action = model.SignalAction(action)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &s.Metadata); err != nil {
			return s, fmt.Errorf("decode signal %d metadata: %w", s.ID, err)
		}
	}
	return s, nil
}

func (t pgTx) RecentTrades(ctx context.Context, offset, limit int) ([]model.Trade, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+tradeColumns+` FROM trades ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	return pgx.CollectRows(rows, scanTrade)
}

func (t pgTx) CountTrades(ctx context.Context) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return n, nil
}

func (t pgTx) FindTrades(ctx context.Context, f TradeFilter) ([]model.Trade, error) {
	var created, closed *time.Time
	if !f.CreatedFrom.IsZero() {
		created = &f.CreatedFrom
	}
	if !f.ClosedFrom.IsZero() {
		closed = &f.ClosedFrom
	}

	rows, err := t.tx.Query(ctx, `SELECT `+tradeColumns+` FROM trades
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR strategy = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR close_time >= $4)
		ORDER BY created_at, id`,
		string(f.Status), f.Strategy, created, closed)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return pgx.CollectRows(rows, scanTrade)
}

func (t pgTx) RecentSignals(ctx context.Context, limit int) ([]model.Signal, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+signalColumns+` FROM signals ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent signals: %w", err)
	}
	return pgx.CollectRows(rows, scanSignal)
}

func (t pgTx) CountSignals(ctx context.Context, strategy string, since time.Time) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT count(*) FROM signals WHERE ($1 = '' OR strategy = $1) AND timestamp >= $2`,
		strategy, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return n, nil
}

func (t pgTx) LastSignal(ctx context.Context, strategy string) (*model.Signal, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+signalColumns+` FROM signals
		WHERE ($1 = '' OR strategy = $1) ORDER BY timestamp DESC, id DESC LIMIT 1`, strategy)
	if err != nil {
		return nil, fmt.Errorf("query last signal: %w", err)
	}
	sig, err := pgx.CollectOneRow(rows, scanSignal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan last signal: %w", err)
	}
	return &sig, nil
}

func (t pgTx) LatestBalance(ctx context.Context, asset string, at time.Time) (*model.Balance, error) {
	var bound *time.Time
	if !at.IsZero() {
		bound = &at
	}

	var b model.Balance
	err := t.tx.QueryRow(ctx, `SELECT id, asset, COALESCE(total, 0), COALESCE(free, 0),
			COALESCE(locked, 0), updated_at
		FROM balances
		WHERE asset = $1 AND ($2::timestamptz IS NULL OR updated_at <= $2)
		ORDER BY updated_at DESC, id DESC LIMIT 1`, asset, bound).
		Scan(&b.ID, &b.Asset, &b.Total, &b.Free, &b.Locked, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest balance: %w", err)
	}
	return &b, nil
}

func (t pgTx) OpenPositions(ctx context.Context) ([]model.Position, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, symbol, side, quantity, entry_price,
			stop_loss, take_profit, COALESCE(strategy, ''), status, created_at
		FROM positions WHERE status = $1 ORDER BY created_at, id`, string(model.PositionOpen))
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Position, error) {
		var (
			p            model.Position
			side, status string
		)
		err := row.Scan(&p.ID, &p.Symbol, &side, &p.Quantity, &p.EntryPrice,
			&p.StopLoss, &p.TakeProfit, &p.Strategy, &status, &p.CreatedAt)
		p.Side = model.Side(side)
		p.Status = model.PositionStatus(status)
		return p, err
	})
}
