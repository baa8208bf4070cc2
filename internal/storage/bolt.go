package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"bot-dashboard/internal/model"

	"go.etcd.io/bbolt"
)

const (
	tradesBucket    = "trades"    // Bucket name for trade records, keyed by created_at
	signalsBucket   = "signals"   // Bucket name for signal records, keyed by timestamp
	balancesBucket  = "balances"  // Bucket name for balance history, keyed by updated_at
	positionsBucket = "positions" // Bucket name for positions, keyed by id

	// DBFileName is the BoltDB file created inside the data path.
	DBFileName = "dashboard-data.db"
)

var allBuckets = []string{tradesBucket, signalsBucket, balancesBucket, positionsBucket}

// BoltStore keeps the bot's state in a BoltDB file.
//
// Time-series buckets use a 16-byte key: the big-endian unix-nano timestamp
// followed by the big-endian record id, so a cursor walks records in time
// order and Seek lands on a time bound directly.
type BoltStore struct {
	db *bbolt.DB // BoltDB database instance
}

// NewBolt opens (or creates) the database file under dataPath and makes sure
// every bucket exists.
func NewBolt(dataPath string) (*BoltStore, error) {
	dbPath := filepath.Join(dataPath, DBFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database. Closing twice is harmless.
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// View runs fn inside a single read-only BoltDB transaction.
func (s *BoltStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

// SaveTrade stores a trade, assigning an id when it has none. Saving a trade
// again with the same id and created_at overwrites it.
func (s *BoltStore) SaveTrade(t *model.Trade) error {
	return s.put(tradesBucket, &t.ID, func() []byte { return timeKey(t.CreatedAt, uint64(t.ID)) }, t)
}

// SaveSignal stores a strategy signal.
func (s *BoltStore) SaveSignal(sig *model.Signal) error {
	return s.put(signalsBucket, &sig.ID, func() []byte { return timeKey(sig.Timestamp, uint64(sig.ID)) }, sig)
}

// SaveBalance appends a balance observation.
func (s *BoltStore) SaveBalance(b *model.Balance) error {
	return s.put(balancesBucket, &b.ID, func() []byte { return timeKey(b.UpdatedAt, uint64(b.ID)) }, b)
}

// SavePosition stores or replaces a position.
func (s *BoltStore) SavePosition(p *model.Position) error {
	return s.put(positionsBucket, &p.ID, func() []byte { return idKey(uint64(p.ID)) }, p)
}

func (s *BoltStore) put(bucket string, id *int64, key func() []byte, record any) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))

		if *id == 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("next %s id: %w", bucket, err)
			}
			*id = int64(seq)
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", bucket, err)
		}
		return b.Put(key(), data)
	})
}

func timeKey(ts time.Time, id uint64) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], uint64(ts.UnixNano()))
	binary.BigEndian.PutUint64(key[8:], id)
	return key
}

func idKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

type boltTx struct {
	tx *bbolt.Tx
}

func (t boltTx) RecentTrades(_ context.Context, offset, limit int) ([]model.Trade, error) {
	var trades []model.Trade
	skipped := 0
	c := t.tx.Bucket([]byte(tradesBucket)).Cursor()
	for k, v := c.Last(); k != nil && len(trades) < limit; k, v = c.Prev() {
		var trade model.Trade
		if err := json.Unmarshal(v, &trade); err != nil {
			continue // Skip malformed records
		}
		if skipped < offset {
			skipped++
			continue
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func (t boltTx) CountTrades(_ context.Context) (int, error) {
	return t.tx.Bucket([]byte(tradesBucket)).Stats().KeyN, nil
}

func (t boltTx) FindTrades(_ context.Context, f TradeFilter) ([]model.Trade, error) {
	var trades []model.Trade
	c := t.tx.Bucket([]byte(tradesBucket)).Cursor()

	var k, v []byte
	if f.CreatedFrom.IsZero() {
		k, v = c.First()
	} else {
		k, v = c.Seek(timeKey(f.CreatedFrom, 0))
	}
	for ; k != nil; k, v = c.Next() {
		var trade model.Trade
		if err := json.Unmarshal(v, &trade); err != nil {
			continue
		}
		if f.Match(trade) {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

func (t boltTx) RecentSignals(_ context.Context, limit int) ([]model.Signal, error) {
	var signals []model.Signal
	c := t.tx.Bucket([]byte(signalsBucket)).Cursor()
	for k, v := c.Last(); k != nil && len(signals) < limit; k, v = c.Prev() {
		var sig model.Signal
		if err := json.Unmarshal(v, &sig); err != nil {
			continue
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

func (t boltTx) CountSignals(_ context.Context, strategy string, since time.Time) (int, error) {
	count := 0
	c := t.tx.Bucket([]byte(signalsBucket)).Cursor()
	for k, v := c.Seek(timeKey(since, 0)); k != nil; k, v = c.Next() {
		var sig model.Signal
		if err := json.Unmarshal(v, &sig); err != nil {
			continue
		}
		if strategy == "" || sig.Strategy == strategy {
			count++
		}
	}
	return count, nil
}

func (t boltTx) LastSignal(_ context.Context, strategy string) (*model.Signal, error) {
	c := t.tx.Bucket([]byte(signalsBucket)).Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		var sig model.Signal
		if err := json.Unmarshal(v, &sig); err != nil {
			continue
		}
		if strategy == "" || sig.Strategy == strategy {
			return &sig, nil
		}
	}
	return nil, nil
}

func (t boltTx) LatestBalance(_ context.Context, asset string, at time.Time) (*model.Balance, error) {
	c := t.tx.Bucket([]byte(balancesBucket)).Cursor()

	var k, v []byte
	if at.IsZero() {
		k, v = c.Last()
	} else {
		bound := timeKey(at, math.MaxUint64)
		k, v = c.Seek(bound)
		if k == nil {
			k, v = c.Last()
		} else if bytes.Compare(k, bound) > 0 {
			k, v = c.Prev()
		}
	}

	for ; k != nil; k, v = c.Prev() {
		var bal model.Balance
		if err := json.Unmarshal(v, &bal); err != nil {
			continue
		}
		if bal.Asset == asset {
			return &bal, nil
		}
	}
	return nil, nil
}

func (t boltTx) OpenPositions(_ context.Context) ([]model.Position, error) {
	var positions []model.Position
	err := t.tx.Bucket([]byte(positionsBucket)).ForEach(func(_, v []byte) error {
		var pos model.Position
		if err := json.Unmarshal(v, &pos); err != nil {
			return nil
		}
		if pos.Status == model.PositionOpen {
			positions = append(positions, pos)
		}
		return nil
	})
	return positions, err
}
