package realtime

import (
	"slices"
	"sync"

	"bot-dashboard/internal/model"

	"github.com/rs/zerolog/log"
)

// MaxCachedTrades bounds the trades kept for initial sync.
const MaxCachedTrades = 100

// SnapshotData is the initial-sync payload. Absent values are null; the lists
// are never null.
type SnapshotData struct {
	BotStatus *model.BotStatus     `json:"bot_status"`
	Balance   *model.BalanceInfo   `json:"balance"`
	Positions []model.PositionView `json:"positions"`
	Trades    []model.TradeView    `json:"trades"`
	Signals   []model.SignalView   `json:"signals"`
}

// Snapshot keeps the last value broadcast for each cached event type.
type Snapshot struct {
	mu        sync.RWMutex
	botStatus *model.BotStatus
	balance   *model.BalanceInfo
	positions []model.PositionView
	trades    []model.TradeView
	signals   []model.SignalView
}

func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Record stores payload under the slot for eventType. Trades accumulate up to
// MaxCachedTrades, dropping the oldest; every other slot is overwritten.
// Event types without a slot, and payloads of the wrong type, are ignored.
func (s *Snapshot) Record(eventType string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := true
	switch eventType {
	case TypeBotStatus:
		var v model.BotStatus
		if v, ok = payload.(model.BotStatus); ok {
			s.botStatus = &v
		}
	case TypeBalance:
		var v model.BalanceInfo
		if v, ok = payload.(model.BalanceInfo); ok {
			s.balance = &v
		}
	case TypePositions:
		var v model.PositionsInfo
		if v, ok = payload.(model.PositionsInfo); ok {
			s.positions = slices.Clone(v.Positions)
		}
	case TypeNewTrade:
		var v model.TradeView
		if v, ok = payload.(model.TradeView); ok {
			s.trades = append(s.trades, v)
			if over := len(s.trades) - MaxCachedTrades; over > 0 {
				n := copy(s.trades, s.trades[over:])
				s.trades = s.trades[:n]
			}
		}
	case TypeSignals:
		var v []model.SignalView
		if v, ok = payload.([]model.SignalView); ok {
			s.signals = slices.Clone(v)
		}
	default:
		return
	}

	if !ok {
		log.Debug().
			Str("type", eventType).
			Msgf("Ignoring %T payload for snapshot", payload)
	}
}

// ReadAll returns a copy of every slot.
func (s *Snapshot) ReadAll() SnapshotData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := SnapshotData{
		Positions: cloneOrEmpty(s.positions),
		Trades:    cloneOrEmpty(s.trades),
		Signals:   cloneOrEmpty(s.signals),
	}
	if s.botStatus != nil {
		status := *s.botStatus
		data.BotStatus = &status
	}
	if s.balance != nil {
		balance := *s.balance
		data.Balance = &balance
	}
	return data
}

func cloneOrEmpty[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
