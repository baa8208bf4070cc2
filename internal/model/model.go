// Package model defines the rows read from the trading bot's store and the
// typed views pushed to, or served to, the browser dashboard.
package model

import "time"

// Side is the direction of a trade or position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeStatus is the lifecycle state of a persisted trade.
type TradeStatus string

const (
	TradeOpen      TradeStatus = "OPEN"
	TradeClosed    TradeStatus = "CLOSED"
	TradeCancelled TradeStatus = "CANCELLED"
)

// SignalAction is the recommendation carried by a strategy signal.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// PositionStatus is the lifecycle state of a persisted position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Trade is a trade row written by the bot. A zero ProfitLoss means the bot
// did not record one.
type Trade struct {
	ID                int64       `json:"id"`
	Symbol            string      `json:"symbol"`
	Side              Side        `json:"side"`
	Price             float64     `json:"price"`
	Quantity          float64     `json:"quantity"`
	ProfitLoss        float64     `json:"profit_loss"`
	ProfitLossPercent float64     `json:"profit_loss_percent"`
	Strategy          string      `json:"strategy"`
	Status            TradeStatus `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
	CloseTime         *time.Time  `json:"close_time,omitempty"`
}

// Winning reports whether the trade closed with a positive result.
func (t Trade) Winning() bool {
	return t.ProfitLoss > 0
}

// Signal is a strategy signal row.
type Signal struct {
	ID         int64          `json:"id"`
	Symbol     string         `json:"symbol"`
	Action     SignalAction   `json:"action"`
	Strategy   string         `json:"strategy"`
	Confidence float64        `json:"confidence"`
	Price      float64        `json:"price"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Balance is one balance observation for an asset.
type Balance struct {
	ID        int64     `json:"id"`
	Asset     string    `json:"asset"`
	Total     float64   `json:"total"`
	Free      float64   `json:"free"`
	Locked    float64   `json:"locked"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position is a position row tracked by the bot.
type Position struct {
	ID         int64          `json:"id"`
	Symbol     string         `json:"symbol"`
	Side       Side           `json:"side"`
	Quantity   float64        `json:"quantity"`
	EntryPrice float64        `json:"entry_price"`
	StopLoss   *float64       `json:"stop_loss,omitempty"`
	TakeProfit *float64       `json:"take_profit,omitempty"`
	Strategy   string         `json:"strategy"`
	Status     PositionStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}
