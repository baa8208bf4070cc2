package model

import "time"

// BotStatus is the bot manager's view of itself, published on bot_status.
type BotStatus struct {
	IsRunning       bool       `json:"is_running"`
	Status          string     `json:"status"`
	StartTime       *time.Time `json:"start_time"`
	Uptime          string     `json:"uptime,omitempty"`
	CyclesCompleted int        `json:"cycles_completed"`
	LastCycleTime   *time.Time `json:"last_cycle_time,omitempty"`
	ActivePairs     []string   `json:"active_pairs,omitempty"`
	Mode            string     `json:"mode,omitempty"`
	MaxPositions    int        `json:"max_positions,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// BalanceInfo summarises the USDT balance, published on balance_update.
type BalanceInfo struct {
	TotalUSDT     float64    `json:"total_usdt"`
	AvailableUSDT float64    `json:"available_usdt"`
	InPositions   float64    `json:"in_positions"`
	Change24h     float64    `json:"change_24h"`
	LastUpdate    *time.Time `json:"last_update"`
	Source        string     `json:"source,omitempty"`
}

// IsZero reports whether the bot manager returned nothing.
func (b BalanceInfo) IsZero() bool {
	return b.TotalUSDT == 0 && b.AvailableUSDT == 0 && b.InPositions == 0 &&
		b.Change24h == 0 && b.LastUpdate == nil && b.Source == ""
}

// PositionView is an open position with its unrealised result.
type PositionView struct {
	ID           int64     `json:"id"`
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side"`
	Size         float64   `json:"size"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	PnL          float64   `json:"pnl"`
	PnLPercent   float64   `json:"pnl_percent"`
	Strategy     string    `json:"strategy"`
	OpenedAt     time.Time `json:"opened_at"`
	StopLoss     *float64  `json:"stop_loss"`
	TakeProfit   *float64  `json:"take_profit"`
}

// PositionsInfo is published on position_update.
type PositionsInfo struct {
	Positions []PositionView `json:"positions"`
	Count     int            `json:"count"`
	TotalPnL  float64        `json:"total_pnl"`
	Source    string         `json:"source,omitempty"`
}

// IsZero reports whether the bot manager returned nothing. An explicit empty
// list is not zero: it tells clients that every position was closed.
func (p PositionsInfo) IsZero() bool {
	return p.Positions == nil && p.Count == 0 && p.TotalPnL == 0 && p.Source == ""
}

// TradeView is a trade as shown in the trades table and pushed on new_trade.
type TradeView struct {
	ID         int64       `json:"id"`
	Timestamp  *time.Time  `json:"timestamp"`
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side"`
	Price      float64     `json:"price"`
	Size       float64     `json:"size"`
	PnL        float64     `json:"pnl"`
	PnLPercent float64     `json:"pnl_percent"`
	Strategy   string      `json:"strategy"`
	Status     TradeStatus `json:"status"`
}

// TradeBrief is the compact trade row used by the recent trades widget.
type TradeBrief struct {
	ID        int64      `json:"id"`
	Symbol    string     `json:"symbol"`
	Side      Side       `json:"side"`
	Price     float64    `json:"price"`
	Quantity  float64    `json:"quantity"`
	Profit    float64    `json:"profit"`
	Timestamp *time.Time `json:"timestamp"`
}

// SignalView is a strategy signal as shown to clients.
type SignalView struct {
	ID         int64          `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Symbol     string         `json:"symbol"`
	Action     SignalAction   `json:"action"`
	Strategy   string         `json:"strategy"`
	Confidence float64        `json:"confidence"`
	Price      float64        `json:"price"`
	Metadata   map[string]any `json:"metadata"`
}

// ControlNotice is published on bot_started and bot_stopped.
type ControlNotice struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Ticker is the latest market snapshot of one symbol.
type Ticker struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Volume    float64   `json:"volume"`
	Change24h float64   `json:"change_24h"`
	High24h   float64   `json:"high_24h"`
	Low24h    float64   `json:"low_24h"`
	Timestamp time.Time `json:"timestamp"`
}

// TickerSet is published on ticker_update.
type TickerSet struct {
	Tickers map[string]Ticker `json:"tickers"`
}

// Candle is one OHLCV bar; Timestamp is the open time in milliseconds.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// AssetBalance is an exchange account balance for one asset.
type AssetBalance struct {
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// LogEntry is one line of the system log, published on log_message.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
}

// TradeToView converts a stored trade to its table form.
func TradeToView(t Trade) TradeView {
	var ts *time.Time
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt
		ts = &created
	}
	return TradeView{
		ID:         t.ID,
		Timestamp:  ts,
		Symbol:     t.Symbol,
		Side:       t.Side,
		Price:      t.Price,
		Size:       t.Quantity,
		PnL:        t.ProfitLoss,
		PnLPercent: t.ProfitLossPercent,
		Strategy:   t.Strategy,
		Status:     t.Status,
	}
}

// SignalToView converts a stored signal to its client form.
func SignalToView(s Signal) SignalView {
	return SignalView{
		ID:         s.ID,
		Timestamp:  s.Timestamp,
		Symbol:     s.Symbol,
		Action:     s.Action,
		Strategy:   s.Strategy,
		Confidence: s.Confidence,
		Price:      s.Price,
		Metadata:   s.Metadata,
	}
}
