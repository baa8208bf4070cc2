package query

import (
	"time"

	"bot-dashboard/internal/model"
)

// SignalBrief is the last signal a strategy emitted.
type SignalBrief struct {
	Action    model.SignalAction `json:"action"`
	Symbol    string             `json:"symbol"`
	Timestamp time.Time          `json:"timestamp"`
}

// StrategyInfo describes one enabled strategy over the last 24 hours.
type StrategyInfo struct {
	Active       bool         `json:"active"`
	Weight       float64      `json:"weight"`
	SignalsCount int          `json:"signals_count"`
	TradesCount  int          `json:"trades_count"`
	WinRate      float64      `json:"win_rate"`
	LastSignal   *SignalBrief `json:"last_signal"`
}

type TodayStats struct {
	TradesCount  int     `json:"trades_count"`
	ClosedTrades int     `json:"closed_trades"`
	WinRate      float64 `json:"win_rate"`
	PnL          float64 `json:"pnl"`
}

type WeekStats struct {
	TradesCount int     `json:"trades_count"`
	PnL         float64 `json:"pnl"`
	AvgDailyPnL float64 `json:"avg_daily_pnl"`
}

type PerformanceInfo struct {
	Today TodayStats `json:"today"`
	Week  WeekStats  `json:"week"`
}

type Trend struct {
	Symbol string  `json:"symbol"`
	Change float64 `json:"change"`
	Volume float64 `json:"volume"`
}

type MarketInfo struct {
	TotalVolume24h float64  `json:"total_volume_24h"`
	ActiveSymbols  []string `json:"active_symbols"`
	Trending       []Trend  `json:"trending"`
}

type SystemInfo struct {
	CPUUsage    float64         `json:"cpu_usage"`
	MemoryUsage float64         `json:"memory_usage"`
	MemoryMB    float64         `json:"memory_mb"`
	Goroutines  int             `json:"goroutines"`
	Connections map[string]bool `json:"connections"`
	Version     string          `json:"version"`
	Environment string          `json:"environment"`
}

// FullStatus is the dashboard's main status document.
type FullStatus struct {
	Timestamp   time.Time               `json:"timestamp"`
	Bot         model.BotStatus         `json:"bot"`
	Balance     model.BalanceInfo       `json:"balance"`
	Positions   model.PositionsInfo     `json:"positions"`
	Strategies  map[string]StrategyInfo `json:"strategies"`
	Performance PerformanceInfo         `json:"performance"`
	Market      MarketInfo              `json:"market"`
	System      SystemInfo              `json:"system"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type TradesPage struct {
	Trades     []model.TradeView `json:"trades"`
	Pagination Pagination        `json:"pagination"`
}

type StrategyStats struct {
	TotalTrades   int     `json:"total_trades"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnLPercent float64 `json:"avg_pnl_percent"`
	WinRate       float64 `json:"win_rate"`
	WinningTrades int     `json:"winning_trades"`
}

type StrategyReport struct {
	Performance map[string]StrategyStats `json:"performance"`
	PeriodDays  int                      `json:"period_days"`
}

type PerformanceSummary struct {
	TotalTrades      int     `json:"total_trades"`
	ProfitableTrades int     `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalPnL         float64 `json:"total_pnl"`
}

type DayStats struct {
	Date   string  `json:"date"`
	Trades int     `json:"trades"`
	PnL    float64 `json:"pnl"`
}

type DailyReport struct {
	PeriodDays int                `json:"period_days"`
	Summary    PerformanceSummary `json:"summary"`
	Daily      []DayStats         `json:"daily"`
}

type TradingStats struct {
	TotalTrades      int     `json:"total_trades"`
	ProfitableTrades int     `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
	AvgProfit        float64 `json:"avg_profit"`
	BestTrade        float64 `json:"best_trade"`
	WorstTrade       float64 `json:"worst_trade"`
}

// ChartData is a candle series with where it came from.
type ChartData struct {
	Symbol   string         `json:"symbol"`
	Interval string         `json:"interval"`
	Candles  []model.Candle `json:"candles"`
	Source   string         `json:"source"`
}

type BotSummary struct {
	IsRunning bool   `json:"is_running"`
	Uptime    string `json:"uptime"`
	Cycles    int    `json:"cycles"`
}

// ServiceStats reports which collaborators are wired.
type ServiceStats struct {
	BotManager     bool        `json:"bot_manager"`
	ExchangeClient bool        `json:"exchange_client"`
	WebSocket      bool        `json:"websocket"`
	Bot            *BotSummary `json:"bot,omitempty"`
}
