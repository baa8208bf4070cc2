package query

import (
	"fmt"
	"math"
	"time"

	"bot-dashboard/internal/model"
)

const day = 24 * time.Hour

// PositionPnL is the unrealised result of a position at current.
func PositionPnL(side model.Side, entry, current, qty float64) float64 {
	if side == model.SideSell {
		return (entry - current) * qty
	}
	return (current - entry) * qty
}

// PositionPnLPercent is PositionPnL relative to the entry price, or 0 when
// there is no entry price.
func PositionPnLPercent(side model.Side, entry, current float64) float64 {
	if entry == 0 {
		return 0
	}
	if side == model.SideSell {
		return (entry - current) / entry * 100
	}
	return (current - entry) / entry * 100
}

// WinRate is the share of winning trades in percent, 0 without trades.
func WinRate(winning, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(winning) / float64(total) * 100
}

// Change24h is the percent change from dayAgo to latest, 0 when there is no
// reference balance.
func Change24h(latest float64, dayAgo *model.Balance) float64 {
	if dayAgo == nil || dayAgo.Total == 0 {
		return 0
	}
	return (latest - dayAgo.Total) / dayAgo.Total * 100
}

// FormatUptime renders d as "Xh Ym".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// tradeTotals sums closed trades.
type tradeTotals struct {
	count, winning int
	pnl            float64
}

func totals(trades []model.Trade) tradeTotals {
	var t tradeTotals
	for _, tr := range trades {
		t.count++
		t.pnl += tr.ProfitLoss
		if tr.Winning() {
			t.winning++
		}
	}
	return t
}
