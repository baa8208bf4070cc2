package query

import (
	"testing"
	"time"

	"bot-dashboard/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestPositionPnL(t *testing.T) {
	tests := []struct {
		name    string
		side    model.Side
		current float64
		want    float64
		wantPct float64
	}{
		{"buy in profit", model.SideBuy, 110, 20, 10},
		{"buy at loss", model.SideBuy, 90, -20, -10},
		{"sell in profit", model.SideSell, 90, 20, 10},
		{"sell at loss", model.SideSell, 110, -20, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PositionPnL(tt.side, 100, tt.current, 2), 1e-9)
			assert.InDelta(t, tt.wantPct, PositionPnLPercent(tt.side, 100, tt.current), 1e-9)
		})
	}

	assert.Zero(t, PositionPnLPercent(model.SideBuy, 0, 100))
}

func TestWinRate(t *testing.T) {
	assert.Zero(t, WinRate(0, 0))
	assert.Equal(t, 50.0, WinRate(1, 2))
	assert.InDelta(t, 66.7, round1(WinRate(2, 3)), 1e-9)
}

func TestChange24h(t *testing.T) {
	assert.Zero(t, Change24h(1000, nil))
	assert.Zero(t, Change24h(1000, &model.Balance{Total: 0}))
	assert.Equal(t, 10.0, Change24h(1100, &model.Balance{Total: 1000}))
	assert.Equal(t, -50.0, Change24h(500, &model.Balance{Total: 1000}))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0h 0m", FormatUptime(0))
	assert.Equal(t, "0h 0m", FormatUptime(-time.Minute))
	assert.Equal(t, "2h 30m", FormatUptime(2*time.Hour+30*time.Minute+59*time.Second))
	assert.Equal(t, "49h 1m", FormatUptime(49*time.Hour+time.Minute))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 1.23, round2(1.2349))
	assert.Equal(t, 12.3, round1(12.34))
}
