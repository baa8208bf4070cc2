package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"bot-dashboard/internal/common"
	"bot-dashboard/internal/model"
	"bot-dashboard/internal/storage"

	"github.com/rs/zerolog/log"
)

// writer is the part of the bbolt store the generator fills.
type writer interface {
	SaveTrade(t *model.Trade) error
	SaveSignal(s *model.Signal) error
	SaveBalance(b *model.Balance) error
	SavePosition(p *model.Position) error
}

type seedOptions struct {
	Symbols      []string
	Days         int
	TradesPerDay int
	StartBalance float64
}

type seedCounts struct {
	Trades, Signals, Balances, Positions int
}

var startPrices = map[string]float64{
	common.BTCUSDTSymbol: 50000,
	common.ETHUSDTSymbol: 3000,
	common.BNBUSDTSymbol: 600,
	common.SOLUSDTSymbol: 150,
}

var strategies = []string{
	common.StrategyMomentum,
	common.StrategyMeanReversion,
	common.StrategyBreakout,
	common.StrategySwing,
}

func main() {
	var (
		dataPath     = flag.String("data", common.DefaultDataPath, "Data directory path")
		days         = flag.Int("days", 7, "Number of days of history to generate")
		tradesPerDay = flag.Int("trades", 12, "Trades per day")
		balance      = flag.Float64("balance", 10000, "Starting USDT balance")
	)
	flag.Parse()

	fmt.Printf("Generating sample dashboard data...\n")
	fmt.Printf("  Days: %d\n", *days)
	fmt.Printf("  Trades per day: %d\n", *tradesPerDay)
	fmt.Printf("  Data Path: %s\n", *dataPath)

	if err := os.MkdirAll(*dataPath, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}
	store, err := storage.NewBolt(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage")
	}
	defer store.Close()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	counts, err := generate(store, seedOptions{
		Symbols:      []string{common.BTCUSDTSymbol, common.ETHUSDTSymbol, common.SOLUSDTSymbol},
		Days:         *days,
		TradesPerDay: *tradesPerDay,
		StartBalance: *balance,
	}, rng, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate data")
	}

	fmt.Printf("✓ Generated %d trades, %d signals, %d balances, %d open positions\n",
		counts.Trades, counts.Signals, counts.Balances, counts.Positions)
}

// generate writes a random walk of closed trades with matching signals and
// hourly balance snapshots, ending at now, plus one open position per
// symbol.
func generate(w writer, opts seedOptions, rng *rand.Rand, now time.Time) (seedCounts, error) {
	var counts seedCounts
	if opts.Days <= 0 || opts.TradesPerDay <= 0 || len(opts.Symbols) == 0 {
		return counts, fmt.Errorf("nothing to generate")
	}

	prices := make(map[string]float64, len(opts.Symbols))
	for _, s := range opts.Symbols {
		prices[s] = startPriceOf(s)
	}

	start := now.Add(-time.Duration(opts.Days) * 24 * time.Hour)
	step := 24 * time.Hour / time.Duration(opts.TradesPerDay)
	equity := opts.StartBalance

	for ts := start; ts.Before(now); ts = ts.Add(step) {
		symbol := opts.Symbols[rng.IntN(len(opts.Symbols))]
		strategy := strategies[rng.IntN(len(strategies))]

		// Geometric random walk, 1% volatility per step
		prices[symbol] *= math.Exp(rng.NormFloat64() * 0.01)
		price := prices[symbol]

		side, action := model.SideBuy, model.ActionBuy
		if rng.IntN(2) == 0 {
			side, action = model.SideSell, model.ActionSell
		}

		signal := model.Signal{
			Symbol:     symbol,
			Action:     action,
			Strategy:   strategy,
			Confidence: 0.5 + rng.Float64()*0.5,
			Price:      price,
			Timestamp:  ts,
		}
		if err := w.SaveSignal(&signal); err != nil {
			return counts, fmt.Errorf("failed to store signal: %w", err)
		}
		counts.Signals++

		// Slight positive edge so the win rate looks like a working bot
		pct := rng.NormFloat64()*1.5 + 0.2
		notional := equity * 0.05
		pnl := notional * pct / 100
		closed := ts.Add(time.Duration(10+rng.IntN(50)) * time.Minute)
		trade := model.Trade{
			Symbol:            symbol,
			Side:              side,
			Price:             price,
			Quantity:          notional / price,
			ProfitLoss:        math.Round(pnl*100) / 100,
			ProfitLossPercent: math.Round(pct*100) / 100,
			Strategy:          strategy,
			Status:            model.TradeClosed,
			CreatedAt:         ts,
			CloseTime:         &closed,
		}
		if err := w.SaveTrade(&trade); err != nil {
			return counts, fmt.Errorf("failed to store trade: %w", err)
		}
		counts.Trades++
		equity += trade.ProfitLoss
	}

	// Hourly balance history up to now, interpolated towards final equity
	hours := opts.Days * 24
	for h := 0; h <= hours; h++ {
		total := opts.StartBalance + (equity-opts.StartBalance)*float64(h)/float64(hours)
		locked := total * 0.05
		b := model.Balance{
			Asset:     "USDT",
			Total:     math.Round(total*100) / 100,
			Free:      math.Round((total-locked)*100) / 100,
			Locked:    math.Round(locked*100) / 100,
			UpdatedAt: start.Add(time.Duration(h) * time.Hour),
		}
		if err := w.SaveBalance(&b); err != nil {
			return counts, fmt.Errorf("failed to store balance: %w", err)
		}
		counts.Balances++
	}

	for _, symbol := range opts.Symbols {
		entry := prices[symbol]
		stop := entry * 0.97
		target := entry * 1.05
		p := model.Position{
			Symbol:     symbol,
			Side:       model.SideBuy,
			Quantity:   equity * 0.02 / entry,
			EntryPrice: entry,
			StopLoss:   &stop,
			TakeProfit: &target,
			Strategy:   strategies[rng.IntN(len(strategies))],
			Status:     model.PositionOpen,
			CreatedAt:  now.Add(-time.Duration(1+rng.IntN(120)) * time.Minute),
		}
		if err := w.SavePosition(&p); err != nil {
			return counts, fmt.Errorf("failed to store position: %w", err)
		}
		counts.Positions++
	}

	return counts, nil
}

func startPriceOf(symbol string) float64 {
	if p, ok := startPrices[symbol]; ok {
		return p
	}
	return 100
}
