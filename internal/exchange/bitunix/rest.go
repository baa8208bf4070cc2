// Package bitunix is a read-only REST client for the Bitunix futures API:
// tickers, klines, order book top and account balance.
package bitunix

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	tickersPath = "/api/v1/futures/market/tickers"
	klinePath   = "/api/v1/futures/market/kline"
	depthPath   = "/api/v1/futures/market/depth"
	accountPath = "/api/v1/futures/account"

	// Bitunix allows 10 market-data requests per second per IP
	requestRate  = 10
	requestBurst = 5
)

type Client struct {
	key, secret, base string
	rest              *resty.Client
	limiter           *rate.Limiter
	now               func() time.Time
}

func NewREST(key, secret, base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{
		key:     key,
		secret:  secret,
		base:    strings.TrimRight(base, "/"),
		rest:    r,
		limiter: rate.NewLimiter(rate.Limit(requestRate), requestBurst),
		now:     time.Now,
	}
}

// SetMetrics records the latency and outcome of every call.
func (c *Client) SetMetrics(m *metrics.MetricsWrapper) {
	c.rest.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		var err error
		if resp.IsError() {
			err = fmt.Errorf("status %d", resp.StatusCode())
		}
		m.ObserveUpstream("exchange", resp.Time().Seconds(), err)
		return nil
	})
	c.rest.OnError(func(req *resty.Request, err error) {
		m.ObserveUpstream("exchange", time.Since(req.Time).Seconds(), err)
	})
}

// envelope is the wrapper around every Bitunix response.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// KlineInterval represents kline/candlestick intervals
type KlineInterval string

const (
	Interval1m  KlineInterval = "1m"
	Interval5m  KlineInterval = "5m"
	Interval15m KlineInterval = "15m"
	Interval30m KlineInterval = "30m"
	Interval1h  KlineInterval = "1h"
	Interval4h  KlineInterval = "4h"
	Interval1d  KlineInterval = "1d"
	Interval1w  KlineInterval = "1w"
)

// ParseInterval validates an interval string.
func ParseInterval(s string) (KlineInterval, error) {
	switch iv := KlineInterval(s); iv {
	case Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval4h, Interval1d, Interval1w:
		return iv, nil
	}
	return "", fmt.Errorf("unsupported interval %q", s)
}

// Kline represents a candlestick data point
type Kline struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open,string"`
	High   float64 `json:"high,string"`
	Low    float64 `json:"low,string"`
	Close  float64 `json:"close,string"`
	Volume float64 `json:"baseVol,string"`
}

type tickerData struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	BaseVol   string `json:"baseVol"`
}

type accountData struct {
	MarginCoin string `json:"marginCoin"`
	Available  string `json:"available"`
	Frozen     string `json:"frozen"`
	Margin     string `json:"margin"`
}

// FetchTicker returns the 24h ticker of symbol with the best bid and ask.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (model.Ticker, error) {
	var tickers []tickerData
	if err := c.get(ctx, tickersPath, map[string]string{"symbols": symbol}, false, &tickers); err != nil {
		return model.Ticker{}, err
	}

	var td *tickerData
	for i := range tickers {
		if strings.EqualFold(tickers[i].Symbol, symbol) {
			td = &tickers[i]
			break
		}
	}
	if td == nil {
		return model.Ticker{}, fmt.Errorf("bitunix: no ticker for %s", symbol)
	}

	last := parseFloat(td.LastPrice)
	open := parseFloat(td.Open)
	ticker := model.Ticker{
		Symbol:    td.Symbol,
		Price:     last,
		Volume:    parseFloat(td.BaseVol),
		High24h:   parseFloat(td.High),
		Low24h:    parseFloat(td.Low),
		Timestamp: c.now().UTC(),
	}
	if open != 0 {
		ticker.Change24h = (last - open) / open * 100
	}

	// Bid and ask are a nicety; the ticker is still valid without them
	if bid, ask, err := c.bestQuotes(ctx, symbol); err == nil {
		ticker.Bid, ticker.Ask = bid, ask
	}
	return ticker, nil
}

// FetchOHLCV returns up to limit candles, oldest first.
func (c *Client) FetchOHLCV(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}

	klines, err := c.GetKlines(ctx, symbol, iv, 0, 0, limit)
	if err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, model.Candle{
			Timestamp: k.Time,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
		})
	}
	// The API returns newest first
	if len(candles) > 1 && candles[0].Timestamp > candles[len(candles)-1].Timestamp {
		for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
			candles[i], candles[j] = candles[j], candles[i]
		}
	}
	return candles, nil
}

// GetKlines fetches historical kline data
func (c *Client) GetKlines(ctx context.Context, symbol string, interval KlineInterval, startTime, endTime int64, limit int) ([]Kline, error) {
	params := map[string]string{
		"symbol":   symbol,
		"interval": string(interval),
		"limit":    strconv.Itoa(limit),
	}
	if startTime > 0 {
		params["startTime"] = strconv.FormatInt(startTime, 10)
	}
	if endTime > 0 {
		params["endTime"] = strconv.FormatInt(endTime, 10)
	}

	var klines []Kline
	if err := c.get(ctx, klinePath, params, false, &klines); err != nil {
		return nil, err
	}
	return klines, nil
}

// FetchBalance returns the futures account balance keyed by margin coin.
func (c *Client) FetchBalance(ctx context.Context) (map[string]model.AssetBalance, error) {
	if c.key == "" || c.secret == "" {
		return nil, fmt.Errorf("bitunix: api credentials not configured")
	}

	var account accountData
	if err := c.get(ctx, accountPath, map[string]string{"marginCoin": "USDT"}, true, &account); err != nil {
		return nil, err
	}

	free := parseFloat(account.Available)
	used := parseFloat(account.Frozen) + parseFloat(account.Margin)
	coin := account.MarginCoin
	if coin == "" {
		coin = "USDT"
	}
	return map[string]model.AssetBalance{
		coin: {Free: free, Used: used, Total: free + used},
	}, nil
}

func (c *Client) bestQuotes(ctx context.Context, symbol string) (bid, ask float64, err error) {
	var depth struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	}
	if err := c.get(ctx, depthPath, map[string]string{"symbol": symbol, "limit": "1"}, false, &depth); err != nil {
		return 0, 0, err
	}
	if len(depth.Bids) > 0 && len(depth.Bids[0]) > 0 {
		bid = parseFloat(depth.Bids[0][0])
	}
	if len(depth.Asks) > 0 && len(depth.Asks[0]) > 0 {
		ask = parseFloat(depth.Asks[0][0])
	}
	return bid, ask, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, signed bool, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params)

	if signed {
		ts := strconv.FormatInt(c.now().UnixMilli(), 10)
		nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
		req.SetHeader("api-key", c.key).
			SetHeader("nonce", nonce).
			SetHeader("timestamp", ts).
			SetHeader("sign", Sign(c.secret, nonce, c.key, ts, signQuery(params), ""))
	}

	env := &envelope{}
	resp, err := req.SetResult(env).Get(c.base + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	if env.Code != 0 {
		return fmt.Errorf("bitunix: %d %s", env.Code, env.Msg)
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
