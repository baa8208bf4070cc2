// Package botmanager talks to the process that runs the trading bot. The
// dashboard never trades itself; it asks the bot manager for its status and
// forwards start, stop and close-position requests.
package botmanager

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"

	"github.com/go-resty/resty/v2"
)

// Manager controls and reports on the trading bot.
type Manager interface {
	Status(ctx context.Context) (model.BotStatus, error)
	BalanceInfo(ctx context.Context) (model.BalanceInfo, error)
	PositionsInfo(ctx context.Context) (model.PositionsInfo, error)
	// Start and Stop report whether the request was accepted, with a
	// human-readable message either way.
	Start(ctx context.Context) (bool, string, error)
	Stop(ctx context.Context) (bool, string, error)
}

// PositionCloser is implemented by managers that can close a single position.
type PositionCloser interface {
	ClosePosition(ctx context.Context, id int64) (bool, error)
}

// Client is a Manager speaking JSON over HTTP to the bot process.
type Client struct {
	base string
	rest *resty.Client
}

type controlResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewClient creates a client for the bot manager at base.
func NewClient(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// SetMetrics records the latency and outcome of every call.
func (c *Client) SetMetrics(m *metrics.MetricsWrapper) {
	c.rest.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		var err error
		if resp.IsError() {
			err = fmt.Errorf("status %d", resp.StatusCode())
		}
		m.ObserveUpstream("bot_manager", resp.Time().Seconds(), err)
		return nil
	})
	c.rest.OnError(func(req *resty.Request, err error) {
		m.ObserveUpstream("bot_manager", time.Since(req.Time).Seconds(), err)
	})
}

func (c *Client) Status(ctx context.Context) (model.BotStatus, error) {
	var status model.BotStatus
	err := c.get(ctx, "/api/status", &status)
	return status, err
}

func (c *Client) BalanceInfo(ctx context.Context) (model.BalanceInfo, error) {
	var balance model.BalanceInfo
	err := c.get(ctx, "/api/balance", &balance)
	return balance, err
}

func (c *Client) PositionsInfo(ctx context.Context) (model.PositionsInfo, error) {
	var positions model.PositionsInfo
	err := c.get(ctx, "/api/positions", &positions)
	return positions, err
}

func (c *Client) Start(ctx context.Context) (bool, string, error) {
	resp, err := c.post(ctx, "/api/start")
	return resp.Success, resp.Message, err
}

func (c *Client) Stop(ctx context.Context) (bool, string, error) {
	resp, err := c.post(ctx, "/api/stop")
	return resp.Success, resp.Message, err
}

func (c *Client) ClosePosition(ctx context.Context, id int64) (bool, error) {
	resp, err := c.post(ctx, "/api/positions/"+strconv.FormatInt(id, 10)+"/close")
	return resp.Success, err
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(result).
		Get(c.base + path)
	if err != nil {
		return fmt.Errorf("bot manager request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("bot manager: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string) (controlResp, error) {
	var out controlResp
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Post(c.base + path)
	if err != nil {
		return controlResp{}, fmt.Errorf("bot manager request failed: %w", err)
	}
	// A 4xx with a message is a refusal, not a transport failure
	if resp.StatusCode() >= 500 {
		return out, fmt.Errorf("bot manager: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return out, nil
}
