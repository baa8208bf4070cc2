package dashboard

import (
	"context"
	"net/http"
	"time"

	"bot-dashboard/internal/model"
	"bot-dashboard/internal/query"
	"bot-dashboard/internal/sse"

	"github.com/gorilla/mux"
)

const (
	defaultLogsLimit = 100
	maxLogsLimit     = 1000
)

// handleStatus serves the full status document. Parts that fail carry
// their defaults, so the response is always a success.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Queries.FullStatus(r.Context())
	writeJSON(w, http.StatusOK, struct {
		envelope
		Data query.FullStatus `json:"data"`
	}{succeeded, res.Value})
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", query.DefaultTradesLimit, query.MaxTradesLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.deps.Queries.RecentTrades(r.Context(), limit)
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		Trades []model.TradeView `json:"trades"`
		Count  int               `json:"count"`
	}{env, res.Value, len(res.Value)})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", query.DefaultSignalsLimit, query.MaxSignalsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.deps.Queries.RecentSignals(r.Context(), limit)
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		Signals []model.SignalView `json:"signals"`
		Count   int                `json:"count"`
	}{env, res.Value, len(res.Value)})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Queries.PositionsInfo(r.Context())
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		model.PositionsInfo
	}{env, res.Value})
}

func (s *Server) handleStrategyPerformance(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", query.DefaultPeriodDays, query.MaxPeriodDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.deps.Queries.StrategyPerformance(r.Context(), r.URL.Query().Get("strategy"), days)
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		query.StrategyReport
	}{env, res.Value})
}

// handleCandles serves both chart routes. Exchange failures degrade to an
// empty series marked with its source.
func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", query.DefaultChartLimit, query.MaxChartLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbol := mux.Vars(r)["symbol"]
	res := s.deps.Queries.Candles(r.Context(), symbol, r.URL.Query().Get("interval"), limit)
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		query.ChartData
	}{env, res.Value})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultLogsLimit, maxLogsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logs := []model.LogEntry{}
	if s.deps.Logs != nil {
		logs = s.deps.Logs.Recent(limit, r.URL.Query().Get("level"))
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Logs  []model.LogEntry `json:"logs"`
		Count int              `json:"count"`
	}{succeeded, logs, len(logs)})
}

// handleCachedTicker answers from the realtime cache only.
func (s *Server) handleCachedTicker(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Queries.CachedTicker(mux.Vars(r)["symbol"])
	if res.Err != nil {
		writeError(w, statusFor(res.Err), "Ticker not found")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		model.Ticker
	}{succeeded, res.Value})
}

func (s *Server) handleCachedTickers(w http.ResponseWriter, _ *http.Request) {
	tickers := s.deps.Queries.CachedTickers()
	writeJSON(w, http.StatusOK, struct {
		envelope
		Tickers map[string]model.Ticker `json:"tickers"`
		Count   int                     `json:"count"`
	}{succeeded, tickers, len(tickers)})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Relay == nil {
		writeError(w, http.StatusServiceUnavailable, "Stream not available")
		return
	}
	s.deps.Relay.ServeHTTP(w, r)
}

// streamSnapshot is the periodic payload on /api/v2/stream.
type streamSnapshot struct {
	Timestamp      time.Time               `json:"timestamp"`
	Tickers        map[string]model.Ticker `json:"tickers"`
	PositionsCount int                     `json:"positions_count"`
}

// StreamSnapshot builds the stream's periodic snapshot from the ticker
// cache and the last pushed positions.
func StreamSnapshot(queries *query.Service, positions func() int) sse.SnapshotFunc {
	return func(context.Context) any {
		snap := streamSnapshot{
			Timestamp: time.Now().UTC(),
			Tickers:   queries.CachedTickers(),
		}
		if positions != nil {
			snap.PositionsCount = positions()
		}
		return snap
	}
}
