package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"bot-dashboard/internal/botmanager"
	"bot-dashboard/internal/model"
	"bot-dashboard/internal/query"
	"bot-dashboard/internal/realtime"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageLimit   = 20
	defaultRecentBrief = 10
)

func (s *Server) handleTradesPage(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1, query.MaxPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", defaultPageLimit, query.MaxPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.deps.Queries.TradesPage(r.Context(), page, limit)
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		query.TradesPage
	}{env, res.Value})
}

// handleTradesBrief falls back to demo trades, so it always succeeds.
func (s *Server) handleTradesBrief(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultRecentBrief, query.MaxTradesLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.deps.Queries.RecentTradesBrief(r.Context(), limit)
	trades := res.Value
	if len(trades) > limit {
		trades = trades[:limit]
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Trades []model.TradeBrief `json:"trades"`
	}{succeeded, trades})
}

func (s *Server) handleBotPositions(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Queries.BotPositions(r.Context())
	writeJSON(w, http.StatusOK, struct {
		envelope
		model.PositionsInfo
	}{succeeded, res.Value})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Queries.BotBalance(r.Context())
	writeJSON(w, http.StatusOK, struct {
		envelope
		model.BalanceInfo
	}{succeeded, res.Value})
}

func (s *Server) handleDailyPerformance(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", query.DefaultPeriodDays, query.MaxPeriodDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.deps.Queries.DailyPerformance(r.Context(), days)
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		query.DailyReport
	}{env, res.Value})
}

func (s *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Queries.SystemStats(r.Context())
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		Stats     query.ServiceStats `json:"stats"`
		Timestamp time.Time          `json:"timestamp"`
	}{env, res.Value, time.Now().UTC()})
}

func (s *Server) handleTradingStats(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Queries.TradingStats(r.Context())
	code, env := outcome(res.Err)
	writeJSON(w, code, struct {
		envelope
		Stats query.TradingStats `json:"stats"`
	}{env, res.Value})
}

// handleTicker asks the exchange, then demo prices; unknown symbols are 404.
func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Queries.Ticker(r.Context(), mux.Vars(r)["symbol"])
	if res.Err != nil {
		writeError(w, statusFor(res.Err), "Symbol not found")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		model.Ticker
	}{succeeded, res.Value})
}

func (s *Server) handleWSStats(w http.ResponseWriter, _ *http.Request) {
	sseClients := 0
	if s.deps.Relay != nil {
		sseClients = s.deps.Relay.Clients()
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Stats      realtime.Stats `json:"stats"`
		SSEClients int            `json:"sse_clients"`
	}{succeeded, s.deps.Hub.Stats(), sseClients})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   time.Now().UTC(),
		"connections": s.deps.Hub.Len(),
	})
}

func (s *Server) handleBotStart(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, true)
}

func (s *Server) handleBotStop(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, false)
}

// control forwards a start or stop request to the bot manager and, when it
// is accepted, tells push clients.
func (s *Server) control(w http.ResponseWriter, r *http.Request, start bool) {
	manager := s.deps.Queries.Manager()
	if manager == nil {
		writeError(w, http.StatusServiceUnavailable, msgManagerMissing)
		return
	}

	action, status := manager.Stop, "stopped"
	if start {
		action, status = manager.Start, "started"
	}

	accepted, message, err := action(r.Context())
	if err != nil {
		log.Error().Err(err).Bool("start", start).Msg("Bot control request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if accepted {
		s.deps.Hub.PublishControl(start, model.ControlNotice{Status: status, Message: message})
		s.note("INFO", "Bot "+status+": "+message)
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{accepted, message})
}

// handleClosePosition serves both close-position routes.
func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	closer, ok := s.deps.Queries.Manager().(botmanager.PositionCloser)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, msgCloseMissing)
		return
	}

	closed, err := closer.ClosePosition(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("position_id", id).Msg("Failed to close position")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !closed {
		writeJSON(w, http.StatusNotFound, struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{false, "Failed to close position"})
		return
	}

	log.Info().Int64("position_id", id).Msg("Position closed")
	s.note("INFO", "Position "+strconv.FormatInt(id, 10)+" closed")
	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{true, "Position " + strconv.FormatInt(id, 10) + " closed"})
}

// note adds an operator action to the system log panel.
func (s *Server) note(level, message string) {
	if s.deps.Logs != nil {
		s.deps.Logs.Add(level, message, "dashboard")
	}
}
