// Package dashboard serves the HTTP API, the WebSocket push channel and the
// SSE stream, and owns the lifecycle of the background loops that feed them.
package dashboard

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"bot-dashboard/internal/logbook"
	"bot-dashboard/internal/market"
	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/query"
	"bot-dashboard/internal/realtime"
	"bot-dashboard/internal/sse"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Config holds the listener settings.
type Config struct {
	Port           int
	AllowedOrigins []string
	WSWriteTimeout time.Duration
}

// Deps are the components the routes read from. Queries and Hub are
// required; the rest may be nil.
type Deps struct {
	Queries   *query.Service
	Hub       *realtime.Hub
	Refresher *realtime.Refresher
	Watcher   *market.Watcher
	Relay     *sse.Relay
	Logs      *logbook.Book
	Metrics   *metrics.MetricsWrapper
	Metricz   http.Handler // serves /metrics
}

// Server is the dashboard backend.
type Server struct {
	cfg     Config
	deps    Deps
	handler http.Handler
	server  *http.Server

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	addr      net.Addr
}

func New(cfg Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.handler = s.middleware(s.routes())
	return s
}

// Handler returns the complete HTTP handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	v2 := r.PathPrefix("/api/v2").Subrouter()
	v2.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v2.HandleFunc("/trades", s.handleRecentTrades).Methods(http.MethodGet)
	v2.HandleFunc("/signals", s.handleSignals).Methods(http.MethodGet)
	v2.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	v2.HandleFunc("/positions/{id:[0-9]+}/close", s.handleClosePosition).Methods(http.MethodPost)
	v2.HandleFunc("/strategies/performance", s.handleStrategyPerformance).Methods(http.MethodGet)
	v2.HandleFunc("/chart/{symbol}", s.handleCandles).Methods(http.MethodGet)
	v2.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	v2.HandleFunc("/ticker/{symbol}", s.handleCachedTicker).Methods(http.MethodGet)
	v2.HandleFunc("/tickers", s.handleCachedTickers).Methods(http.MethodGet)
	v2.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/trades", s.handleTradesPage).Methods(http.MethodGet)
	api.HandleFunc("/trades/recent", s.handleTradesBrief).Methods(http.MethodGet)
	api.HandleFunc("/bot/positions", s.handleBotPositions).Methods(http.MethodGet)
	api.HandleFunc("/bot/start", s.handleBotStart).Methods(http.MethodPost)
	api.HandleFunc("/bot/stop", s.handleBotStop).Methods(http.MethodPost)
	api.HandleFunc("/positions/{id:[0-9]+}/close", s.handleClosePosition).Methods(http.MethodPost)
	api.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/analytics/performance", s.handleDailyPerformance).Methods(http.MethodGet)
	api.HandleFunc("/system/stats", s.handleSystemStats).Methods(http.MethodGet)
	api.HandleFunc("/trading/stats", s.handleTradingStats).Methods(http.MethodGet)
	api.HandleFunc("/charts/candles/{symbol}", s.handleCandles).Methods(http.MethodGet)
	api.HandleFunc("/ticker/{symbol}", s.handleTicker).Methods(http.MethodGet)
	api.HandleFunc("/ws/stats", s.handleWSStats).Methods(http.MethodGet)

	r.Handle("/ws", realtime.NewWSHandler(s.deps.Hub, s.checkOrigin, s.cfg.WSWriteTimeout)).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.deps.Metricz != nil {
		r.Handle("/metrics", s.deps.Metricz).Methods(http.MethodGet)
	}
	return r
}

// Start launches the background loops and begins serving. It returns once
// the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("dashboard server is already running")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.deps.Refresher != nil {
		s.deps.Refresher.Start(loopCtx)
	}
	if s.deps.Watcher != nil {
		s.deps.Watcher.Start(loopCtx)
	}

	// No write timeout: /ws and /api/v2/stream hold the response open
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return loopCtx },
	}
	s.addr = ln.Addr()

	go func() {
		log.Info().
			Str("address", ln.Addr().String()).
			Msg("Starting dashboard server")

		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Dashboard server failed")
		}
	}()

	s.isRunning = true
	log.Info().Msg("Dashboard started successfully")
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop halts the loops, drops push connections and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	if s.deps.Refresher != nil {
		s.deps.Refresher.Stop()
	}
	if s.deps.Watcher != nil {
		s.deps.Watcher.Stop()
	}
	// Cancelling the base context ends open SSE streams
	s.cancel()
	s.deps.Hub.CloseAll()

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown dashboard server")
		return err
	}

	s.isRunning = false
	log.Info().Msg("Dashboard stopped")
	return nil
}

// checkOrigin accepts every origin unless an allow list is configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
