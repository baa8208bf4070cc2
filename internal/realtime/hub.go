package realtime

import (
	"encoding/json"
	"io"
	"sync"

	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithForwarder sets the side channel that receives a copy of every event.
func WithForwarder(f Forwarder) HubOption {
	return func(h *Hub) { h.forwarder = f }
}

// WithClock replaces the wall clock used for event timestamps.
func WithClock(c clockwork.Clock) HubOption {
	return func(h *Hub) { h.clock = c }
}

// WithMetrics records delivery counters in Prometheus.
func WithMetrics(m *metrics.MetricsWrapper) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// WithEncoder replaces the JSON encoder for outgoing events.
func WithEncoder(encode func(v any) ([]byte, error)) HubOption {
	return func(h *Hub) { h.encode = encode }
}

// peer gates sends to one connection. Register holds it until the initial
// snapshot is out, so broadcasts that already see the connection queue
// behind it.
type peer struct {
	mu sync.Mutex
}

// Hub is the connection registry and broadcaster. Registry, stats and
// snapshot share one mutex; sends happen outside it so a slow connection
// never blocks registration.
type Hub struct {
	mu       sync.Mutex
	conns    map[Conn]*peer
	stats    Stats
	snapshot *Snapshot
	loop     interface{ Running() bool }

	forwarder Forwarder
	clock     clockwork.Clock
	metrics   *metrics.MetricsWrapper
	encode    func(v any) ([]byte, error)
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		conns:    make(map[Conn]*peer),
		snapshot: NewSnapshot(),
		clock:    clockwork.NewRealClock(),
		encode:   json.Marshal,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds conn and sends it the initial snapshot. Broadcasts reach
// conn only after that snapshot. If the send fails the connection is removed
// again and the error returned.
func (h *Hub) Register(conn Conn) error {
	p := &peer{}
	p.mu.Lock()
	defer p.mu.Unlock()

	h.mu.Lock()
	h.conns[conn] = p
	h.stats.TotalConnections++
	h.stats.ActiveConnections = len(h.conns)
	active := len(h.conns)
	initial := Event{
		Type:      TypeInitial,
		Timestamp: h.clock.Now().UTC(),
		Data:      h.snapshot.ReadAll(),
	}
	h.mu.Unlock()

	h.metrics.ConnectionsTotal().Inc()
	h.metrics.ConnectionsActive().Set(float64(active))
	log.Info().Int("active", active).Msg("WebSocket client connected")

	data, err := h.encode(initial)
	if err == nil {
		err = conn.Send(data)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to send initial data")
		h.dropFailed([]Conn{conn})
		return err
	}

	h.mu.Lock()
	h.stats.MessagesSent++
	h.mu.Unlock()
	h.metrics.MessagesSent().Inc()
	return nil
}

// Unregister removes conn. Removing an unknown connection is a no-op.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.stats.ActiveConnections = len(h.conns)
	active := len(h.conns)
	h.mu.Unlock()

	h.metrics.ConnectionsActive().Set(float64(active))
	log.Info().Int("active", active).Msg("WebSocket client disconnected")
}

// Broadcast sends an event to every registered connection. With no
// connections it returns at once: the snapshot is not updated and nothing is
// forwarded. Connections whose send fails are removed after the pass.
func (h *Hub) Broadcast(eventType string, payload any) {
	h.mu.Lock()
	if len(h.conns) == 0 {
		h.mu.Unlock()
		return
	}
	event := Event{Type: eventType, Timestamp: h.clock.Now().UTC(), Data: payload}
	h.snapshot.Record(eventType, payload)
	type target struct {
		conn Conn
		peer *peer
	}
	targets := make([]target, 0, len(h.conns))
	for conn, p := range h.conns {
		targets = append(targets, target{conn, p})
	}
	h.mu.Unlock()

	start := h.clock.Now()
	h.metrics.EventPublished(eventType).Inc()

	data, err := h.encode(event)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to marshal event for broadcast")
		return
	}

	sent := 0
	var failed []Conn
	for _, t := range targets {
		t.peer.mu.Lock()
		err := t.conn.Send(data)
		t.peer.mu.Unlock()
		if err != nil {
			log.Error().Err(err).Str("type", eventType).Msg("Failed to send message to WebSocket client")
			failed = append(failed, t.conn)
			continue
		}
		sent++
	}

	h.mu.Lock()
	h.stats.MessagesSent += sent
	h.mu.Unlock()
	for i := 0; i < sent; i++ {
		h.metrics.MessagesSent().Inc()
	}
	if len(failed) > 0 {
		h.dropFailed(failed)
	}
	h.metrics.BroadcastDuration().Observe(h.clock.Since(start).Seconds())

	h.forward(eventType, payload)
}

// dropFailed counts a failure for each connection still registered and
// removes it.
func (h *Hub) dropFailed(conns []Conn) {
	h.mu.Lock()
	failed := 0
	for _, conn := range conns {
		if _, ok := h.conns[conn]; ok {
			delete(h.conns, conn)
			failed++
		}
	}
	h.stats.MessagesFailed += failed
	h.stats.ActiveConnections = len(h.conns)
	active := len(h.conns)
	h.mu.Unlock()

	for i := 0; i < failed; i++ {
		h.metrics.MessagesFailed().Inc()
	}
	h.metrics.ConnectionsActive().Set(float64(active))
	if failed > 0 {
		log.Warn().Int("removed", failed).Int("active", active).Msg("Removed failed WebSocket clients")
	}
}

func (h *Hub) forward(eventType string, payload any) {
	if h.forwarder == nil {
		return
	}
	if err := h.forwarder.Forward(eventType, payload); err != nil {
		h.metrics.ForwardErrors().Inc()
		log.Error().Err(err).Str("type", eventType).Msg("Failed to forward event")
	}
}

// PublishStatus broadcasts the bot status.
func (h *Hub) PublishStatus(status model.BotStatus) {
	h.Broadcast(TypeBotStatus, status)
}

// PublishBalance broadcasts a balance update.
func (h *Hub) PublishBalance(balance model.BalanceInfo) {
	h.Broadcast(TypeBalance, balance)
}

// PublishPositions broadcasts the open positions.
func (h *Hub) PublishPositions(positions model.PositionsInfo) {
	h.Broadcast(TypePositions, positions)
}

// PublishTrade broadcasts one new trade.
func (h *Hub) PublishTrade(trade model.TradeView) {
	h.Broadcast(TypeNewTrade, trade)
}

// PublishSignals broadcasts the latest strategy signals.
func (h *Hub) PublishSignals(signals []model.SignalView) {
	h.Broadcast(TypeSignals, signals)
}

// PublishControl broadcasts bot_started or bot_stopped.
func (h *Hub) PublishControl(started bool, notice model.ControlNotice) {
	if started {
		h.Broadcast(TypeBotStarted, notice)
		return
	}
	h.Broadcast(TypeBotStopped, notice)
}

// PublishTickers broadcasts the realtime ticker set.
func (h *Hub) PublishTickers(tickers model.TickerSet) {
	h.Broadcast(TypeTickers, tickers)
}

// PublishLog broadcasts one system log entry.
func (h *Hub) PublishLog(entry model.LogEntry) {
	h.Broadcast(TypeLog, entry)
}

// Snapshot returns the current initial-sync payload.
func (h *Hub) Snapshot() SnapshotData {
	return h.snapshot.ReadAll()
}

// Stats returns a copy of the delivery counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	stats := h.stats
	loop := h.loop
	h.mu.Unlock()

	stats.Uptime = "stopped"
	if loop != nil && loop.Running() {
		stats.Uptime = "running"
	}
	return stats
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll removes every connection, closing those that can be closed.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[Conn]*peer)
	h.stats.ActiveConnections = 0
	h.mu.Unlock()

	for conn := range conns {
		if c, ok := conn.(io.Closer); ok {
			c.Close()
		}
	}
	h.metrics.ConnectionsActive().Set(0)
}

func (h *Hub) attachLoop(loop interface{ Running() bool }) {
	h.mu.Lock()
	h.loop = loop
	h.mu.Unlock()
}
