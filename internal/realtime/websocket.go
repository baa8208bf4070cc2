package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultWriteTimeout = 10 * time.Second
	maxInboundMessage   = 64 * 1024
)

// WSConn adapts a gorilla WebSocket connection to Conn. Writes are
// serialised; gorilla allows only one concurrent writer.
type WSConn struct {
	id           uuid.UUID
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func NewWSConn(conn *websocket.Conn, writeTimeout time.Duration) *WSConn {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &WSConn{id: uuid.New(), conn: conn, writeTimeout: writeTimeout}
}

// ID identifies the connection in logs.
func (c *WSConn) ID() string {
	return c.id.String()
}

func (c *WSConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// SendJSON marshals v and sends it.
func (c *WSConn) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(data)
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}

// inbound is a control message sent by a client.
type inbound struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

type controlReply struct {
	Type string `json:"type"`
}

type subscribedReply struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

// WSHandler upgrades requests to WebSocket connections registered with the
// hub and answers client control messages.
type WSHandler struct {
	hub          *Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

// NewWSHandler creates the /ws handler. checkOrigin may be nil to accept
// every origin.
func NewWSHandler(hub *Hub, checkOrigin func(r *http.Request) bool, writeTimeout time.Duration) *WSHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WSHandler{
		hub:          hub,
		upgrader:     websocket.Upgrader{CheckOrigin: checkOrigin},
		writeTimeout: writeTimeout,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn := NewWSConn(ws, h.writeTimeout)
	logger := log.With().Str("conn_id", conn.ID()).Str("remote", r.RemoteAddr).Logger()

	if err := h.hub.Register(conn); err != nil {
		conn.Close()
		return
	}
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	ws.SetReadLimit(maxInboundMessage)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn().Str("message", string(data)).Msg("Invalid WebSocket message format")
			continue
		}

		var reply any
		switch msg.Type {
		case "ping":
			reply = controlReply{Type: "pong"}
		case "subscribe":
			topics := msg.Topics
			if topics == nil {
				topics = []string{}
			}
			reply = subscribedReply{Type: "subscribed", Topics: topics}
		default:
			continue
		}

		if err := conn.SendJSON(reply); err != nil {
			logger.Error().Err(err).Msg("Failed to answer WebSocket client")
			return
		}
	}
}
