// Package realtime pushes bot state to connected dashboard clients.
//
// A Hub owns the set of registered connections, the delivery statistics and
// the Snapshot of last-known values that new connections receive on arrival.
// Events are broadcast to every connection; a connection whose send fails is
// dropped after the fan-out pass. A Refresher polls the bot manager on a fixed
// interval and broadcasts what it finds.
package realtime

import (
	"time"
)

// Event types pushed to clients.
const (
	TypeInitial    = "initial"
	TypeBotStatus  = "bot_status"
	TypeBalance    = "balance_update"
	TypePositions  = "position_update"
	TypeNewTrade   = "new_trade"
	TypeSignals    = "signal_update"
	TypeBotStarted = "bot_started"
	TypeBotStopped = "bot_stopped"
	TypeTickers    = "ticker_update"
	TypeLog        = "log_message"
)

// Conn is one push connection. Send must be safe for concurrent use.
type Conn interface {
	Send(data []byte) error
}

// Forwarder receives a copy of every broadcast event, e.g. to relay it over a
// second transport. Its errors are logged and otherwise ignored.
type Forwarder interface {
	Forward(eventType string, payload any) error
}

// Event is the envelope of every pushed message.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Stats are the hub's delivery counters.
type Stats struct {
	TotalConnections  int    `json:"total_connections"`
	MessagesSent      int    `json:"messages_sent"`
	MessagesFailed    int    `json:"messages_failed"`
	ActiveConnections int    `json:"active_connections"`
	Uptime            string `json:"uptime"` // "running" or "stopped", from the refresh loop
}
