// Package sse streams dashboard events to browsers over Server-Sent Events.
// The Relay receives a copy of every hub broadcast and, on its own timer,
// a compact market snapshot.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSnapshotInterval = 2 * time.Second
	DefaultClientBuffer     = 32

	// SnapshotEvent names the periodic snapshot in the stream.
	SnapshotEvent = "snapshot"
)

// SnapshotFunc builds the periodic snapshot payload.
type SnapshotFunc func(ctx context.Context) any

type message struct {
	event string
	data  []byte
}

type envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Relay fans events out to SSE clients. Sends never block: a client whose
// buffer is full misses the event.
type Relay struct {
	mu      sync.Mutex
	clients map[chan message]struct{}

	snapshot SnapshotFunc
	interval time.Duration
	buffer   int
	clock    clockwork.Clock
}

// NewRelay creates a relay. snapshot may be nil to disable the periodic
// snapshot.
func NewRelay(snapshot SnapshotFunc, interval time.Duration, clock clockwork.Clock) *Relay {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		clients:  make(map[chan message]struct{}),
		snapshot: snapshot,
		interval: interval,
		buffer:   DefaultClientBuffer,
		clock:    clock,
	}
}

// Forward implements realtime.Forwarder.
func (r *Relay) Forward(eventType string, payload any) error {
	data, err := json.Marshal(envelope{Type: eventType, Timestamp: r.clock.Now().UTC(), Data: payload})
	if err != nil {
		return fmt.Errorf("sse: marshal %s: %w", eventType, err)
	}

	msg := message{event: eventType, data: data}
	dropped := 0

	r.mu.Lock()
	for ch := range r.clients {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	r.mu.Unlock()

	if dropped > 0 {
		return fmt.Errorf("sse: %s dropped for %d slow clients", eventType, dropped)
	}
	return nil
}

// Clients returns the number of connected streams.
func (r *Relay) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Relay) subscribe() chan message {
	ch := make(chan message, r.buffer)
	r.mu.Lock()
	r.clients[ch] = struct{}{}
	r.mu.Unlock()
	return ch
}

func (r *Relay) unsubscribe(ch chan message) {
	r.mu.Lock()
	delete(r.clients, ch)
	r.mu.Unlock()
}

// ServeHTTP streams events until the client goes away.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := r.subscribe()
	defer r.unsubscribe(ch)
	log.Debug().Str("remote", req.RemoteAddr).Msg("SSE client connected")

	ctx := req.Context()
	if err := r.writeSnapshot(ctx, w); err != nil {
		return
	}
	flusher.Flush()

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			log.Debug().Str("remote", req.RemoteAddr).Msg("SSE client disconnected")
			return
		case msg := <-ch:
			err = writeEvent(w, msg)
		case <-ticker.Chan():
			err = r.writeSnapshot(ctx, w)
		}
		if err != nil {
			log.Debug().Err(err).Msg("SSE write failed")
			return
		}
		flusher.Flush()
	}
}

func (r *Relay) writeSnapshot(ctx context.Context, w http.ResponseWriter) error {
	if r.snapshot == nil {
		return nil
	}
	data, err := json.Marshal(r.snapshot(ctx))
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal stream snapshot")
		return nil
	}
	return writeEvent(w, message{event: SnapshotEvent, data: data})
}

func writeEvent(w http.ResponseWriter, msg message) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
	return err
}
