package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errSend = errors.New("connection closed")

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	fail   bool
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errSend
	}
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) setFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

type rawEvent struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func (c *fakeConn) events(t *testing.T) []rawEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]rawEvent, 0, len(c.msgs))
	for _, msg := range c.msgs {
		var ev rawEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		events = append(events, ev)
	}
	return events
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, ev := range c.events(t) {
		types = append(types, ev.Type)
	}
	return types
}

type recordingForwarder struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (f *recordingForwarder) Forward(eventType string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, eventType)
	return f.err
}

func (f *recordingForwarder) forwarded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.types...)
}

// gatedConn holds its first send until release is closed.
type gatedConn struct {
	fakeConn
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedConn() *gatedConn {
	return &gatedConn{entered: make(chan struct{}), release: make(chan struct{})}
}

func (c *gatedConn) Send(data []byte) error {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.entered)
		<-c.release
	}
	return c.fakeConn.Send(data)
}
