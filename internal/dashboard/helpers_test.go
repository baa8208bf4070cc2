package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bot-dashboard/internal/botmanager"
	"bot-dashboard/internal/logbook"
	"bot-dashboard/internal/market"
	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/model"
	"bot-dashboard/internal/query"
	"bot-dashboard/internal/realtime"
	"bot-dashboard/internal/storage"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var (
	testNow     = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	errUpstream = errors.New("upstream down")
)

type fakeManager struct {
	mu       sync.Mutex
	accept   bool
	message  string
	err      error
	starts   int
	stops    int
	status   model.BotStatus
	balance  model.BalanceInfo
	position model.PositionsInfo
}

func (m *fakeManager) Status(context.Context) (model.BotStatus, error) {
	return m.status, m.err
}

func (m *fakeManager) BalanceInfo(context.Context) (model.BalanceInfo, error) {
	return m.balance, m.err
}

func (m *fakeManager) PositionsInfo(context.Context) (model.PositionsInfo, error) {
	return m.position, m.err
}

func (m *fakeManager) Start(context.Context) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	return m.accept, m.message, m.err
}

func (m *fakeManager) Stop(context.Context) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return m.accept, m.message, m.err
}

// closingManager can also close positions; ids in open close successfully.
type closingManager struct {
	fakeManager
	open map[int64]bool
}

func (m *closingManager) ClosePosition(_ context.Context, id int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.open[id], nil
}

type failingStore struct{}

func (failingStore) View(context.Context, func(storage.Tx) error) error { return errUpstream }
func (failingStore) Close() error                                       { return nil }

// recordingConn is a push connection that keeps what it was sent.
type recordingConn struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *recordingConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *recordingConn) types(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.msgs))
	for _, msg := range c.msgs {
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(msg, &ev))
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	server  *Server
	hub     *realtime.Hub
	tickers *market.Cache
	logs    *logbook.Book
	store   *storage.BoltStore
	metrics *metrics.Metrics
}

type envOptions struct {
	store   storage.Store
	noStore bool
	manager botmanager.Manager
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)

	env := &testEnv{
		metrics: metrics.NewWithRegistry(prometheus.NewRegistry()),
		logs:    logbook.New(50, clock),
	}
	wrapper := metrics.NewWrapper(env.metrics)
	env.hub = realtime.NewHub(realtime.WithClock(clock), realtime.WithMetrics(wrapper))
	env.tickers = market.NewCache(env.hub, clock)

	var store storage.Store
	switch {
	case opts.noStore:
	case opts.store != nil:
		store = opts.store
	default:
		bolt, err := storage.NewBolt(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { bolt.Close() })
		env.store = bolt
		store = bolt
	}

	qopts := []query.Option{
		query.WithClock(clock),
		query.WithTickers(env.tickers),
		query.WithConnections(env.hub.Len),
	}
	if opts.manager != nil {
		qopts = append(qopts, query.WithManager(opts.manager))
	}
	queries := query.New(store, query.Config{
		Symbols:         []string{"BTCUSDT"},
		StrategyWeights: map[string]float64{"momentum": 0.5},
		MaxPositions:    5,
	}, qopts...)

	env.server = New(Config{Port: 0}, Deps{
		Queries: queries,
		Hub:     env.hub,
		Logs:    env.logs,
		Metrics: wrapper,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, target string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}
