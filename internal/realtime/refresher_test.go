package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bot-dashboard/internal/model"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls     atomic.Int32
	mu        sync.Mutex
	statusErr []error // consumed one per call
	panicOn   int32
	balance   model.BalanceInfo
	positions model.PositionsInfo
}

func (s *fakeSource) Status(context.Context) (model.BotStatus, error) {
	n := s.calls.Add(1)
	if s.panicOn != 0 && n == s.panicOn {
		panic("bot manager exploded")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statusErr) > 0 {
		err := s.statusErr[0]
		s.statusErr = s.statusErr[1:]
		if err != nil {
			return model.BotStatus{}, err
		}
	}
	return model.BotStatus{IsRunning: true, Status: "running", CyclesCompleted: int(n)}, nil
}

func (s *fakeSource) BalanceInfo(context.Context) (model.BalanceInfo, error) {
	return s.balance, nil
}

func (s *fakeSource) PositionsInfo(context.Context) (model.PositionsInfo, error) {
	return s.positions, nil
}

func startRefresher(t *testing.T, source Source) (*Refresher, *clockwork.FakeClock, *fakeConn) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	hub := NewHub()
	conn := &fakeConn{}
	require.NoError(t, hub.Register(conn))

	r := NewRefresher(hub, source, RefresherConfig{Clock: clock})
	r.Start(t.Context())
	t.Cleanup(r.Stop)
	return r, clock, conn
}

func waitForSleep(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func TestRefresher_TicksEveryInterval(t *testing.T) {
	source := &fakeSource{}
	_, clock, conn := startRefresher(t, source)

	waitForSleep(t, clock)
	assert.Equal(t, int32(1), source.calls.Load())

	clock.Advance(DefaultRefreshInterval)
	assert.Eventually(t, func() bool { return source.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	waitForSleep(t, clock)
	assert.Equal(t, []string{TypeInitial, TypeBotStatus, TypeBotStatus}, conn.types(t))
}

func TestRefresher_BacksOffAfterFailure(t *testing.T) {
	source := &fakeSource{statusErr: []error{errors.New("bot manager unreachable")}}
	r, clock, _ := startRefresher(t, source)

	waitForSleep(t, clock)
	assert.Equal(t, int32(1), source.calls.Load())

	// The normal interval is not enough after a failure
	clock.Advance(DefaultRefreshInterval)
	assert.Never(t, func() bool { return source.calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(DefaultRefreshBackoff - DefaultRefreshInterval)
	assert.Eventually(t, func() bool { return source.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, r.Running())

	// Back to the normal interval once a tick succeeds
	waitForSleep(t, clock)
	clock.Advance(DefaultRefreshInterval)
	assert.Eventually(t, func() bool { return source.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
}

func TestRefresher_RecoversFromPanic(t *testing.T) {
	source := &fakeSource{panicOn: 1}
	r, clock, _ := startRefresher(t, source)

	waitForSleep(t, clock)
	assert.True(t, r.Running())

	clock.Advance(DefaultRefreshBackoff)
	assert.Eventually(t, func() bool { return source.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestRefresher_SkipsEmptyBalanceAndPositions(t *testing.T) {
	source := &fakeSource{}
	_, clock, conn := startRefresher(t, source)
	waitForSleep(t, clock)
	assert.Equal(t, []string{TypeInitial, TypeBotStatus}, conn.types(t))

	source.balance = model.BalanceInfo{TotalUSDT: 100}
	source.positions = model.PositionsInfo{Positions: []model.PositionView{}}
	clock.Advance(DefaultRefreshInterval)

	assert.Eventually(t, func() bool { return len(conn.types(t)) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{TypeInitial, TypeBotStatus, TypeBotStatus, TypeBalance, TypePositions}, conn.types(t))
}

func TestRefresher_StartIsIdempotent(t *testing.T) {
	source := &fakeSource{}
	r, clock, _ := startRefresher(t, source)
	r.Start(t.Context())
	r.Start(t.Context())

	waitForSleep(t, clock)
	assert.Never(t, func() bool { return source.calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRefresher_StopInterruptsSleep(t *testing.T) {
	source := &fakeSource{}
	r, clock, _ := startRefresher(t, source)
	waitForSleep(t, clock)

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while the loop was sleeping")
	}
	assert.False(t, r.Running())

	// Stop twice is harmless
	r.Stop()

	clock.Advance(time.Minute)
	assert.Never(t, func() bool { return source.calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRefresher_ContextCancelStopsLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRefresher(NewHub(), &fakeSource{}, RefresherConfig{Clock: clock})

	ctx, cancel := context.WithCancel(t.Context())
	r.Start(ctx)
	waitForSleep(t, clock)

	cancel()
	assert.Eventually(t, func() bool { return !r.Running() }, time.Second, 5*time.Millisecond)

	// It can be started again afterwards
	r.Start(t.Context())
	assert.True(t, r.Running())
	r.Stop()
}

func TestRefresher_NilSourceTickIsNoop(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	require.NoError(t, hub.Register(conn))

	r := NewRefresher(hub, nil, RefresherConfig{})
	assert.NoError(t, r.Tick(t.Context()))
	assert.Equal(t, []string{TypeInitial}, conn.types(t))
}
