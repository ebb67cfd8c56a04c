package trader

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"polymarket-weather-bot-go/internal/models"
	"polymarket-weather-bot-go/internal/polymarket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedMarkets blocks the first search until released, so a second tick
// can be requested while the first is still in flight.
type gatedMarkets struct {
	fakeMarkets
	entered chan struct{}
	release chan struct{}
	calls   int32
}

func (g *gatedMarkets) SearchEvents(ctx context.Context, query string) ([]polymarket.Event, error) {
	if atomic.AddInt32(&g.calls, 1) == 1 {
		close(g.entered)
		<-g.release
	}
	return nil, nil
}

func TestTickCoalescesConcurrentRequests(t *testing.T) {
	gate := &gatedMarkets{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newTestEngine(t, &fakeForecasts{blended: mockBlend(10, 5, 3)}, gate)

	type tick struct {
		result *TickResult
		err    error
	}
	results := make(chan tick, 2)
	run := func() {
		r, err := e.Tick(context.Background())
		results <- tick{result: r, err: err}
	}

	go run()
	<-gate.entered
	go run()
	time.Sleep(50 * time.Millisecond)
	close(gate.release)

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)

	// Both callers got the same completed cycle; only one search ran.
	assert.Same(t, first.result, second.result)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gate.calls))

	at, last := e.LastTick()
	assert.False(t, at.IsZero())
	assert.Same(t, first.result, last)
}

func TestTickAwaiterHonorsContext(t *testing.T) {
	gate := &gatedMarkets{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newTestEngine(t, &fakeForecasts{blended: mockBlend(10, 5, 3)}, gate)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.Tick(context.Background())
	}()
	<-gate.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Tick(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(gate.release)
	<-done
}

// fakeExchange records live-order activity for kill-switch tests.
type fakeExchange struct {
	orders    []polymarket.Order
	cancelled []string
}

func (f *fakeExchange) Balance(ctx context.Context) (float64, error) { return 0, nil }

func (f *fakeExchange) OpenOrders(ctx context.Context) ([]polymarket.Order, error) {
	return f.orders, nil
}

func (f *fakeExchange) PlaceBuyOrder(ctx context.Context, tokenID string, price, sizeUSD float64) *polymarket.OrderResult {
	return &polymarket.OrderResult{Success: true, OrderID: "buy-1"}
}

func (f *fakeExchange) PlaceSellOrder(ctx context.Context, tokenID string, price, size float64) *polymarket.OrderResult {
	return &polymarket.OrderResult{Success: true, OrderID: "sell-1"}
}

func (f *fakeExchange) CancelOrder(ctx context.Context, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func TestKillSwitch(t *testing.T) {
	e := newTestEngine(t, &fakeForecasts{}, &fakeMarkets{})
	e.exchange = &fakeExchange{orders: []polymarket.Order{{ID: "ord-1"}, {ID: "ord-2"}, {}}}

	require.NoError(t, e.store.InsertTrade(&models.Trade{
		City: "London", EventDate: "2026-09-01", Status: models.StatusOpen,
	}))
	require.NoError(t, e.store.InsertTrade(&models.Trade{
		City: "Dallas", EventDate: "2026-09-01", Status: models.StatusOpen,
	}))
	require.NoError(t, e.store.InsertTrade(&models.Trade{
		City: "Miami", EventDate: "2026-09-01", Status: models.StatusStop,
	}))

	cancelled, skipped, err := e.KillSwitch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)
	assert.Equal(t, int64(2), skipped)

	open, err := e.store.OpenTrades()
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestKillSwitchWithoutExchange(t *testing.T) {
	e := newTestEngine(t, &fakeForecasts{}, &fakeMarkets{})
	require.NoError(t, e.store.InsertTrade(&models.Trade{
		City: "London", EventDate: "2026-09-01", Status: models.StatusOpen,
	}))

	cancelled, skipped, err := e.KillSwitch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, cancelled)
	assert.Equal(t, int64(1), skipped)
}

func TestDisplayMode(t *testing.T) {
	e := newTestEngine(t, &fakeForecasts{}, &fakeMarkets{})
	assert.Equal(t, "paper", e.DisplayMode())

	e.SetDisplayMode("live")
	assert.Equal(t, "live", e.DisplayMode())
}
