package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JabirHus/NCTB/internal/config"
	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/exchange/paper"
	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/JabirHus/NCTB/internal/retry"
	"github.com/JabirHus/NCTB/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var master = models.Credentials{Login: 7001, Password: "pw", Server: "Demo"}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memHistory struct {
	mu   sync.Mutex
	recs []models.TradeRecord
	err  error
}

func (h *memHistory) AppendTrade(_ context.Context, rec models.TradeRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.recs = append(h.recs, rec)
	return nil
}

type memNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *memNotifier) Log(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

type fixture struct {
	engine  *Engine
	broker  *paper.Broker
	history *memHistory
	notes   *memNotifier
	clock   *clock
}

func risingBars() []models.Bar {
	bars := make([]models.Bar, 0, 21)
	for i := 0; i < 20; i++ {
		bars = append(bars, models.Bar{Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1})
	}
	return append(bars, models.Bar{Open: 1.1, High: 1.2, Low: 1.1, Close: 1.2})
}

func newFixture(t *testing.T, mutate ...func(*config.ExecutionConfig)) *fixture {
	t.Helper()

	b := paper.New()
	b.AddAccount(master, paper.DefaultInstrument("EURUSD"), paper.DefaultInstrument("USDJPY"))
	b.SetTick(models.Tick{Symbol: "EURUSD", Bid: 1.10000, Ask: 1.10020})
	b.SetTick(models.Tick{Symbol: "USDJPY", Bid: 150.000, Ask: 150.020})
	b.SetBars("EURUSD", risingBars())

	cfg := config.ExecutionConfig{
		Enabled:        true,
		Instruments:    []string{"EURUSD", "USDJPY"},
		Volume:         0.1,
		PollInterval:   time.Hour,
		Cooldown:       time.Minute,
		Bars:           100,
		Timeframe:      "M1",
		StopLossPips:   10,
		TakeProfitPips: 20,
		Deviation:      10,
		Magic:          234001,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	eval, err := strategy.NewEvaluator(strategy.Definition{
		strategy.NameMovingAverage: {Enabled: true, Parameters: map[string]int{"period": 10, "shift": 1}},
	})
	require.NoError(t, err)

	f := &fixture{
		broker:  b,
		history: &memHistory{},
		notes:   &memNotifier{},
		clock:   &clock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
	}
	f.engine = New(cfg, b, master, eval, logger.Discard(),
		WithHistory(f.history),
		WithNotifier(f.notes),
		WithClock(f.clock.Now),
		WithRetryPolicy(retry.Policy{Attempts: 2, Initial: time.Millisecond}),
	)
	return f
}

func TestCyclePlacesOrderAndCoolsDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.Cycle(ctx, "EURUSD")

	sent := f.broker.Sent(master.Login)
	require.Len(t, sent, 1)
	req := sent[0].Request
	assert.Equal(t, models.SideBuy, req.Side)
	assert.Equal(t, 0.1, req.Volume)
	assert.Equal(t, 1.10020, req.Price)
	assert.InDelta(t, 1.09920, req.StopLoss, 1e-9)
	assert.InDelta(t, 1.10220, req.TakeProfit, 1e-9)
	assert.Equal(t, int64(234001), req.Magic)
	assert.Equal(t, "Trade-EURUSD", req.Comment)
	assert.Equal(t, models.FillingIOC, req.Filling)

	assert.Equal(t, StateCooldown, f.engine.State("EURUSD"))
	require.Len(t, f.history.recs, 1)
	assert.Equal(t, sent[0].Result.Order, f.history.recs[0].Ticket)
	assert.Len(t, f.notes.messages, 1)

	f.clock.Advance(30 * time.Second)
	f.engine.Cycle(ctx, "EURUSD")
	assert.Len(t, f.broker.Sent(master.Login), 1, "still cooling down")
	assert.Equal(t, StateCooldown, f.engine.State("EURUSD"))

	f.clock.Advance(time.Minute)
	f.engine.Cycle(ctx, "EURUSD")
	assert.Len(t, f.broker.Sent(master.Login), 1, "position still open")
	assert.Equal(t, StateIdle, f.engine.State("EURUSD"))
}

func TestClosedPositionReleasesInstrument(t *testing.T) {
	f := newFixture(t, func(c *config.ExecutionConfig) { c.Cooldown = 0 })
	ctx := context.Background()

	f.engine.Cycle(ctx, "EURUSD")
	require.Len(t, f.broker.Sent(master.Login), 1)
	ticket := f.broker.Sent(master.Login)[0].Result.Order

	f.engine.Cycle(ctx, "EURUSD")
	assert.Len(t, f.broker.Sent(master.Login), 1)

	f.broker.ClosePosition(master.Login, ticket)
	f.engine.Cycle(ctx, "EURUSD")
	assert.Len(t, f.broker.Sent(master.Login), 2)
}

func TestCycleSkipsWhenMarketDataFails(t *testing.T) {
	f := newFixture(t)
	f.broker.FailBars(exception.ErrTransientIO)

	f.engine.Cycle(context.Background(), "EURUSD")

	assert.Empty(t, f.broker.Sent(master.Login))
	assert.Equal(t, StateIdle, f.engine.State("EURUSD"))
	assert.Empty(t, f.notes.messages)
}

func TestCycleWithoutSignalStaysIdle(t *testing.T) {
	f := newFixture(t)
	flat := make([]models.Bar, 30)
	for i := range flat {
		flat[i] = models.Bar{Open: 1, High: 1, Low: 1, Close: 1}
	}
	f.broker.SetBars("EURUSD", flat)

	f.engine.Cycle(context.Background(), "EURUSD")
	assert.Empty(t, f.broker.Sent(master.Login))
	assert.Equal(t, StateIdle, f.engine.State("EURUSD"))
	assert.Equal(t, "NONE", f.engine.States()[0].LastVerdict)
}

func TestFailedOrderReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.broker.RejectOrders(master.Login, 10019)

	f.engine.Cycle(ctx, "EURUSD")
	assert.Equal(t, StateIdle, f.engine.State("EURUSD"))
	assert.Empty(t, f.history.recs)
	assert.Contains(t, f.engine.States()[0].LastError, "retcode=10019")

	f.broker.RejectOrders(master.Login, 0)
	f.engine.Cycle(ctx, "EURUSD")
	assert.Equal(t, StateCooldown, f.engine.State("EURUSD"), "no cooldown after a failure")
}

func TestPlaceErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*fixture)
		mutate func(*config.ExecutionConfig)
		want   error
	}{
		{
			name:  "no quote",
			setup: func(f *fixture) { f.broker.RemoveTick("EURUSD") },
			want:  exception.ErrNoMarketData,
		},
		{
			name: "symbol cannot be selected",
			setup: func(f *fixture) {
				inst := paper.DefaultInstrument("EURUSD")
				inst.Visible = false
				f.broker.SetInstrument(master.Login, inst)
				f.broker.SetUnselectable(master.Login, "EURUSD")
			},
			want: exception.ErrSymbolUnavailable,
		},
		{
			name:   "volume normalizes to zero",
			mutate: func(c *config.ExecutionConfig) { c.Volume = 0 },
			want:   exception.ErrInvalidVolume,
		},
		{
			name:  "broker unreachable",
			setup: func(f *fixture) { f.broker.FailOrders(master.Login, errors.New("connection reset")) },
			want:  exception.ErrBrokerUnreachable,
		},
		{
			name:  "rejected",
			setup: func(f *fixture) { f.broker.RejectOrders(master.Login, 10016) },
			want:  exception.ErrOrderRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mutate []func(*config.ExecutionConfig)
			if tt.mutate != nil {
				mutate = append(mutate, tt.mutate)
			}
			f := newFixture(t, mutate...)
			if tt.setup != nil {
				tt.setup(f)
			}

			ticket, err := f.engine.Place(context.Background(), "EURUSD", models.SideSell)
			assert.Zero(t, ticket)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.history.recs)
		})
	}
}

func TestRejectedOrderCarriesCode(t *testing.T) {
	f := newFixture(t)
	f.broker.RejectOrders(master.Login, 10016)

	_, err := f.engine.Place(context.Background(), "USDJPY", models.SideBuy)
	var rejected *exception.OrderRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, 10016, rejected.Code)
}

func TestHistoryFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.history.err = exception.ErrPersistence

	ticket, err := f.engine.Place(context.Background(), "USDJPY", models.SideSell)
	require.NoError(t, err)
	assert.NotZero(t, ticket)

	open := f.broker.OpenPositions(master.Login)
	require.Len(t, open, 1)
	assert.Equal(t, ticket, open[0].Ticket)
	assert.InDelta(t, 150.100, open[0].StopLoss, 1e-9)
	assert.InDelta(t, 149.800, open[0].TakeProfit, 1e-9)
}

func TestSessionIsRenewedAfterShutdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Place(ctx, "USDJPY", models.SideBuy)
	require.NoError(t, err)

	require.NoError(t, f.broker.Shutdown(ctx))
	_, err = f.engine.Place(ctx, "USDJPY", models.SideBuy)
	assert.ErrorIs(t, err, exception.ErrNoMarketData)
	assert.ErrorIs(t, err, exception.ErrSessionClosed)

	_, err = f.engine.Place(ctx, "USDJPY", models.SideBuy)
	assert.NoError(t, err)
}

func TestStartRestoresActiveMarkers(t *testing.T) {
	f := newFixture(t)
	f.broker.OpenPosition(master.Login, models.Position{Symbol: "EURUSD", Side: models.SideBuy, Volume: 0.1, Magic: 234001})
	f.broker.OpenPosition(master.Login, models.Position{Symbol: "USDJPY", Side: models.SideBuy, Volume: 0.1, Magic: 0})

	require.NoError(t, f.engine.Start(context.Background()))
	assert.Error(t, f.engine.Start(context.Background()), "already running")
	f.engine.Stop()

	states := f.engine.States()
	require.Len(t, states, 2)
	assert.True(t, states[0].Active, "EURUSD holds a bot position")
	assert.False(t, states[1].Active, "manual USDJPY position is not the bot's")
	assert.Empty(t, f.broker.Sent(master.Login))

	f.engine.ClearActive()
	assert.False(t, f.engine.States()[0].Active)
}

func TestStopWithoutStart(t *testing.T) {
	f := newFixture(t)
	assert.NotPanics(t, f.engine.Stop)
}

func TestUnknownInstrumentIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.engine.Cycle(context.Background(), "GBPUSD")
	assert.Empty(t, f.broker.Sent(master.Login))
	assert.Equal(t, StateIdle, f.engine.State("GBPUSD"))
}

func TestConcurrentCyclesSubmitOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.engine.Cycle(ctx, "EURUSD")
		}()
	}
	wg.Wait()

	assert.Len(t, f.broker.Sent(master.Login), 1)
	assert.Equal(t, StateCooldown, f.engine.State("EURUSD"))
}

func TestInstrumentsTradeIndependently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jpy := make([]models.Bar, 0, 21)
	for i := 0; i < 20; i++ {
		jpy = append(jpy, models.Bar{Open: 150, High: 150, Low: 150, Close: 150})
	}
	f.broker.SetBars("USDJPY", append(jpy, models.Bar{Open: 150, High: 151, Low: 150, Close: 151}))

	var wg sync.WaitGroup
	for _, symbol := range []string{"EURUSD", "USDJPY"} {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			f.engine.Cycle(ctx, symbol)
		}(symbol)
	}
	wg.Wait()

	sent := f.broker.Sent(master.Login)
	require.Len(t, sent, 2)
	symbols := []string{sent[0].Request.Symbol, sent[1].Request.Symbol}
	assert.ElementsMatch(t, []string{"EURUSD", "USDJPY"}, symbols)
	assert.Equal(t, StateCooldown, f.engine.State("EURUSD"))
	assert.Equal(t, StateCooldown, f.engine.State("USDJPY"))
}
