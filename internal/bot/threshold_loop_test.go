package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/futures-threshold-bot/internal/errors"
	"github.com/ducminhle1904/futures-threshold-bot/internal/exchange/binance"
)

// fakeClock fires every wait immediately and records what was asked for
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// priceStep is one scripted ticker response
type priceStep struct {
	price     string // empty yields a ticker without a price
	err       error
	nilTicker bool
}

type fakeExchange struct {
	prices      []priceStep
	priceCalls  int
	positions   []binance.PositionRisk
	positionErr error
	orderErrs   []error // consumed per order call
	orders      []binance.MarketOrderParams
	positionQry []string
}

func (f *fakeExchange) GetTickerPrice(ctx context.Context, symbol string) (*binance.TickerPrice, error) {
	step := f.prices[len(f.prices)-1]
	if f.priceCalls < len(f.prices) {
		step = f.prices[f.priceCalls]
	}
	f.priceCalls++
	if step.err != nil {
		return nil, step.err
	}
	if step.nilTicker {
		return nil, nil
	}
	if step.price == "" {
		return &binance.TickerPrice{Symbol: symbol}, nil
	}
	return &binance.TickerPrice{Symbol: symbol, Price: decimal.RequireFromString(step.price)}, nil
}

func (f *fakeExchange) PlaceMarketOrder(ctx context.Context, params binance.MarketOrderParams) (*binance.Order, error) {
	idx := len(f.orders)
	f.orders = append(f.orders, params)
	if idx < len(f.orderErrs) && f.orderErrs[idx] != nil {
		return nil, f.orderErrs[idx]
	}
	return &binance.Order{
		OrderID:       int64(idx + 1),
		ClientOrderID: params.ClientOrderID,
		Symbol:        params.Symbol,
		Side:          params.Side,
		Type:          binance.OrderTypeMarket,
		Status:        binance.OrderStatusNew,
		OrigQty:       params.Quantity,
		ReduceOnly:    params.ReduceOnly,
	}, nil
}

func (f *fakeExchange) GetPositionRisk(ctx context.Context, symbol string) ([]binance.PositionRisk, error) {
	f.positionQry = append(f.positionQry, symbol)
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	return f.positions, nil
}

func prices(values ...string) []priceStep {
	steps := make([]priceStep, len(values))
	for i, v := range values {
		steps[i] = priceStep{price: v}
	}
	return steps
}

func position(symbol, amt string) binance.PositionRisk {
	return binance.PositionRisk{Symbol: symbol, PositionAmt: decimal.RequireFromString(amt)}
}

func transportErr() error {
	return boterrors.NewTransportError("binance", "GET /fapi/v1/ticker/price", errors.New("connection reset"))
}

func testConfig() LoopConfig {
	return LoopConfig{
		Symbol:            "BTCUSDT",
		BuyPriceThreshold: decimal.RequireFromString("30000"),
		BuyQuantity:       decimal.RequireFromString("0.001"),
		PollInterval:      5 * time.Second,
		MaxAttempts:       5,
		SettleDelay:       1500 * time.Millisecond,
	}
}

func newTestLoop(t *testing.T, ex Exchange, cfg LoopConfig, opts ...Option) (*ThresholdLoop, *fakeClock) {
	clock := newFakeClock()
	ids := 0
	opts = append([]Option{
		WithClock(clock),
		WithOrderIDs(func() string { ids++; return fmt.Sprintf("test-%d", ids) }),
	}, opts...)
	loop, err := NewThresholdLoop(ex, cfg, opts...)
	require.NoError(t, err)
	return loop, clock
}

// TestRun_TriggersOnThirdTick tests the basic descending price scenario
func TestRun_TriggersOnThirdTick(t *testing.T) {
	ex := &fakeExchange{
		prices:    prices("30500", "30200", "29950"),
		positions: []binance.PositionRisk{position("BTCUSDT", "0.001")},
	}
	loop, clock := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.FinalState)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, res.TriggerTick)
	assert.True(t, res.Triggered())
	assert.Equal(t, "29950", res.LastPrice.String())

	require.Len(t, ex.orders, 2)
	assert.Equal(t, binance.OrderSideBuy, ex.orders[0].Side)
	assert.Equal(t, "0.001", ex.orders[0].Quantity.String())
	assert.Equal(t, "test-1", ex.orders[0].ClientOrderID)
	assert.Equal(t, binance.OrderSideSell, ex.orders[1].Side)
	assert.Equal(t, "0.001", ex.orders[1].Quantity.String())
	assert.False(t, ex.orders[1].ReduceOnly)
	assert.Equal(t, []string{"BTCUSDT"}, ex.positionQry)

	// two poll waits, then the settle delay
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 1500 * time.Millisecond}, clock.waits)

	var states []State
	for _, tr := range res.Transitions {
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{StateTriggered, StateEntered, StateInspecting, StateClosing, StateDone}, states)
	assert.Len(t, res.Orders, 2)
	assert.Equal(t, PurposeEntry, res.Orders[0].Purpose)
	assert.Equal(t, PurposeClose, res.Orders[1].Purpose)
}

// TestRun_SkipsTransportErrorAndTriggersOnEqual tests tolerance plus the inclusive boundary
func TestRun_SkipsTransportErrorAndTriggersOnEqual(t *testing.T) {
	ex := &fakeExchange{
		prices:    []priceStep{{err: transportErr()}, {price: "30000"}},
		positions: []binance.PositionRisk{position("BTCUSDT", "0.001")},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, res.TriggerTick)
	require.Len(t, res.Ticks, 2)
	assert.Equal(t, TickSkipped, res.Ticks[0].Result)
	assert.NotEmpty(t, res.Ticks[0].Err)
	assert.Equal(t, TickTriggered, res.Ticks[1].Result)
	assert.Equal(t, StateDone, res.FinalState)
}

// TestRun_SkipsDecodeError tests that malformed responses are tolerated
func TestRun_SkipsDecodeError(t *testing.T) {
	decodeErr := boterrors.NewDecodeError("binance", "GET /fapi/v1/ticker/price", errors.New("bad json"))
	ex := &fakeExchange{
		prices:    []priceStep{{err: decodeErr}, {price: "100"}},
		positions: []binance.PositionRisk{position("BTCUSDT", "0")},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.TriggerTick)
}

// TestRun_SkipsTickerWithoutPrice tests that an unobserved price never triggers a buy
func TestRun_SkipsTickerWithoutPrice(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 3
	ex := &fakeExchange{prices: []priceStep{{}, {nilTicker: true}, {price: "0"}}}
	loop, _ := newTestLoop(t, ex, cfg)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.FinalState)
	assert.Equal(t, 3, ex.priceCalls)
	assert.Empty(t, ex.orders)
	assert.False(t, res.Triggered())
	require.Len(t, res.Ticks, 3)
	for _, tick := range res.Ticks {
		assert.Equal(t, TickSkipped, tick.Result)
		assert.Contains(t, tick.Err, "no positive price")
	}
}

// TestRun_MissingPriceThenTrigger tests that a skipped empty ticker still counts
func TestRun_MissingPriceThenTrigger(t *testing.T) {
	ex := &fakeExchange{
		prices:    []priceStep{{}, {price: "29000"}},
		positions: []binance.PositionRisk{position("BTCUSDT", "0")},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.TriggerTick)
	require.Len(t, ex.orders, 1)
	assert.Equal(t, binance.OrderSideBuy, ex.orders[0].Side)
}

// TestRun_FlatPositionPlacesNoCloseOrder tests the nothing-to-close path
func TestRun_FlatPositionPlacesNoCloseOrder(t *testing.T) {
	ex := &fakeExchange{
		prices:    prices("29000"),
		positions: []binance.PositionRisk{position("BTCUSDT", "0")},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.FinalState)
	assert.Len(t, ex.orders, 1)
	assert.Nil(t, res.CloseOrder)
	require.NotNil(t, res.Position)
	assert.True(t, res.Position.IsFlat())
}

// TestRun_ClosingSide tests that the close order reverses the position
func TestRun_ClosingSide(t *testing.T) {
	cases := []struct {
		amt  string
		side binance.OrderSide
		qty  string
	}{
		{"0.5", binance.OrderSideSell, "0.5"},
		{"-0.3", binance.OrderSideBuy, "0.3"},
	}

	for _, tc := range cases {
		t.Run(tc.amt, func(t *testing.T) {
			ex := &fakeExchange{
				prices:    prices("29999.99"),
				positions: []binance.PositionRisk{position("BTCUSDT", tc.amt)},
			}
			loop, _ := newTestLoop(t, ex, testConfig())

			res, err := loop.Run(context.Background())

			require.NoError(t, err)
			require.Len(t, ex.orders, 2)
			assert.Equal(t, tc.side, ex.orders[1].Side)
			assert.Equal(t, tc.qty, ex.orders[1].Quantity.String())
			assert.Equal(t, tc.side, res.CloseSide)
			assert.Equal(t, tc.qty, res.CloseQty.String())
			require.NotNil(t, res.CloseOrder)
			assert.Equal(t, StateDone, res.FinalState)
		})
	}
}

// TestRun_ReduceOnlyClose tests that the flag reaches only the closing order
func TestRun_ReduceOnlyClose(t *testing.T) {
	cfg := testConfig()
	cfg.ReduceOnlyClose = true
	ex := &fakeExchange{
		prices:    prices("1"),
		positions: []binance.PositionRisk{position("BTCUSDT", "0.001")},
	}
	loop, _ := newTestLoop(t, ex, cfg)

	_, err := loop.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, ex.orders, 2)
	assert.False(t, ex.orders[0].ReduceOnly)
	assert.True(t, ex.orders[1].ReduceOnly)
}

// TestRun_MissingPositionEndsDone tests the recoverable missing entry case
func TestRun_MissingPositionEndsDone(t *testing.T) {
	ex := &fakeExchange{
		prices:    prices("29000"),
		positions: []binance.PositionRisk{position("ETHUSDT", "1")},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, res.FinalState)
	assert.Nil(t, res.Position)
	assert.Len(t, ex.orders, 1)
	assert.Contains(t, res.Reason, "no position entry")
}

// TestRun_FirstMatchingPositionWins tests duplicate entries for the symbol
func TestRun_FirstMatchingPositionWins(t *testing.T) {
	ex := &fakeExchange{
		prices: prices("29000"),
		positions: []binance.PositionRisk{
			position("ETHUSDT", "3"),
			position("BTCUSDT", "0.002"),
			position("BTCUSDT", "-9"),
		},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, binance.OrderSideSell, res.CloseSide)
	assert.Equal(t, "0.002", res.CloseQty.String())
}

// TestRun_ExhaustsAttemptBudget tests exactly MaxAttempts ticks and no orders
func TestRun_ExhaustsAttemptBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 4
	ex := &fakeExchange{prices: prices("30001")}
	loop, clock := newTestLoop(t, ex, cfg)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.FinalState)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 4, ex.priceCalls)
	assert.Empty(t, ex.orders)
	assert.Empty(t, ex.positionQry)
	assert.False(t, res.Triggered())
	assert.Len(t, clock.waits, 3, "no wait after the final attempt")
}

// TestRun_ExhaustsOnPersistentErrors tests that skipped ticks count toward the budget
func TestRun_ExhaustsOnPersistentErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 3
	ex := &fakeExchange{prices: []priceStep{{err: transportErr()}}}
	loop, _ := newTestLoop(t, ex, cfg)

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.FinalState)
	assert.Equal(t, 3, ex.priceCalls)
	assert.Empty(t, ex.orders)
}

// TestRun_NeverReevaluatesAfterTrigger tests that one trigger yields one entry
func TestRun_NeverReevaluatesAfterTrigger(t *testing.T) {
	ex := &fakeExchange{
		prices:    prices("29000", "28000", "27000"),
		positions: []binance.PositionRisk{position("BTCUSDT", "0.001")},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	_, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, ex.priceCalls)
	buys := 0
	for _, o := range ex.orders {
		if o.Side == binance.OrderSideBuy {
			buys++
		}
	}
	assert.Equal(t, 1, buys)
}

// TestRun_NonTransportPollErrorPropagates tests that only I/O errors are tolerated
func TestRun_NonTransportPollErrorPropagates(t *testing.T) {
	validation := boterrors.NewValidationError("binance", "GetTickerPrice", "symbol is required")
	ex := &fakeExchange{prices: []priceStep{{err: validation}}}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryValidation))
	assert.Equal(t, 1, ex.priceCalls)
	assert.Equal(t, StateWatching, res.FinalState)
}

// TestRun_EntryOrderErrorPropagates tests failure of the buy
func TestRun_EntryOrderErrorPropagates(t *testing.T) {
	rejected := boterrors.NewTransportError("binance", "POST /fapi/v1/order", &binance.APIError{StatusCode: 400, Code: -2019, Message: "Margin is insufficient."})
	ex := &fakeExchange{
		prices:    prices("1"),
		orderErrs: []error{rejected},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.Error(t, err)
	assert.True(t, boterrors.IsTransport(err))
	assert.Equal(t, StateTriggered, res.FinalState)
	assert.Nil(t, res.EntryOrder)
	assert.Empty(t, ex.positionQry)
}

// TestRun_PositionQueryErrorPropagates tests failure of the inspection
func TestRun_PositionQueryErrorPropagates(t *testing.T) {
	ex := &fakeExchange{
		prices:      prices("1"),
		positionErr: transportErr(),
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateInspecting, res.FinalState)
	assert.Len(t, ex.orders, 1)
}

// TestRun_CloseOrderErrorPropagates tests failure of the closing order
func TestRun_CloseOrderErrorPropagates(t *testing.T) {
	ex := &fakeExchange{
		prices:    prices("1"),
		positions: []binance.PositionRisk{position("BTCUSDT", "0.001")},
		orderErrs: []error{nil, transportErr()},
	}
	loop, _ := newTestLoop(t, ex, testConfig())

	res, err := loop.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "place close order")
	assert.Equal(t, StateClosing, res.FinalState)
	assert.NotNil(t, res.EntryOrder)
	assert.Nil(t, res.CloseOrder)
}

// TestRun_CanceledContextStopsWaiting tests cancellation at a wait point
func TestRun_CanceledContextStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := &fakeExchange{prices: prices("31000")}
	loop, err := NewThresholdLoop(ex, testConfig(), WithClock(blockingClock{}))
	require.NoError(t, err)

	_, err = loop.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ex.priceCalls)
}

type blockingClock struct{}

func (blockingClock) Now() time.Time                       { return time.Time{} }
func (blockingClock) After(time.Duration) <-chan time.Time { return nil }

// recordingObserver collects events for assertions
type recordingObserver struct {
	ticks       []Tick
	transitions []Transition
	orders      []OrderEvent
}

func (r *recordingObserver) OnTick(_ string, tick Tick)          { r.ticks = append(r.ticks, tick) }
func (r *recordingObserver) OnTransition(_ string, t Transition) { r.transitions = append(r.transitions, t) }
func (r *recordingObserver) OnOrder(event OrderEvent)            { r.orders = append(r.orders, event) }

// TestRun_NotifiesObservers tests that every observer sees every event
func TestRun_NotifiesObservers(t *testing.T) {
	ex := &fakeExchange{
		prices:    prices("30500", "29950"),
		positions: []binance.PositionRisk{position("BTCUSDT", "-0.001")},
	}
	first, second := &recordingObserver{}, &recordingObserver{}
	loop, _ := newTestLoop(t, ex, testConfig(), WithObserver(first), WithObserver(second))

	res, err := loop.Run(context.Background())

	require.NoError(t, err)
	for _, obs := range []*recordingObserver{first, second} {
		assert.Len(t, obs.ticks, 2)
		assert.Len(t, obs.transitions, len(res.Transitions))
		assert.Len(t, obs.orders, 2)
	}
	assert.Equal(t, binance.OrderSideBuy, first.orders[1].Side)
}

// TestNewThresholdLoop_Validation tests construction errors and defaults
func TestNewThresholdLoop_Validation(t *testing.T) {
	_, err := NewThresholdLoop(nil, testConfig())
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryConfiguration))

	bad := testConfig()
	bad.BuyQuantity = decimal.Zero
	_, err = NewThresholdLoop(&fakeExchange{}, bad)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryConfiguration))

	bad = testConfig()
	bad.BuyPriceThreshold = decimal.NewFromInt(-1)
	_, err = NewThresholdLoop(&fakeExchange{}, bad)
	assert.Error(t, err)

	bad = testConfig()
	bad.Symbol = "  "
	_, err = NewThresholdLoop(&fakeExchange{}, bad)
	assert.Error(t, err)

	loop, err := NewThresholdLoop(&fakeExchange{}, LoopConfig{
		Symbol:            "btcusdt",
		BuyPriceThreshold: decimal.NewFromInt(1),
		BuyQuantity:       decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	cfg := loop.Config()
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, DefaultSettleDelay, cfg.SettleDelay)
}

// TestState_Ordinal tests the numeric encoding used by metrics
func TestState_Ordinal(t *testing.T) {
	assert.Equal(t, 0, StateWatching.Ordinal())
	assert.Equal(t, 6, StateExhausted.Ordinal())
	assert.Equal(t, -1, State("BOGUS").Ordinal())
	assert.True(t, StateDone.IsTerminal())
	assert.False(t, StateClosing.IsTerminal())
}
