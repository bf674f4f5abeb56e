package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	boterrors "github.com/ducminhle1904/futures-threshold-bot/internal/errors"
	"github.com/ducminhle1904/futures-threshold-bot/internal/exchange/binance"
)

const component = "bot"

// Loop defaults
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
	DefaultSettleDelay  = 1500 * time.Millisecond
)

// Exchange is the subset of the futures client the loop drives
type Exchange interface {
	GetTickerPrice(ctx context.Context, symbol string) (*binance.TickerPrice, error)
	PlaceMarketOrder(ctx context.Context, params binance.MarketOrderParams) (*binance.Order, error)
	GetPositionRisk(ctx context.Context, symbol string) ([]binance.PositionRisk, error)
}

// LoopConfig parameterizes one threshold run. Zero durations and attempts
// take the package defaults.
type LoopConfig struct {
	Symbol            string
	BuyPriceThreshold decimal.Decimal
	BuyQuantity       decimal.Decimal
	PollInterval      time.Duration
	MaxAttempts       int
	SettleDelay       time.Duration
	ReduceOnlyClose   bool
}

// WithDefaults fills unset fields
func (c LoopConfig) WithDefaults() LoopConfig {
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	return c
}

// Validate checks the trading parameters
func (c LoopConfig) Validate() error {
	if c.Symbol == "" {
		return boterrors.NewConfigurationError(component, "Validate", "symbol is required")
	}
	if !c.BuyPriceThreshold.IsPositive() {
		return boterrors.NewConfigurationError(component, "Validate", "buy price threshold must be positive").
			WithContext("threshold", c.BuyPriceThreshold.String())
	}
	if !c.BuyQuantity.IsPositive() {
		return boterrors.NewConfigurationError(component, "Validate", "buy quantity must be positive").
			WithContext("quantity", c.BuyQuantity.String())
	}
	return nil
}

// Option customizes a ThresholdLoop
type Option func(*ThresholdLoop)

// WithClock replaces the wall clock
func WithClock(clock Clock) Option {
	return func(l *ThresholdLoop) { l.clock = clock }
}

// WithLogger sets the loop logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *ThresholdLoop) { l.logger = logger }
}

// WithObserver registers an event observer. Repeated use adds observers.
func WithObserver(observer Observer) Option {
	return func(l *ThresholdLoop) {
		l.observers = append(l.observers, observer)
	}
}

// WithOrderIDs sets the generator for newClientOrderId
func WithOrderIDs(next func() string) Option {
	return func(l *ThresholdLoop) { l.orderIDs = next }
}

// ThresholdLoop watches a price and, on the first tick at or below the
// threshold, buys once, then flattens whatever position results.
type ThresholdLoop struct {
	exchange  Exchange
	config    LoopConfig
	clock     Clock
	logger    *zap.Logger
	observers []Observer
	observer  Observer
	orderIDs  func() string
}

// NewThresholdLoop creates a loop bound to one exchange and config
func NewThresholdLoop(ex Exchange, cfg LoopConfig, opts ...Option) (*ThresholdLoop, error) {
	if ex == nil {
		return nil, boterrors.NewConfigurationError(component, "NewThresholdLoop", "exchange is required")
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &ThresholdLoop{
		exchange: ex,
		config:   cfg,
		clock:    RealClock{},
		logger:   zap.NewNop(),
		orderIDs: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.observer = nopObserver{}
	if len(l.observers) > 0 {
		l.observer = MultiObserver(l.observers...)
	}
	l.logger = l.logger.With(zap.String("component", component), zap.String("symbol", cfg.Symbol))
	return l, nil
}

// Config returns the effective configuration
func (l *ThresholdLoop) Config() LoopConfig {
	return l.config
}

// Run executes the loop to a terminal state. On error the partial Result is
// returned with it.
func (l *ThresholdLoop) Run(ctx context.Context) (*Result, error) {
	cfg := l.config
	res := &Result{
		Symbol:     cfg.Symbol,
		Threshold:  cfg.BuyPriceThreshold,
		FinalState: StateWatching,
		StartedAt:  l.clock.Now(),
	}
	defer func() { res.FinishedAt = l.clock.Now() }()

	l.logger.Info("threshold loop started",
		zap.String("threshold", cfg.BuyPriceThreshold.String()),
		zap.String("quantity", cfg.BuyQuantity.String()),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Int("max_attempts", cfg.MaxAttempts))

	triggered, err := l.watch(ctx, res)
	if err != nil {
		return res, err
	}
	if !triggered {
		l.transition(res, StateExhausted, fmt.Sprintf("no price at or below %s in %d attempts", cfg.BuyPriceThreshold, res.Attempts))
		l.logger.Info("attempt budget exhausted", zap.Int("attempts", res.Attempts))
		return res, nil
	}

	if err := l.enter(ctx, res); err != nil {
		return res, err
	}

	position, err := l.inspect(ctx, res)
	if err != nil || position == nil {
		return res, err
	}

	if err := l.close(ctx, res, position); err != nil {
		return res, err
	}
	return res, nil
}

// watch polls until a tick triggers or the budget runs out
func (l *ThresholdLoop) watch(ctx context.Context, res *Result) (bool, error) {
	cfg := l.config

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		tick := Tick{Attempt: attempt, At: l.clock.Now()}

		ticker, err := l.exchange.GetTickerPrice(ctx, cfg.Symbol)
		if err == nil && (ticker == nil || !ticker.Price.IsPositive()) {
			err = boterrors.NewDecodeError(component, "watch", fmt.Errorf("ticker for %s has no positive price", cfg.Symbol))
		}
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if !boterrors.IsCategory(err, boterrors.ErrorCategoryTransport, boterrors.ErrorCategoryDecode) {
				return false, fmt.Errorf("poll price: %w", err)
			}
			tick.Result = TickSkipped
			tick.Err = err.Error()
			l.recordTick(res, tick)
			l.logger.Warn("price poll failed, skipping tick",
				zap.Int("attempt", attempt),
				zap.String("category", string(boterrors.CategoryOf(err))),
				zap.Error(err))

		case ticker.Price.LessThanOrEqual(cfg.BuyPriceThreshold):
			tick.Price = ticker.Price
			tick.Result = TickTriggered
			res.LastPrice = ticker.Price
			res.TriggerTick = attempt
			l.recordTick(res, tick)
			l.logger.Info("price at or below threshold",
				zap.Int("attempt", attempt),
				zap.String("price", ticker.Price.String()),
				zap.String("threshold", cfg.BuyPriceThreshold.String()))
			l.transition(res, StateTriggered, fmt.Sprintf("price %s <= %s", ticker.Price, cfg.BuyPriceThreshold))
			return true, nil

		default:
			tick.Price = ticker.Price
			tick.Result = TickAbove
			res.LastPrice = ticker.Price
			l.recordTick(res, tick)
			l.logger.Info("price above threshold",
				zap.Int("attempt", attempt),
				zap.String("price", ticker.Price.String()))
		}

		if attempt < cfg.MaxAttempts {
			if err := l.sleep(ctx, cfg.PollInterval); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

func (l *ThresholdLoop) enter(ctx context.Context, res *Result) error {
	cfg := l.config
	params := binance.MarketOrderParams{
		Symbol:        cfg.Symbol,
		Side:          binance.OrderSideBuy,
		Quantity:      cfg.BuyQuantity,
		ClientOrderID: l.orderIDs(),
	}

	order, err := l.exchange.PlaceMarketOrder(ctx, params)
	if err != nil {
		l.logger.Error("entry order failed", zap.Error(err))
		return fmt.Errorf("place entry order: %w", err)
	}
	res.EntryOrder = order
	l.recordOrder(res, PurposeEntry, params.Side, params.Quantity, order)
	l.transition(res, StateEntered, "entry order acknowledged")
	return nil
}

// inspect waits for the fill to settle and reads the position. A nil
// position with a nil error means the run is already DONE.
func (l *ThresholdLoop) inspect(ctx context.Context, res *Result) (*binance.PositionRisk, error) {
	cfg := l.config
	if err := l.sleep(ctx, cfg.SettleDelay); err != nil {
		return nil, err
	}
	l.transition(res, StateInspecting, "settle delay elapsed")

	positions, err := l.exchange.GetPositionRisk(ctx, cfg.Symbol)
	if err != nil {
		l.logger.Error("position query failed", zap.Error(err))
		return nil, fmt.Errorf("query position: %w", err)
	}

	position, ok := binance.FindPosition(positions, cfg.Symbol)
	if !ok {
		perr := boterrors.NewPositionError(component, "inspect", "no position entry for symbol").
			WithContext("entries", len(positions))
		l.logger.Warn("position not found after entry", zap.Error(perr))
		l.transition(res, StateDone, "no position entry for "+cfg.Symbol)
		return nil, nil
	}

	snapshot := *position
	res.Position = &snapshot
	if snapshot.IsFlat() {
		l.logger.Info("nothing to close", zap.String("position_amt", snapshot.PositionAmt.String()))
		l.transition(res, StateDone, "position is flat")
		return nil, nil
	}

	l.logger.Info("position open",
		zap.String("position_amt", snapshot.PositionAmt.String()),
		zap.String("entry_price", snapshot.EntryPrice.String()))
	return &snapshot, nil
}

func (l *ThresholdLoop) close(ctx context.Context, res *Result, position *binance.PositionRisk) error {
	cfg := l.config
	side, qty, _ := position.ClosingOrder()
	res.CloseSide = side
	res.CloseQty = qty
	l.transition(res, StateClosing, fmt.Sprintf("%s %s to flatten %s", side, qty, position.PositionAmt))

	params := binance.MarketOrderParams{
		Symbol:        cfg.Symbol,
		Side:          side,
		Quantity:      qty,
		ClientOrderID: l.orderIDs(),
		ReduceOnly:    cfg.ReduceOnlyClose,
	}
	order, err := l.exchange.PlaceMarketOrder(ctx, params)
	if err != nil {
		l.logger.Error("close order failed", zap.Error(err))
		return fmt.Errorf("place close order: %w", err)
	}
	res.CloseOrder = order
	l.recordOrder(res, PurposeClose, side, qty, order)
	l.transition(res, StateDone, "close order acknowledged")
	return nil
}

func (l *ThresholdLoop) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.clock.After(d):
		return nil
	}
}

func (l *ThresholdLoop) transition(res *Result, to State, reason string) {
	t := Transition{From: res.FinalState, To: to, At: l.clock.Now(), Reason: reason}
	res.FinalState = to
	res.Reason = reason
	res.Transitions = append(res.Transitions, t)
	l.logger.Info("state transition",
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.String("reason", reason))
	l.observer.OnTransition(res.Symbol, t)
}

func (l *ThresholdLoop) recordTick(res *Result, tick Tick) {
	res.Ticks = append(res.Ticks, tick)
	l.observer.OnTick(res.Symbol, tick)
}

func (l *ThresholdLoop) recordOrder(res *Result, purpose OrderPurpose, side binance.OrderSide, qty decimal.Decimal, order *binance.Order) {
	event := OrderEvent{
		Purpose:  purpose,
		Symbol:   res.Symbol,
		Side:     side,
		Quantity: qty,
		At:       l.clock.Now(),
		Order:    order,
	}
	res.Orders = append(res.Orders, event)
	l.logger.Info("order placed",
		zap.String("purpose", string(purpose)),
		zap.String("side", string(side)),
		zap.String("quantity", qty.String()),
		zap.Int64("order_id", order.OrderID),
		zap.String("status", string(order.Status)))
	l.observer.OnOrder(event)
}
