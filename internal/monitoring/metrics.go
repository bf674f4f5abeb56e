package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-threshold-bot/internal/bot"
)

var (
	// Loop metrics
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_bot_ticks_total",
			Help: "Total number of price polls by outcome",
		},
		[]string{"symbol", "result"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_bot_orders_total",
			Help: "Total number of orders acknowledged by the exchange",
		},
		[]string{"symbol", "side", "purpose"},
	)

	// Market data metrics
	lastPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_bot_last_price",
			Help: "Last observed ticker price",
		},
		[]string{"symbol"},
	)

	loopState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "futures_bot_state",
			Help: "Current loop state (0 WATCHING .. 5 DONE, 6 EXHAUSTED)",
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "futures_bot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(lastPrice)
	prometheus.MustRegister(loopState)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct {
	next http.Handler
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{next: promhttp.Handler()}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.next.ServeHTTP(w, r)
}

// RecordTick records one price poll
func RecordTick(symbol string, result bot.TickResult) {
	ticksTotal.WithLabelValues(symbol, string(result)).Inc()
}

// RecordOrder records an acknowledged order
func RecordOrder(symbol, side string, purpose bot.OrderPurpose) {
	ordersTotal.WithLabelValues(symbol, side, string(purpose)).Inc()
}

// UpdatePrice updates the last price metric
func UpdatePrice(symbol string, price decimal.Decimal) {
	lastPrice.WithLabelValues(symbol).Set(price.InexactFloat64())
}

// UpdateState updates the loop state metric
func UpdateState(symbol string, state bot.State) {
	loopState.WithLabelValues(symbol).Set(float64(state.Ordinal()))
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

// Recorder feeds loop events into the metrics and, when set, a health checker
type Recorder struct {
	health *HealthChecker
}

// NewRecorder creates a recorder. health may be nil.
func NewRecorder(health *HealthChecker) *Recorder {
	return &Recorder{health: health}
}

// OnTick counts the tick and updates the price gauge
func (r *Recorder) OnTick(symbol string, tick bot.Tick) {
	RecordTick(symbol, tick.Result)
	if tick.Result == bot.TickSkipped {
		RecordError("price_poll")
	} else {
		UpdatePrice(symbol, tick.Price)
	}
	if r.health != nil {
		r.health.RecordTick(tick)
	}
}

// OnTransition updates the state gauge
func (r *Recorder) OnTransition(symbol string, t bot.Transition) {
	UpdateState(symbol, t.To)
	if r.health != nil {
		r.health.SetState(t.To)
	}
}

// OnOrder counts the order
func (r *Recorder) OnOrder(event bot.OrderEvent) {
	RecordOrder(event.Symbol, string(event.Side), event.Purpose)
	if r.health != nil {
		r.health.RecordOrder(event)
	}
}
