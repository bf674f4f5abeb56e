package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-threshold-bot/internal/bot"
)

const maxRecentErrors = 10

// HealthChecker tracks poll freshness and loop state for one symbol
type HealthChecker struct {
	mu        sync.RWMutex
	symbol    string
	startTime time.Time
	state     bot.State
	attempts  int
	lastTick  time.Time
	lastPrice decimal.Decimal
	lastOrder time.Time
	pollOK    bool
	errors    []string
	now       func() time.Time
}

// HealthStatus is the JSON body served on /health
type HealthStatus struct {
	Status    string    `json:"status"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	State     bot.State `json:"state"`
	Attempts  int       `json:"attempts"`
	LastTick  time.Time `json:"last_tick"`
	LastPrice string    `json:"last_price"`
	LastOrder time.Time `json:"last_order"`
	Uptime    string    `json:"uptime"`
	Errors    []string  `json:"errors,omitempty"`
}

// NewHealthChecker creates a checker in the WATCHING state
func NewHealthChecker(symbol string) *HealthChecker {
	return &HealthChecker{
		symbol:    symbol,
		startTime: time.Now(),
		state:     bot.StateWatching,
		pollOK:    true,
		errors:    make([]string, 0),
		now:       time.Now,
	}
}

// RecordTick updates poll freshness; a skipped tick marks the feed degraded
func (h *HealthChecker) RecordTick(tick bot.Tick) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.attempts = tick.Attempt
	h.lastTick = tick.At
	h.pollOK = tick.Result != bot.TickSkipped
	if h.pollOK {
		h.lastPrice = tick.Price
		return
	}
	h.errors = append(h.errors, tick.Err)
	if len(h.errors) > maxRecentErrors {
		h.errors = h.errors[len(h.errors)-maxRecentErrors:]
	}
}

// RecordOrder notes the time of the latest order
func (h *HealthChecker) RecordOrder(event bot.OrderEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastOrder = event.At
}

// SetState records the loop state
func (h *HealthChecker) SetState(state bot.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
}

// Status returns the current health snapshot
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.pollOK {
		status = "degraded"
	}

	errs := make([]string, len(h.errors))
	copy(errs, h.errors)

	return HealthStatus{
		Status:    status,
		Symbol:    h.symbol,
		Timestamp: h.now(),
		State:     h.state,
		Attempts:  h.attempts,
		LastTick:  h.lastTick,
		LastPrice: h.lastPrice.String(),
		LastOrder: h.lastOrder,
		Uptime:    h.now().Sub(h.startTime).Round(time.Second).String(),
		Errors:    errs,
	}
}

// ServeHTTP writes the status as JSON, with 503 when degraded
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}
