package bot

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-threshold-bot/internal/exchange/binance"
)

// State is a phase of the threshold loop
type State string

const (
	StateWatching   State = "WATCHING"
	StateTriggered  State = "TRIGGERED"
	StateEntered    State = "ENTERED"
	StateInspecting State = "INSPECTING"
	StateClosing    State = "CLOSING"
	StateDone       State = "DONE"
	StateExhausted  State = "EXHAUSTED"
)

// States lists every state in declaration order
var States = []State{
	StateWatching,
	StateTriggered,
	StateEntered,
	StateInspecting,
	StateClosing,
	StateDone,
	StateExhausted,
}

// Ordinal returns the state's position in States, or -1
func (s State) Ordinal() int {
	for i, st := range States {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether the loop stops in s
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateExhausted
}

// TickResult classifies one price poll
type TickResult string

const (
	TickTriggered TickResult = "triggered"
	TickAbove     TickResult = "above"
	TickSkipped   TickResult = "skipped"
)

// Tick is one poll attempt
type Tick struct {
	Attempt int
	At      time.Time
	Price   decimal.Decimal // zero when skipped
	Result  TickResult
	Err     string // set when skipped
}

// Transition records a state change
type Transition struct {
	From   State
	To     State
	At     time.Time
	Reason string
}

// OrderPurpose tells an entry order from a closing one
type OrderPurpose string

const (
	PurposeEntry OrderPurpose = "entry"
	PurposeClose OrderPurpose = "close"
)

// OrderEvent is an acknowledged order placed by the loop
type OrderEvent struct {
	Purpose  OrderPurpose
	Symbol   string
	Side     binance.OrderSide
	Quantity decimal.Decimal
	At       time.Time
	Order    *binance.Order
}

// Result is the observable outcome of one Run
type Result struct {
	Symbol      string
	Threshold   decimal.Decimal
	FinalState  State
	Attempts    int
	LastPrice   decimal.Decimal
	TriggerTick int // 0 when never triggered
	EntryOrder  *binance.Order
	Position    *binance.PositionRisk
	CloseSide   binance.OrderSide
	CloseQty    decimal.Decimal
	CloseOrder  *binance.Order
	Ticks       []Tick
	Transitions []Transition
	Orders      []OrderEvent
	Reason      string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Triggered reports whether a tick satisfied the threshold
func (r *Result) Triggered() bool {
	return r.TriggerTick > 0
}
