package reporting

import (
	"time"

	"github.com/ducminhle1904/futures-threshold-bot/internal/bot"
)

// RunReport is the flattened, serializable outcome of one loop run
type RunReport struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	Environment  string          `json:"environment,omitempty"`
	Symbol       string          `json:"symbol"`
	Threshold    string          `json:"threshold"`
	Quantity     string          `json:"quantity"`
	PollInterval string          `json:"poll_interval"`
	MaxAttempts  int             `json:"max_attempts"`
	FinalState   string          `json:"final_state"`
	Reason       string          `json:"reason"`
	Attempts     int             `json:"attempts"`
	TriggerTick  int             `json:"trigger_tick"`
	LastPrice    string          `json:"last_price"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Duration     string          `json:"duration"`
	Position     *PositionRow    `json:"position,omitempty"`
	Ticks        []TickRow       `json:"ticks"`
	Transitions  []TransitionRow `json:"transitions"`
	Orders       []OrderRow      `json:"orders"`
	Error        string          `json:"error,omitempty"`
}

type PositionRow struct {
	PositionAmt      string `json:"position_amt"`
	EntryPrice       string `json:"entry_price"`
	MarkPrice        string `json:"mark_price"`
	UnrealizedProfit string `json:"unrealized_profit"`
	CloseSide        string `json:"close_side,omitempty"`
	CloseQty         string `json:"close_qty,omitempty"`
}

type TickRow struct {
	Attempt int       `json:"attempt"`
	At      time.Time `json:"at"`
	Price   string    `json:"price,omitempty"`
	Result  string    `json:"result"`
	Error   string    `json:"error,omitempty"`
}

type TransitionRow struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

type OrderRow struct {
	Purpose       string    `json:"purpose"`
	Side          string    `json:"side"`
	Quantity      string    `json:"quantity"`
	At            time.Time `json:"at"`
	OrderID       int64     `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Status        string    `json:"status"`
	ReduceOnly    bool      `json:"reduce_only"`
}

// NewRunReport flattens result. A nil result yields a report with only the
// configuration filled in.
func NewRunReport(result *bot.Result, cfg bot.LoopConfig) *RunReport {
	report := &RunReport{
		GeneratedAt:  time.Now().UTC(),
		Symbol:       cfg.Symbol,
		Threshold:    cfg.BuyPriceThreshold.String(),
		Quantity:     cfg.BuyQuantity.String(),
		PollInterval: cfg.PollInterval.String(),
		MaxAttempts:  cfg.MaxAttempts,
		Ticks:        []TickRow{},
		Transitions:  []TransitionRow{},
		Orders:       []OrderRow{},
	}
	if result == nil {
		return report
	}

	report.FinalState = string(result.FinalState)
	report.Reason = result.Reason
	report.Attempts = result.Attempts
	report.TriggerTick = result.TriggerTick
	report.LastPrice = result.LastPrice.String()
	report.StartedAt = result.StartedAt
	report.FinishedAt = result.FinishedAt
	if !result.FinishedAt.IsZero() {
		report.Duration = result.FinishedAt.Sub(result.StartedAt).String()
	}

	if p := result.Position; p != nil {
		report.Position = &PositionRow{
			PositionAmt:      p.PositionAmt.String(),
			EntryPrice:       p.EntryPrice.String(),
			MarkPrice:        p.MarkPrice.String(),
			UnrealizedProfit: p.UnRealizedProfit.String(),
		}
		if result.CloseSide != "" {
			report.Position.CloseSide = string(result.CloseSide)
			report.Position.CloseQty = result.CloseQty.String()
		}
	}

	for _, t := range result.Ticks {
		row := TickRow{Attempt: t.Attempt, At: t.At, Result: string(t.Result), Error: t.Err}
		if t.Result != bot.TickSkipped {
			row.Price = t.Price.String()
		}
		report.Ticks = append(report.Ticks, row)
	}
	for _, t := range result.Transitions {
		report.Transitions = append(report.Transitions, TransitionRow{
			From:   string(t.From),
			To:     string(t.To),
			At:     t.At,
			Reason: t.Reason,
		})
	}
	for _, o := range result.Orders {
		row := OrderRow{
			Purpose:  string(o.Purpose),
			Side:     string(o.Side),
			Quantity: o.Quantity.String(),
			At:       o.At,
		}
		if o.Order != nil {
			row.OrderID = o.Order.OrderID
			row.ClientOrderID = o.Order.ClientOrderID
			row.Status = string(o.Order.Status)
			row.ReduceOnly = o.Order.ReduceOnly
		}
		report.Orders = append(report.Orders, row)
	}
	return report
}

// WithEnvironment records which exchange environment the run used
func (r *RunReport) WithEnvironment(env string) *RunReport {
	r.Environment = env
	return r
}

// WithError records the error that ended the run
func (r *RunReport) WithError(err error) *RunReport {
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Succeeded reports a run that ended in a terminal state without error
func (r *RunReport) Succeeded() bool {
	return r.Error == "" && bot.State(r.FinalState).IsTerminal()
}
