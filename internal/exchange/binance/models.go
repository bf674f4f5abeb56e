package binance

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// ParseOrderSide normalizes s to an uppercase side
func ParseOrderSide(s string) (OrderSide, error) {
	side := OrderSide(strings.ToUpper(strings.TrimSpace(s)))
	switch side {
	case OrderSideBuy, OrderSideSell:
		return side, nil
	}
	return "", fmt.Errorf("invalid order side %q", s)
}

// Opposite returns the side that reduces a position opened with s
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType represents the type of an order
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TimeInForce represents how long an order remains active
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good Till Cancelled
	TimeInForceIOC TimeInForce = "IOC" // Immediate Or Cancel
	TimeInForceFOK TimeInForce = "FOK" // Fill Or Kill
	TimeInForceGTX TimeInForce = "GTX" // Post only
)

// OrderStatus represents the status of an order as reported by the exchange
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// IsFinal reports whether the exchange will no longer change the order
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}

// TickerPrice is the latest traded price for a symbol
type TickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   int64           `json:"time"`
}

// Balance is one asset entry of /fapi/v2/balance
type Balance struct {
	AccountAlias       string          `json:"accountAlias"`
	Asset              string          `json:"asset"`
	Balance            decimal.Decimal `json:"balance"`
	CrossWalletBalance decimal.Decimal `json:"crossWalletBalance"`
	CrossUnPnl         decimal.Decimal `json:"crossUnPnl"`
	AvailableBalance   decimal.Decimal `json:"availableBalance"`
	MaxWithdrawAmount  decimal.Decimal `json:"maxWithdrawAmount"`
	MarginAvailable    bool            `json:"marginAvailable"`
	UpdateTime         int64           `json:"updateTime"`
}

// AccountAsset is a per-asset summary inside AccountInfo
type AccountAsset struct {
	Asset            string          `json:"asset"`
	WalletBalance    decimal.Decimal `json:"walletBalance"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	MarginBalance    decimal.Decimal `json:"marginBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// AccountPosition is a per-symbol summary inside AccountInfo
type AccountPosition struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	Leverage         string          `json:"leverage"`
	PositionSide     string          `json:"positionSide"`
}

// AccountInfo is the /fapi/v2/account summary
type AccountInfo struct {
	FeeTier               int               `json:"feeTier"`
	CanTrade              bool              `json:"canTrade"`
	CanDeposit            bool              `json:"canDeposit"`
	CanWithdraw           bool              `json:"canWithdraw"`
	TotalWalletBalance    decimal.Decimal   `json:"totalWalletBalance"`
	TotalUnrealizedProfit decimal.Decimal   `json:"totalUnrealizedProfit"`
	TotalMarginBalance    decimal.Decimal   `json:"totalMarginBalance"`
	AvailableBalance      decimal.Decimal   `json:"availableBalance"`
	MaxWithdrawAmount     decimal.Decimal   `json:"maxWithdrawAmount"`
	Assets                []AccountAsset    `json:"assets"`
	Positions             []AccountPosition `json:"positions"`
	UpdateTime            int64             `json:"updateTime"`
}

// PositionRisk is a point-in-time position snapshot. PositionAmt is signed:
// positive long, negative short, zero flat.
type PositionRisk struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	MarkPrice        decimal.Decimal `json:"markPrice"`
	UnRealizedProfit decimal.Decimal `json:"unRealizedProfit"`
	LiquidationPrice decimal.Decimal `json:"liquidationPrice"`
	Leverage         string          `json:"leverage"`
	MarginType       string          `json:"marginType"`
	PositionSide     string          `json:"positionSide"`
	UpdateTime       int64           `json:"updateTime"`
}

// IsFlat reports a zero position
func (p PositionRisk) IsFlat() bool {
	return p.PositionAmt.IsZero()
}

// ClosingOrder returns the side and quantity that flatten the position.
// ok is false for a flat position.
func (p PositionRisk) ClosingOrder() (side OrderSide, quantity decimal.Decimal, ok bool) {
	if p.IsFlat() {
		return "", decimal.Zero, false
	}
	opened := OrderSideBuy
	if p.PositionAmt.IsNegative() {
		opened = OrderSideSell
	}
	return opened.Opposite(), p.PositionAmt.Abs(), true
}

// Order is the exchange's view of an order: the acknowledgment of a place
// call, the result of a status query or of a cancel.
type Order struct {
	OrderID       int64           `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	Symbol        string          `json:"symbol"`
	Status        OrderStatus     `json:"status"`
	Side          OrderSide       `json:"side"`
	Type          OrderType       `json:"type"`
	TimeInForce   TimeInForce     `json:"timeInForce"`
	Price         decimal.Decimal `json:"price"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	CumQuote      decimal.Decimal `json:"cumQuote"`
	ReduceOnly    bool            `json:"reduceOnly"`
	PositionSide  string          `json:"positionSide"`
	UpdateTime    int64           `json:"updateTime"`
}

// UpdatedAt converts the exchange millisecond timestamp
func (o Order) UpdatedAt() time.Time {
	if o.UpdateTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(o.UpdateTime)
}
