package binance

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/futures-threshold-bot/internal/errors"
)

// OrderParams holds parameters for placing an order
type OrderParams struct {
	Symbol        string
	Side          OrderSide // case-insensitive, normalized to BUY/SELL
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal // LIMIT only
	TimeInForce   TimeInForce     // LIMIT only, defaults to GTC
	ClientOrderID string          // sent as newClientOrderId when set
	ReduceOnly    bool
}

// MarketOrderParams holds parameters for a MARKET order
type MarketOrderParams struct {
	Symbol        string
	Side          OrderSide
	Quantity      decimal.Decimal
	ClientOrderID string
	ReduceOnly    bool
}

// LimitOrderParams holds parameters for a LIMIT order
type LimitOrderParams struct {
	Symbol        string
	Side          OrderSide
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	TimeInForce   TimeInForce
	ClientOrderID string
	ReduceOnly    bool
}

// Validate normalizes the params and rejects anything the exchange would refuse
func (p OrderParams) Validate() (OrderParams, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return p, boterrors.NewValidationError(component, "PlaceOrder", "symbol is required")
	}

	side, err := ParseOrderSide(string(p.Side))
	if err != nil {
		return p, boterrors.NewValidationError(component, "PlaceOrder", err.Error())
	}
	p.Side = side

	if !p.Quantity.IsPositive() {
		return p, boterrors.NewValidationError(component, "PlaceOrder", "quantity must be positive").
			WithContext("quantity", p.Quantity.String())
	}

	p.Type = OrderType(strings.ToUpper(string(p.Type)))
	switch p.Type {
	case OrderTypeMarket:
		p.Price = decimal.Zero
		p.TimeInForce = ""
	case OrderTypeLimit:
		if !p.Price.IsPositive() {
			return p, boterrors.NewValidationError(component, "PlaceOrder", "price is required for limit orders")
		}
		if p.TimeInForce == "" {
			p.TimeInForce = TimeInForceGTC
		}
		p.TimeInForce = TimeInForce(strings.ToUpper(string(p.TimeInForce)))
		switch p.TimeInForce {
		case TimeInForceGTC, TimeInForceIOC, TimeInForceFOK, TimeInForceGTX:
		default:
			return p, boterrors.NewValidationError(component, "PlaceOrder", "invalid timeInForce "+string(p.TimeInForce))
		}
	default:
		return p, boterrors.NewValidationError(component, "PlaceOrder", "unsupported order type "+string(p.Type))
	}

	if len(p.ClientOrderID) > 36 {
		return p, boterrors.NewValidationError(component, "PlaceOrder", "client order id longer than 36 characters")
	}
	return p, nil
}

func (p OrderParams) values() url.Values {
	params := url.Values{}
	params.Set("symbol", p.Symbol)
	params.Set("side", string(p.Side))
	params.Set("type", string(p.Type))
	params.Set("quantity", p.Quantity.String())
	if p.Type == OrderTypeLimit {
		params.Set("price", p.Price.String())
		params.Set("timeInForce", string(p.TimeInForce))
	}
	if p.ClientOrderID != "" {
		params.Set("newClientOrderId", p.ClientOrderID)
	}
	if p.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	return params
}

// PlaceOrder validates params and submits a new order
func (c *Client) PlaceOrder(ctx context.Context, params OrderParams) (*Order, error) {
	validated, err := params.Validate()
	if err != nil {
		return nil, err
	}

	var order Order
	if err := c.private(ctx, http.MethodPost, pathOrder, validated.values(), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// PlaceMarketOrder places a MARKET order
func (c *Client) PlaceMarketOrder(ctx context.Context, params MarketOrderParams) (*Order, error) {
	return c.PlaceOrder(ctx, OrderParams{
		Symbol:        params.Symbol,
		Side:          params.Side,
		Type:          OrderTypeMarket,
		Quantity:      params.Quantity,
		ClientOrderID: params.ClientOrderID,
		ReduceOnly:    params.ReduceOnly,
	})
}

// PlaceLimitOrder places a LIMIT order; TimeInForce defaults to GTC
func (c *Client) PlaceLimitOrder(ctx context.Context, params LimitOrderParams) (*Order, error) {
	return c.PlaceOrder(ctx, OrderParams{
		Symbol:        params.Symbol,
		Side:          params.Side,
		Type:          OrderTypeLimit,
		Quantity:      params.Quantity,
		Price:         params.Price,
		TimeInForce:   params.TimeInForce,
		ClientOrderID: params.ClientOrderID,
		ReduceOnly:    params.ReduceOnly,
	})
}

// GetOrderStatus queries the current state of an order
func (c *Client) GetOrderStatus(ctx context.Context, symbol string, orderID int64) (*Order, error) {
	params, err := orderRef("GetOrderStatus", symbol, orderID)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := c.private(ctx, http.MethodGet, pathOrder, params, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels an open order and returns its final state
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) (*Order, error) {
	params, err := orderRef("CancelOrder", symbol, orderID)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := c.private(ctx, http.MethodDelete, pathOrder, params, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func orderRef(operation, symbol string, orderID int64) (url.Values, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, boterrors.NewValidationError(component, operation, "symbol is required")
	}
	if orderID <= 0 {
		return nil, boterrors.NewValidationError(component, operation, "orderId is required")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	return params, nil
}
